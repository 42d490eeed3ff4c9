package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *Store) InsertCorrespondentBank(ctx context.Context, b models.CorrespondentBank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.currencies[b.CurrencyID]; !ok {
		return notFound("currency")
	}
	s.st.banks[b.ID] = b
	return nil
}

func (s *Store) GetCorrespondentBank(ctx context.Context, id uuid.UUID) (models.CorrespondentBank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.banks[id]
	if !ok {
		return models.CorrespondentBank{}, notFound("correspondent bank")
	}
	return b, nil
}

func (s *Store) ListCorrespondentBanks(ctx context.Context, activeOnly bool) ([]models.CorrespondentBank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CorrespondentBank
	for _, b := range s.st.banks {
		if activeOnly && !b.Active {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetBankActive flips a bank's active flag.
func (s *Store) SetBankActive(id uuid.UUID, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.st.banks[id]; ok {
		b.Active = active
		s.st.banks[id] = b
	}
}

func (s *Store) UpdateCorrespondentLimits(ctx context.Context, id uuid.UUID, maxLimit, minLimit *decimal.Decimal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.banks[id]
	if !ok {
		return 0, nil
	}
	b.MaxLimit = maxLimit
	b.MinLimit = minLimit
	s.st.banks[id] = b
	return 1, nil
}

func (s *Store) UpsertCorrespondentBalance(ctx context.Context, bal models.CorrespondentBalance) (models.CorrespondentBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("UpsertCorrespondentBalance"); err != nil {
		return models.CorrespondentBalance{}, err
	}
	bal.BalanceDate = domain.Day(bal.BalanceDate)
	for id, existing := range s.st.balances {
		if existing.BankID == bal.BankID && existing.BalanceDate.Equal(bal.BalanceDate) {
			existing.BalanceAmount = bal.BalanceAmount
			existing.CreatedBy = bal.CreatedBy
			existing.UpdatedAt = bal.UpdatedAt
			s.st.balances[id] = existing
			return existing, nil
		}
	}
	s.st.balances[bal.ID] = bal
	return bal, nil
}

func (s *Store) GetCorrespondentBalance(ctx context.Context, bankID uuid.UUID, date time.Time) (models.CorrespondentBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("GetCorrespondentBalance"); err != nil {
		return models.CorrespondentBalance{}, err
	}
	day := domain.Day(date)
	for _, b := range s.st.balances {
		if b.BankID == bankID && b.BalanceDate.Equal(day) {
			return b, nil
		}
	}
	return models.CorrespondentBalance{}, notFound("correspondent balance")
}

func (s *Store) SumCorrespondentBalances(ctx context.Context, currencyID uuid.UUID, date time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("SumCorrespondentBalances"); err != nil {
		return decimal.Zero, err
	}
	day := domain.Day(date)
	total := decimal.Zero
	for _, bal := range s.st.balances {
		bank, ok := s.st.banks[bal.BankID]
		if !ok || !bank.Active || bank.CurrencyID != currencyID || !bal.BalanceDate.Equal(day) {
			continue
		}
		total = total.Add(bal.BalanceAmount)
	}
	return total, nil
}

func (s *Store) ListBankBalances(ctx context.Context, date time.Time) ([]repository.BankBalanceRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := domain.Day(date)
	var out []repository.BankBalanceRow
	for _, bank := range s.st.banks {
		if !bank.Active {
			continue
		}
		row := repository.BankBalanceRow{Bank: bank, Balance: decimal.Zero}
		for _, bal := range s.st.balances {
			if bal.BankID == bank.ID && bal.BalanceDate.Equal(day) {
				row.Balance = bal.BalanceAmount
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bank.CurrencyID != out[j].Bank.CurrencyID {
			return out[i].Bank.CurrencyID.String() < out[j].Bank.CurrencyID.String()
		}
		return out[i].Bank.Name < out[j].Bank.Name
	})
	return out, nil
}

func (s *Store) InsertAlertIfAbsent(ctx context.Context, a models.Alert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertAlertIfAbsent"); err != nil {
		return false, err
	}
	a.AlertDate = domain.Day(a.AlertDate)
	for _, existing := range s.st.alerts {
		if existing.IsResolved {
			continue
		}
		if existing.BankID == a.BankID && existing.AlertDate.Equal(a.AlertDate) && existing.AlertType == a.AlertType {
			return false, nil
		}
	}
	s.st.alerts[a.ID] = a
	return true, nil
}

func (s *Store) GetAlert(ctx context.Context, id uuid.UUID) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.alerts[id]
	if !ok {
		return models.Alert{}, notFound("alert")
	}
	return a, nil
}

func (s *Store) ResolveAlert(ctx context.Context, id, resolvedBy uuid.UUID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.alerts[id]
	if !ok || a.IsResolved {
		return 0, nil
	}
	a.IsResolved = true
	a.ResolvedBy = &resolvedBy
	a.ResolvedAt = &at
	s.st.alerts[id] = a
	return 1, nil
}

func (s *Store) ListUnresolvedAlerts(ctx context.Context, date *time.Time) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Alert
	for _, a := range s.st.alerts {
		if a.IsResolved {
			continue
		}
		if date != nil && !a.AlertDate.Equal(domain.Day(*date)) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AlertDate.Equal(out[j].AlertDate) {
			return out[i].AlertDate.After(out[j].AlertDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
