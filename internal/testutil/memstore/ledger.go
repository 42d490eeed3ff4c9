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

func (s *Store) InsertTransaction(ctx context.Context, t models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertTransaction"); err != nil {
		return err
	}
	if _, ok := s.st.txns[t.ID]; ok {
		return duplicate("insert transaction")
	}
	t.TransactionDate = domain.Day(t.TransactionDate)
	s.st.txns[t.ID] = t
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.txns[id]
	if !ok {
		return models.Transaction{}, notFound("transaction")
	}
	return t, nil
}

func (s *Store) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return s.GetTransaction(ctx, id)
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, arg repository.UpdateTransactionStatusParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("UpdateTransactionStatus"); err != nil {
		return 0, err
	}
	t, ok := s.st.txns[arg.ID]
	if !ok {
		return 0, nil
	}
	t.Status = arg.Status
	t.AuthorizedBy = arg.AuthorizedBy
	t.RejectionReason = arg.RejectionReason
	t.UpdatedAt = time.Now().UTC()
	s.st.txns[arg.ID] = t
	return 1, nil
}

func (s *Store) ListTransactions(ctx context.Context, date time.Time) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := domain.Day(date)
	var out []models.Transaction
	for _, t := range s.st.txns {
		if t.TransactionDate.Equal(day) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SumAuthorizedTransactions(ctx context.Context, date time.Time) ([]repository.TransactionTotalRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := domain.Day(date)
	sums := map[uuid.UUID]*repository.TransactionTotalRow{}
	for _, t := range s.st.txns {
		if !t.TransactionDate.Equal(day) || t.Status != domain.StatusAuthorized {
			continue
		}
		row, ok := sums[t.CurrencyID]
		if !ok {
			row = &repository.TransactionTotalRow{CurrencyID: t.CurrencyID}
			sums[t.CurrencyID] = row
		}
		if t.Type == domain.TxTypePurchase {
			row.Purchases = row.Purchases.Add(t.Amount)
		} else {
			row.Sales = row.Sales.Add(t.Amount)
		}
	}
	out := make([]repository.TransactionTotalRow, 0, len(sums))
	for _, r := range sums {
		out = append(out, *r)
	}
	return out, nil
}

func (s *Store) LockCapitalTimeline(ctx context.Context) error {
	return nil
}

func (s *Store) ListCapitalRecords(ctx context.Context) ([]models.CapitalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListCapitalRecords"); err != nil {
		return nil, err
	}
	out := make([]models.CapitalRecord, 0, len(s.st.capital))
	for _, r := range s.st.capital {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EffectiveDate.Equal(out[j].EffectiveDate) {
			return out[i].EffectiveDate.Before(out[j].EffectiveDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) InsertCapitalRecord(ctx context.Context, r models.CapitalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertCapitalRecord"); err != nil {
		return err
	}
	r.EffectiveDate = domain.Day(r.EffectiveDate)
	s.st.capital[r.ID] = r
	return nil
}

func (s *Store) UpdateCapitalAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.capital[id]
	if !ok {
		return 0, nil
	}
	r.Amount = amount
	s.st.capital[id] = r
	return 1, nil
}

func (s *Store) DeactivateCapitalRecord(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.st.capital[id]
	if !ok {
		return 0, nil
	}
	r.Active = false
	s.st.capital[id] = r
	return 1, nil
}
