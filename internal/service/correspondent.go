package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/observability"
	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxPercent = decimal.NewFromInt(100)

// CorrespondentService keeps correspondent bank balances and monitors each
// bank's share of its currency against the configured limits. Limit breaches
// raise alerts; they never block a balance write.
type CorrespondentService struct {
	store QueryStore
	audit *AuditService
	opts  Options
	clock Clock
}

func NewCorrespondentService(store QueryStore, audit *AuditService, opts Options) *CorrespondentService {
	return &CorrespondentService{store: store, audit: audit, opts: opts.withDefaults(), clock: systemClock}
}

// WithClock overrides the time source used for timestamps.
func (s *CorrespondentService) WithClock(clock Clock) *CorrespondentService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

type CreateBankInput struct {
	Name       string
	CurrencyID uuid.UUID
	MaxLimit   *decimal.Decimal
	MinLimit   *decimal.Decimal
}

func validateLimits(maxLimit, minLimit *decimal.Decimal) error {
	for _, l := range []*decimal.Decimal{maxLimit, minLimit} {
		if l != nil && (l.IsNegative() || l.GreaterThan(maxPercent)) {
			return fmt.Errorf("%w: limits must be between 0 and 100", apperrors.ErrValidation)
		}
	}
	if maxLimit != nil && minLimit != nil && minLimit.GreaterThan(*maxLimit) {
		return fmt.Errorf("%w: min limit exceeds max limit", apperrors.ErrValidation)
	}
	return nil
}

func (s *CorrespondentService) CreateBank(ctx context.Context, in CreateBankInput, actor models.Actor) (*models.CorrespondentBank, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !domain.CanAuthorize(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot register correspondent banks", apperrors.ErrPermission, actor.Role)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || in.CurrencyID == uuid.Nil {
		return nil, fmt.Errorf("%w: bank name and currency are required", apperrors.ErrValidation)
	}
	if err := validateLimits(in.MaxLimit, in.MinLimit); err != nil {
		return nil, err
	}

	bank := models.CorrespondentBank{
		ID:         uuid.New(),
		Name:       name,
		CurrencyID: in.CurrencyID,
		MaxLimit:   in.MaxLimit,
		MinLimit:   in.MinLimit,
		Active:     true,
		CreatedAt:  s.clock(),
	}
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetCurrency(ctx, bank.CurrencyID); err != nil {
			return err
		}
		if err := qtx.InsertCorrespondentBank(ctx, bank); err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, auditEntityBank, bank.ID, actorRef(actor), "create", "", "active", nil)
	})
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

func (s *CorrespondentService) ListBanks(ctx context.Context, activeOnly bool) ([]models.CorrespondentBank, error) {
	return s.store.Queries().ListCorrespondentBanks(ctx, activeOnly)
}

// UpdateLimits replaces both limits of a bank; nil clears a limit.
func (s *CorrespondentService) UpdateLimits(ctx context.Context, bankID uuid.UUID, maxLimit, minLimit *decimal.Decimal, actor models.Actor) (*models.CorrespondentBank, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !domain.CanAuthorize(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot change limits", apperrors.ErrPermission, actor.Role)
	}
	if err := validateLimits(maxLimit, minLimit); err != nil {
		return nil, err
	}

	var out models.CorrespondentBank
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		bank, err := qtx.GetCorrespondentBank(ctx, bankID)
		if err != nil {
			return err
		}
		rows, err := qtx.UpdateCorrespondentLimits(ctx, bankID, maxLimit, minLimit)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "update correspondent limits"); err != nil {
			return err
		}
		bank.MaxLimit, bank.MinLimit = maxLimit, minLimit
		out = bank
		return s.audit.Write(ctx, qtx, auditEntityBank, bankID, actorRef(actor), "update_limits", "", "",
			auditMetadata(map[string]string{"max_limit": limitString(maxLimit), "min_limit": limitString(minLimit)}))
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func limitString(l *decimal.Decimal) string {
	if l == nil {
		return ""
	}
	return l.String()
}

// AddBalance upserts the bank's balance for date and then checks limits.
// The check runs in a savepoint: its failure is logged and the balance
// write still commits.
func (s *CorrespondentService) AddBalance(ctx context.Context, bankID uuid.UUID, date time.Time, amount decimal.Decimal, actor models.Actor) (*models.CorrespondentBalance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: balance date is required", apperrors.ErrValidation)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: balance amount cannot be negative", apperrors.ErrValidation)
	}

	day := domain.Day(date)
	var out models.CorrespondentBalance
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		bank, err := qtx.GetCorrespondentBank(ctx, bankID)
		if err != nil {
			return err
		}
		out, err = qtx.UpsertCorrespondentBalance(ctx, models.CorrespondentBalance{
			ID:            uuid.New(),
			BankID:        bankID,
			BalanceDate:   day,
			BalanceAmount: amount,
			CreatedBy:     actor.ID,
			UpdatedAt:     s.clock(),
		})
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, auditEntityBank, bankID, actorRef(actor), "balance_upsert", "", "",
			auditMetadata(map[string]string{"date": day.Format(domain.DateLayout), "amount": amount.String()})); err != nil {
			return err
		}

		if err := qtx.Savepoint(ctx, func(sp repository.Querier) error {
			_, err := s.checkAndAlert(ctx, sp, bank, day)
			return err
		}); err != nil {
			observability.IncrementLimitCheckFailure()
			zap.L().Error("correspondent limit check failed",
				zap.String("bank_id", bankID.String()),
				zap.Time("date", day),
				zap.Error(err),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAndAlert evaluates one bank's concentration on date and returns the
// alerts newly raised.
func (s *CorrespondentService) CheckAndAlert(ctx context.Context, bankID uuid.UUID, date time.Time) ([]models.Alert, error) {
	var raised []models.Alert
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		bank, err := qtx.GetCorrespondentBank(ctx, bankID)
		if err != nil {
			return err
		}
		raised, err = s.checkAndAlert(ctx, qtx, bank, domain.Day(date))
		return err
	})
	if err != nil {
		return nil, err
	}
	return raised, nil
}

func (s *CorrespondentService) checkAndAlert(ctx context.Context, q repository.Querier, bank models.CorrespondentBank, day time.Time) ([]models.Alert, error) {
	if !bank.Active || (bank.MaxLimit == nil && bank.MinLimit == nil) {
		return nil, nil
	}
	bal, err := q.GetCorrespondentBalance(ctx, bank.ID, day)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bank balance: %w", err)
	}
	total, err := q.SumCorrespondentBalances(ctx, bank.CurrencyID, day)
	if err != nil {
		return nil, fmt.Errorf("sum currency balances: %w", err)
	}

	check, ok := domain.EvaluateLimits(bal.BalanceAmount, total, bank.MaxLimit, bank.MinLimit)
	if !ok {
		return nil, nil
	}

	var raised []models.Alert
	for _, v := range check.Violations {
		alert := models.Alert{
			ID:                uuid.New(),
			BankID:            bank.ID,
			AlertType:         v.Type,
			CurrentPercentage: check.Percentage,
			LimitPercentage:   v.Limit,
			Variation:         v.Variation,
			AlertDate:         day,
			CreatedAt:         s.clock(),
		}
		inserted, err := q.InsertAlertIfAbsent(ctx, alert)
		if err != nil {
			return nil, fmt.Errorf("insert alert: %w", err)
		}
		if !inserted {
			continue
		}
		observability.IncrementAlertRaised(v.Type)
		zap.L().Warn("correspondent limit breached",
			zap.String("bank_id", bank.ID.String()),
			zap.String("alert_type", v.Type),
			zap.String("percentage", check.Percentage.String()),
			zap.String("limit", v.Limit.String()),
		)
		raised = append(raised, alert)
	}
	return raised, nil
}

// SweepResult summarizes one SweepLimits run.
type SweepResult struct {
	Checked int `json:"checked"`
	Failed  int `json:"failed"`
	Raised  int `json:"raised"`
}

// SweepLimits re-checks every active bank on date. A balance written for one
// bank shifts the share of every other bank in the currency; the sweep picks
// those shifts up. Per-bank failures are logged and counted.
func (s *CorrespondentService) SweepLimits(ctx context.Context, date time.Time) (SweepResult, error) {
	banks, err := s.store.Queries().ListCorrespondentBanks(ctx, true)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list banks: %w", err)
	}
	day := domain.Day(date)
	var res SweepResult
	for _, bank := range banks {
		raised, err := s.CheckAndAlert(ctx, bank.ID, day)
		res.Checked++
		if err != nil {
			res.Failed++
			observability.IncrementLimitCheckFailure()
			zap.L().Error("limit sweep check failed", zap.String("bank_id", bank.ID.String()), zap.Error(err))
			continue
		}
		res.Raised += len(raised)
	}
	return res, nil
}

type bankGroup struct {
	currencyID uuid.UUID
	total      decimal.Decimal
	rows       []repository.BankBalanceRow
}

// groupByCurrency buckets active bank balances by currency, preserving the
// repository's ordering inside each bucket.
func (s *CorrespondentService) groupByCurrency(ctx context.Context, q repository.Querier, day time.Time) ([]*bankGroup, map[uuid.UUID]string, error) {
	rows, err := q.ListBankBalances(ctx, day)
	if err != nil {
		return nil, nil, fmt.Errorf("list bank balances: %w", err)
	}
	var (
		groups []*bankGroup
		index  = map[uuid.UUID]*bankGroup{}
		codes  = map[uuid.UUID]string{}
	)
	for _, r := range rows {
		g, ok := index[r.Bank.CurrencyID]
		if !ok {
			g = &bankGroup{currencyID: r.Bank.CurrencyID}
			index[r.Bank.CurrencyID] = g
			groups = append(groups, g)

			cur, err := q.GetCurrency(ctx, r.Bank.CurrencyID)
			if err != nil {
				return nil, nil, fmt.Errorf("currency of bank %s: %w", r.Bank.ID, err)
			}
			codes[cur.ID] = cur.Code
		}
		g.rows = append(g.rows, r)
		g.total = g.total.Add(r.Balance)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return codes[groups[i].currencyID] < codes[groups[j].currencyID]
	})
	return groups, codes, nil
}

// LimitsReport lists every active bank's share and limit status per currency.
func (s *CorrespondentService) LimitsReport(ctx context.Context, date time.Time) (*models.LimitsReport, error) {
	day := domain.Day(date)
	groups, codes, err := s.groupByCurrency(ctx, s.store.Queries(), day)
	if err != nil {
		return nil, err
	}

	report := &models.LimitsReport{Date: day, Currencies: []models.CurrencyLimits{}}
	for _, g := range groups {
		cl := models.CurrencyLimits{
			CurrencyID:   g.currencyID,
			CurrencyCode: codes[g.currencyID],
			Total:        g.total,
		}
		for _, r := range g.rows {
			status := models.BankLimitStatus{
				BankID:    r.Bank.ID,
				BankName:  r.Bank.Name,
				Balance:   r.Balance,
				MaxLimit:  r.Bank.MaxLimit,
				MinLimit:  r.Bank.MinLimit,
				Status:    domain.LimitStatusWithin,
				Variation: decimal.Zero,
			}
			if check, ok := domain.EvaluateLimits(r.Balance, g.total, r.Bank.MaxLimit, r.Bank.MinLimit); ok {
				status.Percentage = check.Percentage
				status.Status = check.Status
				if len(check.Violations) > 0 {
					status.Variation = check.Violations[0].Variation
				}
			}
			cl.Banks = append(cl.Banks, status)
		}
		report.Currencies = append(report.Currencies, cl)
	}
	return report, nil
}

// CashCoverReport lists, per currency, the top-N banks by balance and the
// remainder.
func (s *CorrespondentService) CashCoverReport(ctx context.Context, date time.Time) (*models.CashCoverReport, error) {
	day := domain.Day(date)
	groups, codes, err := s.groupByCurrency(ctx, s.store.Queries(), day)
	if err != nil {
		return nil, err
	}

	topN := s.opts.CashCoverTopN
	report := &models.CashCoverReport{Date: day, TopN: topN, Currencies: []models.CurrencyCashCover{}}
	for _, g := range groups {
		rows := append([]repository.BankBalanceRow(nil), g.rows...)
		sort.SliceStable(rows, func(i, j int) bool {
			if !rows[i].Balance.Equal(rows[j].Balance) {
				return rows[i].Balance.GreaterThan(rows[j].Balance)
			}
			return rows[i].Bank.Name < rows[j].Bank.Name
		})

		cc := models.CurrencyCashCover{
			CurrencyID:   g.currencyID,
			CurrencyCode: codes[g.currencyID],
			Total:        g.total,
			TopBanks:     []models.CashCoverBank{},
			TopTotal:     decimal.Zero,
			OthersTotal:  decimal.Zero,
		}
		for i, r := range rows {
			if i >= topN {
				cc.OtherBanks++
				cc.OthersTotal = cc.OthersTotal.Add(r.Balance)
				continue
			}
			cc.TopBanks = append(cc.TopBanks, models.CashCoverBank{
				BankID:     r.Bank.ID,
				BankName:   r.Bank.Name,
				Balance:    r.Balance,
				Percentage: domain.Percentage(r.Balance, g.total),
			})
			cc.TopTotal = cc.TopTotal.Add(r.Balance)
		}
		cc.TopPercentage = domain.Percentage(cc.TopTotal, g.total)
		report.Currencies = append(report.Currencies, cc)
	}
	return report, nil
}
