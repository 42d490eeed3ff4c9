package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CorrespondentSuite struct {
	suite.Suite
	f    *fixture
	ctx  context.Context
	date time.Time

	bankX *models.CorrespondentBank
	bankY *models.CorrespondentBank
}

func TestCorrespondentSuite(t *testing.T) {
	suite.Run(t, new(CorrespondentSuite))
}

func (s *CorrespondentSuite) SetupTest() {
	t := s.T()
	s.f = newFixture(t)
	s.ctx = context.Background()
	s.date = day(t, "2024-05-02")
	s.bankX = s.createBank("Bank X", s.f.usd, decPtr(t, "25"), nil)
	s.bankY = s.createBank("Bank Y", s.f.usd, nil, nil)
}

func (s *CorrespondentSuite) createBank(name string, currency models.Currency, maxLimit, minLimit *decimal.Decimal) *models.CorrespondentBank {
	bank, err := s.f.banks.CreateBank(s.ctx, CreateBankInput{
		Name:       name,
		CurrencyID: currency.ID,
		MaxLimit:   maxLimit,
		MinLimit:   minLimit,
	}, authorizer)
	s.Require().NoError(err)
	return bank
}

func (s *CorrespondentSuite) addBalance(bank *models.CorrespondentBank, amount string) {
	_, err := s.f.banks.AddBalance(s.ctx, bank.ID, s.date, dec(s.T(), amount), maker)
	s.Require().NoError(err)
}

func (s *CorrespondentSuite) activeAlerts() []models.Alert {
	alerts, err := s.f.alerts.ActiveAlerts(s.ctx, &s.date)
	s.Require().NoError(err)
	return alerts
}

func (s *CorrespondentSuite) TestMaxLimitExceededRaisesSingleAlert() {
	t := s.T()
	s.addBalance(s.bankY, "70")
	s.addBalance(s.bankX, "30")

	alerts := s.activeAlerts()
	s.Require().Len(alerts, 1)
	a := alerts[0]
	s.Equal(s.bankX.ID, a.BankID)
	s.Equal(domain.AlertMaxLimitExceeded, a.AlertType)
	assertDecimal(t, "30", a.CurrentPercentage)
	assertDecimal(t, "25", a.LimitPercentage)
	assertDecimal(t, "5", a.Variation)

	s.addBalance(s.bankX, "30")
	s.Len(s.activeAlerts(), 1)
}

func (s *CorrespondentSuite) TestMinLimitViolation() {
	t := s.T()
	low := s.createBank("Bank Low", s.f.usd, nil, decPtr(t, "20"))
	s.addBalance(s.bankY, "90")
	s.addBalance(low, "10")

	alerts := s.activeAlerts()
	s.Require().Len(alerts, 1)
	s.Equal(domain.AlertMinLimitViolated, alerts[0].AlertType)
	assertDecimal(t, "10", alerts[0].CurrentPercentage)
	assertDecimal(t, "10", alerts[0].Variation)
}

func (s *CorrespondentSuite) TestZeroTotalIsSkipped() {
	s.addBalance(s.bankX, "0")
	s.Empty(s.activeAlerts())
}

func (s *CorrespondentSuite) TestOtherCurrenciesAndInactiveBanksAreExcluded() {
	eurBank := s.createBank("Euro Bank", s.f.eur, nil, nil)
	s.addBalance(eurBank, "1000")
	dormant := s.createBank("Dormant", s.f.usd, nil, nil)
	s.addBalance(dormant, "1000")
	s.f.store.SetBankActive(dormant.ID, false)

	s.addBalance(s.bankY, "80")
	s.addBalance(s.bankX, "20")
	s.Empty(s.activeAlerts())
}

func (s *CorrespondentSuite) TestListBanksFiltersInactive() {
	dormant := s.createBank("Dormant", s.f.usd, nil, nil)
	s.f.store.SetBankActive(dormant.ID, false)

	active, err := s.f.banks.ListBanks(s.ctx, true)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal("Bank X", active[0].Name)
	s.Equal("Bank Y", active[1].Name)

	all, err := s.f.banks.ListBanks(s.ctx, false)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *CorrespondentSuite) TestLimitCheckFailureDoesNotFailWrite() {
	s.f.store.FailOn("SumCorrespondentBalances", errors.New("statement timeout"))
	defer s.f.store.FailOn("SumCorrespondentBalances", nil)

	bal, err := s.f.banks.AddBalance(s.ctx, s.bankX.ID, s.date, dec(s.T(), "30"), maker)
	s.Require().NoError(err)
	s.Equal(s.bankX.ID, bal.BankID)

	stored, err := s.f.store.GetCorrespondentBalance(s.ctx, s.bankX.ID, s.date)
	s.Require().NoError(err)
	assertDecimal(s.T(), "30", stored.BalanceAmount)
	s.Empty(s.activeAlerts())
}

func (s *CorrespondentSuite) TestAlertWriteFailureIsRolledBackToSavepoint() {
	s.addBalance(s.bankY, "70")
	s.f.store.FailOn("InsertAlertIfAbsent", errors.New("deadlock detected"))
	s.addBalance(s.bankX, "30")
	s.f.store.FailOn("InsertAlertIfAbsent", nil)

	s.Empty(s.activeAlerts())
	stored, err := s.f.store.GetCorrespondentBalance(s.ctx, s.bankX.ID, s.date)
	s.Require().NoError(err)
	assertDecimal(s.T(), "30", stored.BalanceAmount)
}

func (s *CorrespondentSuite) TestSweepPicksUpPopulationChanges() {
	s.addBalance(s.bankY, "80")
	s.addBalance(s.bankX, "20")
	s.Empty(s.activeAlerts())

	// Y shrinking pushes X over its max without any write to X
	s.addBalance(s.bankY, "40")
	s.Empty(s.activeAlerts())

	res, err := s.f.banks.SweepLimits(s.ctx, s.date)
	s.Require().NoError(err)
	s.Equal(2, res.Checked)
	s.Equal(1, res.Raised)
	s.Zero(res.Failed)

	alerts := s.activeAlerts()
	s.Require().Len(alerts, 1)
	assertDecimal(s.T(), "33.333333", alerts[0].CurrentPercentage)

	res, err = s.f.banks.SweepLimits(s.ctx, s.date)
	s.Require().NoError(err)
	s.Zero(res.Raised)
}

func (s *CorrespondentSuite) TestResolveAlertLifecycle() {
	s.addBalance(s.bankY, "70")
	s.addBalance(s.bankX, "30")
	alerts := s.activeAlerts()
	s.Require().Len(alerts, 1)

	resolved, err := s.f.alerts.Resolve(s.ctx, alerts[0].ID, authorizer)
	s.Require().NoError(err)
	s.True(resolved.IsResolved)
	s.Require().NotNil(resolved.ResolvedBy)
	s.Equal(authorizer.ID, *resolved.ResolvedBy)
	s.Empty(s.activeAlerts())

	_, err = s.f.alerts.Resolve(s.ctx, alerts[0].ID, authorizer)
	s.ErrorIs(err, apperrors.ErrStateConflict)
	_, err = s.f.alerts.Resolve(s.ctx, uuid.New(), authorizer)
	s.ErrorIs(err, apperrors.ErrNotFound)

	// a resolved alert no longer blocks a new one for the same breach
	s.addBalance(s.bankX, "30")
	s.Len(s.activeAlerts(), 1)
}

func (s *CorrespondentSuite) TestLimitValidation() {
	t := s.T()
	_, err := s.f.banks.UpdateLimits(s.ctx, s.bankX.ID, decPtr(t, "101"), nil, authorizer)
	s.ErrorIs(err, apperrors.ErrValidation)
	_, err = s.f.banks.UpdateLimits(s.ctx, s.bankX.ID, decPtr(t, "10"), decPtr(t, "20"), authorizer)
	s.ErrorIs(err, apperrors.ErrValidation)
	_, err = s.f.banks.UpdateLimits(s.ctx, s.bankX.ID, decPtr(t, "40"), decPtr(t, "5"), maker)
	s.ErrorIs(err, apperrors.ErrPermission)

	bank, err := s.f.banks.UpdateLimits(s.ctx, s.bankX.ID, decPtr(t, "40"), decPtr(t, "5"), authorizer)
	s.Require().NoError(err)
	assertDecimal(t, "40", *bank.MaxLimit)

	_, err = s.f.banks.AddBalance(s.ctx, uuid.New(), s.date, dec(t, "1"), maker)
	s.ErrorIs(err, apperrors.ErrNotFound)
	_, err = s.f.banks.AddBalance(s.ctx, s.bankX.ID, s.date, dec(t, "-1"), maker)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *CorrespondentSuite) TestLimitsReport() {
	t := s.T()
	s.addBalance(s.bankX, "30")
	s.addBalance(s.bankY, "70")

	report, err := s.f.banks.LimitsReport(s.ctx, s.date)
	s.Require().NoError(err)
	s.Require().Len(report.Currencies, 1)
	usd := report.Currencies[0]
	s.Equal("USD", usd.CurrencyCode)
	assertDecimal(t, "100", usd.Total)
	s.Require().Len(usd.Banks, 2)

	x := usd.Banks[0]
	s.Equal("Bank X", x.BankName)
	assertDecimal(t, "30", x.Percentage)
	s.Equal(domain.LimitStatusAboveMax, x.Status)
	assertDecimal(t, "5", x.Variation)

	y := usd.Banks[1]
	assertDecimal(t, "70", y.Percentage)
	s.Equal(domain.LimitStatusWithin, y.Status)
}

func (s *CorrespondentSuite) TestCashCoverReport() {
	t := s.T()
	opts := DefaultOptions()
	opts.CashCoverTopN = 2
	s.f.wire(opts)

	third := s.createBank("Bank Z", s.f.usd, nil, nil)
	s.addBalance(s.bankX, "10")
	s.addBalance(s.bankY, "60")
	s.addBalance(third, "30")

	report, err := s.f.banks.CashCoverReport(s.ctx, s.date)
	s.Require().NoError(err)
	s.Equal(2, report.TopN)
	s.Require().Len(report.Currencies, 1)

	cc := report.Currencies[0]
	s.Require().Len(cc.TopBanks, 2)
	s.Equal("Bank Y", cc.TopBanks[0].BankName)
	s.Equal("Bank Z", cc.TopBanks[1].BankName)
	assertDecimal(t, "90", cc.TopTotal)
	assertDecimal(t, "90", cc.TopPercentage)
	s.Equal(1, cc.OtherBanks)
	assertDecimal(t, "10", cc.OthersTotal)
}
