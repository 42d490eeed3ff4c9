package service

import (
	"context"
	"testing"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEntryRejectsDuplicateKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := CreateEntryInput{Date: day(t, "2024-05-02"), CurrencyID: f.usd.ID, ItemID: f.loans.ID, Amount: dec(t, "100")}
	first, err := f.ledger.CreateEntry(ctx, in, maker)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, first.Status)
	assert.Equal(t, domain.SourceManual, first.Source)
	assert.Nil(t, first.AuthorizedBy)

	_, err = f.ledger.CreateEntry(ctx, in, authorizer)
	require.ErrorIs(t, err, apperrors.ErrDuplicate)

	entries, err := f.ledger.ListEntries(ctx, day(t, "2024-05-02"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateEntryValidatesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.CreateEntry(ctx, CreateEntryInput{Date: day(t, "2024-05-02"), CurrencyID: uuid.New(), ItemID: f.loans.ID}, maker)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.ledger.CreateEntry(ctx, CreateEntryInput{CurrencyID: f.usd.ID, ItemID: f.loans.ID}, maker)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestEntryWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.CreateEntry(ctx, CreateEntryInput{
		Date: day(t, "2024-05-02"), CurrencyID: f.usd.ID, ItemID: f.loans.ID, Amount: dec(t, "250.50"),
	}, maker)
	require.NoError(t, err)

	// authorize requires submitted
	_, err = f.ledger.Authorize(ctx, entry.ID, authorizer)
	require.ErrorIs(t, err, apperrors.ErrStateConflict)
	var terr *apperrors.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.StatusDraft, terr.From)
	unchanged, err := f.ledger.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, unchanged.Status)

	submitted, err := f.ledger.Submit(ctx, entry.ID, maker)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, submitted.Status)

	_, err = f.ledger.Submit(ctx, entry.ID, maker)
	require.ErrorIs(t, err, apperrors.ErrStateConflict)

	_, err = f.ledger.Authorize(ctx, entry.ID, maker)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	authorized, err := f.ledger.Authorize(ctx, entry.ID, authorizer)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, authorized.Status)
	require.NotNil(t, authorized.AuthorizedBy)
	assert.Equal(t, authorizer.ID, *authorized.AuthorizedBy)

	_, err = f.ledger.Authorize(ctx, entry.ID, authorizer)
	require.ErrorIs(t, err, apperrors.ErrStateConflict)

	var actions []string
	for _, row := range f.store.AuditLogs() {
		if row.EntityID == entry.ID {
			actions = append(actions, row.Action)
		}
	}
	assert.Equal(t, []string{"create", "transition", "transition"}, actions)
}

func TestSkipAheadCreatesAuthorizedEntry(t *testing.T) {
	f := newFixture(t)

	entry := f.authorizedEntry(t, "2024-05-02", f.usd, f.loans, "10")
	require.NotNil(t, entry.AuthorizedBy)
	assert.Equal(t, authorizer.ID, *entry.AuthorizedBy)
}

func TestUpdateAndDeleteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.ledger.CreateEntry(ctx, CreateEntryInput{
		Date: day(t, "2024-05-02"), CurrencyID: f.usd.ID, ItemID: f.deposits.ID, Amount: dec(t, "40"),
	}, maker)
	require.NoError(t, err)

	notes := "corrected"
	updated, err := f.ledger.Update(ctx, draft.ID, UpdateEntryInput{Amount: dec(t, "45"), Notes: &notes}, maker)
	require.NoError(t, err)
	assertDecimal(t, "45", updated.Amount)
	assert.Equal(t, "corrected", updated.Notes)

	authorized := f.authorizedEntry(t, "2024-05-02", f.usd, f.loans, "100")

	_, err = f.ledger.Update(ctx, authorized.ID, UpdateEntryInput{Amount: dec(t, "1")}, maker)
	require.ErrorIs(t, err, apperrors.ErrPermission)
	_, err = f.ledger.Update(ctx, authorized.ID, UpdateEntryInput{Amount: dec(t, "1")}, authorizer)
	require.ErrorIs(t, err, apperrors.ErrPermission)
	require.ErrorIs(t, f.ledger.Delete(ctx, authorized.ID, authorizer), apperrors.ErrPermission)

	overridden, err := f.ledger.Update(ctx, authorized.ID, UpdateEntryInput{Amount: dec(t, "120")}, admin)
	require.NoError(t, err)
	assertDecimal(t, "120", overridden.Amount)
	assert.Equal(t, domain.StatusAuthorized, overridden.Status)

	require.NoError(t, f.ledger.Delete(ctx, authorized.ID, admin))
	_, err = f.ledger.GetEntry(ctx, authorized.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	var overrides int
	for _, row := range f.store.AuditLogs() {
		if row.Action == "override_update" || row.Action == "override_delete" {
			overrides++
		}
	}
	assert.Equal(t, 2, overrides)

	require.NoError(t, f.ledger.Delete(ctx, draft.ID, maker))
}

func TestRejectAndReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.CreateEntry(ctx, CreateEntryInput{
		Date: day(t, "2024-05-02"), CurrencyID: f.eur.ID, ItemID: f.loans.ID, Amount: dec(t, "5"),
	}, maker)
	require.NoError(t, err)
	_, err = f.ledger.Submit(ctx, entry.ID, maker)
	require.NoError(t, err)

	_, err = f.ledger.Reject(ctx, entry.ID, "  ", authorizer)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	rejected, err := f.ledger.Reject(ctx, entry.ID, "wrong item", authorizer)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	assert.Equal(t, "wrong item", rejected.RejectionReason)

	_, err = f.ledger.Update(ctx, entry.ID, UpdateEntryInput{Amount: dec(t, "6")}, maker)
	require.ErrorIs(t, err, apperrors.ErrStateConflict)

	reopened, err := f.ledger.Reopen(ctx, entry.ID, maker)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, reopened.Status)
	assert.Empty(t, reopened.RejectionReason)

	_, err = f.ledger.Update(ctx, entry.ID, UpdateEntryInput{Amount: dec(t, "6")}, maker)
	require.NoError(t, err)
}
