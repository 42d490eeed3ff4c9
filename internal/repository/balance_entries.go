package repository

import (
	"context"
	"time"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const balanceEntryColumns = `id, balance_date, currency_id, item_id, amount, status, source,
	created_by, authorized_by, notes, rejection_reason, created_at, updated_at`

func scanBalanceEntry(row pgx.Row) (models.BalanceEntry, error) {
	var (
		e            models.BalanceEntry
		authorizedBy pgtype.UUID
	)
	err := row.Scan(
		&e.ID,
		&e.BalanceDate,
		&e.CurrencyID,
		&e.ItemID,
		&e.Amount,
		&e.Status,
		&e.Source,
		&e.CreatedBy,
		&authorizedBy,
		&e.Notes,
		&e.RejectionReason,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	e.AuthorizedBy = uuidPtr(authorizedBy)
	return e, err
}

const lockBalanceKey = `SELECT pg_advisory_xact_lock(hashtext('balance:' || $1::text || ':' || $2::text || ':' || $3::text))`

func (q *Queries) LockBalanceKey(ctx context.Context, date time.Time, currencyID, itemID uuid.UUID) error {
	_, err := q.db.Exec(ctx, lockBalanceKey, date.Format("2006-01-02"), currencyID.String(), itemID.String())
	return translate(err, "lock balance key")
}

const insertBalanceEntry = `
INSERT INTO balance_entries (
	id, balance_date, currency_id, item_id, amount, status, source,
	created_by, authorized_by, notes, rejection_reason, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (q *Queries) InsertBalanceEntry(ctx context.Context, e models.BalanceEntry) error {
	_, err := q.db.Exec(ctx, insertBalanceEntry,
		e.ID,
		e.BalanceDate,
		e.CurrencyID,
		e.ItemID,
		e.Amount,
		e.Status,
		e.Source,
		e.CreatedBy,
		nullableUUID(e.AuthorizedBy),
		e.Notes,
		e.RejectionReason,
		e.CreatedAt,
		e.UpdatedAt,
	)
	return translate(err, "insert balance entry")
}

const getBalanceEntry = `SELECT ` + balanceEntryColumns + ` FROM balance_entries WHERE id = $1`

func (q *Queries) GetBalanceEntry(ctx context.Context, id uuid.UUID) (models.BalanceEntry, error) {
	e, err := scanBalanceEntry(q.db.QueryRow(ctx, getBalanceEntry, id))
	return e, translate(err, "balance entry")
}

const getBalanceEntryForUpdate = getBalanceEntry + ` FOR UPDATE`

func (q *Queries) GetBalanceEntryForUpdate(ctx context.Context, id uuid.UUID) (models.BalanceEntry, error) {
	e, err := scanBalanceEntry(q.db.QueryRow(ctx, getBalanceEntryForUpdate, id))
	return e, translate(err, "balance entry")
}

const getBalanceEntryByKey = `SELECT ` + balanceEntryColumns + `
FROM balance_entries
WHERE balance_date = $1 AND currency_id = $2 AND item_id = $3`

func (q *Queries) GetBalanceEntryByKey(ctx context.Context, date time.Time, currencyID, itemID uuid.UUID) (models.BalanceEntry, error) {
	e, err := scanBalanceEntry(q.db.QueryRow(ctx, getBalanceEntryByKey, date, currencyID, itemID))
	return e, translate(err, "balance entry")
}

const getLatestAuthorizedEntryBefore = `SELECT ` + balanceEntryColumns + `
FROM balance_entries
WHERE currency_id = $2 AND item_id = $3 AND balance_date < $1 AND status = 'authorized'
ORDER BY balance_date DESC
LIMIT 1`

func (q *Queries) GetLatestAuthorizedEntryBefore(ctx context.Context, date time.Time, currencyID, itemID uuid.UUID) (models.BalanceEntry, error) {
	e, err := scanBalanceEntry(q.db.QueryRow(ctx, getLatestAuthorizedEntryBefore, date, currencyID, itemID))
	return e, translate(err, "authorized balance entry")
}

const updateBalanceEntry = `
UPDATE balance_entries
SET amount = $2,
    status = $3,
    source = $4,
    authorized_by = $5,
    notes = $6,
    rejection_reason = $7,
    updated_at = $8
WHERE id = $1`

func (q *Queries) UpdateBalanceEntry(ctx context.Context, e models.BalanceEntry) (int64, error) {
	tag, err := q.db.Exec(ctx, updateBalanceEntry,
		e.ID,
		e.Amount,
		e.Status,
		e.Source,
		nullableUUID(e.AuthorizedBy),
		e.Notes,
		e.RejectionReason,
		e.UpdatedAt,
	)
	if err != nil {
		return 0, translate(err, "update balance entry")
	}
	return tag.RowsAffected(), nil
}

const deleteBalanceEntry = `DELETE FROM balance_entries WHERE id = $1`

func (q *Queries) DeleteBalanceEntry(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteBalanceEntry, id)
	if err != nil {
		return 0, translate(err, "delete balance entry")
	}
	return tag.RowsAffected(), nil
}

const listBalanceEntries = `SELECT ` + balanceEntryColumns + `
FROM balance_entries
WHERE balance_date = $1
ORDER BY currency_id, item_id`

func (q *Queries) ListBalanceEntries(ctx context.Context, date time.Time) ([]models.BalanceEntry, error) {
	rows, err := q.db.Query(ctx, listBalanceEntries, date)
	if err != nil {
		return nil, translate(err, "list balance entries")
	}
	defer rows.Close()

	var items []models.BalanceEntry
	for rows.Next() {
		e, err := scanBalanceEntry(rows)
		if err != nil {
			return nil, translate(err, "scan balance entry")
		}
		items = append(items, e)
	}
	return items, translate(rows.Err(), "list balance entries")
}

const sumAuthorizedByCategory = `
SELECT e.currency_id, i.category, COALESCE(SUM(e.amount), 0)::numeric
FROM balance_entries e
JOIN balance_items i ON i.id = e.item_id
WHERE e.balance_date = $1
  AND e.status = 'authorized'
  AND e.item_id <> $2
GROUP BY e.currency_id, i.category`

func (q *Queries) SumAuthorizedByCategory(ctx context.Context, date time.Time, excludeItemID uuid.UUID) ([]CategoryTotalRow, error) {
	rows, err := q.db.Query(ctx, sumAuthorizedByCategory, date, excludeItemID)
	if err != nil {
		return nil, translate(err, "sum balance entries")
	}
	defer rows.Close()

	var items []CategoryTotalRow
	for rows.Next() {
		var r CategoryTotalRow
		if err := rows.Scan(&r.CurrencyID, &r.Category, &r.Amount); err != nil {
			return nil, translate(err, "scan category total")
		}
		items = append(items, r)
	}
	return items, translate(rows.Err(), "sum balance entries")
}
