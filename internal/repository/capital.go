package repository

import (
	"context"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const lockCapitalTimeline = `SELECT pg_advisory_xact_lock(hashtext('capital_timeline'))`

func (q *Queries) LockCapitalTimeline(ctx context.Context) error {
	_, err := q.db.Exec(ctx, lockCapitalTimeline)
	return translate(err, "lock capital timeline")
}

const listCapitalRecords = `
SELECT id, amount, effective_date, currency_code, active, created_by, created_at
FROM capital_records
ORDER BY effective_date, created_at`

func (q *Queries) ListCapitalRecords(ctx context.Context) ([]models.CapitalRecord, error) {
	rows, err := q.db.Query(ctx, listCapitalRecords)
	if err != nil {
		return nil, translate(err, "list capital records")
	}
	defer rows.Close()

	var items []models.CapitalRecord
	for rows.Next() {
		var r models.CapitalRecord
		if err := rows.Scan(&r.ID, &r.Amount, &r.EffectiveDate, &r.CurrencyCode, &r.Active, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, translate(err, "scan capital record")
		}
		items = append(items, r)
	}
	return items, translate(rows.Err(), "list capital records")
}

const insertCapitalRecord = `
INSERT INTO capital_records (id, amount, effective_date, currency_code, active, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (q *Queries) InsertCapitalRecord(ctx context.Context, r models.CapitalRecord) error {
	_, err := q.db.Exec(ctx, insertCapitalRecord,
		r.ID, r.Amount, r.EffectiveDate, r.CurrencyCode, r.Active, r.CreatedBy, r.CreatedAt)
	return translate(err, "insert capital record")
}

const updateCapitalAmount = `UPDATE capital_records SET amount = $2 WHERE id = $1`

func (q *Queries) UpdateCapitalAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	tag, err := q.db.Exec(ctx, updateCapitalAmount, id, amount)
	if err != nil {
		return 0, translate(err, "update capital amount")
	}
	return tag.RowsAffected(), nil
}

const deactivateCapitalRecord = `UPDATE capital_records SET active = FALSE WHERE id = $1`

func (q *Queries) DeactivateCapitalRecord(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deactivateCapitalRecord, id)
	if err != nil {
		return 0, translate(err, "deactivate capital record")
	}
	return tag.RowsAffected(), nil
}
