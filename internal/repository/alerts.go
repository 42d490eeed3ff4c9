package repository

import (
	"context"
	"time"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const alertColumns = `id, bank_id, alert_type, current_percentage, limit_percentage, variation,
	alert_date, is_resolved, resolved_by, resolved_at, created_at`

func scanAlert(row pgx.Row) (models.Alert, error) {
	var (
		a          models.Alert
		resolvedBy pgtype.UUID
	)
	err := row.Scan(
		&a.ID,
		&a.BankID,
		&a.AlertType,
		&a.CurrentPercentage,
		&a.LimitPercentage,
		&a.Variation,
		&a.AlertDate,
		&a.IsResolved,
		&resolvedBy,
		&a.ResolvedAt,
		&a.CreatedAt,
	)
	a.ResolvedBy = uuidPtr(resolvedBy)
	return a, err
}

const insertAlertIfAbsent = `
INSERT INTO alerts (
	id, bank_id, alert_type, current_percentage, limit_percentage, variation, alert_date, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (bank_id, alert_date, alert_type) WHERE NOT is_resolved DO NOTHING`

func (q *Queries) InsertAlertIfAbsent(ctx context.Context, a models.Alert) (bool, error) {
	tag, err := q.db.Exec(ctx, insertAlertIfAbsent,
		a.ID, a.BankID, a.AlertType, a.CurrentPercentage, a.LimitPercentage, a.Variation, a.AlertDate, a.CreatedAt)
	if err != nil {
		return false, translate(err, "insert alert")
	}
	return tag.RowsAffected() == 1, nil
}

const getAlert = `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

func (q *Queries) GetAlert(ctx context.Context, id uuid.UUID) (models.Alert, error) {
	a, err := scanAlert(q.db.QueryRow(ctx, getAlert, id))
	return a, translate(err, "alert")
}

const resolveAlert = `
UPDATE alerts
SET is_resolved = TRUE, resolved_by = $2, resolved_at = $3
WHERE id = $1 AND NOT is_resolved`

func (q *Queries) ResolveAlert(ctx context.Context, id, resolvedBy uuid.UUID, at time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, resolveAlert, id, resolvedBy, at)
	if err != nil {
		return 0, translate(err, "resolve alert")
	}
	return tag.RowsAffected(), nil
}

const listUnresolvedAlerts = `
SELECT ` + alertColumns + `
FROM alerts
WHERE NOT is_resolved AND ($1::date IS NULL OR alert_date = $1)
ORDER BY alert_date DESC, created_at DESC`

func (q *Queries) ListUnresolvedAlerts(ctx context.Context, date *time.Time) ([]models.Alert, error) {
	rows, err := q.db.Query(ctx, listUnresolvedAlerts, date)
	if err != nil {
		return nil, translate(err, "list alerts")
	}
	defer rows.Close()

	var items []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, translate(err, "scan alert")
		}
		items = append(items, a)
	}
	return items, translate(rows.Err(), "list alerts")
}
