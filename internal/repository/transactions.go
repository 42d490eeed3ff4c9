package repository

import (
	"context"
	"time"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const transactionColumns = `id, transaction_date, currency_id, type, amount, rate, status,
	created_by, authorized_by, notes, rejection_reason, created_at, updated_at`

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var (
		t            models.Transaction
		authorizedBy pgtype.UUID
	)
	err := row.Scan(
		&t.ID,
		&t.TransactionDate,
		&t.CurrencyID,
		&t.Type,
		&t.Amount,
		&t.Rate,
		&t.Status,
		&t.CreatedBy,
		&authorizedBy,
		&t.Notes,
		&t.RejectionReason,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	t.AuthorizedBy = uuidPtr(authorizedBy)
	return t, err
}

const insertTransaction = `
INSERT INTO transactions (
	id, transaction_date, currency_id, type, amount, rate, status,
	created_by, authorized_by, notes, rejection_reason, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (q *Queries) InsertTransaction(ctx context.Context, t models.Transaction) error {
	_, err := q.db.Exec(ctx, insertTransaction,
		t.ID,
		t.TransactionDate,
		t.CurrencyID,
		t.Type,
		t.Amount,
		t.Rate,
		t.Status,
		t.CreatedBy,
		nullableUUID(t.AuthorizedBy),
		t.Notes,
		t.RejectionReason,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return translate(err, "insert transaction")
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRow(ctx, getTransaction, id))
	return t, translate(err, "transaction")
}

const getTransactionForUpdate = getTransaction + ` FOR UPDATE`

func (q *Queries) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRow(ctx, getTransactionForUpdate, id))
	return t, translate(err, "transaction")
}

const updateTransactionStatus = `
UPDATE transactions
SET status = $2,
    authorized_by = $3,
    rejection_reason = $4,
    updated_at = NOW()
WHERE id = $1`

func (q *Queries) UpdateTransactionStatus(ctx context.Context, arg UpdateTransactionStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateTransactionStatus,
		arg.ID,
		arg.Status,
		nullableUUID(arg.AuthorizedBy),
		arg.RejectionReason,
	)
	if err != nil {
		return 0, translate(err, "update transaction status")
	}
	return tag.RowsAffected(), nil
}

const listTransactions = `SELECT ` + transactionColumns + `
FROM transactions
WHERE transaction_date = $1
ORDER BY created_at, id`

func (q *Queries) ListTransactions(ctx context.Context, date time.Time) ([]models.Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions, date)
	if err != nil {
		return nil, translate(err, "list transactions")
	}
	defer rows.Close()

	var items []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, translate(err, "scan transaction")
		}
		items = append(items, t)
	}
	return items, translate(rows.Err(), "list transactions")
}

const sumAuthorizedTransactions = `
SELECT currency_id,
       COALESCE(SUM(amount) FILTER (WHERE type = 'purchase'), 0)::numeric,
       COALESCE(SUM(amount) FILTER (WHERE type = 'sale'), 0)::numeric
FROM transactions
WHERE transaction_date = $1 AND status = 'authorized'
GROUP BY currency_id`

func (q *Queries) SumAuthorizedTransactions(ctx context.Context, date time.Time) ([]TransactionTotalRow, error) {
	rows, err := q.db.Query(ctx, sumAuthorizedTransactions, date)
	if err != nil {
		return nil, translate(err, "sum transactions")
	}
	defer rows.Close()

	var items []TransactionTotalRow
	for rows.Next() {
		var r TransactionTotalRow
		if err := rows.Scan(&r.CurrencyID, &r.Purchases, &r.Sales); err != nil {
			return nil, translate(err, "scan transaction total")
		}
		items = append(items, r)
	}
	return items, translate(rows.Err(), "sum transactions")
}
