package repository

import (
	"context"
	"time"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const bankColumns = `b.id, b.name, b.currency_id, b.max_limit, b.min_limit, b.active, b.created_at`

func scanBank(row pgx.Row, extra ...any) (models.CorrespondentBank, error) {
	var b models.CorrespondentBank
	dest := []any{&b.ID, &b.Name, &b.CurrencyID, &b.MaxLimit, &b.MinLimit, &b.Active, &b.CreatedAt}
	err := row.Scan(append(dest, extra...)...)
	return b, err
}

const insertCorrespondentBank = `
INSERT INTO correspondent_banks (id, name, currency_id, max_limit, min_limit, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (q *Queries) InsertCorrespondentBank(ctx context.Context, b models.CorrespondentBank) error {
	_, err := q.db.Exec(ctx, insertCorrespondentBank,
		b.ID, b.Name, b.CurrencyID, b.MaxLimit, b.MinLimit, b.Active, b.CreatedAt)
	return translate(err, "insert correspondent bank")
}

const getCorrespondentBank = `SELECT ` + bankColumns + ` FROM correspondent_banks b WHERE b.id = $1`

func (q *Queries) GetCorrespondentBank(ctx context.Context, id uuid.UUID) (models.CorrespondentBank, error) {
	b, err := scanBank(q.db.QueryRow(ctx, getCorrespondentBank, id))
	return b, translate(err, "correspondent bank")
}

const listCorrespondentBanks = `
SELECT ` + bankColumns + `
FROM correspondent_banks b
WHERE b.active OR NOT $1
ORDER BY b.name`

func (q *Queries) ListCorrespondentBanks(ctx context.Context, activeOnly bool) ([]models.CorrespondentBank, error) {
	rows, err := q.db.Query(ctx, listCorrespondentBanks, activeOnly)
	if err != nil {
		return nil, translate(err, "list correspondent banks")
	}
	defer rows.Close()

	var items []models.CorrespondentBank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, translate(err, "scan correspondent bank")
		}
		items = append(items, b)
	}
	return items, translate(rows.Err(), "list correspondent banks")
}

const updateCorrespondentLimits = `UPDATE correspondent_banks SET max_limit = $2, min_limit = $3 WHERE id = $1`

func (q *Queries) UpdateCorrespondentLimits(ctx context.Context, id uuid.UUID, maxLimit, minLimit *decimal.Decimal) (int64, error) {
	tag, err := q.db.Exec(ctx, updateCorrespondentLimits, id, maxLimit, minLimit)
	if err != nil {
		return 0, translate(err, "update correspondent limits")
	}
	return tag.RowsAffected(), nil
}

const upsertCorrespondentBalance = `
INSERT INTO correspondent_balances (id, bank_id, balance_date, balance_amount, created_by, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (bank_id, balance_date) DO UPDATE
SET balance_amount = EXCLUDED.balance_amount,
    created_by = EXCLUDED.created_by,
    updated_at = EXCLUDED.updated_at
RETURNING id, bank_id, balance_date, balance_amount, created_by, updated_at`

func (q *Queries) UpsertCorrespondentBalance(ctx context.Context, bal models.CorrespondentBalance) (models.CorrespondentBalance, error) {
	var out models.CorrespondentBalance
	err := q.db.QueryRow(ctx, upsertCorrespondentBalance,
		bal.ID, bal.BankID, bal.BalanceDate, bal.BalanceAmount, bal.CreatedBy, bal.UpdatedAt,
	).Scan(&out.ID, &out.BankID, &out.BalanceDate, &out.BalanceAmount, &out.CreatedBy, &out.UpdatedAt)
	return out, translate(err, "upsert correspondent balance")
}

const getCorrespondentBalance = `
SELECT id, bank_id, balance_date, balance_amount, created_by, updated_at
FROM correspondent_balances
WHERE bank_id = $1 AND balance_date = $2`

func (q *Queries) GetCorrespondentBalance(ctx context.Context, bankID uuid.UUID, date time.Time) (models.CorrespondentBalance, error) {
	var out models.CorrespondentBalance
	err := q.db.QueryRow(ctx, getCorrespondentBalance, bankID, date).
		Scan(&out.ID, &out.BankID, &out.BalanceDate, &out.BalanceAmount, &out.CreatedBy, &out.UpdatedAt)
	return out, translate(err, "correspondent balance")
}

const sumCorrespondentBalances = `
SELECT COALESCE(SUM(cb.balance_amount), 0)::numeric
FROM correspondent_balances cb
JOIN correspondent_banks b ON b.id = cb.bank_id
WHERE b.currency_id = $1 AND b.active AND cb.balance_date = $2`

func (q *Queries) SumCorrespondentBalances(ctx context.Context, currencyID uuid.UUID, date time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.db.QueryRow(ctx, sumCorrespondentBalances, currencyID, date).Scan(&total)
	return total, translate(err, "sum correspondent balances")
}

const listBankBalances = `
SELECT ` + bankColumns + `, COALESCE(cb.balance_amount, 0)::numeric
FROM correspondent_banks b
LEFT JOIN correspondent_balances cb ON cb.bank_id = b.id AND cb.balance_date = $1
WHERE b.active
ORDER BY b.currency_id, b.name`

func (q *Queries) ListBankBalances(ctx context.Context, date time.Time) ([]BankBalanceRow, error) {
	rows, err := q.db.Query(ctx, listBankBalances, date)
	if err != nil {
		return nil, translate(err, "list bank balances")
	}
	defer rows.Close()

	var items []BankBalanceRow
	for rows.Next() {
		var balance decimal.Decimal
		b, err := scanBank(rows, &balance)
		if err != nil {
			return nil, translate(err, "scan bank balance")
		}
		items = append(items, BankBalanceRow{Bank: b, Balance: balance})
	}
	return items, translate(rows.Err(), "list bank balances")
}
