package repository

import (
	"context"
	"time"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/google/uuid"
)

const getCurrency = `SELECT id, code, name, active FROM currencies WHERE id = $1`

func (q *Queries) GetCurrency(ctx context.Context, id uuid.UUID) (models.Currency, error) {
	var c models.Currency
	err := q.db.QueryRow(ctx, getCurrency, id).Scan(&c.ID, &c.Code, &c.Name, &c.Active)
	return c, translate(err, "currency")
}

const listActiveCurrencies = `SELECT id, code, name, active FROM currencies WHERE active ORDER BY code`

func (q *Queries) ListActiveCurrencies(ctx context.Context) ([]models.Currency, error) {
	rows, err := q.db.Query(ctx, listActiveCurrencies)
	if err != nil {
		return nil, translate(err, "list currencies")
	}
	defer rows.Close()

	var items []models.Currency
	for rows.Next() {
		var c models.Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Active); err != nil {
			return nil, translate(err, "scan currency")
		}
		items = append(items, c)
	}
	return items, translate(rows.Err(), "list currencies")
}

const balanceItemColumns = `id, code, name, category, balance_type, display_order, active`

func (q *Queries) GetBalanceItem(ctx context.Context, id uuid.UUID) (models.BalanceItem, error) {
	var i models.BalanceItem
	err := q.db.QueryRow(ctx, `SELECT `+balanceItemColumns+` FROM balance_items WHERE id = $1`, id).
		Scan(&i.ID, &i.Code, &i.Name, &i.Category, &i.BalanceType, &i.DisplayOrder, &i.Active)
	return i, translate(err, "balance item")
}

func (q *Queries) GetBalanceItemByCode(ctx context.Context, code string) (models.BalanceItem, error) {
	var i models.BalanceItem
	err := q.db.QueryRow(ctx, `SELECT `+balanceItemColumns+` FROM balance_items WHERE code = $1`, code).
		Scan(&i.ID, &i.Code, &i.Name, &i.Category, &i.BalanceType, &i.DisplayOrder, &i.Active)
	return i, translate(err, "balance item "+code)
}

const upsertExchangeRate = `
INSERT INTO exchange_rates (currency_id, rate_date, buying_rate, selling_rate, created_by)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (currency_id, rate_date) DO UPDATE
SET buying_rate = EXCLUDED.buying_rate,
    selling_rate = EXCLUDED.selling_rate,
    created_by = EXCLUDED.created_by`

func (q *Queries) UpsertExchangeRate(ctx context.Context, r models.ExchangeRate) error {
	_, err := q.db.Exec(ctx, upsertExchangeRate, r.CurrencyID, r.RateDate, r.BuyingRate, r.SellingRate, r.CreatedBy)
	return translate(err, "upsert exchange rate")
}

const getExchangeRate = `
SELECT currency_id, rate_date, buying_rate, selling_rate, created_by
FROM exchange_rates
WHERE currency_id = $1 AND rate_date = $2`

func (q *Queries) GetExchangeRate(ctx context.Context, currencyID uuid.UUID, date time.Time) (models.ExchangeRate, error) {
	var r models.ExchangeRate
	err := q.db.QueryRow(ctx, getExchangeRate, currencyID, date).
		Scan(&r.CurrencyID, &r.RateDate, &r.BuyingRate, &r.SellingRate, &r.CreatedBy)
	return r, translate(err, "exchange rate")
}
