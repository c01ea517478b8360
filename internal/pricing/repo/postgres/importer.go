package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/precios-app/pricingservice/internal/pricing/domain"
)

// Importer methods used by the price-list CSV loader. They live outside
// repo.Store because the engine never writes catalog data.

// EnsurePriceList finds the list by (company, branch, name) or creates it
func (s *Store) EnsurePriceList(ctx context.Context, list domain.PriceList) (uuid.UUID, error) {
	const find = `
		SELECT id FROM price_lists
		WHERE company_id = $1 AND branch_id = $2 AND name = $3`

	var id uuid.UUID
	err := s.db.QueryRow(ctx, find, list.CompanyID, list.BranchID, list.Name).Scan(&id)
	if err == nil {
		return id, nil
	}

	const insert = `
		INSERT INTO price_lists (id, company_id, branch_id, name, type, channel,
		                         start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	id = list.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	err = s.db.QueryRow(ctx, insert, id, list.CompanyID, list.BranchID, list.Name,
		string(list.Type), string(list.Channel),
		domain.DateOnly(list.StartDate), domain.DateOnly(list.EndDate),
		string(list.Status)).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create price list: %w", mapWriteError(err))
	}
	return id, nil
}

// UpsertItem inserts or updates an item keyed by its code and returns its ID
func (s *Store) UpsertItem(ctx context.Context, item domain.Item) (uuid.UUID, error) {
	const q = `
		INSERT INTO items (id, code, name, line_id, group_id, last_cost)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code)
		DO UPDATE SET name = EXCLUDED.name, last_cost = EXCLUDED.last_cost
		RETURNING id`

	id := item.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	err := s.db.QueryRow(ctx, q, id, item.Code, item.Name,
		item.LineID, item.GroupID, item.LastCost.String()).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert item %s: %w", item.Code, mapWriteError(err))
	}
	return id, nil
}

// UpsertItemPrice inserts or updates the base price of an item in a list
func (s *Store) UpsertItemPrice(ctx context.Context, listID, itemID uuid.UUID, basePrice decimal.Decimal) error {
	const q = `
		INSERT INTO item_prices (id, list_id, item_id, base_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (list_id, item_id)
		DO UPDATE SET base_price = EXCLUDED.base_price, updated_at = now()`

	_, err := s.db.Exec(ctx, q, uuid.New(), listID, itemID, basePrice.String())
	if err != nil {
		return fmt.Errorf("failed to upsert item price: %w", mapWriteError(err))
	}
	return nil
}
