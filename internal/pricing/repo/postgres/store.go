package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo"
)

// uniqueViolation is the Postgres error code for a violated unique
// constraint, the signal the registrar's retry keys on.
const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories
// run unchanged inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL implementation of repo.Store
type Store struct {
	pool *pgxpool.Pool
	db   querier
	tx   pgx.Tx // non-nil when this store view is transaction-scoped
}

// NewStore creates a new PostgreSQL store from a connection string
func NewStore(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool, db: pool}, nil
}

// NewStoreWithPool creates a new PostgreSQL store with an existing pool
func NewStoreWithPool(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	return &Store{pool: pool, db: pool}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) PriceLists() repo.PriceListRepository     { return priceListRepository{s} }
func (s *Store) Items() repo.ItemRepository               { return itemRepository{s} }
func (s *Store) ItemPrices() repo.ItemPriceRepository     { return itemPriceRepository{s} }
func (s *Store) Rules() repo.RuleRepository               { return ruleRepository{s} }
func (s *Store) Combinations() repo.CombinationRepository { return combinationRepository{s} }
func (s *Store) Orders() repo.OrderRepository             { return orderRepository{s} }

// WithinTx runs fn against a transaction-scoped store view. A nested call
// joins the enclosing transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repo.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txStore := &Store{pool: s.pool, db: tx, tx: tx}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapWriteError converts constraint violations into domain errors so
// callers can react without importing pgx.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.NewConflictError("row", pgErr.ConstraintName)
	}
	return err
}

func parseDec(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse numeric %q: %w", s, err)
	}
	return d, nil
}

func parseDecPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := parseDec(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// priceListRepository implements repo.PriceListRepository

type priceListRepository struct{ s *Store }

func (r priceListRepository) ListActive(ctx context.Context, companyID, branchID uuid.UUID, on time.Time) ([]domain.PriceList, error) {
	const q = `
		SELECT id, company_id, branch_id, name, type, channel,
		       start_date, end_date, status, created_at
		FROM price_lists
		WHERE company_id = $1 AND branch_id = $2 AND status = 'active'
		  AND start_date <= $3 AND end_date >= $3`

	rows, err := r.s.db.Query(ctx, q, companyID, branchID, domain.DateOnly(on))
	if err != nil {
		return nil, fmt.Errorf("failed to query price lists: %w", err)
	}
	defer rows.Close()

	var out []domain.PriceList
	for rows.Next() {
		var l domain.PriceList
		var typ, channel, status string
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.BranchID, &l.Name, &typ, &channel,
			&l.StartDate, &l.EndDate, &status, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price list: %w", err)
		}
		l.Type = domain.ListType(typ)
		l.Channel = domain.Channel(channel)
		l.Status = domain.ListStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}

// itemRepository implements repo.ItemRepository

type itemRepository struct{ s *Store }

func (r itemRepository) Get(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	const q = `
		SELECT id, code, name, line_id, group_id, last_cost::text
		FROM items WHERE id = $1`

	var item domain.Item
	var lastCost string
	err := r.s.db.QueryRow(ctx, q, id).Scan(
		&item.ID, &item.Code, &item.Name, &item.LineID, &item.GroupID, &lastCost)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, domain.NewNotFoundError("item", id.String())
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("failed to get item: %w", err)
	}
	if item.LastCost, err = parseDec(lastCost); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// itemPriceRepository implements repo.ItemPriceRepository

type itemPriceRepository struct{ s *Store }

const itemPriceColumns = `id, list_id, item_id, base_price::text, below_cost_authorized, COALESCE(below_cost_reason, ''), updated_at`

func scanItemPrice(row pgx.Row) (domain.ItemPrice, error) {
	var p domain.ItemPrice
	var base string
	err := row.Scan(&p.ID, &p.ListID, &p.ItemID, &base,
		&p.BelowCostAuthorized, &p.BelowCostReason, &p.UpdatedAt)
	if err != nil {
		return domain.ItemPrice{}, err
	}
	if p.BasePrice, err = parseDec(base); err != nil {
		return domain.ItemPrice{}, err
	}
	return p, nil
}

func (r itemPriceRepository) Get(ctx context.Context, listID, itemID uuid.UUID) (domain.ItemPrice, bool, error) {
	q := `SELECT ` + itemPriceColumns + ` FROM item_prices WHERE list_id = $1 AND item_id = $2`

	p, err := scanItemPrice(r.s.db.QueryRow(ctx, q, listID, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ItemPrice{}, false, nil
	}
	if err != nil {
		return domain.ItemPrice{}, false, fmt.Errorf("failed to get item price: %w", err)
	}
	return p, true, nil
}

func (r itemPriceRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ItemPrice, error) {
	q := `SELECT ` + itemPriceColumns + ` FROM item_prices WHERE id = $1`

	p, err := scanItemPrice(r.s.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ItemPrice{}, domain.NewNotFoundError("item price", id.String())
	}
	if err != nil {
		return domain.ItemPrice{}, fmt.Errorf("failed to get item price: %w", err)
	}
	return p, nil
}

func (r itemPriceRepository) SetBelowCostAuthorization(ctx context.Context, id uuid.UUID, authorized bool, reason string) error {
	const q = `
		UPDATE item_prices
		SET below_cost_authorized = $2, below_cost_reason = $3, updated_at = now()
		WHERE id = $1`

	tag, err := r.s.db.Exec(ctx, q, id, authorized, reason)
	if err != nil {
		return fmt.Errorf("failed to update item price authorization: %w", mapWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("item price", id.String())
	}
	return nil
}

// ruleRepository implements repo.RuleRepository

type ruleRepository struct{ s *Store }

const ruleColumns = `id, list_id, kind, priority, active, channel,
	min_units, max_units, min_amount::text, max_amount::text, discount_pct::text,
	item_id, group_id, line_id`

func scanRule(rows pgx.Rows) (domain.PricingRule, error) {
	var rule domain.PricingRule
	var channel *string
	var minAmount, maxAmount *string
	var discountPct string
	var kind string
	err := rows.Scan(&rule.ID, &rule.ListID, &kind, &rule.Priority, &rule.Active, &channel,
		&rule.MinUnits, &rule.MaxUnits, &minAmount, &maxAmount, &discountPct,
		&rule.ItemID, &rule.GroupID, &rule.LineID)
	if err != nil {
		return domain.PricingRule{}, err
	}
	rule.Kind = domain.RuleKind(kind)
	if channel != nil {
		ch := domain.Channel(*channel)
		rule.Channel = &ch
	}
	if rule.MinAmount, err = parseDecPtr(minAmount); err != nil {
		return domain.PricingRule{}, err
	}
	if rule.MaxAmount, err = parseDecPtr(maxAmount); err != nil {
		return domain.PricingRule{}, err
	}
	if rule.DiscountPct, err = parseDec(discountPct); err != nil {
		return domain.PricingRule{}, err
	}
	return rule, nil
}

func (r ruleRepository) queryRules(ctx context.Context, q string, args ...any) ([]domain.PricingRule, error) {
	rows, err := r.s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing rules: %w", err)
	}
	defer rows.Close()

	var out []domain.PricingRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pricing rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r ruleRepository) ListActive(ctx context.Context, listID uuid.UUID) ([]domain.PricingRule, error) {
	q := `SELECT ` + ruleColumns + ` FROM pricing_rules
		WHERE list_id = $1 AND active ORDER BY priority, id`
	return r.queryRules(ctx, q, listID)
}

func (r ruleRepository) ListActiveByKind(ctx context.Context, listID uuid.UUID, kind domain.RuleKind) ([]domain.PricingRule, error) {
	q := `SELECT ` + ruleColumns + ` FROM pricing_rules
		WHERE list_id = $1 AND kind = $2 AND active ORDER BY priority, id`
	return r.queryRules(ctx, q, listID, string(kind))
}

func (r ruleRepository) UpsertSupplierDiscount(ctx context.Context, listID uuid.UUID, pct decimal.Decimal) (domain.PricingRule, error) {
	// The partial unique index on (list_id, kind) for supplier_discount
	// rules makes this find-or-create atomic.
	const q = `
		INSERT INTO pricing_rules (id, list_id, kind, priority, active, discount_pct)
		VALUES ($1, $2, 'supplier_discount', 999, true, $3)
		ON CONFLICT (list_id, kind) WHERE kind = 'supplier_discount'
		DO UPDATE SET discount_pct = EXCLUDED.discount_pct, active = true
		RETURNING id, priority`

	rule := domain.PricingRule{
		ListID:      listID,
		Kind:        domain.RuleKindSupplierDiscount,
		Active:      true,
		DiscountPct: pct,
	}
	err := r.s.db.QueryRow(ctx, q, uuid.New(), listID, pct.String()).Scan(&rule.ID, &rule.Priority)
	if err != nil {
		return domain.PricingRule{}, fmt.Errorf("failed to upsert supplier discount rule: %w", mapWriteError(err))
	}
	return rule, nil
}

// combinationRepository implements repo.CombinationRepository

type combinationRepository struct{ s *Store }

func (r combinationRepository) ListActive(ctx context.Context, listID uuid.UUID) ([]domain.Combination, error) {
	const q = `
		SELECT c.id, c.list_id, c.name, c.discount_pct::text, c.fixed_price::text,
		       c.min_per_item, c.mode, c.active,
		       COALESCE(array_agg(ci.item_id) FILTER (WHERE ci.item_id IS NOT NULL), '{}')
		FROM combinations c
		LEFT JOIN combination_items ci ON ci.combination_id = c.id
		WHERE c.list_id = $1 AND c.active
		GROUP BY c.id
		ORDER BY c.id`

	rows, err := r.s.db.Query(ctx, q, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query combinations: %w", err)
	}
	defer rows.Close()

	var out []domain.Combination
	for rows.Next() {
		var c domain.Combination
		var discountPct string
		var fixedPrice *string
		var mode string
		var memberIDs []uuid.UUID
		if err := rows.Scan(&c.ID, &c.ListID, &c.Name, &discountPct, &fixedPrice,
			&c.MinPerItem, &mode, &c.Active, &memberIDs); err != nil {
			return nil, fmt.Errorf("failed to scan combination: %w", err)
		}
		c.Mode = domain.CombinationMode(mode)
		if c.DiscountPct, err = parseDec(discountPct); err != nil {
			return nil, err
		}
		if c.FixedPrice, err = parseDecPtr(fixedPrice); err != nil {
			return nil, err
		}
		c.ItemIDs = memberIDs
		out = append(out, c)
	}
	return out, rows.Err()
}

// orderRepository implements repo.OrderRepository

type orderRepository struct{ s *Store }

func (r orderRepository) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	const q = `
		SELECT id, company_id, branch_id, channel, gross_total::text, status, created_at
		FROM orders WHERE id = $1`

	var o domain.Order
	var channel *string
	var grossTotal, status string
	err := r.s.db.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.CompanyID, &o.BranchID, &channel, &grossTotal, &status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.NewNotFoundError("order", id.String())
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	if channel != nil {
		ch := domain.Channel(*channel)
		o.Channel = &ch
	}
	if o.GrossTotal, err = parseDec(grossTotal); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}

func (r orderRepository) Lines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	const q = `
		SELECT id, order_id, item_id, quantity, unit_price::text
		FROM order_lines WHERE order_id = $1 ORDER BY id`

	rows, err := r.s.db.Query(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		var unitPrice string
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Quantity, &unitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		if l.UnitPrice, err = parseDec(unitPrice); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r orderRepository) SetLineUnitPrice(ctx context.Context, lineID uuid.UUID, price decimal.Decimal) error {
	const q = `UPDATE order_lines SET unit_price = $2 WHERE id = $1`

	tag, err := r.s.db.Exec(ctx, q, lineID, price.String())
	if err != nil {
		return fmt.Errorf("failed to update order line price: %w", mapWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("order line", lineID.String())
	}
	return nil
}

func (r orderRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	const q = `UPDATE orders SET status = $2 WHERE id = $1`

	tag, err := r.s.db.Exec(ctx, q, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", mapWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("order", id.String())
	}
	return nil
}
