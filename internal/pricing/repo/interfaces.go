package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/precios-app/pricingservice/internal/pricing/domain"
)

// PriceListRepository reads price lists for the resolver
type PriceListRepository interface {
	// ListActive returns the company/branch lists that are active and whose
	// validity window contains the given date. Order is unspecified; the
	// resolver applies its own tie-break.
	ListActive(ctx context.Context, companyID, branchID uuid.UUID, on time.Time) ([]domain.PriceList, error)
}

// ItemRepository reads items
type ItemRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Item, error)
}

// ItemPriceRepository reads and narrowly mutates per-list item prices
type ItemPriceRepository interface {
	// Get returns the (list, item) price row. found=false when the item has
	// no price in the list; that is not an error.
	Get(ctx context.Context, listID, itemID uuid.UUID) (domain.ItemPrice, bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (domain.ItemPrice, error)

	// SetBelowCostAuthorization flips the authorization flag and reason of
	// one item price. Used only by the supplier-discount registrar.
	SetBelowCostAuthorization(ctx context.Context, id uuid.UUID, authorized bool, reason string) error
}

// RuleRepository reads and narrowly mutates pricing rules
type RuleRepository interface {
	// ListActive returns the list's active rules ordered by ascending
	// priority. The matcher preserves this order end to end.
	ListActive(ctx context.Context, listID uuid.UUID) ([]domain.PricingRule, error)

	// ListActiveByKind returns the list's active rules of one kind, in
	// priority order.
	ListActiveByKind(ctx context.Context, listID uuid.UUID, kind domain.RuleKind) ([]domain.PricingRule, error)

	// UpsertSupplierDiscount finds or creates the single supplier-discount
	// rule of a list. An existing rule gets its percentage overwritten and
	// is forced active. A CONFLICT domain error signals a lost race on the
	// (list, kind) uniqueness constraint.
	UpsertSupplierDiscount(ctx context.Context, listID uuid.UUID, pct decimal.Decimal) (domain.PricingRule, error)
}

// CombinationRepository reads bundle combinations
type CombinationRepository interface {
	// ListActive returns the list's active combinations with member item
	// IDs populated.
	ListActive(ctx context.Context, listID uuid.UUID) ([]domain.Combination, error)
}

// OrderRepository reads and mutates orders for the confirmation workflow
type OrderRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
	Lines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error)
	SetLineUnitPrice(ctx context.Context, lineID uuid.UUID, price decimal.Decimal) error
	SetStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
}

// Store bundles the repositories and scopes them to one backing store
type Store interface {
	PriceLists() PriceListRepository
	Items() ItemRepository
	ItemPrices() ItemPriceRepository
	Rules() RuleRepository
	Combinations() CombinationRepository
	Orders() OrderRepository

	// WithinTx runs fn against a store view whose writes commit atomically
	// when fn returns nil and are discarded when it returns an error.
	WithinTx(ctx context.Context, fn func(Store) error) error
}
