package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListType classifies a price list
type ListType string

const (
	ListTypeStandard    ListType = "standard"
	ListTypePromotional ListType = "promotional"
	ListTypeWholesale   ListType = "wholesale"
)

// IsValidListType checks if the list type is valid
func IsValidListType(t ListType) bool {
	switch t {
	case ListTypeStandard, ListTypePromotional, ListTypeWholesale:
		return true
	default:
		return false
	}
}

// ListStatus represents the lifecycle state of a price list
type ListStatus string

const (
	ListStatusDraft    ListStatus = "draft"
	ListStatusActive   ListStatus = "active"
	ListStatusInactive ListStatus = "inactive"
)

// Channel represents a sales channel
type Channel string

const (
	ChannelWeb         Channel = "web"
	ChannelStore       Channel = "store"
	ChannelDistributor Channel = "distributor"
	ChannelOther       Channel = "other"
)

// IsValidChannel checks if the channel is a known sales channel
func IsValidChannel(c Channel) bool {
	switch c {
	case ChannelWeb, ChannelStore, ChannelDistributor, ChannelOther:
		return true
	default:
		return false
	}
}

// RuleKind identifies the condition a pricing rule evaluates.
// The set is closed: the rule matcher switches exhaustively over it and
// treats anything else as a non-match.
type RuleKind string

const (
	RuleKindChannel          RuleKind = "channel"
	RuleKindUnitScale        RuleKind = "unit_scale"
	RuleKindAmountScale      RuleKind = "amount_scale"
	RuleKindBundle           RuleKind = "bundle"
	RuleKindOrderAmount      RuleKind = "order_amount"
	RuleKindSupplierDiscount RuleKind = "supplier_discount"
)

// IsValidRuleKind checks if the rule kind is one of the closed set
func IsValidRuleKind(k RuleKind) bool {
	switch k {
	case RuleKindChannel, RuleKindUnitScale, RuleKindAmountScale,
		RuleKindBundle, RuleKindOrderAmount, RuleKindSupplierDiscount:
		return true
	default:
		return false
	}
}

// RuleAction is the effect an applied rule has on the running price
type RuleAction string

const (
	ActionPercentage RuleAction = "percentage"
	ActionFixedPrice RuleAction = "fixed_price"
)

// CombinationMode selects how a matched combination is applied
type CombinationMode string

const (
	CombinationModePercentage CombinationMode = "percentage"
	CombinationModeFixedPrice CombinationMode = "fixed_price"
)

// OrderStatus represents the lifecycle state of a customer order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusVoid      OrderStatus = "void"
)

// Company is a top-level pricing scope
type Company struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	TaxID string    `json:"tax_id,omitempty" db:"tax_id"`
}

// Branch belongs to a company and scopes price lists together with it
type Branch struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CompanyID uuid.UUID `json:"company_id" db:"company_id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address,omitempty" db:"address"`
}

// Item is a sellable article. LastCost is the last recorded purchase cost
// and is the floor the cost-floor policy validates against.
type Item struct {
	ID       uuid.UUID       `json:"id" db:"id"`
	Code     string          `json:"code" db:"code"`
	Name     string          `json:"name" db:"name"`
	LineID   *uuid.UUID      `json:"line_id,omitempty" db:"line_id"`
	GroupID  *uuid.UUID      `json:"group_id,omitempty" db:"group_id"`
	LastCost decimal.Decimal `json:"last_cost" db:"last_cost"`
}

// PriceList is a scoped, time-bounded set of item prices and rules.
// Validity bounds are inclusive on both ends.
type PriceList struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CompanyID uuid.UUID  `json:"company_id" db:"company_id"`
	BranchID  uuid.UUID  `json:"branch_id" db:"branch_id"`
	Name      string     `json:"name" db:"name"`
	Type      ListType   `json:"type" db:"type"`
	Channel   Channel    `json:"channel" db:"channel"`
	StartDate time.Time  `json:"start_date" db:"start_date"`
	EndDate   time.Time  `json:"end_date" db:"end_date"`
	Status    ListStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// InEffect reports whether the list covers the given date (inclusive bounds)
func (l PriceList) InEffect(on time.Time) bool {
	day := DateOnly(on)
	return !day.Before(DateOnly(l.StartDate)) && !day.After(DateOnly(l.EndDate))
}

// DateOnly truncates a timestamp to day granularity in UTC.
// Validity windows compare at this granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ItemPrice is the base price of one item in one list, unique per
// (list, item) pair. BelowCostAuthorized records an explicit sign-off for
// selling under the item's last cost.
type ItemPrice struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	ListID              uuid.UUID       `json:"list_id" db:"list_id"`
	ItemID              uuid.UUID       `json:"item_id" db:"item_id"`
	BasePrice           decimal.Decimal `json:"base_price" db:"base_price"`
	BelowCostAuthorized bool            `json:"below_cost_authorized" db:"below_cost_authorized"`
	BelowCostReason     string          `json:"below_cost_reason,omitempty" db:"below_cost_reason"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// PricingRule is a priority-ordered condition attached to one list.
// Lower priority values are evaluated first. Bounds that do not apply to a
// kind are left nil. Item/Group/Line scoping is carried for upstream
// editors but not consulted by the matcher.
type PricingRule struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ListID      uuid.UUID       `json:"list_id" db:"list_id"`
	Kind        RuleKind        `json:"kind" db:"kind"`
	Priority    int             `json:"priority" db:"priority"`
	Active      bool            `json:"active" db:"active"`
	Channel     *Channel        `json:"channel,omitempty" db:"channel"`
	MinUnits    *int            `json:"min_units,omitempty" db:"min_units"`
	MaxUnits    *int            `json:"max_units,omitempty" db:"max_units"`
	MinAmount   *decimal.Decimal `json:"min_amount,omitempty" db:"min_amount"`
	MaxAmount   *decimal.Decimal `json:"max_amount,omitempty" db:"max_amount"`
	DiscountPct decimal.Decimal `json:"discount_pct" db:"discount_pct"`
	ItemID      *uuid.UUID      `json:"item_id,omitempty" db:"item_id"`
	GroupID     *uuid.UUID      `json:"group_id,omitempty" db:"group_id"`
	LineID      *uuid.UUID      `json:"line_id,omitempty" db:"line_id"`
}

// Combination is a named bundle of items on one list. When every member is
// present in the cart it unlocks either a percentage discount or a fixed
// unit price, per Mode. Members must number at least two; that invariant is
// enforced by the editing layer, not re-checked at evaluation time.
type Combination struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ListID      uuid.UUID       `json:"list_id" db:"list_id"`
	Name        string          `json:"name" db:"name"`
	ItemIDs     []uuid.UUID     `json:"item_ids" db:"-"`
	DiscountPct decimal.Decimal `json:"discount_pct" db:"discount_pct"`
	FixedPrice  *decimal.Decimal `json:"fixed_price,omitempty" db:"fixed_price"`
	MinPerItem  int             `json:"min_per_item" db:"min_per_item"`
	Mode        CombinationMode `json:"mode" db:"mode"`
	Active      bool            `json:"active" db:"active"`
}

// Contains reports whether the item is a member of the combination
func (c Combination) Contains(itemID uuid.UUID) bool {
	for _, id := range c.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// CartLine is one entry of the cart snapshot accompanying a pricing request
type CartLine struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

// PricingRequest is the input of one price calculation. Quantity defaults
// to 1, OrderAmount to 0 and AsOf to today when left zero.
type PricingRequest struct {
	CompanyID   uuid.UUID       `json:"company_id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	ItemID      uuid.UUID       `json:"item_id"`
	Channel     *Channel        `json:"channel,omitempty"`
	Quantity    int             `json:"quantity"`
	OrderAmount decimal.Decimal `json:"order_amount"`
	AsOf        time.Time       `json:"as_of"`
	Cart        []CartLine      `json:"cart,omitempty"`
}

// ListRef identifies the price list a calculation resolved to
type ListRef struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Channel Channel   `json:"channel"`
}

// AppliedRule records one rule (or combination) that matched during a
// calculation, in the order it was evaluated.
type AppliedRule struct {
	RuleID        uuid.UUID  `json:"rule_id"`
	Kind          RuleKind   `json:"kind"`
	Description   string     `json:"description"`
	DiscountPct   string     `json:"discount_pct"`
	Action        RuleAction `json:"action"`
	Value         string     `json:"value"`
	CombinationID *uuid.UUID `json:"combination_id,omitempty"`
}

// PricingResult is the output of one price calculation. Business failures
// are not errors: they leave BasePrice/FinalPrice nil and populate
// BelowCostReason so the caller decides how to react.
type PricingResult struct {
	BasePrice           *decimal.Decimal `json:"base_price"`
	FinalPrice          *decimal.Decimal `json:"final_price"`
	TotalDiscount       decimal.Decimal  `json:"total_discount"`
	List                *ListRef         `json:"list,omitempty"`
	AppliedRules        []AppliedRule    `json:"applied_rules"`
	BelowCostAuthorized bool             `json:"below_cost_authorized"`
	BelowCostReason     string           `json:"below_cost_reason,omitempty"`
	CombinationApplied  *uuid.UUID       `json:"combination_applied,omitempty"`
}

// Order is a draft customer order whose lines get priced on confirmation
type Order struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	CompanyID  uuid.UUID       `json:"company_id" db:"company_id"`
	BranchID   uuid.UUID       `json:"branch_id" db:"branch_id"`
	Channel    *Channel        `json:"channel,omitempty" db:"channel"`
	GrossTotal decimal.Decimal `json:"gross_total" db:"gross_total"`
	Status     OrderStatus     `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// OrderLine is one item position on an order
type OrderLine struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ItemID    uuid.UUID       `json:"item_id" db:"item_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
}

// Subtotal returns quantity times unit price
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// String implements fmt.Stringer for log output
func (r AppliedRule) String() string {
	return fmt.Sprintf("%s(%s=%s)", r.Kind, r.Action, r.Value)
}
