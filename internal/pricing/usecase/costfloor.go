package usecase

import (
	"context"

	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo"
)

// CostFloorValidator enforces the policy that a sale price must not fall
// below an item's last recorded cost without explicit authorization or a
// supplier-discount rule covering the gap.
type CostFloorValidator struct {
	rules repo.RuleRepository
}

// NewCostFloorValidator creates a new cost floor validator
func NewCostFloorValidator(rules repo.RuleRepository) *CostFloorValidator {
	return &CostFloorValidator{rules: rules}
}

// Validate returns nil when the base price is permitted. A below-cost price
// passes when the price row carries an explicit authorization, or when any
// active supplier-discount rule on the list recognizes a percentage large
// enough that price >= cost * (1 - pct/100). Otherwise the returned domain
// error distinguishes "rules exist but none covers the gap" from "no rule
// exists at all".
func (v *CostFloorValidator) Validate(ctx context.Context, price domain.ItemPrice, item domain.Item) error {
	base := price.BasePrice
	cost := item.LastCost

	if base.GreaterThanOrEqual(cost) {
		return nil
	}

	if price.BelowCostAuthorized {
		return nil
	}

	supplierRules, err := v.rules.ListActiveByKind(ctx, price.ListID, domain.RuleKindSupplierDiscount)
	if err != nil {
		return err
	}

	if len(supplierRules) == 0 {
		return domain.NewBelowCostUnauthorizedError()
	}

	for _, rule := range supplierRules {
		minAllowed := domain.MinAllowedPrice(cost, rule.DiscountPct)
		if base.GreaterThanOrEqual(minAllowed) {
			return nil
		}
	}

	return domain.NewBelowCostInsufficientRecognitionError()
}
