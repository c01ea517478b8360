package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/precios-app/pricingservice/internal/metrics"
	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo"
)

// RuleMatcher evaluates a list's active rules against one request and
// returns the matching subset in evaluation order.
type RuleMatcher struct {
	rules  repo.RuleRepository
	combos repo.CombinationRepository
}

// NewRuleMatcher creates a new rule matcher
func NewRuleMatcher(rules repo.RuleRepository, combos repo.CombinationRepository) *RuleMatcher {
	return &RuleMatcher{rules: rules, combos: combos}
}

// Match iterates the list's active rules in ascending priority and returns
// a record for each rule that matched. The returned order is the evaluation
// order; the calculator composes discounts in exactly this order.
func (m *RuleMatcher) Match(ctx context.Context, list domain.PriceList, item domain.Item, channel *domain.Channel, quantity int, orderAmount decimal.Decimal, cart []domain.CartLine) ([]domain.AppliedRule, error) {
	rules, err := m.rules.ListActive(ctx, list.ID)
	if err != nil {
		return nil, err
	}

	cartIDs := make(map[uuid.UUID]bool, len(cart))
	for _, line := range cart {
		cartIDs[line.ItemID] = true
	}

	var applied []domain.AppliedRule

	for _, rule := range rules {
		matched := false

		switch rule.Kind {
		case domain.RuleKindChannel:
			matched = rule.Channel != nil && channel != nil && *rule.Channel == *channel

		case domain.RuleKindUnitScale:
			matched = boundsMatchInt(rule.MinUnits, rule.MaxUnits, quantity)

		case domain.RuleKindAmountScale:
			matched = boundsMatchDec(rule.MinAmount, rule.MaxAmount, orderAmount)

		case domain.RuleKindOrderAmount:
			// Only the lower bound counts for this kind.
			matched = rule.MinAmount != nil && orderAmount.GreaterThanOrEqual(*rule.MinAmount)

		case domain.RuleKindBundle:
			record, ok, err := m.matchBundle(ctx, rule, list.ID, item.ID, cartIDs)
			if err != nil {
				return nil, err
			}
			if ok {
				applied = append(applied, record)
				metrics.RulesAppliedTotal.WithLabelValues(string(rule.Kind)).Inc()
			}
			// Bundle records carry the combination's effect, not the
			// rule's; never fall through to the generic record below.
			continue

		case domain.RuleKindSupplierDiscount:
			// Informational provenance for the cost floor; matches whenever
			// active.
			matched = true
		}

		if matched {
			applied = append(applied, domain.AppliedRule{
				RuleID:      rule.ID,
				Kind:        rule.Kind,
				Description: fmt.Sprintf("rule %s priority %d", rule.Kind, rule.Priority),
				DiscountPct: rule.DiscountPct.String(),
				Action:      domain.ActionPercentage,
				Value:       rule.DiscountPct.String(),
			})
			metrics.RulesAppliedTotal.WithLabelValues(string(rule.Kind)).Inc()
		}
	}

	return applied, nil
}

// matchBundle scans the list's active combinations for the first one that
// contains the priced item and is fully covered by the cart. First match
// wins; later combinations are not accumulated.
func (m *RuleMatcher) matchBundle(ctx context.Context, rule domain.PricingRule, listID, itemID uuid.UUID, cartIDs map[uuid.UUID]bool) (domain.AppliedRule, bool, error) {
	if len(cartIDs) == 0 {
		return domain.AppliedRule{}, false, nil
	}

	combos, err := m.combos.ListActive(ctx, listID)
	if err != nil {
		return domain.AppliedRule{}, false, err
	}

	for _, combo := range combos {
		if !combo.Contains(itemID) {
			continue
		}
		if !combinationCovered(combo, cartIDs) {
			continue
		}

		name := combo.Name
		if name == "" {
			name = "unnamed"
		}

		action := domain.ActionPercentage
		value := combo.DiscountPct.String()
		if combo.Mode == domain.CombinationModeFixedPrice && combo.FixedPrice != nil {
			action = domain.ActionFixedPrice
			value = combo.FixedPrice.String()
		}

		comboID := combo.ID
		return domain.AppliedRule{
			RuleID:        rule.ID,
			Kind:          domain.RuleKindBundle,
			Description:   fmt.Sprintf("combination %s - %s", combo.ID, name),
			DiscountPct:   combo.DiscountPct.String(),
			Action:        action,
			Value:         value,
			CombinationID: &comboID,
		}, true, nil
	}

	return domain.AppliedRule{}, false, nil
}

// combinationCovered reports whether every member of the combination is
// present in the cart's item-ID set.
func combinationCovered(combo domain.Combination, cartIDs map[uuid.UUID]bool) bool {
	for _, memberID := range combo.ItemIDs {
		if !cartIDs[memberID] {
			return false
		}
	}
	return true
}

// boundsMatchInt applies the scale-rule bound logic: both bounds set means
// an inclusive range check, only the lower bound set means a simple
// at-least check, no lower bound means no match.
func boundsMatchInt(min, max *int, v int) bool {
	if min != nil && max != nil {
		return v >= *min && v <= *max
	}
	if min != nil {
		return v >= *min
	}
	return false
}

func boundsMatchDec(min, max *decimal.Decimal, v decimal.Decimal) bool {
	if min != nil && max != nil {
		return v.GreaterThanOrEqual(*min) && v.LessThanOrEqual(*max)
	}
	if min != nil {
		return v.GreaterThanOrEqual(*min)
	}
	return false
}
