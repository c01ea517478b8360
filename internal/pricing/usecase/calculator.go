package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/precios-app/pricingservice/internal/cache"
	"github.com/precios-app/pricingservice/internal/log"
	"github.com/precios-app/pricingservice/internal/metrics"
	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo"
)

// PriceCalculator composes list resolution, rule matching and cost-floor
// validation into one pricing operation. Business conditions never surface
// as errors; they land in the result as nil prices plus a reason string.
type PriceCalculator struct {
	resolver  *ListResolver
	matcher   *RuleMatcher
	validator *CostFloorValidator
	items     repo.ItemRepository
	prices    repo.ItemPriceRepository
	rules     repo.RuleRepository
}

// NewPriceCalculator creates a calculator over the given store. c may be
// nil; it only feeds the resolver's list cache.
func NewPriceCalculator(store repo.Store, c *cache.Cache, listCacheTTL time.Duration) *PriceCalculator {
	return &PriceCalculator{
		resolver:  NewListResolver(store.PriceLists(), c, listCacheTTL),
		matcher:   NewRuleMatcher(store.Rules(), store.Combinations()),
		validator: NewCostFloorValidator(store.Rules()),
		items:     store.Items(),
		prices:    store.ItemPrices(),
		rules:     store.Rules(),
	}
}

// Calculate resolves the governing list, fetches the item's base price,
// evaluates the list's rules and returns the final unit price with a full
// audit trail. Errors are infrastructure failures only.
func (c *PriceCalculator) Calculate(ctx context.Context, req domain.PricingRequest) (domain.PricingResult, error) {
	start := time.Now()
	defer metrics.ObserveCalculation(start)

	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	if req.AsOf.IsZero() {
		req.AsOf = time.Now()
	}

	result := domain.PricingResult{
		TotalDiscount: decimal.Zero,
	}

	list, err := c.resolver.Resolve(ctx, req.CompanyID, req.BranchID, req.Channel, req.AsOf)
	if err != nil {
		metrics.PriceCalculationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return result, err
	}
	if list == nil {
		result.BelowCostReason = domain.ReasonNoActiveList
		metrics.PriceCalculationsTotal.WithLabelValues(metrics.OutcomeNoList).Inc()
		return result, nil
	}

	result.List = &domain.ListRef{ID: list.ID, Name: list.Name, Channel: list.Channel}

	itemPrice, found, err := c.prices.Get(ctx, list.ID, req.ItemID)
	if err != nil {
		metrics.PriceCalculationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return result, err
	}
	if !found {
		result.BelowCostReason = domain.ReasonItemNotPriced
		metrics.PriceCalculationsTotal.WithLabelValues(metrics.OutcomeNoPrice).Inc()
		return result, nil
	}

	item, err := c.items.Get(ctx, req.ItemID)
	if err != nil {
		metrics.PriceCalculationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return result, err
	}

	base := domain.Quantize(itemPrice.BasePrice)
	result.BasePrice = &base

	// Advisory pre-check: the base price may already sit under the cost
	// floor. The reason is recorded but the calculation proceeds; the
	// caller decides what to do with it.
	if err := c.validator.Validate(ctx, itemPrice, item); err != nil {
		if de := domain.GetDomainError(err); de != nil {
			result.BelowCostAuthorized = false
			result.BelowCostReason = de.Message
		} else {
			metrics.PriceCalculationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			return result, err
		}
	}

	applied, err := c.matcher.Match(ctx, *list, item, req.Channel, req.Quantity, req.OrderAmount, req.Cart)
	if err != nil {
		metrics.PriceCalculationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return result, err
	}
	result.AppliedRules = applied

	price := base
	totalDiscount := decimal.Zero
	fixedApplied := false

	// A fixed-price bundle override wins outright: the first such record
	// replaces the running price and every remaining rule is ignored.
	for _, r := range applied {
		if r.Kind == domain.RuleKindBundle && r.Action == domain.ActionFixedPrice {
			fixed, err := decimal.NewFromString(r.Value)
			if err != nil {
				log.Warn(ctx, "Unparseable fixed price on combination record",
					zap.String("value", r.Value),
					zap.String("rule_id", r.RuleID.String()))
				continue
			}
			price = domain.Quantize(fixed)
			result.CombinationApplied = r.CombinationID
			fixedApplied = true
			break
		}
	}

	if !fixedApplied {
		// Sequential composition: each percentage applies to the running
		// price, not the original base, and each step quantizes both the
		// discount and the price. The total is the sum of the per-step
		// deltas; it can drift a cent from base-final and that drift is
		// part of the contract.
		for _, r := range applied {
			pct, err := decimal.NewFromString(r.DiscountPct)
			if err != nil || pct.IsZero() {
				continue
			}
			discount := domain.Quantize(price.Mul(domain.PctFraction(pct)))
			price = domain.Quantize(price.Sub(discount))
			totalDiscount = totalDiscount.Add(discount)
			if r.Kind == domain.RuleKindBundle && r.CombinationID != nil {
				result.CombinationApplied = r.CombinationID
			}
		}
	}

	final := domain.Quantize(price)
	result.FinalPrice = &final
	result.TotalDiscount = domain.Quantize(totalDiscount)

	outcome := metrics.OutcomeOK

	// Re-check the floor against the final price: discounts can push a
	// valid base under cost, and a fixed-price override can land anywhere.
	if final.LessThan(item.LastCost) {
		outcome = metrics.OutcomeBelowCost
		result.BelowCostAuthorized = itemPrice.BelowCostAuthorized
		if result.BelowCostAuthorized {
			if itemPrice.BelowCostReason != "" {
				result.BelowCostReason = itemPrice.BelowCostReason
			} else {
				result.BelowCostReason = domain.ReasonManuallyAuthorized
			}
		} else {
			supplierRules, err := c.rules.ListActiveByKind(ctx, list.ID, domain.RuleKindSupplierDiscount)
			if err != nil {
				metrics.PriceCalculationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
				return result, err
			}
			if len(supplierRules) > 0 {
				result.BelowCostReason = domain.ReasonFinalBelowCostWithRule
			} else {
				result.BelowCostReason = domain.ReasonFinalBelowCost
			}
		}
		metrics.BelowCostTotal.WithLabelValues(boolLabel(result.BelowCostAuthorized)).Inc()
	}

	metrics.PriceCalculationsTotal.WithLabelValues(outcome).Inc()

	log.Debug(ctx, "Price calculated",
		zap.String("item_id", req.ItemID.String()),
		zap.String("list_id", list.ID.String()),
		zap.String("base_price", base.String()),
		zap.String("final_price", final.String()),
		zap.Int("applied_rules", len(applied)))

	return result, nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
