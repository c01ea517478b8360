package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo"
)

func (f *fixture) calculate(t *testing.T, req domain.PricingRequest) domain.PricingResult {
	t.Helper()
	calc := NewPriceCalculator(f.store, nil, 0)
	res, err := calc.Calculate(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestCalculateNoActiveList(t *testing.T) {
	calc := NewPriceCalculator(repo.NewMemoryStore(), nil, 0)
	res, err := calc.Calculate(context.Background(), domain.PricingRequest{
		CompanyID: uuid.New(),
		BranchID:  uuid.New(),
		ItemID:    uuid.New(),
		AsOf:      day("2026-06-15"),
	})
	require.NoError(t, err)
	assert.Nil(t, res.BasePrice)
	assert.Nil(t, res.FinalPrice)
	assert.Nil(t, res.List)
	assert.Equal(t, domain.ReasonNoActiveList, res.BelowCostReason)
}

func TestCalculateItemNotPriced(t *testing.T) {
	f := newFixture(t)
	item := domain.Item{ID: uuid.New(), Code: "BARE", LastCost: dec(t, "1.00")}
	f.store.AddItem(item)

	res := f.calculate(t, f.request(item))
	assert.Nil(t, res.BasePrice)
	assert.Nil(t, res.FinalPrice)
	require.NotNil(t, res.List)
	assert.Equal(t, f.list.ID, res.List.ID)
	assert.Equal(t, domain.ReasonItemNotPriced, res.BelowCostReason)
}

func TestCalculateNoRules(t *testing.T) {
	f := newFixture(t)
	item, _ := f.addPricedItem(t, "WIDGET", "5.00", "10.00")

	res := f.calculate(t, f.request(item))
	require.NotNil(t, res.BasePrice)
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, "10.00", res.BasePrice.StringFixed(2))
	assert.Equal(t, "10.00", res.FinalPrice.StringFixed(2))
	assert.True(t, res.TotalDiscount.IsZero())
	assert.Empty(t, res.AppliedRules)
	assert.Empty(t, res.BelowCostReason)
}

func TestCalculateSequentialComposition(t *testing.T) {
	f := newFixture(t)
	item, _ := f.addPricedItem(t, "WIDGET", "5.00", "100.00")

	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale, Priority: 1,
		MinUnits: intPtr(1), DiscountPct: dec(t, "10"),
	})
	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale, Priority: 2,
		MinUnits: intPtr(1), DiscountPct: dec(t, "10"),
	})

	res := f.calculate(t, f.request(item))
	require.NotNil(t, res.FinalPrice)
	// Compounding: 100 -> 90 -> 81, not the additive 80.
	assert.Equal(t, "81.00", res.FinalPrice.StringFixed(2))
	assert.Equal(t, "19.00", res.TotalDiscount.StringFixed(2))
	assert.Len(t, res.AppliedRules, 2)
}

func TestCalculatePerStepQuantization(t *testing.T) {
	f := newFixture(t)
	item, _ := f.addPricedItem(t, "WIDGET", "1.00", "9.99")

	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale, Priority: 1,
		MinUnits: intPtr(1), DiscountPct: dec(t, "33.33"),
	})
	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale, Priority: 2,
		MinUnits: intPtr(1), DiscountPct: dec(t, "33.33"),
	})

	res := f.calculate(t, f.request(item))
	require.NotNil(t, res.FinalPrice)
	// 9.99 - Q(9.99*0.3333)=3.33 -> 6.66; 6.66 - Q(6.66*0.3333)=2.22 -> 4.44.
	assert.Equal(t, "4.44", res.FinalPrice.StringFixed(2))
	assert.Equal(t, "5.55", res.TotalDiscount.StringFixed(2))
	// The per-step deltas always reconcile with base minus final.
	assert.True(t, res.BasePrice.Sub(*res.FinalPrice).Equal(res.TotalDiscount))
}

func TestCalculateUnitScaleEndToEnd(t *testing.T) {
	f := newFixture(t)
	item, _ := f.addPricedItem(t, "WIDGET", "5.00", "15.00")
	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale,
		MinUnits: intPtr(10), DiscountPct: dec(t, "10"),
	})

	req := f.request(item)
	req.Quantity = 20
	res := f.calculate(t, req)
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, "13.50", res.FinalPrice.StringFixed(2))
	assert.Equal(t, "1.50", res.TotalDiscount.StringFixed(2))

	req.Quantity = 5
	res = f.calculate(t, req)
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, "15.00", res.FinalPrice.StringFixed(2))
}

func TestCalculateQuantityDefaultsToOne(t *testing.T) {
	f := newFixture(t)
	item, _ := f.addPricedItem(t, "WIDGET", "5.00", "10.00")
	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale,
		MinUnits: intPtr(2), DiscountPct: dec(t, "10"),
	})

	req := f.request(item)
	req.Quantity = 0
	res := f.calculate(t, req)
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, "10.00", res.FinalPrice.StringFixed(2))
	assert.Empty(t, res.AppliedRules)
}

func TestCalculateFixedPriceBundleShortCircuits(t *testing.T) {
	f := newFixture(t)
	itemA, _ := f.addPricedItem(t, "A", "5.00", "12.00")
	itemB, _ := f.addPricedItem(t, "B", "5.00", "9.00")

	// A percentage rule that would otherwise apply after the bundle.
	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale, Priority: 5,
		MinUnits: intPtr(1), DiscountPct: dec(t, "50"),
	})
	f.addRule(t, domain.PricingRule{Kind: domain.RuleKindBundle, Priority: 1})
	combo := f.addCombination(t, domain.Combination{
		Name:       "Pack",
		ItemIDs:    []uuid.UUID{itemA.ID, itemB.ID},
		FixedPrice: decPtr(t, "18.00"),
		Mode:       domain.CombinationModeFixedPrice,
	})

	req := f.request(itemA)
	req.Cart = []domain.CartLine{{ItemID: itemA.ID, Quantity: 1}, {ItemID: itemB.ID, Quantity: 1}}
	res := f.calculate(t, req)
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, "18.00", res.FinalPrice.StringFixed(2))
	assert.True(t, res.TotalDiscount.IsZero())
	require.NotNil(t, res.CombinationApplied)
	assert.Equal(t, combo.ID, *res.CombinationApplied)
}

func TestCalculatePercentageBundle(t *testing.T) {
	f := newFixture(t)
	itemA, _ := f.addPricedItem(t, "A", "5.00", "20.00")
	itemB, _ := f.addPricedItem(t, "B", "5.00", "20.00")

	f.addRule(t, domain.PricingRule{Kind: domain.RuleKindBundle})
	combo := f.addCombination(t, domain.Combination{
		Name:        "Duo",
		ItemIDs:     []uuid.UUID{itemA.ID, itemB.ID},
		DiscountPct: dec(t, "25"),
		Mode:        domain.CombinationModePercentage,
	})

	req := f.request(itemA)
	req.Cart = []domain.CartLine{{ItemID: itemA.ID, Quantity: 1}, {ItemID: itemB.ID, Quantity: 1}}
	res := f.calculate(t, req)
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, "15.00", res.FinalPrice.StringFixed(2))
	assert.Equal(t, "5.00", res.TotalDiscount.StringFixed(2))
	require.NotNil(t, res.CombinationApplied)
	assert.Equal(t, combo.ID, *res.CombinationApplied)
}

func TestCalculateAdvisoryBelowCostStillPrices(t *testing.T) {
	f := newFixture(t)
	item, _ := f.addPricedItem(t, "WIDGET", "10.00", "8.00")

	res := f.calculate(t, f.request(item))
	require.NotNil(t, res.BasePrice)
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, "8.00", res.FinalPrice.StringFixed(2))
	assert.False(t, res.BelowCostAuthorized)
	assert.Equal(t, domain.ReasonFinalBelowCost, res.BelowCostReason)
}

func TestCalculateDiscountPushesFinalBelowCost(t *testing.T) {
	f := newFixture(t)
	item, _ := f.addPricedItem(t, "WIDGET", "9.00", "10.00")
	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale,
		MinUnits: intPtr(1), DiscountPct: dec(t, "20"),
	})

	res := f.calculate(t, f.request(item))
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, "8.00", res.FinalPrice.StringFixed(2))
	assert.False(t, res.BelowCostAuthorized)
	assert.Equal(t, domain.ReasonFinalBelowCost, res.BelowCostReason)
}

func TestCalculateBelowCostWithSupplierRuleReason(t *testing.T) {
	f := newFixture(t)
	item, _ := f.addPricedItem(t, "WIDGET", "9.00", "10.00")
	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale, Priority: 1,
		MinUnits: intPtr(1), DiscountPct: dec(t, "20"),
	})
	f.addSupplierRule(t, "2") // exists but covers almost nothing

	res := f.calculate(t, f.request(item))
	require.NotNil(t, res.FinalPrice)
	assert.False(t, res.BelowCostAuthorized)
	assert.Equal(t, domain.ReasonFinalBelowCostWithRule, res.BelowCostReason)
}

func TestCalculateBelowCostAuthorizedReason(t *testing.T) {
	f := newFixture(t)
	item := domain.Item{ID: uuid.New(), Code: "AUTH", LastCost: dec(t, "10.00")}
	f.store.AddItem(item)
	f.store.AddItemPrice(domain.ItemPrice{
		ID:                  uuid.New(),
		ListID:              f.list.ID,
		ItemID:              item.ID,
		BasePrice:           dec(t, "8.00"),
		BelowCostAuthorized: true,
		BelowCostReason:     "clearance approved",
	})

	res := f.calculate(t, f.request(item))
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, "8.00", res.FinalPrice.StringFixed(2))
	assert.True(t, res.BelowCostAuthorized)
	assert.Equal(t, "clearance approved", res.BelowCostReason)
}

func TestCalculateIdempotent(t *testing.T) {
	f := newFixture(t)
	item, _ := f.addPricedItem(t, "WIDGET", "5.00", "100.00")
	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale,
		MinUnits: intPtr(1), DiscountPct: dec(t, "12.5"),
	})

	req := f.request(item)
	first := f.calculate(t, req)
	for i := 0; i < 5; i++ {
		res := f.calculate(t, req)
		require.NotNil(t, res.FinalPrice)
		assert.True(t, first.FinalPrice.Equal(*res.FinalPrice))
		assert.True(t, first.TotalDiscount.Equal(res.TotalDiscount))
	}
}

func TestCalculateZeroPercentRuleRecordedButInert(t *testing.T) {
	f := newFixture(t)
	item, _ := f.addPricedItem(t, "WIDGET", "5.00", "10.00")
	f.addRule(t, domain.PricingRule{
		Kind: domain.RuleKindUnitScale,
		MinUnits: intPtr(1), DiscountPct: decimal.Zero,
	})

	res := f.calculate(t, f.request(item))
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, "10.00", res.FinalPrice.StringFixed(2))
	assert.True(t, res.TotalDiscount.IsZero())
	assert.Len(t, res.AppliedRules, 1)
}
