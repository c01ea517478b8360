package usecase

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	d := dec(t, s)
	return &d
}

func intPtr(v int) *int { return &v }

func chPtr(c domain.Channel) *domain.Channel { return &c }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// fixture seeds a memory store with one active list and returns the
// common identifiers the engine tests share.
type fixture struct {
	store     *repo.MemoryStore
	companyID uuid.UUID
	branchID  uuid.UUID
	list      domain.PriceList
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     repo.NewMemoryStore(),
		companyID: uuid.New(),
		branchID:  uuid.New(),
	}
	f.list = domain.PriceList{
		ID:        uuid.New(),
		CompanyID: f.companyID,
		BranchID:  f.branchID,
		Name:      "General",
		Type:      domain.ListTypeStandard,
		Channel:   domain.ChannelStore,
		StartDate: day("2026-01-01"),
		EndDate:   day("2026-12-31"),
		Status:    domain.ListStatusActive,
	}
	f.store.AddPriceList(f.list)
	return f
}

// addPricedItem seeds an item plus its price row on the fixture's list.
func (f *fixture) addPricedItem(t *testing.T, code, lastCost, basePrice string) (domain.Item, domain.ItemPrice) {
	t.Helper()
	item := domain.Item{
		ID:       uuid.New(),
		Code:     code,
		Name:     "Item " + code,
		LastCost: dec(t, lastCost),
	}
	f.store.AddItem(item)

	price := domain.ItemPrice{
		ID:        uuid.New(),
		ListID:    f.list.ID,
		ItemID:    item.ID,
		BasePrice: dec(t, basePrice),
	}
	f.store.AddItemPrice(price)
	return item, price
}

func (f *fixture) asOf() time.Time { return day("2026-06-15") }

func (f *fixture) request(item domain.Item) domain.PricingRequest {
	return domain.PricingRequest{
		CompanyID: f.companyID,
		BranchID:  f.branchID,
		ItemID:    item.ID,
		Quantity:  1,
		AsOf:      f.asOf(),
	}
}
