package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/precios-app/pricingservice/internal/pricing/domain"
)

// MemoryStore is an in-memory implementation of Store. It backs the engine
// tests and small deployments without Postgres. WithinTx snapshots the
// dataset so a failing transaction really does roll back.
type MemoryStore struct {
	mu   sync.RWMutex
	data *dataset
}

type dataset struct {
	lists      map[uuid.UUID]domain.PriceList
	items      map[uuid.UUID]domain.Item
	itemPrices map[uuid.UUID]domain.ItemPrice
	rules      map[uuid.UUID]domain.PricingRule
	ruleOrder  []uuid.UUID // insertion order, stable sort key
	combos     map[uuid.UUID]domain.Combination
	comboOrder []uuid.UUID
	orders     map[uuid.UUID]domain.Order
	lines      map[uuid.UUID]domain.OrderLine
	lineOrder  []uuid.UUID
}

func newDataset() *dataset {
	return &dataset{
		lists:      make(map[uuid.UUID]domain.PriceList),
		items:      make(map[uuid.UUID]domain.Item),
		itemPrices: make(map[uuid.UUID]domain.ItemPrice),
		rules:      make(map[uuid.UUID]domain.PricingRule),
		combos:     make(map[uuid.UUID]domain.Combination),
		orders:     make(map[uuid.UUID]domain.Order),
		lines:      make(map[uuid.UUID]domain.OrderLine),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.lists {
		c.lists[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.itemPrices {
		c.itemPrices[k] = v
	}
	for k, v := range d.rules {
		c.rules[k] = v
	}
	c.ruleOrder = append(c.ruleOrder, d.ruleOrder...)
	for k, v := range d.combos {
		c.combos[k] = v
	}
	c.comboOrder = append(c.comboOrder, d.comboOrder...)
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.lines {
		c.lines[k] = v
	}
	c.lineOrder = append(c.lineOrder, d.lineOrder...)
	return c
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newDataset()}
}

// Seeding helpers

func (s *MemoryStore) AddPriceList(l domain.PriceList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.lists[l.ID] = l
}

func (s *MemoryStore) AddItem(i domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.items[i.ID] = i
}

func (s *MemoryStore) AddItemPrice(p domain.ItemPrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.itemPrices[p.ID] = p
}

func (s *MemoryStore) AddRule(r domain.PricingRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.rules[r.ID]; !exists {
		s.data.ruleOrder = append(s.data.ruleOrder, r.ID)
	}
	s.data.rules[r.ID] = r
}

func (s *MemoryStore) AddCombination(c domain.Combination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.combos[c.ID]; !exists {
		s.data.comboOrder = append(s.data.comboOrder, c.ID)
	}
	s.data.combos[c.ID] = c
}

func (s *MemoryStore) AddOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.orders[o.ID] = o
}

func (s *MemoryStore) AddOrderLine(l domain.OrderLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.lines[l.ID]; !exists {
		s.data.lineOrder = append(s.data.lineOrder, l.ID)
	}
	s.data.lines[l.ID] = l
}

// Store interface

func (s *MemoryStore) PriceLists() PriceListRepository   { return memPriceLists{s} }
func (s *MemoryStore) Items() ItemRepository             { return memItems{s} }
func (s *MemoryStore) ItemPrices() ItemPriceRepository   { return memItemPrices{s} }
func (s *MemoryStore) Rules() RuleRepository             { return memRules{s} }
func (s *MemoryStore) Combinations() CombinationRepository { return memCombinations{s} }
func (s *MemoryStore) Orders() OrderRepository           { return memOrders{s} }

// WithinTx clones the dataset, applies fn to the clone and swaps it in only
// when fn succeeds.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	tx := &MemoryStore{data: snapshot}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

type memPriceLists struct{ s *MemoryStore }

func (r memPriceLists) ListActive(ctx context.Context, companyID, branchID uuid.UUID, on time.Time) ([]domain.PriceList, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.PriceList
	for _, l := range r.s.data.lists {
		if l.CompanyID == companyID && l.BranchID == branchID &&
			l.Status == domain.ListStatusActive && l.InEffect(on) {
			out = append(out, l)
		}
	}
	return out, nil
}

type memItems struct{ s *MemoryStore }

func (r memItems) Get(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.data.items[id]
	if !ok {
		return domain.Item{}, domain.NewNotFoundError("item", id.String())
	}
	return item, nil
}

type memItemPrices struct{ s *MemoryStore }

func (r memItemPrices) Get(ctx context.Context, listID, itemID uuid.UUID) (domain.ItemPrice, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.data.itemPrices {
		if p.ListID == listID && p.ItemID == itemID {
			return p, true, nil
		}
	}
	return domain.ItemPrice{}, false, nil
}

func (r memItemPrices) GetByID(ctx context.Context, id uuid.UUID) (domain.ItemPrice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.data.itemPrices[id]
	if !ok {
		return domain.ItemPrice{}, domain.NewNotFoundError("item price", id.String())
	}
	return p, nil
}

func (r memItemPrices) SetBelowCostAuthorization(ctx context.Context, id uuid.UUID, authorized bool, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.itemPrices[id]
	if !ok {
		return domain.NewNotFoundError("item price", id.String())
	}
	p.BelowCostAuthorized = authorized
	p.BelowCostReason = reason
	p.UpdatedAt = time.Now()
	r.s.data.itemPrices[id] = p
	return nil
}

type memRules struct{ s *MemoryStore }

func (r memRules) ListActive(ctx context.Context, listID uuid.UUID) ([]domain.PricingRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.PricingRule
	for _, id := range r.s.data.ruleOrder {
		rule, ok := r.s.data.rules[id]
		if ok && rule.ListID == listID && rule.Active {
			out = append(out, rule)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (r memRules) ListActiveByKind(ctx context.Context, listID uuid.UUID, kind domain.RuleKind) ([]domain.PricingRule, error) {
	all, err := r.ListActive(ctx, listID)
	if err != nil {
		return nil, err
	}
	var out []domain.PricingRule
	for _, rule := range all {
		if rule.Kind == kind {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r memRules) UpsertSupplierDiscount(ctx context.Context, listID uuid.UUID, pct decimal.Decimal) (domain.PricingRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range r.s.data.ruleOrder {
		rule, ok := r.s.data.rules[id]
		if ok && rule.ListID == listID && rule.Kind == domain.RuleKindSupplierDiscount {
			rule.DiscountPct = pct
			rule.Active = true
			r.s.data.rules[id] = rule
			return rule, nil
		}
	}
	rule := domain.PricingRule{
		ID:          uuid.New(),
		ListID:      listID,
		Kind:        domain.RuleKindSupplierDiscount,
		Priority:    999,
		Active:      true,
		DiscountPct: pct,
	}
	r.s.data.ruleOrder = append(r.s.data.ruleOrder, rule.ID)
	r.s.data.rules[rule.ID] = rule
	return rule, nil
}

type memCombinations struct{ s *MemoryStore }

func (r memCombinations) ListActive(ctx context.Context, listID uuid.UUID) ([]domain.Combination, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Combination
	for _, id := range r.s.data.comboOrder {
		c, ok := r.s.data.combos[id]
		if ok && c.ListID == listID && c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

type memOrders struct{ s *MemoryStore }

func (r memOrders) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.data.orders[id]
	if !ok {
		return domain.Order{}, domain.NewNotFoundError("order", id.String())
	}
	return o, nil
}

func (r memOrders) Lines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.OrderLine
	for _, id := range r.s.data.lineOrder {
		l, ok := r.s.data.lines[id]
		if ok && l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r memOrders) SetLineUnitPrice(ctx context.Context, lineID uuid.UUID, price decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.lines[lineID]
	if !ok {
		return domain.NewNotFoundError("order line", lineID.String())
	}
	l.UnitPrice = price
	r.s.data.lines[lineID] = l
	return nil
}

func (r memOrders) SetStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.orders[id]
	if !ok {
		return domain.NewNotFoundError("order", id.String())
	}
	o.Status = status
	r.s.data.orders[id] = o
	return nil
}
