package economy

import (
	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/entropy"
)

// Owner is the location a store belongs to.
type Owner interface {
	LocationTypeID() catalog.Identifier
	StoreSettings() catalog.StoreSettings
	Standing() Reputation // Reputation used for price modifiers
	UnvisitedSteps() int
}

// Settings are campaign-wide store parameters.
type Settings struct {
	SpecialsUpdateInterval int     // Store updates between specials refreshes
	BalanceRecovery        float64 // Fraction of the initial balance restored per update
}

// DefaultSettings returns the standard store parameters.
func DefaultSettings() Settings {
	return Settings{
		SpecialsUpdateInterval: 3,
		BalanceRecovery:        0.1,
	}
}

// Store is one merchant at a location.
type Store struct {
	ID                 catalog.Identifier
	Owner              Owner
	Balance            int
	PriceModifier      int // Percent, within [-range, range]
	MerchantFaction    catalog.Identifier
	Stock              []*StockEntry // Ordered by item identifier
	DailySpecials      []*catalog.Item
	RequestedGoods     []*catalog.Item
	StepsSinceSpecials int

	reg      *catalog.Registry
	settings Settings
}

// NewStore opens a store with fresh stock, specials and price modifier.
// extraSpecials comes from crew bonuses and may be zero.
func NewStore(id catalog.Identifier, owner Owner, reg *catalog.Registry, settings Settings, src *entropy.Source, extraSpecials int) *Store {
	s := &Store{
		ID:       id,
		Owner:    owner,
		Balance:  owner.StoreSettings().InitialBalance,
		reg:      reg,
		settings: settings,
	}
	s.Stock = s.CreateStock(src)
	s.GenerateSpecials(src, extraSpecials)
	s.GeneratePriceModifier(src)
	return s
}

// InitialBalance is the balance the store recovers toward.
func (s *Store) InitialBalance() int {
	return s.Owner.StoreSettings().InitialBalance
}

// priceInfo resolves the price entry for an item here. Items the store does not
// trade fall back to the item's base price.
func (s *Store) priceInfo(item *catalog.Item) (catalog.PriceInfo, bool) {
	if p, ok := item.PriceAt(s.ID, s.Owner.LocationTypeID()); ok {
		return p, true
	}
	return catalog.PriceInfo{Price: item.Price, BuyingMultiplier: 1}, false
}

// Sells reports whether the store stocks an item.
func (s *Store) Sells(item *catalog.Item) bool {
	return item.SoldAt(s.ID, s.Owner.LocationTypeID())
}

// Trades reports whether the store deals in an item at all, buying or selling.
func (s *Store) Trades(item *catalog.Item) bool {
	_, ok := item.PriceAt(s.ID, s.Owner.LocationTypeID())
	return ok
}

// CreateStock rolls initial stock for every item the store sells.
func (s *Store) CreateStock(src *entropy.Source) []*StockEntry {
	var stock []*StockEntry
	unvisited := s.Owner.UnvisitedSteps()
	for _, item := range s.reg.Items() {
		p, ok := item.PriceAt(s.ID, s.Owner.LocationTypeID())
		if !ok || p.NotForSale {
			continue
		}
		stock = append(stock, &StockEntry{Item: item, Quantity: initialQuantity(p, unvisited, src)})
	}
	return stock
}

// Update ages the store by one world step: balance recovers toward its initial value,
// stocked items gain one unit up to their cap, newly sellable items are seeded and items
// no longer sold are dropped. Specials refresh on their interval, and the random price
// modifier is rolled again.
func (s *Store) Update(src *entropy.Source, extraSpecials int) {
	initial := s.InitialBalance()
	if s.Balance < initial {
		s.Balance += int(float64(initial) * s.settings.BalanceRecovery)
		if s.Balance > initial {
			s.Balance = initial
		}
	}

	var stock []*StockEntry
	for _, item := range s.reg.Items() {
		p, ok := item.PriceAt(s.ID, s.Owner.LocationTypeID())
		if !ok || p.NotForSale {
			continue
		}
		if e := s.Entry(item.ID); e != nil {
			if e.Quantity < quantityCap(p) {
				e.Quantity++
			}
			stock = append(stock, e)
			continue
		}
		stock = append(stock, &StockEntry{Item: item, Quantity: initialQuantity(p, 0, src)})
	}
	s.Stock = stock

	s.StepsSinceSpecials++
	settings := s.Owner.StoreSettings()
	if s.StepsSinceSpecials >= s.settings.SpecialsUpdateInterval ||
		len(s.DailySpecials) != settings.DailySpecialsCount+extraSpecials ||
		len(s.RequestedGoods) != settings.RequestedGoodsCount {
		s.GenerateSpecials(src, extraSpecials)
	}
	s.GeneratePriceModifier(src)
}

// Recreate rebuilds the store after its location changed type. Quantities never drop
// below what the store held before and the balance is topped up to the initial value.
func (s *Store) Recreate(src *entropy.Source, extraSpecials int) {
	old := s.Stock
	s.Stock = s.CreateStock(src)
	for _, e := range s.Stock {
		for _, o := range old {
			if o.Item.ID == e.Item.ID && o.Quantity > e.Quantity {
				e.Quantity = o.Quantity
			}
		}
	}
	if initial := s.InitialBalance(); s.Balance < initial {
		s.Balance = initial
	}
	s.GenerateSpecials(src, extraSpecials)
	s.GeneratePriceModifier(src)
}

// GenerateSpecials draws the daily specials and requested goods.
//
// Specials come from in-stock, special-eligible items without replacement; an item's
// weight grows with its surplus over its minimum quantity. Requested goods are drawn
// uniformly from special-eligible items the store trades that are not already specials.
func (s *Store) GenerateSpecials(src *entropy.Source, extraSpecials int) {
	settings := s.Owner.StoreSettings()
	rng := src.Rand(entropy.Synced)

	var pool []*catalog.Item
	var weights []float64
	for _, e := range s.Stock {
		if e.Quantity <= 0 || !e.Item.CanBeSpecial {
			continue
		}
		p, _ := s.priceInfo(e.Item)
		base := float64(p.MinAvailable)
		if base < 1 {
			base = 1
		}
		w := 1 + (float64(e.Quantity)-base)/base
		if w < 0 {
			continue
		}
		pool = append(pool, e.Item)
		weights = append(weights, w)
	}

	specials := make([]*catalog.Item, 0, settings.DailySpecialsCount+extraSpecials)
	for len(specials) < settings.DailySpecialsCount+extraSpecials {
		idx, ok := entropy.SelectWeightedIndex(weights, rng)
		if !ok {
			break
		}
		specials = append(specials, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}
	s.DailySpecials = specials

	var candidates []*catalog.Item
	for _, item := range s.reg.Items() {
		if !item.CanBeSpecial || !s.Trades(item) {
			continue
		}
		candidates = append(candidates, item)
	}
	requested := make([]*catalog.Item, 0, settings.RequestedGoodsCount)
	for len(requested) < settings.RequestedGoodsCount && len(candidates) > 0 {
		idx := rng.Intn(len(candidates))
		requested = append(requested, candidates[idx])
		candidates = append(candidates[:idx], candidates[idx+1:]...)
	}
	s.RequestedGoods = requested
	s.StepsSinceSpecials = 0
}

// GeneratePriceModifier rolls the random price modifier in [-range, range].
func (s *Store) GeneratePriceModifier(src *entropy.Source) {
	r := s.Owner.StoreSettings().PriceModifierRange
	if r < 0 {
		r = -r
	}
	s.PriceModifier = src.RangeInt(-r, r+1, entropy.Synced)
}

// IsDailySpecial reports whether the item is on sale today.
func (s *Store) IsDailySpecial(item *catalog.Item) bool {
	return containsItem(s.DailySpecials, item.ID)
}

// IsRequestedGood reports whether the store is asking for the item.
func (s *Store) IsRequestedGood(item *catalog.Item) bool {
	return containsItem(s.RequestedGoods, item.ID)
}
