package catalog

// PriceInfo describes how one store or location type trades an item.
// Empty Store and LocationTypes match every store and type.
type PriceInfo struct {
	Store            Identifier
	LocationTypes    []Identifier
	Price            int // Overrides the item's base price when > 0
	MinAvailable     int
	MaxAvailable     int
	BuyingMultiplier float64 // Multiplier on the store's asking price; 0 means 1
	NotForSale       bool    // The store buys the item from players but never stocks it
}

// Item is a tradeable item and its price table.
type Item struct {
	ID           Identifier
	Name         string
	Price        int  // Base price
	CanBeSpecial bool // Eligible as a daily special or requested good
	Prices       []PriceInfo
	Source       string
}

// PriceAt resolves the price entry for a store at a location type. The most specific
// entry wins: store and type, then store only, then type only, then a generic entry.
// The returned entry has Price and BuyingMultiplier filled in.
func (it *Item) PriceAt(store, locationType Identifier) (PriceInfo, bool) {
	best := -1
	bestScore := -1
	for i, p := range it.Prices {
		score := 0
		if p.Store != "" {
			if p.Store != store {
				continue
			}
			score += 2
		}
		if len(p.LocationTypes) > 0 {
			if !containsID(p.LocationTypes, locationType) {
				continue
			}
			score++
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return PriceInfo{}, false
	}

	p := it.Prices[best]
	if p.Price <= 0 {
		p.Price = it.Price
	}
	if p.BuyingMultiplier <= 0 {
		p.BuyingMultiplier = 1
	}
	return p, true
}

// SoldAt reports whether a store at the location type stocks the item.
func (it *Item) SoldAt(store, locationType Identifier) bool {
	p, ok := it.PriceAt(store, locationType)
	return ok && !p.NotForSale
}
