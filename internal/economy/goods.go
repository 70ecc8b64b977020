// Package economy provides per-location stores: stock, restocking, daily specials,
// requested goods and the buy/sell price chain.
package economy

import (
	"sort"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/entropy"
)

// StockEntry is the quantity of one item a store holds.
type StockEntry struct {
	Item     *catalog.Item
	Quantity int
}

// initialQuantity rolls the starting quantity for an item. Quantities grow with the
// number of world steps the location went unvisited, never beyond the cap.
func initialQuantity(p catalog.PriceInfo, unvisited int, src *entropy.Source) int {
	var q int
	switch {
	case p.MaxAvailable > p.MinAvailable:
		q = src.RangeInt(p.MinAvailable, p.MaxAvailable+1, entropy.Synced)
	case p.MaxAvailable > 0:
		q = p.MaxAvailable
	default:
		q = p.MinAvailable
	}
	if unvisited > 0 {
		q += unvisited
	}
	return capQuantity(q, p)
}

// quantityCap is the most a store keeps of an item.
func quantityCap(p catalog.PriceInfo) int {
	if p.MaxAvailable > p.MinAvailable {
		return p.MaxAvailable
	}
	return p.MinAvailable
}

func capQuantity(q int, p catalog.PriceInfo) int {
	if c := quantityCap(p); q > c {
		q = c
	}
	if q < 0 {
		q = 0
	}
	return q
}

// Entry returns the stock entry for an item, or nil.
func (s *Store) Entry(id catalog.Identifier) *StockEntry {
	for _, e := range s.Stock {
		if e.Item.ID == id {
			return e
		}
	}
	return nil
}

// Quantity returns how many of an item the store holds.
func (s *Store) Quantity(id catalog.Identifier) int {
	if e := s.Entry(id); e != nil {
		return e.Quantity
	}
	return 0
}

// AddStock puts items sold by players back on the shelf. Items without a stock
// line here are ignored.
func (s *Store) AddStock(item *catalog.Item, quantity int) {
	if item == nil || quantity <= 0 {
		return
	}
	if e := s.Entry(item.ID); e != nil {
		e.Quantity += quantity
	}
}

// RemoveStock takes items bought by players off the shelf. Quantities never go negative.
func (s *Store) RemoveStock(item *catalog.Item, quantity int) {
	if item == nil || quantity <= 0 {
		return
	}
	e := s.Entry(item.ID)
	if e == nil {
		return
	}
	e.Quantity -= quantity
	if e.Quantity < 0 {
		e.Quantity = 0
	}
}

func (s *Store) sortStock() {
	sort.Slice(s.Stock, func(i, j int) bool { return s.Stock[i].Item.ID < s.Stock[j].Item.ID })
}

func containsItem(list []*catalog.Item, id catalog.Identifier) bool {
	for _, it := range list {
		if it.ID == id {
			return true
		}
	}
	return false
}
