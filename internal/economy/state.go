package economy

import (
	"fmt"

	"github.com/talgya/campaign-world/internal/catalog"
)

// StockState is one persisted stock line.
type StockState struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// StoreState is the persisted form of a store.
type StoreState struct {
	Identifier         string       `json:"identifier"`
	Balance            int          `json:"balance"`
	PriceModifier      int          `json:"price_modifier"`
	MerchantFaction    string       `json:"merchant_faction,omitempty"`
	Stock              []StockState `json:"stock"`
	DailySpecials      []string     `json:"daily_specials"`
	RequestedGoods     []string     `json:"requested_goods"`
	StepsSinceSpecials int          `json:"steps_since_specials"`
}

// State snapshots the store.
func (s *Store) State() StoreState {
	st := StoreState{
		Identifier:         string(s.ID),
		Balance:            s.Balance,
		PriceModifier:      s.PriceModifier,
		MerchantFaction:    string(s.MerchantFaction),
		StepsSinceSpecials: s.StepsSinceSpecials,
		Stock:              make([]StockState, 0, len(s.Stock)),
		DailySpecials:      make([]string, 0, len(s.DailySpecials)),
		RequestedGoods:     make([]string, 0, len(s.RequestedGoods)),
	}
	for _, e := range s.Stock {
		st.Stock = append(st.Stock, StockState{Item: string(e.Item.ID), Quantity: e.Quantity})
	}
	for _, it := range s.DailySpecials {
		st.DailySpecials = append(st.DailySpecials, string(it.ID))
	}
	for _, it := range s.RequestedGoods {
		st.RequestedGoods = append(st.RequestedGoods, string(it.ID))
	}
	return st
}

// RestoreStore rebuilds a store from its persisted state. Unknown items are skipped
// and reported; the store itself is always returned.
func RestoreStore(st StoreState, owner Owner, reg *catalog.Registry, settings Settings) (*Store, []string) {
	var problems []string
	s := &Store{
		ID:                 catalog.ID(st.Identifier),
		Owner:              owner,
		Balance:            st.Balance,
		PriceModifier:      st.PriceModifier,
		MerchantFaction:    catalog.ID(st.MerchantFaction),
		StepsSinceSpecials: st.StepsSinceSpecials,
		reg:                reg,
		settings:           settings,
	}

	r := owner.StoreSettings().PriceModifierRange
	if s.PriceModifier < -r || s.PriceModifier > r {
		problems = append(problems, fmt.Sprintf("store %s: price modifier %d outside range %d", s.ID, s.PriceModifier, r))
		s.PriceModifier = 0
	}

	for _, line := range st.Stock {
		item, ok := reg.Item(catalog.ID(line.Item))
		if !ok {
			problems = append(problems, fmt.Sprintf("store %s: unknown stock item %q", s.ID, line.Item))
			continue
		}
		q := line.Quantity
		if q < 0 {
			q = 0
		}
		s.Stock = append(s.Stock, &StockEntry{Item: item, Quantity: q})
	}
	s.sortStock()

	resolve := func(ids []string, kind string) []*catalog.Item {
		var out []*catalog.Item
		for _, id := range ids {
			item, ok := reg.Item(catalog.ID(id))
			if !ok || !s.Trades(item) {
				problems = append(problems, fmt.Sprintf("store %s: %s %q is not traded here", s.ID, kind, id))
				continue
			}
			out = append(out, item)
		}
		return out
	}
	s.DailySpecials = resolve(st.DailySpecials, "daily special")
	s.RequestedGoods = resolve(st.RequestedGoods, "requested good")

	return s, problems
}
