package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/entropy"
)

type fakeOwner struct {
	typeID    catalog.Identifier
	settings  catalog.StoreSettings
	rep       Reputation
	unvisited int
}

func (o *fakeOwner) LocationTypeID() catalog.Identifier   { return o.typeID }
func (o *fakeOwner) StoreSettings() catalog.StoreSettings { return o.settings }
func (o *fakeOwner) Standing() Reputation                 { return o.rep }
func (o *fakeOwner) UnvisitedSteps() int                  { return o.unvisited }

type fakeCampaign struct {
	difficulty float64
	stats      map[Stat]float64
	affiliated catalog.Identifier
}

func (c fakeCampaign) DifficultyPriceMultiplier() float64 { return c.difficulty }
func (c fakeCampaign) CrewStat(s Stat) float64             { return c.stats[s] }
func (c fakeCampaign) IsAffiliated(f catalog.Identifier) bool {
	return f != "" && f == c.affiliated
}

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, _, err := catalog.NewRegistry(catalog.Definition{
		Source: catalog.VanillaSource,
		LocationTypes: []*catalog.LocationType{
			{ID: "outpost", HasOutpost: true, StoreIDs: []catalog.Identifier{"merchant"}, Store: catalog.DefaultStoreSettings()},
		},
		Items: []*catalog.Item{
			{ID: "tank", Price: 100, CanBeSpecial: true, Prices: []catalog.PriceInfo{{Store: "merchant", MinAvailable: 2, MaxAvailable: 10}}},
			{ID: "fuel", Price: 50, CanBeSpecial: true, Prices: []catalog.PriceInfo{{Store: "merchant", LocationTypes: []catalog.Identifier{"outpost"}, MaxAvailable: 4}}},
			{ID: "ore", Price: 80, CanBeSpecial: true, Prices: []catalog.PriceInfo{{Store: "merchant", NotForSale: true}}},
			{ID: "gem", Price: 500, CanBeSpecial: true, Prices: []catalog.PriceInfo{{Store: "jeweler", MaxAvailable: 1}}},
			{ID: "rope", Price: 10, Prices: []catalog.PriceInfo{{MinAvailable: 3, MaxAvailable: 3}}},
		},
	})
	require.NoError(t, err)
	return reg
}

func newTestStore(t *testing.T, seed int64) (*Store, *fakeOwner, *catalog.Registry) {
	t.Helper()
	reg := testRegistry(t)
	owner := &fakeOwner{typeID: "outpost", settings: catalog.DefaultStoreSettings(), rep: NewReputation(-100, 100, 0)}
	s := NewStore("merchant", owner, reg, DefaultSettings(), entropy.NewSource(seed), 0)
	return s, owner, reg
}

func item(t *testing.T, reg *catalog.Registry, id catalog.Identifier) *catalog.Item {
	t.Helper()
	it, ok := reg.Item(id)
	require.True(t, ok, "item %s", id)
	return it
}

func TestNewStoreStocksOnlySellableItems(t *testing.T) {
	s, _, _ := newTestStore(t, 1)

	var ids []catalog.Identifier
	for _, e := range s.Stock {
		ids = append(ids, e.Item.ID)
		assert.GreaterOrEqual(t, e.Quantity, 0)
	}
	assert.Equal(t, []catalog.Identifier{"fuel", "rope", "tank"}, ids)
	assert.Equal(t, 5000, s.Balance)

	tank := s.Entry("tank")
	assert.GreaterOrEqual(t, tank.Quantity, 2)
	assert.LessOrEqual(t, tank.Quantity, 10)
	assert.LessOrEqual(t, s.Quantity("fuel"), 4)
	assert.Equal(t, 3, s.Quantity("rope"))
}

func TestUnvisitedStepsBoostInitialStockUpToCap(t *testing.T) {
	reg := testRegistry(t)
	owner := &fakeOwner{typeID: "outpost", settings: catalog.DefaultStoreSettings(), unvisited: 50}
	s := NewStore("merchant", owner, reg, DefaultSettings(), entropy.NewSource(3), 0)
	assert.Equal(t, 10, s.Quantity("tank"))
}

func TestUpdateReplenishesStock(t *testing.T) {
	s, _, _ := newTestStore(t, 2)
	src := entropy.NewSource(2)

	s.Entry("tank").Quantity = 4
	s.Update(src, 0)
	assert.Equal(t, 5, s.Quantity("tank"))

	s.Entry("tank").Quantity = 10
	s.Update(src, 0)
	assert.Equal(t, 10, s.Quantity("tank"), "capped at max available")

	s.Entry("tank").Quantity = 14
	s.Update(src, 0)
	assert.Equal(t, 14, s.Quantity("tank"), "surplus from player sales is kept")
}

func TestUpdateDropsItemsNoLongerSold(t *testing.T) {
	s, owner, _ := newTestStore(t, 4)
	require.NotNil(t, s.Entry("fuel"))

	owner.typeID = "abandoned"
	s.Update(entropy.NewSource(4), 0)
	assert.Nil(t, s.Entry("fuel"), "fuel is only sold at outposts")
	assert.NotNil(t, s.Entry("tank"))
	assert.NotNil(t, s.Entry("rope"), "generic entries apply at any type")
}

func TestBalanceRecovery(t *testing.T) {
	s, _, _ := newTestStore(t, 5)
	src := entropy.NewSource(5)

	s.Balance = 0
	s.Update(src, 0)
	assert.Equal(t, 500, s.Balance)

	s.Balance = 4800
	s.Update(src, 0)
	assert.Equal(t, 5000, s.Balance)

	s.Balance = 7000
	s.Update(src, 0)
	assert.Equal(t, 7000, s.Balance, "never pulled down")
}

func TestSpecialsAreSubsetsOfTradedItems(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		s, owner, _ := newTestStore(t, seed)
		owner.settings.DailySpecialsCount = 2
		owner.settings.RequestedGoodsCount = 2
		s.GenerateSpecials(entropy.NewSource(seed), 1)

		assert.LessOrEqual(t, len(s.DailySpecials), 3)
		for _, it := range s.DailySpecials {
			assert.True(t, it.CanBeSpecial)
			assert.Positive(t, s.Quantity(it.ID), "specials are in stock")
		}
		assert.LessOrEqual(t, len(s.RequestedGoods), 2)
		for _, it := range s.RequestedGoods {
			assert.True(t, s.Trades(it))
			assert.NotEqual(t, catalog.Identifier("gem"), it.ID)
		}
		assert.Equal(t, 0, s.StepsSinceSpecials)
	}
}

func TestSpecialsRefreshOnInterval(t *testing.T) {
	s, _, _ := newTestStore(t, 6)
	src := entropy.NewSource(6)

	s.Update(src, 0)
	assert.Equal(t, 1, s.StepsSinceSpecials)
	s.Update(src, 0)
	assert.Equal(t, 2, s.StepsSinceSpecials)
	s.Update(src, 0)
	assert.Equal(t, 0, s.StepsSinceSpecials)

	// A changed bonus count forces a refresh.
	s.Update(src, 0)
	s.Update(src, 1)
	assert.Equal(t, 0, s.StepsSinceSpecials)
}

func TestPriceModifierStaysInRange(t *testing.T) {
	s, _, _ := newTestStore(t, 7)
	src := entropy.NewSource(7)
	for i := 0; i < 200; i++ {
		s.GeneratePriceModifier(src)
		assert.GreaterOrEqual(t, s.PriceModifier, -5)
		assert.LessOrEqual(t, s.PriceModifier, 5)
	}
}

func TestStockMutation(t *testing.T) {
	s, _, reg := newTestStore(t, 8)
	tank := item(t, reg, "tank")

	s.Entry("tank").Quantity = 3
	s.RemoveStock(tank, 5)
	assert.Equal(t, 0, s.Quantity("tank"))

	s.AddStock(tank, 2)
	assert.Equal(t, 2, s.Quantity("tank"))

	s.AddStock(item(t, reg, "ore"), 4)
	assert.Nil(t, s.Entry("ore"), "not normally stocked here")
	s.AddStock(item(t, reg, "gem"), 1)
	assert.Nil(t, s.Entry("gem"))

	s.Stock = nil
	s.AddStock(tank, 2)
	assert.Nil(t, s.Entry("tank"), "no stock line to add to")
}

func TestRequestedGoodsDrawnIndependentlyOfSpecials(t *testing.T) {
	reg, _, err := catalog.NewRegistry(catalog.Definition{
		Source: catalog.VanillaSource,
		LocationTypes: []*catalog.LocationType{
			{ID: "outpost", HasOutpost: true, StoreIDs: []catalog.Identifier{"merchant"}, Store: catalog.DefaultStoreSettings()},
		},
		Items: []*catalog.Item{
			{ID: "tank", Price: 100, CanBeSpecial: true, Prices: []catalog.PriceInfo{{Store: "merchant", MinAvailable: 2, MaxAvailable: 10}}},
		},
	})
	require.NoError(t, err)
	owner := &fakeOwner{typeID: "outpost", settings: catalog.DefaultStoreSettings(), rep: NewReputation(-100, 100, 0)}
	s := NewStore("merchant", owner, reg, DefaultSettings(), entropy.NewSource(4), 0)

	tank := item(t, reg, "tank")
	require.Len(t, s.DailySpecials, 1)
	require.Len(t, s.RequestedGoods, 1)
	assert.True(t, s.IsDailySpecial(tank))
	assert.True(t, s.IsRequestedGood(tank))

	// Base 100, special 0.5, then requested 5.
	s.PriceModifier = 0
	assert.Equal(t, 250, s.BuyPrice(tank, nil))
}

func TestRecreateKeepsHigherQuantities(t *testing.T) {
	s, _, _ := newTestStore(t, 9)
	s.Entry("tank").Quantity = 40
	s.Balance = 100

	s.Recreate(entropy.NewSource(9), 0)
	assert.Equal(t, 40, s.Quantity("tank"))
	assert.Equal(t, 5000, s.Balance)
}

func TestStoreStateRestore(t *testing.T) {
	s, owner, reg := newTestStore(t, 10)
	st := s.State()
	st.Stock = append(st.Stock, StockState{Item: "unobtainium", Quantity: 3})
	st.DailySpecials = append(st.DailySpecials, "gem")

	restored, problems := RestoreStore(st, owner, reg, DefaultSettings())
	assert.Len(t, problems, 2)
	assert.Equal(t, s.Balance, restored.Balance)
	assert.Equal(t, s.PriceModifier, restored.PriceModifier)
	assert.Equal(t, s.Quantity("tank"), restored.Quantity("tank"))
	assert.Nil(t, restored.Entry("unobtainium"))
	assert.False(t, restored.IsDailySpecial(item(t, reg, "gem")))
}
