package economy

import (
	"math"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/mathx"
)

// Stat is a crew statistic that affects trading.
type Stat uint8

const (
	StatStoreBuyMultiplier           Stat = iota // Added to the buy price multiplier (negative = discount)
	StatStoreBuyMultiplierAffiliated             // Same, only at stores of affiliated factions
	StatStoreSellMultiplier                      // Added to the sell price multiplier
	StatExtraSpecialSalesCount                   // Extra daily specials
)

// Campaign supplies campaign-wide inputs to pricing. A nil Campaign is neutral.
type Campaign interface {
	DifficultyPriceMultiplier() float64
	CrewStat(stat Stat) float64 // Sum over the active crew
	IsAffiliated(faction catalog.Identifier) bool
}

// ExtraSpecials reads the crew's extra specials bonus.
func ExtraSpecials(c Campaign) int {
	if c == nil {
		return 0
	}
	return int(c.CrewStat(StatExtraSpecialSalesCount))
}

// BuyPrice is what the store charges a player for one unit of item.
//
// The chain is base price, location buy modifier, random price modifier, the item's
// buying multiplier, the daily special modifier, the requested good modifier, reputation,
// campaign difficulty and crew bonuses. The result is never below 1.
func (s *Store) BuyPrice(item *catalog.Item, c Campaign) int {
	settings := s.Owner.StoreSettings()
	p, _ := s.priceInfo(item)

	price := float64(p.Price) * settings.BuyPriceModifier
	price *= float64(100+s.PriceModifier) / 100
	price *= p.BuyingMultiplier
	if s.IsDailySpecial(item) {
		price *= settings.DailySpecialPriceModifier
	}
	if s.IsRequestedGood(item) {
		price *= settings.RequestGoodBuyPriceModifier
	}
	price *= s.ReputationModifier(true)

	if c != nil {
		price *= c.DifficultyPriceMultiplier()
		price *= math.Max(0, 1+c.CrewStat(StatStoreBuyMultiplier))
		if !s.MerchantFaction.IsEmpty() && c.IsAffiliated(s.MerchantFaction) {
			price *= math.Max(0, 1+c.CrewStat(StatStoreBuyMultiplierAffiliated))
		}
	}
	return floorPrice(price)
}

// SellPrice is what the store pays a player for one unit of item.
// The result is never below 1.
func (s *Store) SellPrice(item *catalog.Item, c Campaign) int {
	settings := s.Owner.StoreSettings()
	p, _ := s.priceInfo(item)

	price := float64(p.Price) * settings.SellPriceModifier
	price *= float64(100-s.PriceModifier) / 100
	if s.IsRequestedGood(item) {
		price *= settings.RequestGoodPriceModifier
	}
	price *= s.ReputationModifier(false)

	if c != nil {
		price *= math.Max(0, 1+c.CrewStat(StatStoreSellMultiplier))
	}
	return floorPrice(price)
}

// ReputationModifier scales prices by the owner's standing. Good standing lowers what the
// store charges and raises what it pays, up to the type's maximum modifier; bad standing
// does the opposite, up to the minimum modifier.
func (s *Store) ReputationModifier(buying bool) float64 {
	settings := s.Owner.StoreSettings()
	rep := s.Owner.Standing()
	f := rep.Fraction()

	switch {
	case rep.Value > 0 && buying:
		return mathx.Lerp(1, 1-settings.MaxReputationModifier, f)
	case rep.Value > 0:
		return mathx.Lerp(1, 1+settings.MaxReputationModifier, f)
	case buying:
		return mathx.Lerp(1, 1+settings.MinReputationModifier, f)
	default:
		return mathx.Lerp(1, 1-settings.MinReputationModifier, f)
	}
}

func floorPrice(price float64) int {
	if math.IsNaN(price) || price < 1 {
		return 1
	}
	if price > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(price)
}

const (
	mechanicalMaxDiscount = 0.5 // At maximum reputation
	healMaxDiscount       = 0.1
)

// MechanicalCost adjusts a repair or upgrade cost for reputation and the location's
// price multiplier (clamped to [0.1, 10]).
func MechanicalCost(base int, rep Reputation, priceMultiplier float64) int {
	return adjustedCost(base, rep, priceMultiplier, mechanicalMaxDiscount)
}

// HealCost adjusts a medical treatment cost the same way with a smaller discount.
func HealCost(base int, rep Reputation, priceMultiplier float64) int {
	return adjustedCost(base, rep, priceMultiplier, healMaxDiscount)
}

func adjustedCost(base int, rep Reputation, priceMultiplier, maxDiscount float64) int {
	discount := 0.0
	if rep.Max > 0 {
		discount = rep.Value / rep.Max * maxDiscount
	}
	m := mathx.Clamp(priceMultiplier, 0.1, 10)
	return int(math.Ceil((1 - discount) * float64(base) * m))
}
