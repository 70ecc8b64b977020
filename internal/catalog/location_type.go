package catalog

import "strings"

// BiomeGate says whether a location type may, must or must not occupy biome gate locations.
type BiomeGate uint8

const (
	GateAllow BiomeGate = iota // Unconstrained
	GateDeny                   // Never placed on a gate
	GateForce                  // Placed on gates before any other assignment
)

// String returns the content spelling of the directive.
func (g BiomeGate) String() string {
	switch g {
	case GateDeny:
		return "deny"
	case GateForce:
		return "force"
	default:
		return "allow"
	}
}

// ParseBiomeGate reads a directive. Unknown values fall back to GateAllow.
func ParseBiomeGate(s string) (BiomeGate, bool) {
	switch ID(s) {
	case "", "allow":
		return GateAllow, true
	case "deny":
		return GateDeny, true
	case "force":
		return GateForce, true
	default:
		return GateAllow, false
	}
}

// StoreSettings are the economic modifiers a location type applies to its stores.
type StoreSettings struct {
	BuyPriceModifier            float64 // Multiplier on prices the store charges
	SellPriceModifier           float64 // Multiplier on prices the store pays
	DailySpecialPriceModifier   float64 // Buy multiplier for daily specials
	RequestGoodPriceModifier    float64 // Sell multiplier for requested goods
	RequestGoodBuyPriceModifier float64 // Buy multiplier for requested goods
	MaxReputationModifier       float64 // Price effect at maximum reputation
	MinReputationModifier       float64 // Price effect at minimum reputation
	InitialBalance              int
	PriceModifierRange          int // Random price modifier lies in [-range, range]
	DailySpecialsCount          int
	RequestedGoodsCount         int
}

// DefaultStoreSettings returns the modifiers used when content leaves them out.
func DefaultStoreSettings() StoreSettings {
	return StoreSettings{
		BuyPriceModifier:            1,
		SellPriceModifier:           0.3,
		DailySpecialPriceModifier:   0.5,
		RequestGoodPriceModifier:    2,
		RequestGoodBuyPriceModifier: 5,
		MaxReputationModifier:       0.1,
		MinReputationModifier:       0.1,
		InitialBalance:              5000,
		PriceModifierRange:          5,
		DailySpecialsCount:          1,
		RequestedGoodsCount:         1,
	}
}

// TypeChange is a rule by which a location of one type may turn into another.
type TypeChange struct {
	To               Identifier
	Probability      float64 // Chance per world step once ready
	RequiredDuration int     // World steps the rule must stay allowed before it is ready

	// Probability boost while a location of one of ProximityTypes lies within
	// RequiredProximity connections. ProximityTypes defaults to To.
	ProximityProbabilityIncrease float64
	RequiredProximity            int
	ProximityTypes               []Identifier
	RequireDiscovered            bool // Only discovered locations count for the proximity boost

	RequiredAdjacent   []Identifier // At least one neighbour must have one of these types
	DisallowedAdjacent []Identifier // No neighbour may have any of these types

	// A selected rule with DelayMax > 0 is applied after a countdown in [DelayMin, DelayMax].
	DelayMin int
	DelayMax int
	Cooldown int // World steps after the change during which no rule is evaluated
}

// BoostTypes returns the types whose proximity increases the rule's probability.
func (c TypeChange) BoostTypes() []Identifier {
	if len(c.ProximityTypes) > 0 {
		return c.ProximityTypes
	}
	return []Identifier{c.To}
}

// AdjacencyAllows checks the rule's adjacency constraints against the neighbour types.
func (c TypeChange) AdjacencyAllows(neighbours []Identifier) bool {
	for _, n := range neighbours {
		if containsID(c.DisallowedAdjacent, n) {
			return false
		}
	}
	if len(c.RequiredAdjacent) == 0 {
		return true
	}
	for _, n := range neighbours {
		if containsID(c.RequiredAdjacent, n) {
			return true
		}
	}
	return false
}

// Hireable is an entry of a location type's hireable crew table.
type Hireable struct {
	Job        Identifier
	Commonness float64
}

// LocationType is a semantic category of location.
type LocationType struct {
	ID          Identifier
	Name        string
	HasOutpost  bool
	Names       []string // Base names; empty means generated names
	NameFormats []string // e.g. "[name] Outpost"

	Faction          Identifier // None clears, empty keeps the location's current faction
	SecondaryFaction Identifier

	BiomeGate BiomeGate
	Areas     []AreaSetting
	Changes   []TypeChange

	Store     StoreSettings
	StoreIDs  []Identifier
	Hireables []Hireable

	MissionIDs  []Identifier // Missions unlocked when a location becomes this type
	MissionTags []Identifier

	ReplaceInRadiation Identifier // Type a critically radiated location turns into

	Source string // Content package that defined the type
}

// Commonness returns the weight of the type for a location in zone and biome:
// the largest commonness among matching area settings, zero when none match.
func (t *LocationType) Commonness(zone int, biome Identifier) float64 {
	best := 0.0
	for _, a := range t.Areas {
		if a.Area.Contains(zone, biome) && a.Commonness > best {
			best = a.Commonness
		}
	}
	return best
}

// AllowedIn reports whether any area setting covers the zone or biome.
func (t *LocationType) AllowedIn(zone int, biome Identifier) bool {
	for _, a := range t.Areas {
		if a.Area.Contains(zone, biome) {
			return true
		}
	}
	return false
}

// FormatName builds a display name from a base name. The format is chosen by index
// so a location keeps a stable format across type changes.
func (t *LocationType) FormatName(base string, index int) string {
	if len(t.NameFormats) == 0 {
		return base
	}
	if index < 0 {
		index = -index
	}
	format := t.NameFormats[index%len(t.NameFormats)]
	return strings.ReplaceAll(format, "[name]", base)
}

// HasStores reports whether the type runs any store.
func (t *LocationType) HasStores() bool {
	return t.HasOutpost && len(t.StoreIDs) > 0
}

// String returns the identifier.
func (t *LocationType) String() string {
	if t == nil {
		return "<nil>"
	}
	return string(t.ID)
}

// Biome is a thematic region of the map.
type Biome struct {
	ID     Identifier
	Name   string
	Zones  []int // Difficulty zones the biome may be assigned to
	Source string
}

// AllowedIn reports whether the biome may cover zone.
func (b *Biome) AllowedIn(zone int) bool {
	for _, z := range b.Zones {
		if z == zone {
			return true
		}
	}
	return false
}

// Faction is a reputation holder locations and merchants can belong to.
type Faction struct {
	ID                Identifier
	Name              string
	MinReputation     float64
	MaxReputation     float64
	InitialReputation float64
}

// Mission is a mission prefab that locations can offer.
type Mission struct {
	ID         Identifier
	Name       string
	Tags       []Identifier
	Commonness float64
	Reward     int

	// Type change queued on the origin location when the mission completes.
	ChangeTypeOnComplete Identifier
	ChangeDelay          int
}

// HasTag reports whether the mission carries tag.
func (m *Mission) HasTag(tag Identifier) bool {
	return containsID(m.Tags, tag)
}
