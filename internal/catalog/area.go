package catalog

import "fmt"

type areaKind uint8

const (
	areaZone areaKind = iota + 1
	areaBiome
)

// Area is the scope of an area setting: exactly one difficulty zone or one biome.
// Construct with ZoneArea or BiomeArea; the zero value matches nothing.
type Area struct {
	kind  areaKind
	zone  int
	biome Identifier
}

// ZoneArea scopes a setting to a difficulty zone (1 = outermost).
func ZoneArea(zone int) Area {
	return Area{kind: areaZone, zone: zone}
}

// BiomeArea scopes a setting to a biome.
func BiomeArea(biome Identifier) Area {
	return Area{kind: areaBiome, biome: biome}
}

// Zone returns the zone index when the area is zone-scoped.
func (a Area) Zone() (int, bool) {
	return a.zone, a.kind == areaZone
}

// Biome returns the biome when the area is biome-scoped.
func (a Area) Biome() (Identifier, bool) {
	return a.biome, a.kind == areaBiome
}

// Valid reports whether the area was built through a constructor.
func (a Area) Valid() bool {
	return a.kind == areaZone || a.kind == areaBiome
}

// Contains reports whether a location in the given zone and biome lies in the area.
func (a Area) Contains(zone int, biome Identifier) bool {
	switch a.kind {
	case areaZone:
		return a.zone == zone
	case areaBiome:
		return a.biome != "" && a.biome == biome
	default:
		return false
	}
}

// String returns "zone 2" or "biome coldcaverns".
func (a Area) String() string {
	switch a.kind {
	case areaZone:
		return fmt.Sprintf("zone %d", a.zone)
	case areaBiome:
		return fmt.Sprintf("biome %s", a.biome)
	default:
		return "invalid area"
	}
}

// AreaSetting asks for a number of locations of a type inside an area.
type AreaSetting struct {
	Area       Area
	MinCount   int
	MaxCount   int
	Commonness float64 // Weight when the type is picked at random inside the area

	// Position is the desired relative position inside the area
	// (0 = start side, 1 = end side). Nil when the type has no preference.
	Position *float64
}

// HasPosition reports whether the setting carries a desired position.
func (s AreaSetting) HasPosition() bool {
	return s.Position != nil
}
