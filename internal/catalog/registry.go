package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/talgya/campaign-world/internal/entropy"
)

// VanillaSource is the content source of the base catalog. Warnings about it carry no blame.
const VanillaSource = "vanilla"

var (
	ErrUnknownType = errors.New("unknown location type")
	ErrUnknownItem = errors.New("unknown item")
	ErrNoTypes     = errors.New("catalog defines no location types")
)

// Warning is a non-fatal content problem.
type Warning struct {
	Source  string // Content package at fault
	Subject string // Identifier of the offending entry
	Message string
}

// String formats the warning, naming the source when it is not the base catalog.
func (w Warning) String() string {
	if w.Source != "" && w.Source != VanillaSource {
		return fmt.Sprintf("%s: %s (content package %q)", w.Subject, w.Message, w.Source)
	}
	return fmt.Sprintf("%s: %s", w.Subject, w.Message)
}

// LogWarnings writes warnings to logger (slog.Default when nil).
func LogWarnings(logger *slog.Logger, warnings []Warning) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, w := range warnings {
		logger.Warn("content warning", "subject", w.Subject, "source", w.Source, "message", w.Message)
	}
}

// Definition is the raw material of a registry.
type Definition struct {
	Source        string
	StartType     Identifier // Category preferred for the starting location
	LocationTypes []*LocationType
	Biomes        []*Biome
	Items         []*Item
	Factions      []*Faction
	Missions      []*Mission
}

// Registry is the immutable catalog handed to generation and progression.
// Location types keep their registration order.
type Registry struct {
	source    string
	startType Identifier

	types    []*LocationType
	typeByID map[Identifier]*LocationType

	biomes    []*Biome
	biomeByID map[Identifier]*Biome

	items    []*Item
	itemByID map[Identifier]*Item

	factions    []*Faction
	factionByID map[Identifier]*Faction

	missions    []*Mission
	missionByID map[Identifier]*Mission
}

// NewRegistry indexes a definition and validates it. Later entries with a duplicate
// identifier replace earlier ones in place.
func NewRegistry(def Definition) (*Registry, []Warning, error) {
	if len(def.LocationTypes) == 0 {
		return nil, nil, ErrNoTypes
	}

	r := &Registry{
		source:      def.Source,
		startType:   def.StartType,
		typeByID:    make(map[Identifier]*LocationType),
		biomeByID:   make(map[Identifier]*Biome),
		itemByID:    make(map[Identifier]*Item),
		factionByID: make(map[Identifier]*Faction),
		missionByID: make(map[Identifier]*Mission),
	}
	var warnings []Warning

	for _, t := range def.LocationTypes {
		if prev, ok := r.typeByID[t.ID]; ok {
			warnings = append(warnings, Warning{Source: t.Source, Subject: string(t.ID),
				Message: "duplicate location type overrides an earlier definition"})
			for i := range r.types {
				if r.types[i] == prev {
					r.types[i] = t
				}
			}
		} else {
			r.types = append(r.types, t)
		}
		r.typeByID[t.ID] = t
	}
	for _, b := range def.Biomes {
		if _, ok := r.biomeByID[b.ID]; !ok {
			r.biomes = append(r.biomes, b)
		}
		r.biomeByID[b.ID] = b
	}
	for _, it := range def.Items {
		if _, ok := r.itemByID[it.ID]; !ok {
			r.items = append(r.items, it)
		}
		r.itemByID[it.ID] = it
	}
	for _, f := range def.Factions {
		if _, ok := r.factionByID[f.ID]; !ok {
			r.factions = append(r.factions, f)
		}
		r.factionByID[f.ID] = f
	}
	for _, m := range def.Missions {
		if _, ok := r.missionByID[m.ID]; !ok {
			r.missions = append(r.missions, m)
		}
		r.missionByID[m.ID] = m
	}

	// Deterministic item order regardless of file layout.
	sort.Slice(r.items, func(i, j int) bool { return r.items[i].ID < r.items[j].ID })

	warnings = append(warnings, r.validate()...)
	return r, warnings, nil
}

func (r *Registry) validate() []Warning {
	var warnings []Warning
	warn := func(source string, subject Identifier, format string, args ...any) {
		warnings = append(warnings, Warning{Source: source, Subject: string(subject), Message: fmt.Sprintf(format, args...)})
	}

	for _, t := range r.types {
		if t.BiomeGate != GateDeny && !t.HasOutpost {
			warn(t.Source, t.ID, "biome gate directive %q on a type without an outpost", t.BiomeGate)
		}
		for _, a := range t.Areas {
			if !a.Area.Valid() {
				warn(t.Source, t.ID, "area setting must name exactly one of zone or biome")
				continue
			}
			if a.MinCount > a.MaxCount {
				warn(t.Source, t.ID, "%s: min count %d exceeds max count %d", a.Area, a.MinCount, a.MaxCount)
			}
			if a.MinCount == 0 && a.MaxCount == 0 && a.Commonness <= 0 {
				warn(t.Source, t.ID, "%s: area setting can never produce a location", a.Area)
			}
			if b, ok := a.Area.Biome(); ok {
				if _, known := r.biomeByID[b]; !known {
					warn(t.Source, t.ID, "%s: unknown biome", a.Area)
				}
			}
			if a.Position != nil && (*a.Position < 0 || *a.Position > 1) {
				warn(t.Source, t.ID, "%s: desired position %.2f outside [0,1]", a.Area, *a.Position)
			}
		}
		for _, c := range t.Changes {
			if _, ok := r.typeByID[c.To]; !ok {
				warn(t.Source, t.ID, "change rule targets unknown type %q", c.To)
			}
			if c.DelayMax < c.DelayMin {
				warn(t.Source, t.ID, "change rule to %q has delay max below min", c.To)
			}
		}
		if !t.ReplaceInRadiation.IsEmpty() {
			if _, ok := r.typeByID[t.ReplaceInRadiation]; !ok {
				warn(t.Source, t.ID, "radiation replacement targets unknown type %q", t.ReplaceInRadiation)
			}
		}
		for _, f := range []Identifier{t.Faction, t.SecondaryFaction} {
			if f.IsEmpty() || f == None {
				continue
			}
			if _, ok := r.factionByID[f]; !ok {
				warn(t.Source, t.ID, "unknown faction %q", f)
			}
		}
	}

	for _, b := range r.biomes {
		if len(b.Zones) == 0 {
			warn(b.Source, b.ID, "biome is not allowed in any zone")
		}
	}

	for _, it := range r.items {
		for _, p := range it.Prices {
			if p.MaxAvailable < p.MinAvailable {
				warn(it.Source, it.ID, "max available %d below min available %d", p.MaxAvailable, p.MinAvailable)
			}
		}
	}

	if !r.startType.IsEmpty() {
		if _, ok := r.typeByID[r.startType]; !ok {
			warn(r.source, r.startType, "start location type is not defined")
		}
	}
	return warnings
}

// Source returns the content source of the base definition.
func (r *Registry) Source() string { return r.source }

// StartType returns the type preferred for the starting location.
func (r *Registry) StartType() Identifier { return r.startType }

// Types returns location types in registration order. The slice must not be modified.
func (r *Registry) Types() []*LocationType { return r.types }

// Type looks up a location type.
func (r *Registry) Type(id Identifier) (*LocationType, bool) {
	t, ok := r.typeByID[id]
	return t, ok
}

// MustType looks up a location type or returns ErrUnknownType.
func (r *Registry) MustType(id Identifier) (*LocationType, error) {
	if t, ok := r.typeByID[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, id)
}

// Fallback returns the type used when nothing else fits: "none" when defined,
// otherwise the first registered type.
func (r *Registry) Fallback() *LocationType {
	if t, ok := r.typeByID[None]; ok {
		return t
	}
	return r.types[0]
}

// Biomes returns biomes in registration order.
func (r *Registry) Biomes() []*Biome { return r.biomes }

// Biome looks up a biome.
func (r *Registry) Biome(id Identifier) (*Biome, bool) {
	b, ok := r.biomeByID[id]
	return b, ok
}

// BiomesForZone returns the biomes allowed in zone.
func (r *Registry) BiomesForZone(zone int) []*Biome {
	var out []*Biome
	for _, b := range r.biomes {
		if b.AllowedIn(zone) {
			out = append(out, b)
		}
	}
	return out
}

// Items returns items ordered by identifier.
func (r *Registry) Items() []*Item { return r.items }

// Item looks up an item.
func (r *Registry) Item(id Identifier) (*Item, bool) {
	it, ok := r.itemByID[id]
	return it, ok
}

// Factions returns factions in registration order.
func (r *Registry) Factions() []*Faction { return r.factions }

// Faction looks up a faction.
func (r *Registry) Faction(id Identifier) (*Faction, bool) {
	f, ok := r.factionByID[id]
	return f, ok
}

// Missions returns missions in registration order.
func (r *Registry) Missions() []*Mission { return r.missions }

// Mission looks up a mission prefab.
func (r *Registry) Mission(id Identifier) (*Mission, bool) {
	m, ok := r.missionByID[id]
	return m, ok
}

// MissionsWithTag returns mission prefabs carrying tag.
func (r *Registry) MissionsWithTag(tag Identifier) []*Mission {
	var out []*Mission
	for _, m := range r.missions {
		if m.HasTag(tag) {
			out = append(out, m)
		}
	}
	return out
}

// RandomType picks a type for a location in zone and biome, weighted by area
// commonness and ordered by identifier so the draw does not depend on file order.
// Falls back to Fallback when no type has weight there.
func (r *Registry) RandomType(rng *rand.Rand, zone int, biome Identifier) *LocationType {
	sorted := make([]*LocationType, len(r.types))
	copy(sorted, r.types)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	weights := make([]float64, len(sorted))
	for i, t := range sorted {
		weights[i] = t.Commonness(zone, biome)
	}
	if t, ok := entropy.SelectWeighted(sorted, weights, rng); ok {
		return t
	}
	return r.Fallback()
}

// RandomMission picks a mission prefab with tag, weighted by commonness.
func (r *Registry) RandomMission(rng *rand.Rand, tag Identifier) (*Mission, bool) {
	candidates := r.MissionsWithTag(tag)
	weights := make([]float64, len(candidates))
	for i, m := range candidates {
		weights[i] = m.Commonness
	}
	return entropy.SelectWeighted(candidates, weights, rng)
}
