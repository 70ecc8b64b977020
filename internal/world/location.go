package world

import (
	"fmt"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/economy"
)

// TimerJustChanged is the type-change timer value of a location whose type just changed.
// The first evaluated step brings it back to zero.
const TimerJustChanged = -1

// PendingTypeChange is a type change waiting for its countdown.
type PendingTypeChange struct {
	To        *catalog.LocationType
	Rule      int // Index into the current type's change rules, -1 for mission or manual changes
	Countdown int
	Mission   *Mission // Mission whose completion queued the change, if any
	Cooldown  int      // Cooldown to apply once the change happens
}

// Location is a node of the campaign graph.
type Location struct {
	Index           int
	BaseName        string
	Name            string
	NameFormatIndex int
	Position        Vec2
	Zone            int // 1 = outermost ring
	Biome           *catalog.Biome

	Type         *catalog.LocationType
	OriginalType *catalog.LocationType

	Discovered          bool
	Visited             bool
	IsGateBetweenBiomes bool

	Faction          catalog.Identifier
	SecondaryFaction catalog.Identifier
	Reputation       economy.Reputation // Standing with the location itself

	TurnsInRadiation int // Only ever increases

	TypeChangeTimers     []int // One per change rule of the current type
	PendingChange        *PendingTypeChange
	TypeChangeCooldown   int
	StepsSinceTypeChange int
	StepsUnvisited       int

	MissionsCompleted int
	AvailableMissions []*Mission
	SelectedMissions  []*Mission // Always a subset of AvailableMissions

	PriceMultiplier           float64
	MechanicalPriceMultiplier float64

	Stores map[catalog.Identifier]*economy.Store

	// Content removed by the player, kept so it does not respawn on revisit.
	TakenItems       []uint32
	KilledCharacters []uint32

	Connections []*Connection

	reputations Reputations
}

// String returns the display name and index.
func (l *Location) String() string {
	return fmt.Sprintf("%s (#%d)", l.Name, l.Index)
}

// BiomeID returns the identifier of the location's biome, empty when unassigned.
func (l *Location) BiomeID() catalog.Identifier {
	if l.Biome == nil {
		return ""
	}
	return l.Biome.ID
}

// TypeID returns the identifier of the current type.
func (l *Location) TypeID() catalog.Identifier {
	if l.Type == nil {
		return ""
	}
	return l.Type.ID
}

// HasOutpost reports whether the current type has an outpost.
func (l *Location) HasOutpost() bool {
	return l.Type != nil && l.Type.HasOutpost
}

// Neighbours returns the locations directly connected to l.
func (l *Location) Neighbours() []*Location {
	out := make([]*Location, 0, len(l.Connections))
	for _, c := range l.Connections {
		out = append(out, c.Other(l))
	}
	return out
}

// NeighbourTypes returns the type identifiers of the neighbours.
func (l *Location) NeighbourTypes() []catalog.Identifier {
	out := make([]catalog.Identifier, 0, len(l.Connections))
	for _, n := range l.Neighbours() {
		out = append(out, n.TypeID())
	}
	return out
}

// ConnectionTo returns the connection between l and other, or nil.
func (l *Location) ConnectionTo(other *Location) *Connection {
	for _, c := range l.Connections {
		if c.Other(l) == other {
			return c
		}
	}
	return nil
}

// IsAdjacent reports whether other is a direct neighbour.
func (l *Location) IsAdjacent(other *Location) bool {
	return l.ConnectionTo(other) != nil
}

// Store returns a store by identifier.
func (l *Location) Store(id catalog.Identifier) (*economy.Store, bool) {
	s, ok := l.Stores[id]
	return s, ok
}

// LocationTypeID implements economy.Owner.
func (l *Location) LocationTypeID() catalog.Identifier { return l.TypeID() }

// StoreSettings implements economy.Owner.
func (l *Location) StoreSettings() catalog.StoreSettings {
	if l.Type == nil {
		return catalog.DefaultStoreSettings()
	}
	return l.Type.Store
}

// Standing implements economy.Owner: the standing with the location's faction when it
// has one, otherwise with the location itself.
func (l *Location) Standing() economy.Reputation {
	if !l.Faction.IsEmpty() && l.Faction != catalog.None {
		if rep, ok := l.reputations[l.Faction]; ok {
			return *rep
		}
	}
	return l.Reputation
}

// UnvisitedSteps implements economy.Owner.
func (l *Location) UnvisitedSteps() int { return l.StepsUnvisited }

// MechanicalCost adjusts a repair or upgrade cost at this location.
func (l *Location) MechanicalCost(base int) int {
	return economy.MechanicalCost(base, l.Standing(), l.MechanicalPriceMultiplier)
}

// HealCost adjusts a medical treatment cost at this location.
func (l *Location) HealCost(base int) int {
	return economy.HealCost(base, l.Standing(), l.PriceMultiplier)
}

// MarkItemTaken records an item the player removed from the location.
func (l *Location) MarkItemTaken(id uint32) {
	if !containsID(l.TakenItems, id) {
		l.TakenItems = append(l.TakenItems, id)
	}
}

// MarkCharacterKilled records a character the player killed at the location.
func (l *Location) MarkCharacterKilled(id uint32) {
	if !containsID(l.KilledCharacters, id) {
		l.KilledCharacters = append(l.KilledCharacters, id)
	}
}

func containsID(list []uint32, id uint32) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// applyFactionDefaults assigns the type's factions. None clears, empty keeps.
func (l *Location) applyFactionDefaults(t *catalog.LocationType) {
	switch t.Faction {
	case "":
	case catalog.None:
		l.Faction = ""
	default:
		l.Faction = t.Faction
	}
	switch t.SecondaryFaction {
	case "":
	case catalog.None:
		l.SecondaryFaction = ""
	default:
		l.SecondaryFaction = t.SecondaryFaction
	}
}

// setType switches the type and refreshes the derived fields without any
// progression side effects. Used while the map is being built.
func (l *Location) setType(t *catalog.LocationType) {
	l.Type = t
	l.Name = t.FormatName(l.BaseName, l.NameFormatIndex)
	l.applyFactionDefaults(t)
	l.TypeChangeTimers = make([]int, len(t.Changes))
}

// Reputations tracks standing with each faction.
type Reputations map[catalog.Identifier]*economy.Reputation

// newReputations seeds every catalog faction with its initial standing.
func newReputations(reg *catalog.Registry) Reputations {
	reps := make(Reputations, len(reg.Factions()))
	for _, f := range reg.Factions() {
		r := economy.NewReputation(f.MinReputation, f.MaxReputation, f.InitialReputation)
		reps[f.ID] = &r
	}
	return reps
}
