package world

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/economy"
	"github.com/talgya/campaign-world/internal/entropy"
)

// RadiationParams configures the radiation frontier.
type RadiationParams struct {
	Enabled           bool
	StartingAmount    float64 // Initial frontier x position
	Step              float64 // Advance per world step
	Max               float64 // Upper bound on the frontier, <= 0 for none
	CriticalThreshold int     // Turns in radiation after which a location is critical
	MinOutposts       int     // Live outposts radiation never takes below this
}

// DefaultRadiationParams returns the standard frontier.
func DefaultRadiationParams() RadiationParams {
	return RadiationParams{
		Enabled:           true,
		StartingAmount:    -100,
		Step:              20,
		CriticalThreshold: 10,
		MinOutposts:       3,
	}
}

// Radiation is the frontier's live state.
type Radiation struct {
	Amount  float64 `json:"amount"`
	Enabled bool    `json:"enabled"`
}

// Map is the campaign graph together with everything that evolves on it.
type Map struct {
	ID   uuid.UUID
	Seed string

	Params          GenParams
	Economy         economy.Settings
	RadiationParams RadiationParams
	Radiation       Radiation

	Catalog  *catalog.Registry
	Rand     *entropy.Source
	Campaign economy.Campaign // Optional, nil is neutral
	Follower bool             // Followers apply external state and never mutate locally

	Locations   []*Location
	Connections []*Connection

	StartLocation      *Location
	CurrentLocation    *Location
	SelectedLocation   *Location
	SelectedConnection *Connection

	FactionReputation Reputations

	logger *slog.Logger
}

// Center is the geometric center of the map.
func (m *Map) Center() Vec2 {
	return Vec2{X: m.Params.Size / 2, Y: m.Params.Size / 2}
}

// LocationRadius is the radius inside which locations are placed.
func (m *Map) LocationRadius() float64 {
	return m.Params.Size / 2 * m.Params.LocationRadius
}

// ZoneOf returns the difficulty zone of a position: rings of equal width,
// zone 1 outermost and zone N innermost.
func (m *Map) ZoneOf(p Vec2) int {
	n := m.Params.DifficultyZones
	if n <= 1 {
		return 1
	}
	d := p.Distance(m.Center()) / m.LocationRadius()
	zone := n - int(d*float64(n))
	if zone < 1 {
		return 1
	}
	if zone > n {
		return n
	}
	return zone
}

// Location returns the location at index i.
func (m *Map) Location(i int) (*Location, bool) {
	if i < 0 || i >= len(m.Locations) {
		return nil, false
	}
	return m.Locations[i], true
}

// Connection returns the connection at index i.
func (m *Map) Connection(i int) (*Connection, bool) {
	if i < 0 || i >= len(m.Connections) {
		return nil, false
	}
	return m.Connections[i], true
}

// SetCurrentLocation moves the party to loc. The traversed connection is marked
// passed and the location becomes discovered and visited.
func (m *Map) SetCurrentLocation(loc *Location) {
	if prev := m.CurrentLocation; prev != nil && prev != loc {
		if c := prev.ConnectionTo(loc); c != nil {
			c.Passed = true
		}
	}
	m.CurrentLocation = loc
	m.SelectedLocation = nil
	m.SelectedConnection = nil
	if loc == nil {
		return
	}
	loc.Discovered = true
	loc.Visited = true
	loc.StepsUnvisited = 0
	if !m.Follower {
		m.CreateStores(loc, false)
	}
}

// SelectLocation picks the next destination. A nil loc clears the selection.
// The selected connection is set only when loc is adjacent to the current location.
func (m *Map) SelectLocation(loc *Location) {
	m.SelectedLocation = loc
	m.SelectedConnection = nil
	if loc != nil && m.CurrentLocation != nil {
		m.SelectedConnection = m.CurrentLocation.ConnectionTo(loc)
	}
}

// WithinHops reports whether a location matching pred lies within hops connections
// of from, not counting from itself. The search is breadth-first with a visited set.
func (m *Map) WithinHops(from *Location, hops int, pred func(*Location) bool) bool {
	if hops <= 0 {
		return false
	}
	visited := map[*Location]bool{from: true}
	frontier := []*Location{from}
	for depth := 0; depth < hops && len(frontier) > 0; depth++ {
		var next []*Location
		for _, l := range frontier {
			for _, n := range l.Neighbours() {
				if visited[n] {
					continue
				}
				visited[n] = true
				if pred(n) {
					return true
				}
				next = append(next, n)
			}
		}
		frontier = next
	}
	return false
}

// IsInRadiation reports whether the frontier has passed the location.
func (m *Map) IsInRadiation(loc *Location) bool {
	return m.Radiation.Enabled && loc.Position.X < m.Radiation.Amount
}

// IsCriticallyRadiated reports whether the location has spent more turns in
// radiation than the critical threshold.
func (m *Map) IsCriticallyRadiated(loc *Location) bool {
	return loc.TurnsInRadiation > m.RadiationParams.CriticalThreshold
}

// ChangeOptions controls the side effects of a type change.
type ChangeOptions struct {
	CreateStores bool // Recreate stores for the new type, otherwise clear them
	Cooldown     int  // Steps before the location is evaluated for changes again
}

// ChangeLocationType switches a location to a new type and applies the side effects:
// the display name is regenerated, faction defaults applied, timers reset, stores
// recreated or cleared and the new type's missions unlocked unless the location
// is critically radiated.
func (m *Map) ChangeLocationType(loc *Location, to *catalog.LocationType, opts ChangeOptions) error {
	if to == nil {
		return fmt.Errorf("change type of %s: %w", loc, ErrNilLocationType)
	}
	prev := loc.Type
	if prev == nil || prev.HasOutpost != to.HasOutpost {
		loc.ClearMissions()
	}

	loc.Type = to
	loc.Name = to.FormatName(loc.BaseName, loc.NameFormatIndex)
	loc.applyFactionDefaults(to)
	loc.TypeChangeTimers = make([]int, len(to.Changes))
	for i := range loc.TypeChangeTimers {
		loc.TypeChangeTimers[i] = TimerJustChanged
	}
	loc.PendingChange = nil
	loc.StepsSinceTypeChange = 0
	loc.TypeChangeCooldown = opts.Cooldown

	if opts.CreateStores {
		m.CreateStores(loc, true)
	} else {
		loc.Stores = nil
	}
	if !m.IsCriticallyRadiated(loc) {
		m.UnlockInitialMissions(loc)
	}

	m.logger.Debug("location type changed", "location", loc.Name, "from", prev, "to", to.ID)
	return nil
}

// ResetLocation returns a location to its original type and forgets what the
// player did there. Radiation exposure is kept.
func (m *Map) ResetLocation(loc *Location) error {
	if err := m.ChangeLocationType(loc, loc.OriginalType, ChangeOptions{}); err != nil {
		return err
	}
	loc.ClearMissions()
	loc.TakenItems = nil
	loc.KilledCharacters = nil
	loc.StepsUnvisited = 0
	loc.TypeChangeCooldown = 0
	return nil
}

// CreateStores opens the stores the location's type calls for. With force, existing
// stores are recreated; otherwise only missing stores are opened. Stores the type no
// longer has are closed. It is a no-op on followers.
func (m *Map) CreateStores(loc *Location, force bool) {
	if m.Follower {
		return
	}
	if loc.Type == nil || !loc.Type.HasStores() {
		loc.Stores = nil
		return
	}
	extra := economy.ExtraSpecials(m.Campaign)
	stores := make(map[catalog.Identifier]*economy.Store, len(loc.Type.StoreIDs))
	for _, id := range loc.Type.StoreIDs {
		s, ok := loc.Stores[id]
		switch {
		case !ok:
			s = economy.NewStore(id, loc, m.Catalog, m.Economy, m.Rand, extra)
		case force:
			s.Recreate(m.Rand, extra)
		}
		s.MerchantFaction = loc.Faction
		stores[id] = s
	}
	loc.Stores = stores
}

// UpdateStores ages the location's stores by one step, opening any that are missing.
// It is a no-op on followers.
func (m *Map) UpdateStores(loc *Location) {
	if m.Follower {
		return
	}
	if loc.Type == nil || !loc.Type.HasStores() {
		loc.Stores = nil
		return
	}
	extra := economy.ExtraSpecials(m.Campaign)
	for _, id := range loc.Type.StoreIDs {
		if s, ok := loc.Stores[id]; ok {
			s.Update(m.Rand, extra)
		}
	}
	m.CreateStores(loc, false)
}

// FactionStanding returns the party's reputation with a faction.
func (m *Map) FactionStanding(id catalog.Identifier) (economy.Reputation, bool) {
	r, ok := m.FactionReputation[id]
	if !ok {
		return economy.Reputation{}, false
	}
	return *r, true
}

// SetFactionStanding sets the party's reputation with a faction, clamped to its range.
func (m *Map) SetFactionStanding(id catalog.Identifier, value float64) error {
	r, ok := m.FactionReputation[id]
	if !ok {
		return fmt.Errorf("set standing with %s: unknown faction", id)
	}
	r.Set(value)
	return nil
}

// LiveOutposts counts outpost locations that are not critically radiated.
func (m *Map) LiveOutposts() int {
	n := 0
	for _, l := range m.Locations {
		if l.HasOutpost() && !m.IsCriticallyRadiated(l) {
			n++
		}
	}
	return n
}

// CountTypes tallies locations by type.
func (m *Map) CountTypes() map[catalog.Identifier]int {
	counts := make(map[catalog.Identifier]int)
	for _, l := range m.Locations {
		counts[l.TypeID()]++
	}
	return counts
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(seed=%s, locations=%d, connections=%d)", m.Seed, len(m.Locations), len(m.Connections))
}
