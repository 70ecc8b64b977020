package world

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/economy"
)

// MapState is the saved form of a map. Topology is not stored: it is regenerated
// from the seed on restore.
type MapState struct {
	ID                string             `json:"id"`
	Seed              string             `json:"seed"`
	CurrentLocation   int                `json:"current_location"`
	SelectedLocation  int                `json:"selected_location"`
	Radiation         Radiation          `json:"radiation"`
	FactionReputation map[string]float64 `json:"faction_reputation"`
	Locations         []LocationState    `json:"locations"`
	Connections       []ConnectionState  `json:"connections"`
}

// LocationState is the saved form of a location.
type LocationState struct {
	Index                     int                  `json:"index"`
	Type                      string               `json:"type"`
	OriginalType              string               `json:"original_type"`
	Discovered                bool                 `json:"discovered"`
	Visited                   bool                 `json:"visited"`
	TypeChangeTimers          []int                `json:"type_change_timers"`
	PendingChange             *PendingChangeState  `json:"pending_change,omitempty"`
	Cooldown                  int                  `json:"cooldown"`
	StepsSinceTypeChange      int                  `json:"steps_since_type_change"`
	MissionsCompleted         int                  `json:"missions_completed"`
	TakenItems                []uint32             `json:"taken_items"`
	KilledCharacters          []uint32             `json:"killed_characters"`
	TurnsInRadiation          int                  `json:"turns_in_radiation"`
	PriceMultiplier           float64              `json:"price_multiplier"`
	MechanicalPriceMultiplier float64              `json:"mechanical_price_multiplier"`
	Reputation                float64              `json:"reputation"`
	StepsUnvisited            int                  `json:"steps_unvisited"`
	Missions                  []MissionState       `json:"missions"`
	SelectedMissions          []int                `json:"selected_missions"`
	Stores                    []economy.StoreState `json:"stores"`
}

// PendingChangeState is the saved form of a pending type change.
type PendingChangeState struct {
	Type      string `json:"type"`
	Rule      int    `json:"rule"`
	Countdown int    `json:"countdown"`
	Cooldown  int    `json:"cooldown"`
	Mission   string `json:"mission,omitempty"`
}

// MissionState is the saved form of an offered mission.
type MissionState struct {
	Mission     string `json:"mission"`
	Destination int    `json:"destination"`
}

// ConnectionState is the saved form of a connection.
type ConnectionState struct {
	Index  int  `json:"index"`
	Passed bool `json:"passed"`
	Locked bool `json:"locked"`
}

func indexOf(l *Location) int {
	if l == nil {
		return -1
	}
	return l.Index
}

// Snapshot captures the map's mutable state.
func (m *Map) Snapshot() MapState {
	st := MapState{
		ID:                m.ID.String(),
		Seed:              m.Seed,
		CurrentLocation:   indexOf(m.CurrentLocation),
		SelectedLocation:  indexOf(m.SelectedLocation),
		Radiation:         m.Radiation,
		FactionReputation: make(map[string]float64, len(m.FactionReputation)),
		Locations:         make([]LocationState, 0, len(m.Locations)),
		Connections:       make([]ConnectionState, 0, len(m.Connections)),
	}
	for id, r := range m.FactionReputation {
		st.FactionReputation[string(id)] = r.Value
	}
	for _, l := range m.Locations {
		st.Locations = append(st.Locations, l.state())
	}
	for _, c := range m.Connections {
		st.Connections = append(st.Connections, ConnectionState{Index: c.Index, Passed: c.Passed, Locked: c.Locked})
	}
	return st
}

func (l *Location) state() LocationState {
	ls := LocationState{
		Index:                     l.Index,
		Type:                      string(l.TypeID()),
		Discovered:                l.Discovered,
		Visited:                   l.Visited,
		TypeChangeTimers:          append([]int(nil), l.TypeChangeTimers...),
		Cooldown:                  l.TypeChangeCooldown,
		StepsSinceTypeChange:      l.StepsSinceTypeChange,
		MissionsCompleted:         l.MissionsCompleted,
		TakenItems:                append([]uint32(nil), l.TakenItems...),
		KilledCharacters:          append([]uint32(nil), l.KilledCharacters...),
		TurnsInRadiation:          l.TurnsInRadiation,
		PriceMultiplier:           l.PriceMultiplier,
		MechanicalPriceMultiplier: l.MechanicalPriceMultiplier,
		Reputation:                l.Reputation.Value,
		StepsUnvisited:            l.StepsUnvisited,
	}
	if l.OriginalType != nil {
		ls.OriginalType = string(l.OriginalType.ID)
	}
	if p := l.PendingChange; p != nil {
		ps := &PendingChangeState{Type: string(p.To.ID), Rule: p.Rule, Countdown: p.Countdown, Cooldown: p.Cooldown}
		if p.Mission != nil {
			ps.Mission = string(p.Mission.ID())
		}
		ls.PendingChange = ps
	}
	for i, ms := range l.AvailableMissions {
		ls.Missions = append(ls.Missions, MissionState{Mission: string(ms.ID()), Destination: indexOf(ms.Destination)})
		if l.IsMissionSelected(ms) {
			ls.SelectedMissions = append(ls.SelectedMissions, i)
		}
	}
	ids := make([]catalog.Identifier, 0, len(l.Stores))
	if l.Type != nil {
		ids = append(ids, l.Type.StoreIDs...)
	}
	for _, id := range ids {
		if s, ok := l.Stores[id]; ok {
			ls.Stores = append(ls.Stores, s.State())
		}
	}
	return ls
}

// Restore regenerates the map from the saved seed and applies the saved state.
// Elements that no longer fit (unknown types, items or missions, indices out of
// range) are skipped and reported. Followers may restore.
func Restore(st MapState, reg *catalog.Registry, opts Options) (*Map, []RestoreWarning, error) {
	m, _, err := generate(st.Seed, reg, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("restore map: %w", err)
	}
	r := &restorer{m: m}

	if id, err := uuid.Parse(st.ID); err == nil {
		m.ID = id
	} else {
		r.warn("map", "invalid id %q, keeping %s", st.ID, m.ID)
	}
	m.Radiation = st.Radiation
	for id, v := range st.FactionReputation {
		if err := m.SetFactionStanding(catalog.ID(id), v); err != nil {
			r.warn("faction "+id, "unknown faction, standing dropped")
		}
	}

	for _, ls := range st.Locations {
		r.location(ls)
	}
	for _, cs := range st.Connections {
		c, ok := m.Connection(cs.Index)
		if !ok {
			r.warn(fmt.Sprintf("connection %d", cs.Index), "index out of range")
			continue
		}
		c.Passed = cs.Passed
		c.Locked = cs.Locked
	}

	// Generation already placed the party at the start; move it without side effects.
	m.CurrentLocation = m.StartLocation
	if l, ok := m.Location(st.CurrentLocation); ok {
		m.CurrentLocation = l
	} else {
		r.warn("map", "current location %d out of range, using start", st.CurrentLocation)
	}
	m.SelectedLocation, m.SelectedConnection = nil, nil
	if st.SelectedLocation >= 0 {
		if l, ok := m.Location(st.SelectedLocation); ok {
			m.SelectLocation(l)
		} else {
			r.warn("map", "selected location %d out of range", st.SelectedLocation)
		}
	}

	for _, w := range r.warnings {
		m.logger.Warn("restore", "element", w.Element, "message", w.Message)
	}
	return m, r.warnings, nil
}

type restorer struct {
	m        *Map
	warnings []RestoreWarning
}

func (r *restorer) warn(element, format string, args ...any) {
	r.warnings = append(r.warnings, RestoreWarning{Element: element, Message: fmt.Sprintf(format, args...)})
}

func (r *restorer) location(ls LocationState) {
	m := r.m
	l, ok := m.Location(ls.Index)
	elem := fmt.Sprintf("location %d", ls.Index)
	if !ok {
		r.warn(elem, "index out of range")
		return
	}

	if t, ok := m.Catalog.Type(catalog.ID(ls.Type)); ok {
		if l.Type != t {
			l.setType(t)
		}
	} else {
		r.warn(elem, "unknown type %q, keeping %s", ls.Type, l.TypeID())
	}
	if ls.OriginalType != "" {
		if t, ok := m.Catalog.Type(catalog.ID(ls.OriginalType)); ok {
			l.OriginalType = t
		} else {
			r.warn(elem, "unknown original type %q", ls.OriginalType)
		}
	}

	l.Discovered = ls.Discovered
	l.Visited = ls.Visited
	l.TypeChangeCooldown = ls.Cooldown
	l.StepsSinceTypeChange = ls.StepsSinceTypeChange
	l.MissionsCompleted = ls.MissionsCompleted
	l.TakenItems = append([]uint32(nil), ls.TakenItems...)
	l.KilledCharacters = append([]uint32(nil), ls.KilledCharacters...)
	l.TurnsInRadiation = max(l.TurnsInRadiation, ls.TurnsInRadiation)
	l.PriceMultiplier = ls.PriceMultiplier
	l.MechanicalPriceMultiplier = ls.MechanicalPriceMultiplier
	l.Reputation.Set(ls.Reputation)
	l.StepsUnvisited = ls.StepsUnvisited

	l.TypeChangeTimers = make([]int, len(l.Type.Changes))
	for i, v := range ls.TypeChangeTimers {
		if i >= len(l.TypeChangeTimers) {
			r.warn(elem, "type change timer %d has no rule", i)
			break
		}
		l.TypeChangeTimers[i] = v
	}

	l.ClearMissions()
	for i, ms := range ls.Missions {
		prefab, ok := m.Catalog.Mission(catalog.ID(ms.Mission))
		if !ok {
			r.warn(elem, "unknown mission %q", ms.Mission)
			continue
		}
		dest, ok := m.Location(ms.Destination)
		if !ok {
			r.warn(elem, "mission %d destination %d out of range", i, ms.Destination)
			dest = l
		}
		l.AvailableMissions = append(l.AvailableMissions, &Mission{Prefab: prefab, Origin: l, Destination: dest})
	}
	for _, i := range ls.SelectedMissions {
		if i < 0 || i >= len(ls.Missions) {
			r.warn(elem, "selected mission index %d out of range", i)
			continue
		}
		// Skipped missions shift the indices of the ones that were restored.
		id := catalog.ID(ls.Missions[i].Mission)
		for _, ms := range l.AvailableMissions {
			if ms.ID() == id {
				l.SelectMission(ms)
				break
			}
		}
	}

	l.PendingChange = nil
	if p := ls.PendingChange; p != nil {
		r.pendingChange(l, elem, p)
	}

	l.Stores = nil
	for _, ss := range ls.Stores {
		id := catalog.ID(ss.Identifier)
		if !containsIdentifier(l.Type.StoreIDs, id) {
			r.warn(elem, "store %q not used by type %s", ss.Identifier, l.TypeID())
			continue
		}
		s, problems := economy.RestoreStore(ss, l, m.Catalog, m.Economy)
		for _, p := range problems {
			r.warn(elem, "%s", p)
		}
		if l.Stores == nil {
			l.Stores = make(map[catalog.Identifier]*economy.Store)
		}
		l.Stores[id] = s
	}
}

func (r *restorer) pendingChange(l *Location, elem string, p *PendingChangeState) {
	to, ok := r.m.Catalog.Type(catalog.ID(p.Type))
	if !ok {
		r.warn(elem, "pending change to unknown type %q", p.Type)
		return
	}
	rule := p.Rule
	if rule >= len(l.Type.Changes) || rule < -1 {
		r.warn(elem, "pending change rule %d out of range", rule)
		rule = -1
	}
	pc := &PendingTypeChange{To: to, Rule: rule, Countdown: p.Countdown, Cooldown: p.Cooldown}
	if p.Mission != "" {
		if prefab, ok := r.m.Catalog.Mission(catalog.ID(p.Mission)); ok {
			pc.Mission = &Mission{Prefab: prefab, Origin: l, Destination: l, Completed: true}
		} else {
			r.warn(elem, "pending change mission %q unknown", p.Mission)
		}
	}
	l.PendingChange = pc
}

func containsIdentifier(list []catalog.Identifier, id catalog.Identifier) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
