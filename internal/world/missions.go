package world

import (
	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/entropy"
)

// Mission is a mission instance offered at a location.
type Mission struct {
	Prefab      *catalog.Mission
	Origin      *Location
	Destination *Location
	Completed   bool
}

// ID returns the prefab identifier.
func (ms *Mission) ID() catalog.Identifier { return ms.Prefab.ID }

// UnlockInitialMissions offers the missions the location's type unlocks. Missions
// already on offer are not duplicated.
func (m *Map) UnlockInitialMissions(loc *Location) {
	if loc.Type == nil {
		return
	}
	for _, id := range loc.Type.MissionIDs {
		prefab, ok := m.Catalog.Mission(id)
		if !ok {
			m.logger.Warn("unknown mission", "mission", id, "type", loc.Type.ID)
			continue
		}
		m.offerMission(loc, prefab)
	}
	for _, tag := range loc.Type.MissionTags {
		if prefab, ok := m.Catalog.RandomMission(m.Rand.Rand(entropy.Synced), tag); ok {
			m.offerMission(loc, prefab)
		}
	}
}

func (m *Map) offerMission(loc *Location, prefab *catalog.Mission) *Mission {
	for _, existing := range loc.AvailableMissions {
		if existing.Prefab == prefab {
			return existing
		}
	}
	dest := loc
	if n := loc.Neighbours(); len(n) > 0 {
		dest = n[m.Rand.Int(len(n), entropy.Synced)]
	}
	ms := &Mission{Prefab: prefab, Origin: loc, Destination: dest}
	loc.AvailableMissions = append(loc.AvailableMissions, ms)
	return ms
}

// ClearMissions drops every offered and selected mission.
func (l *Location) ClearMissions() {
	l.AvailableMissions = nil
	l.SelectedMissions = nil
}

// SelectMission marks an offered mission as selected. It reports false if the
// mission is not offered here.
func (l *Location) SelectMission(ms *Mission) bool {
	if !containsMission(l.AvailableMissions, ms) {
		return false
	}
	if !containsMission(l.SelectedMissions, ms) {
		l.SelectedMissions = append(l.SelectedMissions, ms)
	}
	return true
}

// DeselectMission removes a mission from the selection.
func (l *Location) DeselectMission(ms *Mission) {
	l.SelectedMissions = removeMission(l.SelectedMissions, ms)
}

// IsMissionSelected reports whether the mission is selected.
func (l *Location) IsMissionSelected(ms *Mission) bool {
	return containsMission(l.SelectedMissions, ms)
}

// CompleteMission finishes a mission at its origin. A prefab that changes the
// location type queues the change as pending.
func (m *Map) CompleteMission(ms *Mission) {
	if ms.Completed {
		return
	}
	ms.Completed = true
	origin := ms.Origin
	origin.MissionsCompleted++
	origin.AvailableMissions = removeMission(origin.AvailableMissions, ms)
	origin.SelectedMissions = removeMission(origin.SelectedMissions, ms)

	if ms.Prefab.ChangeTypeOnComplete.IsEmpty() {
		return
	}
	to, ok := m.Catalog.Type(ms.Prefab.ChangeTypeOnComplete)
	if !ok {
		m.logger.Warn("mission changes to unknown type", "mission", ms.Prefab.ID, "type", ms.Prefab.ChangeTypeOnComplete)
		return
	}
	origin.PendingChange = &PendingTypeChange{
		To:        to,
		Rule:      -1,
		Countdown: ms.Prefab.ChangeDelay,
		Mission:   ms,
	}
}

func containsMission(list []*Mission, ms *Mission) bool {
	for _, v := range list {
		if v == ms {
			return true
		}
	}
	return false
}

func removeMission(list []*Mission, ms *Mission) []*Mission {
	out := list[:0]
	for _, v := range list {
		if v != ms {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
