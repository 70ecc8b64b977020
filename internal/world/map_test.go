package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/campaign-world/internal/catalog"
)

func TestSelfConnectionIsRejected(t *testing.T) {
	l := &Location{Name: "Brinehaven"}
	_, err := NewConnection(l, l)
	assert.ErrorIs(t, err, ErrSelfConnection)
}

func TestWithinHops(t *testing.T) {
	reg := newRegistry(t,
		&catalog.LocationType{ID: "none", BiomeGate: catalog.GateDeny},
		&catalog.LocationType{ID: "city", HasOutpost: true},
	)
	m := handMap(t, reg, 5)
	link(t, m, 0, 1)
	link(t, m, 1, 2)
	link(t, m, 2, 3)
	link(t, m, 3, 1) // cycle
	link(t, m, 3, 4)
	m.Locations[4].setType(typeOf(t, reg, "city"))

	isCity := func(l *Location) bool { return l.TypeID() == "city" }
	assert.False(t, m.WithinHops(m.Locations[0], 2, isCity))
	assert.True(t, m.WithinHops(m.Locations[0], 3, isCity))
	assert.True(t, m.WithinHops(m.Locations[1], 2, isCity))
	assert.False(t, m.WithinHops(m.Locations[4], 5, isCity), "the origin itself does not count")
	assert.False(t, m.WithinHops(m.Locations[0], 0, isCity))
}

func TestChangeLocationType(t *testing.T) {
	m := generateTest(t, "europa")
	reg := m.Catalog
	var loc *Location
	for _, l := range m.Locations {
		if l != m.CurrentLocation && l.TypeID() == "naturalformation" {
			loc = l
			break
		}
	}
	require.NotNil(t, loc)

	err := m.ChangeLocationType(loc, nil, ChangeOptions{})
	assert.ErrorIs(t, err, ErrNilLocationType)

	city := typeOf(t, reg, "city")
	require.NoError(t, m.ChangeLocationType(loc, city, ChangeOptions{CreateStores: true, Cooldown: 3}))
	assert.Equal(t, city, loc.Type)
	assert.Equal(t, city.FormatName(loc.BaseName, loc.NameFormatIndex), loc.Name)
	assert.Equal(t, catalog.Identifier("coalition"), loc.Faction)
	assert.Len(t, loc.Stores, 3)
	assert.Equal(t, 3, loc.TypeChangeCooldown)
	for _, timer := range loc.TypeChangeTimers {
		assert.Equal(t, TimerJustChanged, timer)
	}
	assert.NotEmpty(t, loc.AvailableMissions, "city unlocks outpost and cargo missions")

	abandoned := typeOf(t, reg, "abandoned")
	require.NoError(t, m.ChangeLocationType(loc, abandoned, ChangeOptions{}))
	assert.Empty(t, loc.Stores)
	assert.True(t, loc.Faction.IsEmpty(), "abandoned clears the faction")
	for _, ms := range loc.AvailableMissions {
		assert.True(t, ms.Prefab.HasTag("abandoned"), "outpost missions were cleared")
	}

	require.NoError(t, m.ResetLocation(loc))
	assert.Equal(t, loc.OriginalType, loc.Type)
}

func TestCriticallyRadiatedLocationsGetNoMissions(t *testing.T) {
	m := generateTest(t, "europa")
	var loc *Location
	for _, l := range m.Locations {
		if l != m.CurrentLocation && !l.HasOutpost() {
			loc = l
			break
		}
	}
	require.NotNil(t, loc)
	loc.TurnsInRadiation = m.RadiationParams.CriticalThreshold + 1
	require.True(t, m.IsCriticallyRadiated(loc))

	require.NoError(t, m.ChangeLocationType(loc, typeOf(t, m.Catalog, "outpost"), ChangeOptions{}))
	assert.Empty(t, loc.AvailableMissions)
}

func TestMovingMarksConnectionPassed(t *testing.T) {
	m := generateTest(t, "europa")
	start := m.CurrentLocation
	require.NotEmpty(t, start.Connections)
	c := start.Connections[0]
	next := c.Other(start)

	m.SelectLocation(next)
	assert.Same(t, c, m.SelectedConnection)

	next.StepsUnvisited = 9
	m.SetCurrentLocation(next)
	assert.True(t, c.Passed)
	assert.True(t, next.Visited)
	assert.Zero(t, next.StepsUnvisited)
	assert.Nil(t, m.SelectedLocation)
}

func TestMissionSelectionAndCompletion(t *testing.T) {
	m := generateTest(t, "europa")
	var loc *Location
	for _, l := range m.Locations {
		if l.TypeID() == "abandoned" {
			loc = l
			break
		}
	}
	if loc == nil {
		loc = m.Locations[1]
		require.NoError(t, m.ChangeLocationType(loc, typeOf(t, m.Catalog, "abandoned"), ChangeOptions{}))
	}
	prefab, ok := m.Catalog.Mission("clear_abandoned")
	require.True(t, ok)
	ms := m.offerMission(loc, prefab)

	assert.True(t, loc.SelectMission(ms))
	assert.True(t, loc.IsMissionSelected(ms))
	assert.False(t, loc.SelectMission(&Mission{Prefab: prefab}), "not offered here")

	m.CompleteMission(ms)
	assert.True(t, ms.Completed)
	assert.Equal(t, 1, loc.MissionsCompleted)
	assert.False(t, loc.IsMissionSelected(ms))
	require.NotNil(t, loc.PendingChange)
	assert.Equal(t, catalog.Identifier("outpost"), loc.PendingChange.To.ID)
	assert.Equal(t, 2, loc.PendingChange.Countdown)
	assert.Same(t, ms, loc.PendingChange.Mission)
}

func TestStandingFollowsFaction(t *testing.T) {
	m := generateTest(t, "europa")
	loc := m.Locations[0]
	loc.Faction = "coalition"
	require.NoError(t, m.SetFactionStanding("coalition", 60))
	assert.Equal(t, 60.0, loc.Standing().Value)

	loc.Faction = ""
	loc.Reputation.Set(-5)
	assert.Equal(t, -5.0, loc.Standing().Value)

	assert.Error(t, m.SetFactionStanding("pirates", 10))
}
