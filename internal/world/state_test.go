package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// playSome mutates a generated map the way a session would.
func playSome(t *testing.T, m *Map) {
	t.Helper()
	start := m.CurrentLocation
	next := start.Connections[0].Other(start)
	m.SelectLocation(next)
	m.SetCurrentLocation(next)

	next.MarkItemTaken(42)
	next.MarkCharacterKilled(7)
	next.TurnsInRadiation = 3
	next.PriceMultiplier = 1.5
	m.Radiation.Amount = 140
	require.NoError(t, m.SetFactionStanding("separatists", -30))

	for _, s := range start.Stores {
		s.Balance = 1234
		if len(s.Stock) > 0 {
			s.Stock[0].Quantity = 99
		}
	}
	if len(start.AvailableMissions) > 0 {
		start.SelectMission(start.AvailableMissions[0])
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	m := generateTest(t, "europa")
	playSome(t, m)
	saved := m.Snapshot()

	raw, err := json.Marshal(saved)
	require.NoError(t, err)
	var decoded MapState
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored, warnings, err := Restore(decoded, m.Catalog, testOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, m.ID, restored.ID)
	assert.Equal(t, m.CurrentLocation.Index, restored.CurrentLocation.Index)
	assert.Equal(t, saved, restored.Snapshot())
}

func TestRestoreSkipsCorruptElements(t *testing.T) {
	m := generateTest(t, "europa")
	saved := m.Snapshot()

	saved.Locations[0].Type = "spaceport"
	saved.Locations[1].Missions = append(saved.Locations[1].Missions, MissionState{Mission: "retired_mission", Destination: 0})
	saved.Locations[1].SelectedMissions = append(saved.Locations[1].SelectedMissions, 99)
	saved.Locations = append(saved.Locations, LocationState{Index: 5000, Type: "city"})
	saved.Connections = append(saved.Connections, ConnectionState{Index: -1})
	saved.CurrentLocation = 9999

	restored, warnings, err := Restore(saved, m.Catalog, testOptions())
	require.NoError(t, err)
	assert.Len(t, warnings, 6)
	assert.Equal(t, m.Locations[0].TypeID(), restored.Locations[0].TypeID(), "unknown type keeps the generated one")
	assert.Same(t, restored.StartLocation, restored.CurrentLocation)
}

func TestRestoreOnFollower(t *testing.T) {
	m := generateTest(t, "europa")
	saved := m.Snapshot()

	opts := testOptions()
	opts.Follower = true
	restored, _, err := Restore(saved, m.Catalog, opts)
	require.NoError(t, err)
	assert.True(t, restored.Follower)
	assert.Equal(t, len(m.Locations), len(restored.Locations))
}
