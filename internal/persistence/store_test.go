package persistence

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/engine"
	"github.com/talgya/campaign-world/internal/world"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStores(t *testing.T) map[string]interface {
	Store
	EventLog
} {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "world.db"), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rs, err := OpenRedis(context.Background(), "redis://"+mr.Addr(), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })

	return map[string]interface {
		Store
		EventLog
	}{"sqlite": db, "redis": rs}
}

// playedState returns the state of a map that has been explored and stepped.
func playedState(t *testing.T) (world.MapState, []engine.Event) {
	t.Helper()
	reg, _, err := catalog.Default()
	require.NoError(t, err)
	opts := world.DefaultOptions()
	opts.Params = world.SmallTestParams()
	opts.Logger = quietLogger()
	m, _, err := world.Generate("persist", reg, opts)
	require.NoError(t, err)

	for _, n := range m.CurrentLocation.Neighbours() {
		n.Discovered = true
	}
	next := m.CurrentLocation.Neighbours()[0]
	m.SetCurrentLocation(next)
	next.MarkItemTaken(7)
	next.MarkCharacterKilled(42)
	if len(next.AvailableMissions) > 0 {
		next.SelectMission(next.AvailableMissions[0])
	}

	c := engine.NewCoordinator(m, quietLogger())
	require.NoError(t, c.Advance(12))
	return m.Snapshot(), c.Events
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st, _ := playedState(t)
	ctx := context.Background()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, "alpha", st))
			loaded, err := s.Load(ctx, "alpha")
			require.NoError(t, err)
			assert.Equal(t, st, loaded)
		})
	}
}

func TestSaveReplaces(t *testing.T) {
	st, _ := playedState(t)
	ctx := context.Background()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, "alpha", st))

			changed := st
			changed.Radiation.Amount += 100
			changed.Connections = []world.ConnectionState{{Index: 0, Passed: true}}
			require.NoError(t, s.Save(ctx, "alpha", changed))

			loaded, err := s.Load(ctx, "alpha")
			require.NoError(t, err)
			assert.Equal(t, changed.Radiation, loaded.Radiation)
			assert.Equal(t, changed.Connections, loaded.Connections)
			assert.Len(t, loaded.Locations, len(st.Locations))
		})
	}
}

func TestListAndDelete(t *testing.T) {
	st, _ := playedState(t)
	ctx := context.Background()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, "alpha", st))
			require.NoError(t, s.Save(ctx, "beta", st))

			ids, err := s.List(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"alpha", "beta"}, ids)

			require.NoError(t, s.Delete(ctx, "alpha"))
			_, err = s.Load(ctx, "alpha")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "alpha"), ErrNotFound)

			ids, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"beta"}, ids)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(context.Background(), "nobody")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestEventLog(t *testing.T) {
	ctx := context.Background()
	events := []engine.Event{
		{Step: 1, Description: "Sola Outpost will become Sola City in 2 steps", Category: engine.CategoryPending},
		{Step: 3, Description: "Sola Outpost became Sola City", Category: engine.CategoryTypeChange},
		{Step: 4, Description: "Ruins of Kessa is critically irradiated", Category: engine.CategoryRadiation},
	}

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveEvents(ctx, "alpha", events[:2]))
			require.NoError(t, s.SaveEvents(ctx, "alpha", events[2:]))
			require.NoError(t, s.SaveEvents(ctx, "beta", nil))

			got, err := s.RecentEvents(ctx, "alpha", 2)
			require.NoError(t, err)
			assert.Equal(t, []engine.Event{events[2], events[1]}, got)

			got, err = s.RecentEvents(ctx, "beta", 10)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestRestoreFromStore(t *testing.T) {
	st, _ := playedState(t)
	ctx := context.Background()
	reg, _, err := catalog.Default()
	require.NoError(t, err)
	opts := world.DefaultOptions()
	opts.Params = world.SmallTestParams()
	opts.Logger = quietLogger()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, "alpha", st))
			loaded, err := s.Load(ctx, "alpha")
			require.NoError(t, err)

			m, warnings, err := world.Restore(loaded, reg, opts)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Equal(t, st, m.Snapshot())
		})
	}
}

func TestMeta(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "meta.db"), quietLogger())
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	_, err = db.GetMeta(ctx, "last_campaign")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SaveMeta(ctx, "last_campaign", "alpha"))
	require.NoError(t, db.SaveMeta(ctx, "last_campaign", "beta"))
	v, err := db.GetMeta(ctx, "last_campaign")
	require.NoError(t, err)
	assert.Equal(t, "beta", v)
}
