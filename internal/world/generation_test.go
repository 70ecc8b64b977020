package world

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/campaign-world/internal/catalog"
)

func defaultCatalog(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, warnings, err := catalog.Default()
	require.NoError(t, err)
	require.Empty(t, warnings)
	return reg
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Params = SmallTestParams()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

func generateTest(t *testing.T, seed string) *Map {
	t.Helper()
	m, _, err := Generate(seed, defaultCatalog(t), testOptions())
	require.NoError(t, err)
	return m
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := generateTest(t, "europa")
	b := generateTest(t, "europa")

	require.Equal(t, len(a.Locations), len(b.Locations))
	require.Equal(t, len(a.Connections), len(b.Connections))
	for i := range a.Locations {
		la, lb := a.Locations[i], b.Locations[i]
		assert.Equal(t, la.Position, lb.Position)
		assert.Equal(t, la.Zone, lb.Zone)
		assert.Equal(t, la.BiomeID(), lb.BiomeID())
		assert.Equal(t, la.TypeID(), lb.TypeID())
		assert.Equal(t, la.Name, lb.Name)
		assert.Equal(t, la.IsGateBetweenBiomes, lb.IsGateBetweenBiomes)
	}
	for i := range a.Connections {
		ca, cb := a.Connections[i], b.Connections[i]
		assert.Equal(t, ca.Locations[0].Index, cb.Locations[0].Index)
		assert.Equal(t, ca.Locations[1].Index, cb.Locations[1].Index)
		assert.Equal(t, ca.Difficulty, cb.Difficulty)
		assert.Equal(t, ca.BiomeID(), cb.BiomeID())
		assert.Equal(t, ca.Locked, cb.Locked)
	}
	assert.Equal(t, a.StartLocation.Index, b.StartLocation.Index)
}

func TestDifferentSeedsDiffer(t *testing.T) {
	a := generateTest(t, "europa")
	b := generateTest(t, "ganymede")
	same := len(a.Locations) == len(b.Locations)
	if same {
		for i := range a.Locations {
			if a.Locations[i].Position != b.Locations[i].Position {
				same = false
				break
			}
		}
	}
	assert.False(t, same)
}

func TestGeneratedGraphIsValid(t *testing.T) {
	for _, seed := range []string{"1", "2", "europa", "callisto", "io"} {
		t.Run(seed, func(t *testing.T) {
			m := generateTest(t, seed)
			require.NotEmpty(t, m.Locations)
			require.NotEmpty(t, m.Connections)

			present := make(map[*Location]bool, len(m.Locations))
			for i, l := range m.Locations {
				assert.Equal(t, i, l.Index)
				present[l] = true
				assert.NotEmpty(t, l.Connections, "orphan %s", l)
				assert.NotNil(t, l.Type)
				assert.GreaterOrEqual(t, l.Zone, 1)
				assert.LessOrEqual(t, l.Zone, m.Params.DifficultyZones)
			}

			pairs := make(map[[2]int]bool)
			for i, c := range m.Connections {
				assert.Equal(t, i, c.Index)
				assert.NotSame(t, c.Locations[0], c.Locations[1])
				assert.True(t, present[c.Locations[0]])
				assert.True(t, present[c.Locations[1]])
				assert.GreaterOrEqual(t, c.Difficulty, 0.0)
				assert.LessOrEqual(t, c.Difficulty, 100.0)
				assert.NotNil(t, c.Level)
				assert.GreaterOrEqual(t, len(c.Path), 2)

				a, b := c.Locations[0].Index, c.Locations[1].Index
				if a > b {
					a, b = b, a
				}
				assert.False(t, pairs[[2]int{a, b}], "parallel connection %s", c)
				pairs[[2]int{a, b}] = true
			}

			for i, a := range m.Locations {
				for _, b := range m.Locations[i+1:] {
					assert.GreaterOrEqual(t, a.Position.Distance(b.Position), m.Params.MinLocationDistance)
				}
			}
		})
	}
}

func TestStartLocation(t *testing.T) {
	m := generateTest(t, "europa")
	start := m.StartLocation
	require.NotNil(t, start)
	assert.Same(t, start, m.CurrentLocation)
	assert.True(t, start.Discovered)
	assert.True(t, start.Visited)
	for _, c := range start.Connections {
		assert.Zero(t, c.Difficulty)
	}

	if start.TypeID() == "city" {
		d := start.Position.Distance(m.Center())
		for _, l := range m.Locations {
			if l.TypeID() == "city" {
				assert.LessOrEqual(t, l.Position.Distance(m.Center()), d)
			}
		}
		assert.NotEmpty(t, start.Stores)
	}
}

func TestGatesSitOnZoneBoundaries(t *testing.T) {
	m := generateTest(t, "europa")
	for _, c := range m.Connections {
		z0, z1 := c.Locations[0].Zone, c.Locations[1].Zone
		assert.LessOrEqual(t, abs(z0-z1), 1)
		if z0 == z1 {
			continue
		}
		assert.True(t, c.Locked, "boundary connection %s is a gate", c)
		outer := c.Locations[0]
		if z1 < z0 {
			outer = c.Locations[1]
		}
		assert.True(t, outer.IsGateBetweenBiomes)
	}
}

func TestDifficultyGrowsTowardCenter(t *testing.T) {
	m := generateTest(t, "europa")
	var outer, inner []float64
	for _, c := range m.Connections {
		if c.Locations[0].Zone == 1 && c.Locations[1].Zone == 1 {
			outer = append(outer, c.Difficulty)
		}
		z := m.Params.DifficultyZones
		if c.Locations[0].Zone == z && c.Locations[1].Zone == z {
			inner = append(inner, c.Difficulty)
		}
	}
	if len(outer) == 0 || len(inner) == 0 {
		t.Skip("map has no connections in one of the rings")
	}
	assert.Less(t, mean(outer), mean(inner))
}

func TestEmptyGraphIsFatal(t *testing.T) {
	opts := testOptions()
	opts.Params.SiteProbability = 0
	_, _, err := Generate("europa", defaultCatalog(t), opts)
	assert.ErrorIs(t, err, ErrEmptyGraph)
}

func TestFollowerCannotGenerate(t *testing.T) {
	opts := testOptions()
	opts.Follower = true
	_, _, err := Generate("europa", defaultCatalog(t), opts)
	assert.ErrorIs(t, err, ErrNotAuthoritative)
}

func TestGenerateNamesAreDistinct(t *testing.T) {
	names := generateNames(rand.New(rand.NewSource(1)), 1000)
	seen := make(map[string]bool)
	for _, n := range names {
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
	assert.Len(t, names, 1000)
}

func TestPlaceholderTakesNamesFromItsType(t *testing.T) {
	reg := newRegistry(t, &catalog.LocationType{
		ID:          "colony",
		Names:       []string{"Ares", "Boreas"},
		NameFormats: []string{"[name] Colony"},
		Areas:       []catalog.AreaSetting{zoneArea(1, 0, 0)},
	})
	m := handMap(t, reg, 5)
	m.assignPlaceholders()

	seen := make(map[string]bool)
	for _, l := range m.Locations {
		assert.False(t, seen[l.BaseName], "duplicate %s", l.BaseName)
		seen[l.BaseName] = true
		assert.Equal(t, l.BaseName+" Colony", l.Name)
	}
	assert.True(t, seen["Ares"])
	assert.True(t, seen["Boreas"])
}

func TestPickBaseNameSkipsTakenNames(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	name, ok := pickBaseName(rng, []string{"Ares", "Boreas"}, map[string]bool{"Ares": true})
	require.True(t, ok)
	assert.Equal(t, "Boreas", name)

	_, ok = pickBaseName(rng, []string{"Ares"}, map[string]bool{"Ares": true})
	assert.False(t, ok)
	_, ok = pickBaseName(rng, nil, nil)
	assert.False(t, ok)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func mean(v []float64) float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	return total / float64(len(v))
}
