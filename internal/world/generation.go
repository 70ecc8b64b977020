// Campaign map generation.
// Sites are scattered over a noise field, a Voronoi diagram over them yields the
// location graph, which is then cleaned up and split into difficulty zones and biomes.
package world

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"
	"github.com/pzsz/voronoi"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/economy"
	"github.com/talgya/campaign-world/internal/entropy"
	"github.com/talgya/campaign-world/internal/mathx"
)

// GenParams holds map generation parameters.
type GenParams struct {
	Size            float64 // Width and height of the square map
	DifficultyZones int
	SiteInterval    float64 // Spacing of the candidate site grid
	SiteVariance    float64 // Site jitter as a fraction of the interval
	SiteProbability float64 // Scales the noise value into a survival chance
	SiteRadius      float64 // Fraction of the half size in which sites are scattered
	LocationRadius  float64 // Fraction of the half size in which Voronoi vertices become locations

	NoiseResolution    int
	NoiseOctaves       int
	NoiseFrequency     float64
	NoisePersistence   float64
	CenterDarkenRadius float64 // Fraction of the half size
	EdgeDarkenRadius   float64

	MinConnectionDistance  float64
	MinLocationDistance    float64
	DifficultyJitter       float64 // Provisional difficulty jitter, +-
	DifficultyPerturbation float64 // Largest negative perturbation of the final difficulty
	GatesPerBoundary       int

	PathSegmentLength float64
	PathJaggedness    float64 // Offset of path points as a fraction of the segment length
}

// DefaultGenParams returns the standard campaign map.
func DefaultGenParams() GenParams {
	return GenParams{
		Size:                   1000,
		DifficultyZones:        4,
		SiteInterval:           60,
		SiteVariance:           0.6,
		SiteProbability:        1.6,
		SiteRadius:             1.0,
		LocationRadius:         0.9,
		NoiseResolution:        64,
		NoiseOctaves:           4,
		NoiseFrequency:         0.06,
		NoisePersistence:       0.5,
		CenterDarkenRadius:     0.1,
		EdgeDarkenRadius:       0.9,
		MinConnectionDistance:  20,
		MinLocationDistance:    30,
		DifficultyJitter:       5,
		DifficultyPerturbation: 10,
		GatesPerBoundary:       2,
		PathSegmentLength:      15,
		PathJaggedness:         0.3,
	}
}

// SmallTestParams returns a small map for tests and rapid iteration.
func SmallTestParams() GenParams {
	p := DefaultGenParams()
	p.Size = 500
	p.SiteInterval = 50
	p.NoiseResolution = 32
	p.NoiseFrequency = 0.1
	p.DifficultyZones = 3
	return p
}

// Options bundles everything generation needs besides the seed and catalog.
type Options struct {
	Params    GenParams
	Economy   economy.Settings
	Radiation RadiationParams
	Campaign  economy.Campaign
	Follower  bool
	Source    *entropy.Source // Reseeded from the map seed; a new source when nil
	Logger    *slog.Logger
}

// DefaultOptions returns options for a standard authoritative map.
func DefaultOptions() Options {
	return Options{
		Params:    DefaultGenParams(),
		Economy:   economy.DefaultSettings(),
		Radiation: DefaultRadiationParams(),
	}
}

// Generate builds a complete campaign map from a seed: graph, zones, biomes, gates,
// difficulty, location types and the starting location. Configuration problems are
// returned as warnings. Followers cannot generate.
func Generate(seed string, reg *catalog.Registry, opts Options) (*Map, []catalog.Warning, error) {
	if opts.Follower {
		return nil, nil, fmt.Errorf("generate %q: %w", seed, ErrNotAuthoritative)
	}
	return generate(seed, reg, opts)
}

func generate(seed string, reg *catalog.Registry, opts Options) (*Map, []catalog.Warning, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	src := opts.Source
	if src == nil {
		src = entropy.NewSource(entropy.SeedFromString(seed))
	} else {
		src.SetSyncedSeed(entropy.SeedFromString(seed))
	}

	m := &Map{
		ID:              uuid.New(),
		Seed:            seed,
		Params:          opts.Params,
		Economy:         opts.Economy,
		RadiationParams: opts.Radiation,
		Radiation:       Radiation{Amount: opts.Radiation.StartingAmount, Enabled: opts.Radiation.Enabled},
		Catalog:         reg,
		Rand:            src,
		Campaign:        opts.Campaign,
		Follower:        opts.Follower,
		logger:          logger,
	}
	m.FactionReputation = newReputations(reg)

	field := newNoiseField(m.Params, src.Rand(entropy.Synced).Int63())
	sites := m.placeSites(field)
	if len(sites) == 0 {
		return nil, nil, fmt.Errorf("generate %q: no sites survived placement: %w", seed, ErrEmptyGraph)
	}

	m.buildGraph(sites)
	m.assignProvisionalDifficulty()
	m.cleanup()
	if len(m.Locations) == 0 || len(m.Connections) == 0 {
		return nil, nil, fmt.Errorf("generate %q: %w", seed, ErrEmptyGraph)
	}

	for _, l := range m.Locations {
		l.Zone = m.ZoneOf(l.Position)
	}
	warnings := m.assignBiomes()
	m.placeGates()
	m.reindex()
	if len(m.Locations) == 0 || len(m.Connections) == 0 {
		return nil, nil, fmt.Errorf("generate %q: no connections left after gate placement: %w", seed, ErrEmptyGraph)
	}

	m.finalizeDifficulty()
	m.generatePaths()
	m.assignPlaceholders()
	warnings = append(warnings, m.assignLocationTypes()...)
	for _, l := range m.Locations {
		l.OriginalType = l.Type
	}

	start := m.selectStart()
	start.Discovered = true
	for _, c := range start.Connections {
		c.Difficulty = 0
		c.Level.Difficulty = 0
	}
	m.StartLocation = start
	for _, l := range m.Locations {
		m.UnlockInitialMissions(l)
	}
	m.SetCurrentLocation(start)

	logger.Info("campaign map generated",
		"seed", seed,
		"locations", len(m.Locations),
		"connections", len(m.Connections),
		"start", start.Name,
		"warnings", len(warnings),
	)
	return m, warnings, nil
}

// noiseField is a normalized, darkened fractal noise grid covering the map.
type noiseField struct {
	res    int
	cell   float64
	values []float64
}

func newNoiseField(p GenParams, seed int64) *noiseField {
	res := p.NoiseResolution
	if res < 1 {
		res = 1
	}
	noise := opensimplex.NewNormalized(seed)
	f := &noiseField{res: res, cell: p.Size / float64(res), values: make([]float64, res*res)}

	lo, hi := math.Inf(1), math.Inf(-1)
	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			v := octaveNoise(noise, float64(x), float64(y), p.NoiseOctaves, p.NoiseFrequency, p.NoisePersistence)
			f.values[y*res+x] = v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	half := float64(res) / 2
	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			i := y*res + x
			v := 1.0
			if hi > lo {
				v = (f.values[i] - lo) / (hi - lo)
			}
			// Radial falloffs keep sites away from the very center and the rim.
			d := math.Hypot(float64(x)+0.5-half, float64(y)+0.5-half) / half
			if p.CenterDarkenRadius > 0 && d < p.CenterDarkenRadius {
				v *= d / p.CenterDarkenRadius
			}
			if p.EdgeDarkenRadius < 1 && d > p.EdgeDarkenRadius {
				v *= math.Max(0, (1-d)/(1-p.EdgeDarkenRadius))
			}
			f.values[i] = v
		}
	}
	return f
}

// At samples the cell containing p.
func (f *noiseField) At(p Vec2) float64 {
	x := mathx.Clamp(int(p.X/f.cell), 0, f.res-1)
	y := mathx.Clamp(int(p.Y/f.cell), 0, f.res-1)
	return f.values[y*f.res+x]
}

// placeSites scatters jittered candidates on a grid inside the site circle and keeps
// those that pass a draw against the noise value.
func (m *Map) placeSites(field *noiseField) []voronoi.Vertex {
	p := m.Params
	if p.SiteInterval <= 0 {
		return nil
	}
	center := m.Center()
	radius := p.Size / 2 * p.SiteRadius
	jitter := p.SiteVariance * p.SiteInterval / 2

	var sites []voronoi.Vertex
	for x := p.SiteInterval / 2; x < p.Size; x += p.SiteInterval {
		for y := p.SiteInterval / 2; y < p.Size; y += p.SiteInterval {
			if (Vec2{x, y}).Distance(center) > radius {
				continue
			}
			pos := Vec2{
				X: x + m.Rand.Range(-jitter, jitter, entropy.Synced),
				Y: y + m.Rand.Range(-jitter, jitter, entropy.Synced),
			}
			if m.Rand.Float(entropy.Synced) < p.SiteProbability*field.At(pos) {
				sites = append(sites, voronoi.Vertex{X: pos.X, Y: pos.Y})
			}
		}
	}
	return sites
}

// buildGraph turns the finite Voronoi edges inside the location radius into
// connections. Shared edge endpoints resolve to one location.
func (m *Map) buildGraph(sites []voronoi.Vertex) {
	bbox := voronoi.NewBBox(0, m.Params.Size, 0, m.Params.Size)
	diagram := voronoi.ComputeDiagram(sites, bbox, true)

	center := m.Center()
	radius := m.LocationRadius()
	byPos := make(map[positionKey]*Location)
	locationAt := func(v Vec2) *Location {
		k := keyOf(v)
		if l, ok := byPos[k]; ok {
			return l
		}
		l := &Location{Position: v, reputations: m.FactionReputation}
		byPos[k] = l
		m.Locations = append(m.Locations, l)
		return l
	}

	for _, e := range diagram.Edges {
		a := Vec2{e.Va.X, e.Va.Y}
		b := Vec2{e.Vb.X, e.Vb.Y}
		if !finite(a) || !finite(b) || keyOf(a) == keyOf(b) {
			continue
		}
		if a.Distance(center) > radius || b.Distance(center) > radius {
			continue
		}
		c, err := NewConnection(locationAt(a), locationAt(b))
		if err != nil {
			continue
		}
		m.addConnection(c)
	}
}

func finite(v Vec2) bool {
	return !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsNaN(v.X) && !math.IsNaN(v.Y)
}

func (m *Map) addConnection(c *Connection) {
	m.Connections = append(m.Connections, c)
	c.Locations[0].Connections = append(c.Locations[0].Connections, c)
	c.Locations[1].Connections = append(c.Locations[1].Connections, c)
}

func (m *Map) removeConnection(c *Connection) {
	m.Connections = without(m.Connections, c)
	for _, l := range c.Locations {
		l.Connections = without(l.Connections, c)
	}
}

// mergeLocations folds drop into keep: drop's connections are redirected to keep and
// any that would become self loops are removed.
func (m *Map) mergeLocations(keep, drop *Location) {
	for _, c := range append([]*Connection(nil), drop.Connections...) {
		drop.Connections = without(drop.Connections, c)
		if !c.replaceEndpoint(drop, keep) {
			m.Connections = without(m.Connections, c)
			keep.Connections = without(keep.Connections, c)
			continue
		}
		keep.Connections = append(keep.Connections, c)
	}
	m.Locations = without(m.Locations, drop)
}

func without[T comparable](list []T, v T) []T {
	for i, x := range list {
		if x == v {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// assignProvisionalDifficulty grades connections by distance from the center.
func (m *Map) assignProvisionalDifficulty() {
	center, radius := m.Center(), m.LocationRadius()
	for _, c := range m.Connections {
		d := c.Center().Distance(center) / radius
		jitter := m.Rand.Range(-m.Params.DifficultyJitter, m.Params.DifficultyJitter, entropy.Synced)
		c.Difficulty = mathx.Clamp((1-d)*100+jitter, 0, 100)
	}
}

// cleanup removes degenerate geometry: short connections, orphans, locations that
// are too close together and parallel connections.
func (m *Map) cleanup() {
	for i := 0; i < len(m.Connections); {
		c := m.Connections[i]
		if c.Length() >= m.Params.MinConnectionDistance {
			i++
			continue
		}
		m.mergeLocations(c.Locations[0], c.Locations[1])
		i = 0
	}
	m.removeOrphans()

	merged := true
	for merged {
		merged = false
	scan:
		for i, a := range m.Locations {
			for _, b := range m.Locations[i+1:] {
				if a.Position.Distance(b.Position) < m.Params.MinLocationDistance {
					m.mergeLocations(a, b)
					merged = true
					break scan
				}
			}
		}
	}

	m.reindex()
	seen := make(map[[2]int]bool, len(m.Connections))
	for _, c := range append([]*Connection(nil), m.Connections...) {
		a, b := c.Locations[0].Index, c.Locations[1].Index
		if a > b {
			a, b = b, a
		}
		if seen[[2]int{a, b}] {
			m.removeConnection(c)
			continue
		}
		seen[[2]int{a, b}] = true
	}
	m.removeOrphans()
	m.reindex()
}

func (m *Map) removeOrphans() {
	kept := m.Locations[:0]
	for _, l := range m.Locations {
		if len(l.Connections) > 0 {
			kept = append(kept, l)
		}
	}
	m.Locations = kept
}

func (m *Map) reindex() {
	for i, l := range m.Locations {
		l.Index = i
	}
	for i, c := range m.Connections {
		c.Index = i
	}
}

// assignBiomes walks the zone rings from the innermost outward. Each ring gets one
// biome allowed in its zone, applied to connections whose center lies inside the
// ring's radius and to locations of that zone not yet assigned.
func (m *Map) assignBiomes() []catalog.Warning {
	n := m.Params.DifficultyZones
	if n < 1 {
		n = 1
	}
	center, radius := m.Center(), m.LocationRadius()
	var warnings []catalog.Warning

	for i := 1; i <= n; i++ {
		zone := n - i + 1
		allowed := m.Catalog.BiomesForZone(zone)
		if len(allowed) == 0 {
			warnings = append(warnings, catalog.Warning{
				Source:  m.Catalog.Source(),
				Subject: fmt.Sprintf("zone %d", zone),
				Message: "no biome allows this zone, picking from all biomes",
			})
			allowed = m.Catalog.Biomes()
		}
		var biome *catalog.Biome
		if len(allowed) > 0 {
			biome = allowed[m.Rand.Int(len(allowed), entropy.Synced)]
		}

		ring := radius * float64(i) / float64(n)
		for _, c := range m.Connections {
			if c.Biome == nil && (i == n || c.Center().Distance(center) < ring) {
				c.Biome = biome
			}
		}
		for _, l := range m.Locations {
			if l.Biome == nil && (i == n || l.Zone >= zone) {
				l.Biome = biome
			}
		}
	}
	return warnings
}

// placeGates keeps a few connections across each zone boundary as locked gates and
// removes the rest. Connections skipping a zone are removed outright.
func (m *Map) placeGates() {
	if m.Params.GatesPerBoundary <= 0 {
		return
	}
	for _, c := range append([]*Connection(nil), m.Connections...) {
		if mathx.Abs(c.Locations[0].Zone-c.Locations[1].Zone) > 1 {
			m.removeConnection(c)
		}
	}
	for z := 1; z < m.Params.DifficultyZones; z++ {
		var crossing []*Connection
		for _, c := range m.Connections {
			lo, hi := c.Locations[0].Zone, c.Locations[1].Zone
			if lo > hi {
				lo, hi = hi, lo
			}
			if lo == z && hi == z+1 {
				crossing = append(crossing, c)
			}
		}
		entropy.Shuffle(crossing, m.Rand.Rand(entropy.Synced))
		for i, c := range crossing {
			if i >= m.Params.GatesPerBoundary {
				m.removeConnection(c)
				continue
			}
			c.Locked = true
			outer := c.Locations[0]
			if c.Locations[1].Zone < outer.Zone {
				outer = c.Locations[1]
			}
			outer.IsGateBetweenBiomes = true
		}
	}
	m.removeOrphans()
}

// finalizeDifficulty re-derives difficulty from the center distance with a bounded
// downward perturbation and attaches the level payload.
func (m *Map) finalizeDifficulty() {
	center, radius := m.Center(), m.LocationRadius()
	for _, c := range m.Connections {
		d := c.Center().Distance(center) / radius
		diff := (1 - d) * 100
		if diff > m.Params.DifficultyPerturbation {
			diff -= m.Rand.Range(0, m.Params.DifficultyPerturbation, entropy.Synced)
		}
		c.Difficulty = mathx.Clamp(diff, 0, 100)
		c.Level = &Level{
			Seed:       fmt.Sprintf("%s-%d", m.Seed, c.Index),
			Difficulty: c.Difficulty,
			Biome:      c.BiomeID(),
		}
	}
}

// generatePaths gives each connection a jagged polyline. Cosmetic, so it draws on
// the unsynced stream.
func (m *Map) generatePaths() {
	seg := m.Params.PathSegmentLength
	for _, c := range m.Connections {
		a, b := c.Locations[0].Position, c.Locations[1].Position
		n := 1
		if seg > 0 {
			n = max(1, int(math.Ceil(c.Length()/seg)))
		}
		normal := b.Sub(a).Normal()
		path := make([]Vec2, 0, n+1)
		path = append(path, a)
		for i := 1; i < n; i++ {
			offset := m.Rand.Range(-1, 1, entropy.Unsynced) * m.Params.PathJaggedness * seg
			path = append(path, a.Lerp(b, float64(i)/float64(n)).Add(normal.Scale(offset)))
		}
		c.Path = append(path, b)
	}
}

// nameFormatSlots bounds the name format index; it is reduced modulo the format count.
const nameFormatSlots = 64

// assignPlaceholders names every location and gives it a random type for its zone
// and biome, its own standing and neutral price multipliers. A type with its own
// base names lends one to the location until its list runs out.
func (m *Map) assignPlaceholders() {
	names := generateNames(m.Rand.Rand(entropy.Synced), len(m.Locations))
	taken := make(map[string]bool, len(names))
	for i, l := range m.Locations {
		l.BaseName = names[i]
		l.NameFormatIndex = m.Rand.Int(nameFormatSlots, entropy.Synced)
		l.Reputation = economy.NewReputation(-100, 100, float64(m.Rand.RangeInt(-10, 11, entropy.Synced)))
		l.PriceMultiplier = 1
		l.MechanicalPriceMultiplier = 1
		l.reputations = m.FactionReputation
		t := m.Catalog.RandomType(m.Rand.Rand(entropy.Synced), l.Zone, l.BiomeID())
		if name, ok := pickBaseName(m.Rand.Rand(entropy.Synced), t.Names, taken); ok {
			l.BaseName = name
		}
		taken[l.BaseName] = true
		l.setType(t)
	}
}

// selectStart picks the start type location farthest from the center, falling back
// to any outpost and then to any location.
func (m *Map) selectStart() *Location {
	center := m.Center()
	farthest := func(match func(*Location) bool) *Location {
		var best *Location
		bestDist := -1.0
		for _, l := range m.Locations {
			if !match(l) {
				continue
			}
			if d := l.Position.Distance(center); d > bestDist {
				best, bestDist = l, d
			}
		}
		return best
	}

	if id := m.Catalog.StartType(); !id.IsEmpty() {
		if l := farthest(func(l *Location) bool { return l.TypeID() == id }); l != nil {
			return l
		}
	}
	if l := farthest((*Location).HasOutpost); l != nil {
		return l
	}
	return farthest(func(*Location) bool { return true })
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	if maxVal == 0 {
		return 0
	}
	return total / maxVal
}

// TypeCounts returns the number of locations of each type, sorted by type identifier.
func TypeCounts(m *Map) []TypeCount {
	counts := m.CountTypes()
	out := make([]TypeCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, TypeCount{Type: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// TypeCount is one row of TypeCounts.
type TypeCount struct {
	Type  catalog.Identifier
	Count int
}
