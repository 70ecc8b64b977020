package world

import (
	"fmt"
	"sort"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/entropy"
	"github.com/talgya/campaign-world/internal/mathx"
)

// quota is the realized count of one area setting and what is left of it.
type quota struct {
	t         *catalog.LocationType
	area      catalog.AreaSetting
	realized  int
	remaining int
}

func (q *quota) contains(l *Location) bool {
	return q.area.Area.Contains(l.Zone, l.BiomeID())
}

// assigner holds the state of one assignment pass.
type assigner struct {
	m      *Map
	quotas []*quota
	byType map[*catalog.LocationType][]*quota
	filled map[*Location]bool
}

// AssignLocationTypes redistributes location types so every area setting's count is
// honored. Forced biome gates come first, then types with a desired position, then
// the remaining locations in shuffled order. Counts that could not be realized are
// returned as warnings.
func (m *Map) AssignLocationTypes() ([]catalog.Warning, error) {
	if m.Follower {
		return nil, fmt.Errorf("assign location types: %w", ErrNotAuthoritative)
	}
	return m.assignLocationTypes(), nil
}

func (m *Map) assignLocationTypes() []catalog.Warning {
	a := &assigner{
		m:      m,
		byType: make(map[*catalog.LocationType][]*quota),
		filled: make(map[*Location]bool),
	}
	a.rollQuotas()
	a.forceGates()
	a.placeByPosition()
	a.fillRemaining()
	a.settlePlaceholders()
	return a.warnings()
}

// rollQuotas draws every area setting's count once.
func (a *assigner) rollQuotas() {
	for _, t := range a.m.Catalog.Types() {
		for _, s := range t.Areas {
			if !s.Area.Valid() {
				continue
			}
			hi := max(s.MaxCount, s.MinCount)
			k := a.m.Rand.RangeInt(s.MinCount, hi+1, entropy.Synced)
			q := &quota{t: t, area: s, realized: k, remaining: k}
			a.quotas = append(a.quotas, q)
			a.byType[t] = append(a.byType[t], q)
		}
	}
}

// containing returns the quotas of t whose scope includes l.
func (a *assigner) containing(t *catalog.LocationType, l *Location) []*quota {
	var out []*quota
	for _, q := range a.byType[t] {
		if q.contains(l) {
			out = append(out, q)
		}
	}
	return out
}

// score rates how well t fits l: 0 when t cannot go there, 1 for a zone-only or
// biome-only match and 2 when both a zone and a biome count are still open.
// Every count of t covering l must have room, so placing t never exceeds a count.
func (a *assigner) score(t *catalog.LocationType, l *Location) int {
	if l.IsGateBetweenBiomes && t.BiomeGate == catalog.GateDeny {
		return 0
	}
	qs := a.containing(t, l)
	if len(qs) == 0 {
		return 0
	}
	zone, biome := false, false
	for _, q := range qs {
		if q.remaining <= 0 {
			return 0
		}
		if _, ok := q.area.Area.Zone(); ok {
			zone = true
		} else {
			biome = true
		}
	}
	if zone && biome {
		return 2
	}
	return 1
}

func (a *assigner) fill(l *Location, t *catalog.LocationType) {
	if l.Type != t {
		l.setType(t)
	}
	for _, q := range a.containing(t, l) {
		q.remaining--
	}
	a.filled[l] = true
}

func (a *assigner) done() bool {
	for _, q := range a.quotas {
		if q.remaining > 0 {
			return false
		}
	}
	return true
}

// forceGates gives every gate the first forced gate type with room there. A gate that
// already has that type only consumes the count.
func (a *assigner) forceGates() {
	for _, l := range a.m.Locations {
		if !l.IsGateBetweenBiomes {
			continue
		}
		for _, t := range a.m.Catalog.Types() {
			if t.BiomeGate != catalog.GateForce || !a.factionAvailable(t) {
				continue
			}
			if a.score(t, l) > 0 {
				a.fill(l, t)
				break
			}
		}
	}
}

// factionAvailable reports whether the type's faction exists in the catalog.
func (a *assigner) factionAvailable(t *catalog.LocationType) bool {
	if t.Faction.IsEmpty() || t.Faction == catalog.None {
		return true
	}
	_, ok := a.m.Catalog.Faction(t.Faction)
	return ok
}

// progress is 0 at the rim where the campaign starts and 1 at the center.
func (a *assigner) progress(l *Location) float64 {
	d := l.Position.Distance(a.m.Center()) / a.m.LocationRadius()
	return mathx.Clamp(1-d, 0, 1)
}

// placeByPosition fills counts that ask for a relative position with the unfilled
// locations closest to it within their scope.
func (a *assigner) placeByPosition() {
	for _, q := range a.quotas {
		if !q.area.HasPosition() || q.remaining <= 0 {
			continue
		}
		var scope []*Location
		lo, hi := 1.0, 0.0
		for _, l := range a.m.Locations {
			if !q.contains(l) {
				continue
			}
			scope = append(scope, l)
			p := a.progress(l)
			lo, hi = min(lo, p), max(hi, p)
		}
		relative := func(l *Location) float64 {
			if hi <= lo {
				return 0.5
			}
			return (a.progress(l) - lo) / (hi - lo)
		}

		target := *q.area.Position
		var candidates []*Location
		for _, l := range scope {
			if !a.filled[l] && a.score(q.t, l) > 0 {
				candidates = append(candidates, l)
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return mathx.Abs(relative(candidates[i])-target) < mathx.Abs(relative(candidates[j])-target)
		})
		for _, l := range candidates {
			if q.remaining <= 0 {
				break
			}
			if a.score(q.t, l) > 0 {
				a.fill(l, q.t)
			}
		}
	}
}

// fillRemaining visits the unfilled locations in a synchronized shuffle and gives
// each the best fitting type with room left.
func (a *assigner) fillRemaining() {
	var open []*Location
	for _, l := range a.m.Locations {
		if !a.filled[l] {
			open = append(open, l)
		}
	}
	entropy.Shuffle(open, a.m.Rand.Rand(entropy.Synced))

	for _, l := range open {
		if a.done() {
			return
		}
		var best *catalog.LocationType
		bestScore := 0
		for _, t := range a.m.Catalog.Types() {
			if s := a.score(t, l); s > bestScore {
				best, bestScore = t, s
			}
		}
		if best != nil {
			a.fill(l, best)
		}
	}
}

// settlePlaceholders lets unfilled locations keep their placeholder type when its
// counts have room, and otherwise falls back so no count is exceeded.
func (a *assigner) settlePlaceholders() {
	fallback := a.m.Catalog.Fallback()
	for _, l := range a.m.Locations {
		if a.filled[l] || len(a.containing(l.Type, l)) == 0 {
			continue
		}
		if a.score(l.Type, l) > 0 {
			a.fill(l, l.Type)
			continue
		}
		a.m.logger.Debug("placeholder type over count", "location", l.BaseName, "type", l.Type.ID, "fallback", fallback.ID)
		l.setType(fallback)
	}
}

func (a *assigner) warnings() []catalog.Warning {
	var out []catalog.Warning
	for _, q := range a.quotas {
		if q.remaining <= 0 {
			continue
		}
		out = append(out, catalog.Warning{
			Source:  q.t.Source,
			Subject: string(q.t.ID),
			Message: fmt.Sprintf("placed %d of %d locations in %s", q.realized-q.remaining, q.realized, q.area.Area),
		})
	}
	return out
}
