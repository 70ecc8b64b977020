package engine

import (
	"fmt"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/entropy"
	"github.com/talgya/campaign-world/internal/world"
)

// ChangeOutcome is what a type-change evaluation did to a location.
type ChangeOutcome uint8

const (
	OutcomeNone    ChangeOutcome = iota
	OutcomeQueued                // A delayed change became pending
	OutcomeDropped               // A pending change is no longer allowed
	OutcomeChanged               // The type changed
)

// AllowedRules reports, per change rule of the current type, whether the location's
// neighbours satisfy its adjacency constraints.
func AllowedRules(loc *world.Location) []bool {
	neighbours := loc.NeighbourTypes()
	allowed := make([]bool, len(loc.Type.Changes))
	for i, ch := range loc.Type.Changes {
		allowed[i] = ch.AdjacencyAllows(neighbours)
	}
	return allowed
}

// Evaluable reports whether the location takes part in type changes this step:
// discovered, not where the party is or is heading, not a gate and not cooling down.
func Evaluable(m *world.Map, loc *world.Location) bool {
	return loc.Discovered &&
		loc != m.CurrentLocation &&
		loc != m.SelectedLocation &&
		!loc.IsGateBetweenBiomes &&
		loc.TypeChangeCooldown <= 0
}

// RuleProbability is the rule's chance this step, boosted when a location of one of
// its proximity types lies within the rule's proximity radius.
func RuleProbability(m *world.Map, loc *world.Location, ch catalog.TypeChange) float64 {
	p := ch.Probability
	if ch.ProximityProbabilityIncrease <= 0 || ch.RequiredProximity <= 0 {
		return p
	}
	boost := ch.BoostTypes()
	near := m.WithinHops(loc, ch.RequiredProximity, func(n *world.Location) bool {
		if ch.RequireDiscovered && !n.Discovered {
			return false
		}
		for _, id := range boost {
			if n.TypeID() == id {
				return true
			}
		}
		return false
	})
	if near {
		p += ch.ProximityProbabilityIncrease
	}
	return p
}

// ProgressTypeChange runs one step of the location's type-change state machine.
// A pending change is re-validated and counted down. Otherwise the ready rules
// compete for one synchronized draw; when none fires, allowed rules' timers
// advance and the rest reset.
func ProgressTypeChange(m *world.Map, loc *world.Location) (ChangeOutcome, error) {
	rules := loc.Type.Changes
	if len(loc.TypeChangeTimers) != len(rules) {
		timers := make([]int, len(rules))
		copy(timers, loc.TypeChangeTimers)
		loc.TypeChangeTimers = timers
	}
	loc.StepsSinceTypeChange++

	if loc.PendingChange != nil {
		return progressPending(m, loc)
	}

	allowed := AllowedRules(loc)
	var ready []int
	var weights []float64
	for i, ch := range rules {
		if !allowed[i] || loc.TypeChangeTimers[i] < ch.RequiredDuration {
			continue
		}
		ready = append(ready, i)
		weights = append(weights, RuleProbability(m, loc, ch))
	}

	if len(ready) > 0 {
		total := 0.0
		for _, w := range weights {
			total += w
		}
		if m.Rand.Float(entropy.Synced) < total {
			if idx, ok := entropy.SelectWeightedIndex(weights, m.Rand.Rand(entropy.Synced)); ok {
				return applyRule(m, loc, ready[idx])
			}
		}
	}

	for i := range rules {
		if allowed[i] {
			loc.TypeChangeTimers[i]++
		} else {
			loc.TypeChangeTimers[i] = 0
		}
	}
	return OutcomeNone, nil
}

func applyRule(m *world.Map, loc *world.Location, rule int) (ChangeOutcome, error) {
	ch := loc.Type.Changes[rule]
	to, ok := m.Catalog.Type(ch.To)
	if !ok {
		return OutcomeNone, fmt.Errorf("rule %d of %s: %w: %s", rule, loc.Type.ID, catalog.ErrUnknownType, ch.To)
	}
	if ch.DelayMax > 0 {
		loc.PendingChange = &world.PendingTypeChange{
			To:        to,
			Rule:      rule,
			Countdown: m.Rand.RangeInt(ch.DelayMin, ch.DelayMax+1, entropy.Synced),
			Cooldown:  ch.Cooldown,
		}
		return OutcomeQueued, nil
	}
	if err := m.ChangeLocationType(loc, to, world.ChangeOptions{CreateStores: true, Cooldown: ch.Cooldown}); err != nil {
		return OutcomeNone, err
	}
	return OutcomeChanged, nil
}

func progressPending(m *world.Map, loc *world.Location) (ChangeOutcome, error) {
	p := loc.PendingChange
	if p.Rule >= 0 {
		if p.Rule >= len(loc.Type.Changes) || !AllowedRules(loc)[p.Rule] {
			loc.PendingChange = nil
			return OutcomeDropped, nil
		}
	}
	p.Countdown--
	if p.Countdown > 0 {
		return OutcomeNone, nil
	}
	if err := m.ChangeLocationType(loc, p.To, world.ChangeOptions{CreateStores: true, Cooldown: p.Cooldown}); err != nil {
		return OutcomeNone, err
	}
	return OutcomeChanged, nil
}
