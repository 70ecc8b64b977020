package engine

import (
	"fmt"

	"github.com/talgya/campaign-world/internal/world"
)

// RadiationReport lists what one frontier advance did.
type RadiationReport struct {
	Amount        float64
	NewlyCritical []*world.Location
	Replaced      []*world.Location // Outposts swapped for their radiation replacement
	Preserved     int               // Outposts spared to keep the live minimum
}

// AdvanceRadiation moves the frontier one step and ages every location it covers,
// except gates and the party's current location and its neighbours. Gates in
// radiation get their connections unlocked. Outposts stop aging once the count
// of live outposts has reached the configured minimum, while the frontier
// itself keeps advancing.
func AdvanceRadiation(m *world.Map) (RadiationReport, error) {
	p := m.RadiationParams
	r := &m.Radiation
	if !r.Enabled {
		return RadiationReport{Amount: r.Amount}, nil
	}

	if p.Step < 0 {
		return RadiationReport{Amount: r.Amount}, fmt.Errorf("radiation step %g: must not be negative", p.Step)
	}
	next := r.Amount + p.Step
	if p.Max > 0 {
		next = min(next, p.Max)
	}
	// A frontier already past Max stays where it is.
	r.Amount = max(r.Amount, next)
	report := RadiationReport{Amount: r.Amount}

	live := m.LiveOutposts()
	cur := m.CurrentLocation
	for _, loc := range m.Locations {
		if !m.IsInRadiation(loc) {
			continue
		}
		if loc.IsGateBetweenBiomes {
			for _, c := range loc.Connections {
				c.Locked = false
			}
			continue
		}
		if cur != nil && (loc == cur || loc.IsAdjacent(cur)) {
			continue
		}

		wasCritical := m.IsCriticallyRadiated(loc)
		if loc.HasOutpost() && !wasCritical && live <= p.MinOutposts {
			report.Preserved++
			continue
		}
		loc.TurnsInRadiation++
		if wasCritical || !m.IsCriticallyRadiated(loc) {
			continue
		}

		report.NewlyCritical = append(report.NewlyCritical, loc)
		if !loc.HasOutpost() {
			continue
		}
		loc.ClearMissions()
		live--
		if loc.Type.ReplaceInRadiation.IsEmpty() {
			continue
		}
		to, ok := m.Catalog.Type(loc.Type.ReplaceInRadiation)
		if !ok {
			continue
		}
		if err := m.ChangeLocationType(loc, to, world.ChangeOptions{}); err != nil {
			return report, fmt.Errorf("replace irradiated %s: %w", loc, err)
		}
		report.Replaced = append(report.Replaced, loc)
	}
	return report, nil
}
