// Coordinator ties the world systems together and runs them each world step.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/campaign-world/internal/world"
)

// Event categories.
const (
	CategoryRadiation  = "radiation"
	CategoryTypeChange = "type_change"
	CategoryPending    = "pending_change"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 500

// Event is a notable occurrence in the campaign world.
type Event struct {
	Step        uint64 `json:"step"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// StepStats summarizes one world step.
type StepStats struct {
	Step            uint64  `json:"step"`
	RadiationAmount float64 `json:"radiation_amount"`
	NewlyCritical   int     `json:"newly_critical"`
	TypeChanges     int     `json:"type_changes"`
	PendingQueued   int     `json:"pending_queued"`
	StoresUpdated   int     `json:"stores_updated"`
}

// Coordinator advances a campaign map one world step at a time.
type Coordinator struct {
	Map      *world.Map
	Events   []Event // Most recent last, capped at maxEvents
	LastStep uint64
	Stats    StepStats // Of the last step

	logger *slog.Logger
}

// NewCoordinator wraps a map. A nil logger uses slog.Default.
func NewCoordinator(m *world.Map, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{Map: m, logger: logger}
}

// Step advances the world once: radiation first, then type changes for every
// evaluable location, then store aging for discovered locations whose type did not
// change. Followers cannot step.
func (c *Coordinator) Step() (StepStats, error) {
	m := c.Map
	if m.Follower {
		return StepStats{}, fmt.Errorf("world step: %w", world.ErrNotAuthoritative)
	}
	c.LastStep++
	stats := StepStats{Step: c.LastStep}

	rad, err := AdvanceRadiation(m)
	if err != nil {
		return stats, fmt.Errorf("world step %d: %w", c.LastStep, err)
	}
	stats.RadiationAmount = rad.Amount
	stats.NewlyCritical = len(rad.NewlyCritical)
	for _, loc := range rad.NewlyCritical {
		c.record(CategoryRadiation, "%s is critically irradiated", loc.Name)
	}
	for _, loc := range rad.Replaced {
		c.record(CategoryRadiation, "%s was abandoned to radiation", loc.Name)
	}

	for _, loc := range m.Locations {
		if loc != m.CurrentLocation {
			loc.StepsUnvisited++
		}

		outcome := OutcomeNone
		if Evaluable(m, loc) {
			from := loc.Name
			outcome, err = ProgressTypeChange(m, loc)
			if err != nil {
				c.logger.Warn("type change failed", "location", loc.Name, "error", err)
			}
			switch outcome {
			case OutcomeChanged:
				stats.TypeChanges++
				c.record(CategoryTypeChange, "%s became %s", from, loc.Name)
			case OutcomeQueued:
				stats.PendingQueued++
				c.record(CategoryPending, "%s will become %s in %d steps", loc.Name, loc.PendingChange.To.Name, loc.PendingChange.Countdown)
			case OutcomeDropped:
				c.record(CategoryPending, "change of %s no longer possible", loc.Name)
			}
		} else if loc.TypeChangeCooldown > 0 {
			loc.TypeChangeCooldown--
		}

		if outcome != OutcomeChanged && loc.Discovered && loc.Type.HasStores() {
			m.UpdateStores(loc)
			stats.StoresUpdated++
		}
	}

	c.Stats = stats
	c.logger.Info("world step",
		"step", stats.Step,
		"radiation", stats.RadiationAmount,
		"critical", stats.NewlyCritical,
		"type_changes", stats.TypeChanges,
		"pending", stats.PendingQueued,
		"stores", stats.StoresUpdated,
	)
	return stats, nil
}

// Advance runs n world steps.
func (c *Coordinator) Advance(n int) error {
	for i := 0; i < n; i++ {
		if _, err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// ProgressRound converts a finished round into world steps and runs them.
func (c *Coordinator) ProgressRound(t Transition, duration time.Duration) (int, error) {
	steps := StepsForRound(t, duration)
	return steps, c.Advance(steps)
}

// RecentEvents returns up to n of the latest events, newest last.
func (c *Coordinator) RecentEvents(n int) []Event {
	if n <= 0 || n >= len(c.Events) {
		return c.Events
	}
	return c.Events[len(c.Events)-n:]
}

func (c *Coordinator) record(category, format string, args ...any) {
	c.Events = append(c.Events, Event{
		Step:        c.LastStep,
		Description: fmt.Sprintf(format, args...),
		Category:    category,
	})
	if len(c.Events) > maxEvents {
		c.Events = c.Events[len(c.Events)-maxEvents:]
	}
}
