// Package engine advances the campaign world: radiation, location type changes and
// store aging, one world step at a time.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Step schedule.
const (
	StepDuration     = 10 * time.Minute // Round time covered by one world step
	MaxStepsPerRound = 5
)

// Transition is how a round ended.
type Transition uint8

const (
	TransitionNone     Transition = iota // Stayed at the current location
	TransitionProgress                   // Moved on to a new location
	TransitionReturn                     // Went back to the previous location
)

func (t Transition) String() string {
	switch t {
	case TransitionProgress:
		return "progress"
	case TransitionReturn:
		return "return"
	default:
		return "none"
	}
}

// StepsForRound converts the length of a round into world steps: one per
// StepDuration, at least one when the party moved on to a new location, at most
// MaxStepsPerRound.
func StepsForRound(t Transition, duration time.Duration) int {
	steps := int(duration / StepDuration)
	if t == TransitionProgress && steps < 1 {
		steps = 1
	}
	if steps > MaxStepsPerRound {
		steps = MaxStepsPerRound
	}
	if steps < 0 {
		return 0
	}
	return steps
}

// Engine drives rounds of world steps.
// Round and Running may be read from other goroutines while Run is playing.
type Engine struct {
	Interval time.Duration // Pause between rounds, 0 runs back to back

	round   atomic.Int64
	running atomic.Bool

	// OnRound advances the world for one round and returns the steps it took.
	OnRound func(round int) (int, error)
}

// NewEngine creates an engine with no pause between rounds.
func NewEngine() *Engine {
	return &Engine{}
}

// Run plays rounds until the count is reached, Stop is called or ctx is done.
// A round count of zero runs until stopped.
func (e *Engine) Run(ctx context.Context, rounds int) error {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("campaign engine started", "round", e.Round(), "rounds", rounds)

	for e.running.Load() && (rounds == 0 || e.Round() < rounds) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.step(); err != nil {
			return err
		}
		if e.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.Interval):
			}
		}
	}

	slog.Info("campaign engine stopped", "round", e.Round())
	return nil
}

// Round returns the number of rounds started so far.
func (e *Engine) Round() int { return int(e.round.Load()) }

// Running reports whether Run is playing rounds.
func (e *Engine) Running() bool { return e.running.Load() }

// Stop halts the loop after the current round.
func (e *Engine) Stop() {
	e.running.Store(false)
}

func (e *Engine) step() error {
	round := int(e.round.Add(1))
	if e.OnRound == nil {
		return nil
	}
	steps, err := e.OnRound(round)
	if err != nil {
		return fmt.Errorf("round %d: %w", round, err)
	}
	slog.Debug("round finished", "round", round, "steps", steps)
	return nil
}

// CampaignTime formats the world time reached after a number of steps.
func CampaignTime(step uint64) string {
	minutes := step * uint64(StepDuration/time.Minute)
	days := minutes/(24*60) + 1
	return fmt.Sprintf("Day %d, %d:%02d", days, minutes/60%24, minutes%60)
}
