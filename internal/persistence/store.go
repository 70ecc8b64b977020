// Package persistence stores campaign map state in SQLite or Redis.
package persistence

import (
	"context"
	"errors"

	"github.com/talgya/campaign-world/internal/engine"
	"github.com/talgya/campaign-world/internal/world"
)

// ErrNotFound is returned when no state is saved under an id.
var ErrNotFound = errors.New("campaign not found")

// Store saves map documents keyed by campaign id.
type Store interface {
	Save(ctx context.Context, id string, st world.MapState) error
	Load(ctx context.Context, id string) (world.MapState, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// EventLog keeps the world step events of each campaign.
type EventLog interface {
	SaveEvents(ctx context.Context, id string, events []engine.Event) error
	RecentEvents(ctx context.Context, id string, limit int) ([]engine.Event, error)
}

var (
	_ Store    = (*SQLiteStore)(nil)
	_ EventLog = (*SQLiteStore)(nil)
	_ Store    = (*RedisStore)(nil)
	_ EventLog = (*RedisStore)(nil)
)
