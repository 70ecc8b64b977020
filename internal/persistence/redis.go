package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/talgya/campaign-world/internal/engine"
	"github.com/talgya/campaign-world/internal/world"
)

const (
	redisIndexKey = "campaign:index"
	maxLogEvents  = 500
)

func mapKey(id string) string    { return "campaign:map:" + id }
func eventsKey(id string) string { return "campaign:events:" + id }

// RedisStore keeps one JSON map document per campaign in Redis.
type RedisStore struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// OpenRedis connects to the Redis server at redisURL (redis://host:port/db).
func OpenRedis(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("connected to redis", "addr", opt.Addr)
	return &RedisStore{rdb: rdb, logger: logger}, nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

// Save writes the campaign's map document.
func (r *RedisStore) Save(ctx context.Context, id string, st world.MapState) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, mapKey(id), doc, 0)
		pipe.SAdd(ctx, redisIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", id, err)
	}
	r.logger.Info("campaign saved", "campaign", id, "bytes", len(doc))
	return nil
}

// Load reads the campaign's map document.
func (r *RedisStore) Load(ctx context.Context, id string) (world.MapState, error) {
	var st world.MapState
	doc, err := r.rdb.Get(ctx, mapKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return st, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return st, fmt.Errorf("redis load %s: %w", id, err)
	}
	if err := json.Unmarshal(doc, &st); err != nil {
		return st, fmt.Errorf("decode %s: %w", id, err)
	}
	return st, nil
}

// Delete removes the campaign document and its events.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, mapKey(id), eventsKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", id, err)
	}
	if err := r.rdb.SRem(ctx, redisIndexKey, id).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns the saved campaign ids in lexical order.
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := r.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveEvents prepends events to the campaign's capped log.
func (r *RedisStore) SaveEvents(ctx context.Context, id string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	values := make([]any, 0, len(events))
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		values = append(values, b)
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, eventsKey(id), values...)
		pipe.LTrim(ctx, eventsKey(id), 0, maxLogEvents-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save events %s: %w", id, err)
	}
	return nil
}

// RecentEvents returns the most recent events of the campaign, newest first.
func (r *RedisStore) RecentEvents(ctx context.Context, id string, limit int) ([]engine.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := r.rdb.LRange(ctx, eventsKey(id), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis events %s: %w", id, err)
	}
	events := make([]engine.Event, 0, len(raw))
	for _, s := range raw {
		var e engine.Event
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			r.logger.Warn("skipping corrupt event", "campaign", id, "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
