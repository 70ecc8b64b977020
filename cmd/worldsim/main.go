// Command worldsim generates or resumes a campaign map and advances its world.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/campaign-world/internal/api"
	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/config"
	"github.com/talgya/campaign-world/internal/engine"
	"github.com/talgya/campaign-world/internal/entropy"
	"github.com/talgya/campaign-world/internal/logger"
	"github.com/talgya/campaign-world/internal/persistence"
	"github.com/talgya/campaign-world/internal/world"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worldsim failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel, cfg.JSONLogs())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Catalog ───────────────────────────────────────────────────────
	reg, warnings, err := catalog.DefaultWith(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	catalog.LogWarnings(log, warnings)

	// ── Store ─────────────────────────────────────────────────────────
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	// ── Map (restored when saved, generated otherwise) ────────────────
	opts := world.DefaultOptions()
	opts.Follower = cfg.Follower
	opts.Logger = log

	m, fresh, err := loadOrGenerate(ctx, store, cfg, reg, opts)
	if err != nil {
		return err
	}
	log = logger.WithCampaign(log, cfg.CampaignID, m.Seed)
	summarize(m)

	if m.Follower {
		log.Info("follower mode, world steps come from the host")
		return nil
	}
	if fresh {
		if err := store.Save(ctx, cfg.CampaignID, m.Snapshot()); err != nil {
			log.Error("initial save failed", "error", err)
		}
	}

	// ── World steps ───────────────────────────────────────────────────
	coord := engine.NewCoordinator(m, log)
	events, _ := store.(persistence.EventLog)
	var savedStep uint64

	eng := engine.NewEngine()
	eng.Interval = cfg.RoundInterval

	// ── HTTP API ──────────────────────────────────────────────────────
	srv := &api.Server{
		Coord:      coord,
		Eng:        eng,
		Store:      store,
		CampaignID: cfg.CampaignID,
		Port:       cfg.APIPort,
		AdminKey:   cfg.AdminKey,
	}
	if cfg.APIPort > 0 {
		if cfg.AdminKey == "" {
			log.Warn("ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		srv.Start(ctx)
	}

	eng.OnRound = func(round int) (int, error) {
		srv.Lock()
		defer srv.Unlock()
		steps, err := coord.ProgressRound(travel(m), cfg.RoundDuration)
		if err != nil {
			return steps, err
		}
		if events != nil {
			if err := events.SaveEvents(ctx, cfg.CampaignID, unsaved(coord.Events, savedStep)); err != nil {
				log.Error("event save failed", "error", err)
			}
		}
		savedStep = coord.LastStep
		if err := store.Save(ctx, cfg.CampaignID, m.Snapshot()); err != nil {
			log.Error("round save failed", "round", round, "error", err)
		}
		log.Info("round finished",
			"round", humanize.Ordinal(round),
			"steps", steps,
			"time", engine.CampaignTime(coord.LastStep),
			"radiation", fmt.Sprintf("%.0f", m.Radiation.Amount),
			"location", m.CurrentLocation.Name,
		)
		return steps, nil
	}

	fmt.Printf("\n%s is live: %d locations, party at %s.\n", m.Seed, len(m.Locations), m.CurrentLocation.Name)
	fmt.Println("Advancing the world... (Ctrl+C to stop)")

	runErr := eng.Run(ctx, cfg.Rounds)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	// Final save on shutdown.
	srv.Lock()
	defer srv.Unlock()
	saveCtx := context.WithoutCancel(ctx)
	if err := store.Save(saveCtx, cfg.CampaignID, m.Snapshot()); err != nil {
		log.Error("final save failed", "error", err)
	}
	summarize(m)
	fmt.Printf("Stopped after %s. Campaign %q saved.\n", engine.CampaignTime(coord.LastStep), cfg.CampaignID)
	return runErr
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (persistence.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		s, err := persistence.OpenRedis(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	default:
		if dir := filepath.Dir(cfg.DBPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		s, err := persistence.OpenSQLite(cfg.DBPath, log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("database opened", "path", cfg.DBPath)
		return s, nil
	}
}

// loadOrGenerate restores the saved campaign or creates a new one. Followers can
// only restore.
func loadOrGenerate(ctx context.Context, store persistence.Store, cfg *config.Config, reg *catalog.Registry, opts world.Options) (*world.Map, bool, error) {
	st, err := store.Load(ctx, cfg.CampaignID)
	switch {
	case err == nil:
		m, warnings, err := world.Restore(st, reg, opts)
		if err != nil {
			return nil, false, err
		}
		for _, w := range warnings {
			slog.Warn("save element skipped", "element", w.Element, "message", w.Message)
		}
		slog.Info("campaign restored", "campaign", cfg.CampaignID, "seed", m.Seed, "skipped", len(warnings))
		return m, false, nil
	case !errors.Is(err, persistence.ErrNotFound):
		return nil, false, err
	case cfg.Follower:
		return nil, false, fmt.Errorf("campaign %s: %w", cfg.CampaignID, world.ErrNotAuthoritative)
	}

	seed := cfg.Seed
	if seed == "" {
		seed = entropy.RandomSeedString()
	}
	slog.Info("no saved campaign, generating", "campaign", cfg.CampaignID, "seed", seed)
	m, warnings, err := world.Generate(seed, reg, opts)
	if err != nil {
		return nil, false, err
	}
	catalog.LogWarnings(slog.Default(), warnings)
	return m, true, nil
}

// travel moves the party along a random open connection.
func travel(m *world.Map) engine.Transition {
	cur := m.CurrentLocation
	var open []*world.Location
	for _, c := range cur.Connections {
		if !c.Locked {
			open = append(open, c.Other(cur))
		}
	}
	if len(open) == 0 {
		return engine.TransitionNone
	}
	next := open[m.Rand.Int(len(open), entropy.Synced)]
	transition := engine.TransitionProgress
	if next.Visited {
		transition = engine.TransitionReturn
	}
	m.SetCurrentLocation(next)
	for _, n := range next.Neighbours() {
		n.Discovered = true
	}
	return transition
}

func unsaved(events []engine.Event, after uint64) []engine.Event {
	for i, e := range events {
		if e.Step > after {
			return events[i:]
		}
	}
	return nil
}

func summarize(m *world.Map) {
	balance := 0
	stores := 0
	for _, l := range m.Locations {
		for _, s := range l.Stores {
			balance += s.Balance
			stores++
		}
	}
	for _, tc := range world.TypeCounts(m) {
		slog.Info("location type", "type", tc.Type, "count", tc.Count)
	}
	slog.Info("campaign summary",
		"map", m.String(),
		"live_outposts", m.LiveOutposts(),
		"stores", stores,
		"store_balance", humanize.Comma(int64(balance)),
		"discovered", humanize.Comma(int64(countDiscovered(m))),
	)
}

func countDiscovered(m *world.Map) int {
	n := 0
	for _, l := range m.Locations {
		if l.Discovered {
			n++
		}
	}
	return n
}
