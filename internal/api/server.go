// Package api serves the campaign world over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/campaign-world/internal/engine"
	"github.com/talgya/campaign-world/internal/persistence"
	"github.com/talgya/campaign-world/internal/world"
)

// maxStepsPerRequest bounds POST /api/v1/step.
const maxStepsPerRequest = 50

// Server serves one campaign's world state over HTTP.
type Server struct {
	Coord      *engine.Coordinator
	Eng        *engine.Engine
	Store      persistence.Store // Optional, enables snapshots
	CampaignID string
	Port       int
	AdminKey   string // Bearer token for POST endpoints. Empty = POST disabled.

	// mu guards the map between handlers and the engine's rounds.
	mu sync.RWMutex
}

// Lock blocks readers while the caller mutates the world.
func (s *Server) Lock() { s.mu.Lock() }

// Unlock releases Lock.
func (s *Server) Unlock() { s.mu.Unlock() }

// Handler builds the route table.
func (s *Server) Handler(ctx context.Context) http.Handler {
	stepLimiter := NewRateLimiter(ctx, 30, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/locations", s.handleLocations)
	mux.HandleFunc("GET /api/v1/location/{index}", s.handleLocationDetail)
	mux.HandleFunc("GET /api/v1/connections", s.handleConnections)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/types", s.handleTypes)

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/step", s.adminOnly(RateLimitMiddleware(stepLimiter, s.handleStep)))
	mux.HandleFunc("POST /api/v1/travel/{index}", s.adminOnly(s.handleTravel))
	mux.HandleFunc("POST /api/v1/location/{index}/reset", s.adminOnly(s.handleReset))
	mux.HandleFunc("POST /api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return mux
}

// Start serves the API until ctx is done.
func (s *Server) Start(ctx context.Context) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.Coord.Map
	status := map[string]any{
		"campaign":         s.CampaignID,
		"id":               m.ID.String(),
		"seed":             m.Seed,
		"step":             s.Coord.LastStep,
		"campaign_time":    engine.CampaignTime(s.Coord.LastStep),
		"follower":         m.Follower,
		"locations":        len(m.Locations),
		"connections":      len(m.Connections),
		"live_outposts":    m.LiveOutposts(),
		"radiation":        m.Radiation,
		"current_location": summarize(m, m.CurrentLocation),
		"last_step":        s.Coord.Stats,
	}
	if s.Eng != nil {
		status["round"] = s.Eng.Round()
		status["running"] = s.Eng.Running()
	}
	writeJSON(w, status)
}

type locationSummary struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Zone       int     `json:"zone"`
	Biome      string  `json:"biome"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Discovered bool    `json:"discovered"`
	Visited    bool    `json:"visited"`
	Gate       bool    `json:"gate,omitempty"`
	Radiated   bool    `json:"radiated,omitempty"`
	Critical   bool    `json:"critical,omitempty"`
}

func summarize(m *world.Map, l *world.Location) *locationSummary {
	if l == nil {
		return nil
	}
	return &locationSummary{
		Index:      l.Index,
		Name:       l.Name,
		Type:       string(l.TypeID()),
		Zone:       l.Zone,
		Biome:      string(l.BiomeID()),
		X:          l.Position.X,
		Y:          l.Position.Y,
		Discovered: l.Discovered,
		Visited:    l.Visited,
		Gate:       l.IsGateBetweenBiomes,
		Radiated:   m.IsInRadiation(l),
		Critical:   m.IsCriticallyRadiated(l),
	}
}

// handleLocations lists locations. ?discovered=true keeps only discovered ones.
func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	onlyDiscovered := r.URL.Query().Get("discovered") == "true"
	m := s.Coord.Map
	out := make([]*locationSummary, 0, len(m.Locations))
	for _, l := range m.Locations {
		if onlyDiscovered && !l.Discovered {
			continue
		}
		out = append(out, summarize(m, l))
	}
	writeJSON(w, out)
}

func (s *Server) location(w http.ResponseWriter, r *http.Request) (*world.Location, bool) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid location index", http.StatusBadRequest)
		return nil, false
	}
	loc, ok := s.Coord.Map.Location(idx)
	if !ok {
		http.Error(w, "location not found", http.StatusNotFound)
		return nil, false
	}
	return loc, true
}

func (s *Server) handleLocationDetail(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.location(w, r)
	if !ok {
		return
	}
	m := s.Coord.Map

	type stockLine struct {
		Item      string `json:"item"`
		Quantity  int    `json:"quantity"`
		BuyPrice  int    `json:"buy_price"`
		SellPrice int    `json:"sell_price"`
		Special   bool   `json:"special,omitempty"`
		Requested bool   `json:"requested,omitempty"`
	}
	type storeDetail struct {
		ID      string      `json:"id"`
		Balance int         `json:"balance"`
		Stock   []stockLine `json:"stock"`
	}

	stores := []storeDetail{}
	for _, id := range loc.Type.StoreIDs {
		st, ok := loc.Stores[id]
		if !ok {
			continue
		}
		d := storeDetail{ID: string(st.ID), Balance: st.Balance, Stock: []stockLine{}}
		for _, e := range st.Stock {
			d.Stock = append(d.Stock, stockLine{
				Item:      string(e.Item.ID),
				Quantity:  e.Quantity,
				BuyPrice:  st.BuyPrice(e.Item, m.Campaign),
				SellPrice: st.SellPrice(e.Item, m.Campaign),
				Special:   st.IsDailySpecial(e.Item),
				Requested: st.IsRequestedGood(e.Item),
			})
		}
		stores = append(stores, d)
	}

	neighbours := []*locationSummary{}
	for _, n := range loc.Neighbours() {
		neighbours = append(neighbours, summarize(m, n))
	}

	missions := []map[string]any{}
	for _, ms := range loc.AvailableMissions {
		entry := map[string]any{
			"mission":  ms.ID(),
			"name":     ms.Prefab.Name,
			"reward":   ms.Prefab.Reward,
			"selected": loc.IsMissionSelected(ms),
		}
		if ms.Destination != nil {
			entry["destination"] = ms.Destination.Name
		}
		missions = append(missions, entry)
	}

	type hireable struct {
		Job        string  `json:"job"`
		Commonness float64 `json:"commonness"`
	}
	hireables := []hireable{}
	for _, h := range loc.Type.Hireables {
		hireables = append(hireables, hireable{Job: string(h.Job), Commonness: h.Commonness})
	}

	detail := map[string]any{
		"location":           summarize(m, loc),
		"faction":            loc.Faction,
		"secondary_faction":  loc.SecondaryFaction,
		"standing":           loc.Standing().Value,
		"turns_in_radiation": loc.TurnsInRadiation,
		"type_change_timers": loc.TypeChangeTimers,
		"cooldown":           loc.TypeChangeCooldown,
		"steps_unvisited":    loc.StepsUnvisited,
		"mechanical_cost":    loc.MechanicalCost(100),
		"heal_cost":          loc.HealCost(100),
		"neighbours":         neighbours,
		"missions":           missions,
		"stores":             stores,
		"hireables":          hireables,
	}
	if p := loc.PendingChange; p != nil {
		detail["pending_change"] = map[string]any{"to": p.To.ID, "countdown": p.Countdown}
	}
	writeJSON(w, detail)
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type connectionEntry struct {
		Index      int     `json:"index"`
		From       int     `json:"from"`
		To         int     `json:"to"`
		Difficulty float64 `json:"difficulty"`
		Biome      string  `json:"biome"`
		Passed     bool    `json:"passed"`
		Locked     bool    `json:"locked"`
	}
	m := s.Coord.Map
	out := make([]connectionEntry, 0, len(m.Connections))
	for _, c := range m.Connections {
		out = append(out, connectionEntry{
			Index:      c.Index,
			From:       c.Locations[0].Index,
			To:         c.Locations[1].Index,
			Difficulty: c.Difficulty,
			Biome:      string(c.BiomeID()),
			Passed:     c.Passed,
			Locked:     c.Locked,
		})
	}
	writeJSON(w, out)
}

// handleEvents returns recent step events, oldest first. ?category filters.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Coord.Events
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, append([]engine.Event{}, events[start:]...))
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, world.TypeCounts(s.Coord.Map))
}

// handleStep advances the world by ?n steps (default 1).
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	n := 1
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxStepsPerRequest {
			http.Error(w, fmt.Sprintf("n must be between 1 and %d", maxStepsPerRequest), http.StatusBadRequest)
			return
		}
		n = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Coord.Advance(n); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, world.ErrNotAuthoritative) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, map[string]any{
		"step":          s.Coord.LastStep,
		"campaign_time": engine.CampaignTime(s.Coord.LastStep),
		"stats":         s.Coord.Stats,
	})
}

// handleTravel moves the party to an adjacent location over an open connection.
func (s *Server) handleTravel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.location(w, r)
	if !ok {
		return
	}
	m := s.Coord.Map
	c := m.CurrentLocation.ConnectionTo(loc)
	if c == nil {
		http.Error(w, "location is not adjacent", http.StatusBadRequest)
		return
	}
	if c.Locked {
		http.Error(w, "connection is locked", http.StatusConflict)
		return
	}
	m.SetCurrentLocation(loc)
	for _, n := range loc.Neighbours() {
		n.Discovered = true
	}
	writeJSON(w, summarize(m, loc))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.location(w, r)
	if !ok {
		return
	}
	if err := s.Coord.Map.ResetLocation(loc); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, summarize(s.Coord.Map, loc))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "store not available", http.StatusServiceUnavailable)
		return
	}

	s.mu.RLock()
	st := s.Coord.Map.Snapshot()
	step := s.Coord.LastStep
	s.mu.RUnlock()

	if err := s.Store.Save(r.Context(), s.CampaignID, st); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"step":    step,
		"message": "snapshot saved",
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
