package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/campaign-world/internal/catalog"
	"github.com/talgya/campaign-world/internal/engine"
	"github.com/talgya/campaign-world/internal/persistence"
	"github.com/talgya/campaign-world/internal/world"
)

const adminKey = "s3cret"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	reg, _, err := catalog.Default()
	require.NoError(t, err)
	opts := world.DefaultOptions()
	opts.Params = world.SmallTestParams()
	opts.Logger = quietLogger()
	m, _, err := world.Generate("api", reg, opts)
	require.NoError(t, err)

	store, err := persistence.OpenSQLite(filepath.Join(t.TempDir(), "api.db"), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := &Server{
		Coord:      engine.NewCoordinator(m, quietLogger()),
		Eng:        engine.NewEngine(),
		Store:      store,
		CampaignID: "alpha",
		AdminKey:   adminKey,
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ts := httptest.NewServer(s.Handler(ctx))
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func post(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStatus(t *testing.T) {
	s, ts := newTestServer(t)
	var status map[string]any
	getJSON(t, ts.URL+"/api/v1/status", &status)

	assert.Equal(t, "alpha", status["campaign"])
	assert.Equal(t, "api", status["seed"])
	assert.Equal(t, float64(len(s.Coord.Map.Locations)), status["locations"])
	cur := status["current_location"].(map[string]any)
	assert.Equal(t, s.Coord.Map.CurrentLocation.Name, cur["name"])
	assert.Equal(t, float64(0), status["round"])
	assert.Equal(t, false, status["running"])
}

func TestLocations(t *testing.T) {
	s, ts := newTestServer(t)
	var all, discovered []locationSummary
	getJSON(t, ts.URL+"/api/v1/locations", &all)
	getJSON(t, ts.URL+"/api/v1/locations?discovered=true", &discovered)

	assert.Len(t, all, len(s.Coord.Map.Locations))
	assert.NotEmpty(t, discovered)
	assert.Less(t, len(discovered), len(all))
	for _, l := range discovered {
		assert.True(t, l.Discovered)
	}
}

func TestLocationDetail(t *testing.T) {
	s, ts := newTestServer(t)
	cur := s.Coord.Map.CurrentLocation

	var detail map[string]any
	getJSON(t, fmt.Sprintf("%s/api/v1/location/%d", ts.URL, cur.Index), &detail)
	assert.Len(t, detail["neighbours"], len(cur.Neighbours()))
	assert.Len(t, detail["stores"], len(cur.Stores))
	assert.Len(t, detail["hireables"], len(cur.Type.Hireables))

	resp, err := http.Get(ts.URL + "/api/v1/location/9999")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/location/first")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLocationDetailListsHireables(t *testing.T) {
	s, ts := newTestServer(t)
	var crewed *world.Location
	for _, l := range s.Coord.Map.Locations {
		if len(l.Type.Hireables) > 0 {
			crewed = l
			break
		}
	}
	require.NotNil(t, crewed)

	var detail struct {
		Hireables []struct {
			Job        string  `json:"job"`
			Commonness float64 `json:"commonness"`
		} `json:"hireables"`
	}
	getJSON(t, fmt.Sprintf("%s/api/v1/location/%d", ts.URL, crewed.Index), &detail)
	require.Len(t, detail.Hireables, len(crewed.Type.Hireables))
	for i, h := range crewed.Type.Hireables {
		assert.Equal(t, string(h.Job), detail.Hireables[i].Job)
		assert.Equal(t, h.Commonness, detail.Hireables[i].Commonness)
	}
}

func TestConnectionsAndTypes(t *testing.T) {
	s, ts := newTestServer(t)
	var conns []map[string]any
	getJSON(t, ts.URL+"/api/v1/connections", &conns)
	assert.Len(t, conns, len(s.Coord.Map.Connections))

	var types []world.TypeCount
	getJSON(t, ts.URL+"/api/v1/types", &types)
	total := 0
	for _, tc := range types {
		total += tc.Count
	}
	assert.Equal(t, len(s.Coord.Map.Locations), total)
}

func TestAdminRequiresToken(t *testing.T) {
	_, ts := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, post(t, ts.URL+"/api/v1/step", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, post(t, ts.URL+"/api/v1/step", "wrong").StatusCode)

	resp, err := http.Get(ts.URL + "/api/v1/step")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	s, ts := newTestServer(t)
	s.AdminKey = ""
	assert.Equal(t, http.StatusForbidden, post(t, ts.URL+"/api/v1/step", "").StatusCode)
}

func TestStepAndEvents(t *testing.T) {
	s, ts := newTestServer(t)
	for _, l := range s.Coord.Map.Locations {
		l.Discovered = true
	}

	resp := post(t, ts.URL+"/api/v1/step?n=20", adminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(20), s.Coord.LastStep)

	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/v1/step?n=0", adminKey).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/v1/step?n=1000", adminKey).StatusCode)

	var events []engine.Event
	getJSON(t, ts.URL+"/api/v1/events?limit=5&category="+engine.CategoryRadiation, &events)
	assert.LessOrEqual(t, len(events), 5)
	for _, e := range events {
		assert.Equal(t, engine.CategoryRadiation, e.Category)
	}
}

func TestStepRefusedForFollower(t *testing.T) {
	s, ts := newTestServer(t)
	s.Coord.Map.Follower = true
	assert.Equal(t, http.StatusConflict, post(t, ts.URL+"/api/v1/step", adminKey).StatusCode)
}

func TestTravel(t *testing.T) {
	s, ts := newTestServer(t)
	m := s.Coord.Map
	start := m.CurrentLocation

	var next *world.Location
	for _, c := range start.Connections {
		if !c.Locked {
			next = c.Other(start)
			break
		}
	}
	require.NotNil(t, next)

	resp := post(t, fmt.Sprintf("%s/api/v1/travel/%d", ts.URL, next.Index), adminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Same(t, next, m.CurrentLocation)
	assert.True(t, start.ConnectionTo(next).Passed)

	var far *world.Location
	for _, l := range m.Locations {
		if l != next && !l.IsAdjacent(next) {
			far = l
			break
		}
	}
	require.NotNil(t, far)
	resp = post(t, fmt.Sprintf("%s/api/v1/travel/%d", ts.URL, far.Index), adminKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResetAndSnapshot(t *testing.T) {
	s, ts := newTestServer(t)
	m := s.Coord.Map
	loc := m.CurrentLocation
	loc.MarkItemTaken(3)

	resp := post(t, fmt.Sprintf("%s/api/v1/location/%d/reset", ts.URL, loc.Index), adminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, loc.TakenItems)
	assert.Equal(t, loc.OriginalType, loc.Type)

	resp = post(t, ts.URL+"/api/v1/snapshot", adminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st, err := s.Store.Load(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, m.Snapshot(), st)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")
	assert.Equal(t, 61, rl.RetryAfter("10.0.0.1"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))

	now = now.Add(3 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.buckets)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}
