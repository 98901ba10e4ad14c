// Package braintest provides an in-process fake of the memory API for tests.
package braintest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
)

// Server is a scriptable memory API.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	healthStatus int
	healthDelay  time.Duration
	episodes     int
	usage        float64
	statsStatus  int
	recent       []map[string]any
	paths        []string
	statuses     map[string]int // status overrides by path
	actions      []brain.Action
	calls        map[string]int
	posts        map[string][]json.RawMessage
}

// New starts a healthy fake with all subsystems answering 200. It is closed
// when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		healthStatus: http.StatusOK,
		statsStatus:  http.StatusOK,
		statuses:     make(map[string]int),
		calls:        make(map[string]int),
		posts:        make(map[string][]json.RawMessage),
		paths:        []string{"/health", "/stats", "/memory/action", "/memory/search", "/memory/episodic/recent"},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Client returns a brain client pointed at the fake.
func (s *Server) Client() *brain.Client {
	return brain.New(brain.Config{URL: s.URL, Timeout: 5 * time.Second}, nil)
}

// SetEpisodes sets episodic_memory.total_episodes.
func (s *Server) SetEpisodes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes = n
}

// SetUsage sets working_memory.usage_percentage.
func (s *Server) SetUsage(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = pct
}

// SetHealth sets the /health status code and artificial delay.
func (s *Server) SetHealth(status int, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthStatus = status
	s.healthDelay = delay
}

// SetStatsStatus makes /stats answer with status.
func (s *Server) SetStatsStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsStatus = status
}

// SetRecent sets the episodes served by /memory/episodic/recent, newest first.
func (s *Server) SetRecent(episodes []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = episodes
}

// SetPaths sets the paths published in /openapi.json.
func (s *Server) SetPaths(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = paths
}

// SetStatus overrides the status code of any other path.
func (s *Server) SetStatus(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[path] = status
}

// Actions returns the actions posted to /memory/action.
func (s *Server) Actions() []brain.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]brain.Action, len(s.actions))
	copy(out, s.actions)
	return out
}

// ActionTypes returns the action_type of every posted action, in order.
func (s *Server) ActionTypes() []string {
	actions := s.Actions()
	types := make([]string, len(actions))
	for i, a := range actions {
		types[i] = a.ActionType
	}
	return types
}

// Calls returns how often path was requested.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Posts returns the raw bodies posted to path.
func (s *Server) Posts(path string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, len(s.posts[path]))
	copy(out, s.posts[path])
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&raw)
	}

	s.mu.Lock()
	s.calls[r.URL.Path]++
	status, overridden := s.statuses[r.URL.Path]
	if !overridden {
		status = http.StatusOK
	}
	if r.Method == http.MethodPost {
		s.posts[r.URL.Path] = append(s.posts[r.URL.Path], raw)
		if r.URL.Path == "/memory/action" && status < 300 {
			var a brain.Action
			if err := json.Unmarshal(raw, &a); err == nil {
				s.actions = append(s.actions, a)
			}
		}
	}
	healthStatus, healthDelay := s.healthStatus, s.healthDelay
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/health":
		if healthDelay > 0 {
			select {
			case <-time.After(healthDelay):
			case <-r.Context().Done():
				return
			}
		}
		writeJSON(w, healthStatus, map[string]any{"status": "healthy"})
		return
	case status >= 300:
		http.Error(w, "scripted failure", status)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.URL.Path {
	case "/stats":
		if s.statsStatus != http.StatusOK {
			http.Error(w, "stats unavailable", s.statsStatus)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"episodic_memory": map[string]any{"total_episodes": s.episodes},
			"working_memory":  map[string]any{"usage_percentage": s.usage},
		})
	case "/memory/episodic/recent":
		limit := len(s.recent)
		if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l < limit {
			limit = l
		}
		recent := s.recent[:limit]
		if recent == nil {
			recent = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, recent)
	case "/memory/search":
		writeJSON(w, http.StatusOK, map[string]any{"results": []map[string]any{{"id": "1"}}})
	case "/openapi.json":
		paths := make(map[string]any, len(s.paths))
		for _, p := range s.paths {
			paths[p] = map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"paths": paths})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"path": r.URL.Path, "ok": true})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
