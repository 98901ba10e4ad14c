package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/engine"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

// Backend is what the handlers read from and act on. *engine.Engine
// implements it.
type Backend interface {
	Status() engine.Status
	Knowledge() *awareness.SelfKnowledge
	RecentChanges(ctx context.Context, limit int) ([]watcher.ChangeEvent, error)
	RecentOptimizations(ctx context.Context, limit int) ([]reflex.Record, error)
	Plans() []reflex.Plan
	Force(ctx context.Context, t reflex.OptimizationType) (*reflex.Record, error)
}

const (
	defaultLimit = 20
	maxLimit     = 500
)

// Health is the body of GET /api/health.
type Health struct {
	Status  string          `json:"status"`
	Running bool            `json:"running"`
	Uptime  float64         `json:"uptime_seconds"`
	Level   awareness.Level `json:"level"`
}

// Handlers serves the /api routes.
type Handlers struct {
	backend Backend

	// forceTimeout replaces the server write deadline for forced runs.
	forceTimeout time.Duration
}

// NewHandlers creates handlers over backend.
func NewHandlers(backend Backend) *Handlers {
	return &Handlers{backend: backend, forceTimeout: forceTimeout}
}

// RegisterRoutes registers every /api route on router.
func (h *Handlers) RegisterRoutes(router *Router) {
	router.GET("/api/health", h.Health)
	router.GET("/api/status", h.Status)
	router.GET("/api/awareness", h.Awareness)
	router.GET("/api/changes", h.Changes)
	router.GET("/api/optimizations", h.Optimizations)
	router.POST("/api/optimizations/:type", h.Force)
	router.GET("/api/plans", h.Plans)
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	s := h.backend.Status()
	body := Health{
		Status:  "ok",
		Running: s.Running,
		Uptime:  s.Uptime.Round(time.Second).Seconds(),
		Level:   s.Level,
	}
	status := http.StatusOK
	switch {
	case s.Emergency:
		body.Status = "emergency"
		status = http.StatusServiceUnavailable
	case !s.Running:
		body.Status = "stopped"
	}
	WriteJSON(w, status, body)
}

// Status handles GET /api/status.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.backend.Status())
}

// Awareness handles GET /api/awareness.
func (h *Handlers) Awareness(w http.ResponseWriter, r *http.Request) {
	k := h.backend.Knowledge()
	if k == nil {
		WriteNexusError(w, nerrors.New(nerrors.ErrNotAwake, nerrors.CategoryAwareness, "the nervous system has not awakened yet"))
		return
	}
	WriteJSON(w, http.StatusOK, k)
}

// Changes handles GET /api/changes?limit=N.
func (h *Handlers) Changes(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	changes, err := h.backend.RecentChanges(r.Context(), limit)
	if err != nil {
		WriteNexusError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"changes": changes, "count": len(changes)})
}

// Optimizations handles GET /api/optimizations?limit=N.
func (h *Handlers) Optimizations(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	records, err := h.backend.RecentOptimizations(r.Context(), limit)
	if err != nil {
		WriteNexusError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"optimizations": records, "count": len(records)})
}

// Force handles POST /api/optimizations/:type.
func (h *Handlers) Force(w http.ResponseWriter, r *http.Request) {
	t := reflex.OptimizationType(PathParam(r, "type"))
	// A whole plan plus rollback can outlast the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(h.forceTimeout))
	rec, err := h.backend.Force(r.Context(), t)
	if err != nil {
		WriteNexusError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// Plans handles GET /api/plans.
func (h *Handlers) Plans(w http.ResponseWriter, r *http.Request) {
	plans := h.backend.Plans()
	WriteJSON(w, http.StatusOK, map[string]any{"plans": plans, "count": len(plans)})
}

// parseLimit reads ?limit=, defaulting to defaultLimit and capping at maxLimit.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return 0, false
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, true
}
