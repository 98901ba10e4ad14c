// Package brain is the client for the local memory API the nervous system
// observes and documents itself into.
package brain

import (
	"encoding/json"
	"strings"
	"time"
)

// Stats is the decoded /stats document.
type Stats struct {
	EpisodicMemory EpisodicStats `json:"episodic_memory"`
	WorkingMemory  WorkingStats  `json:"working_memory"`

	// Raw keeps every field the memory API returned.
	Raw map[string]any `json:"-"`
}

// EpisodicStats is the episodic_memory section of /stats.
type EpisodicStats struct {
	TotalEpisodes int `json:"total_episodes"`
}

// WorkingStats is the working_memory section of /stats.
type WorkingStats struct {
	UsagePercentage float64 `json:"usage_percentage"`
}

// TotalEpisodes is a nil-safe accessor.
func (s *Stats) TotalEpisodes() int {
	if s == nil {
		return 0
	}
	return s.EpisodicMemory.TotalEpisodes
}

// MemoryUsage returns the working memory usage in percent, nil-safe.
func (s *Stats) MemoryUsage() float64 {
	if s == nil {
		return 0
	}
	return s.WorkingMemory.UsagePercentage
}

// Episode is one element of /memory/episodic/recent.
type Episode struct {
	ActionType string
	Raw        map[string]any
}

// UnmarshalJSON keeps the whole object and lifts action_type.
func (e *Episode) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Raw = raw
	if at, ok := raw["action_type"].(string); ok {
		e.ActionType = at
	}
	return nil
}

// MarshalJSON writes the episode back as received.
func (e Episode) MarshalJSON() ([]byte, error) {
	if e.Raw == nil {
		return json.Marshal(map[string]any{"action_type": e.ActionType})
	}
	return json.Marshal(e.Raw)
}

// Text is the lowercase JSON rendering used for keyword matching.
func (e Episode) Text() string {
	b, err := json.Marshal(e)
	if err != nil {
		return strings.ToLower(e.ActionType)
	}
	return strings.ToLower(string(b))
}

// Action is a record posted to /memory/action.
type Action struct {
	ActionType    string         `json:"action_type"`
	ActionDetails map[string]any `json:"action_details"`
	ContextState  map[string]any `json:"context_state,omitempty"`
	Tags          []string       `json:"tags"`
}

// SearchRequest is the body of POST /memory/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResult is one hit returned by /memory/search.
type SearchResult map[string]any

// HealthReport describes one /health round trip.
type HealthReport struct {
	StatusCode int            `json:"status_code"`
	Latency    time.Duration  `json:"latency"`
	Body       map[string]any `json:"body,omitempty"`
}

// Healthy reports whether /health answered 200.
func (h *HealthReport) Healthy() bool {
	return h != nil && h.StatusCode == 200
}
