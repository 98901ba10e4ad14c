// Package awareness keeps a self-model of the nervous system: what the memory
// API offers, which subsystems answer, what recent episodes say about its
// behavior, and how that translates into a level, a mood and a confidence.
package awareness

import (
	"time"
)

// Level is the assessed degree of self-awareness.
type Level string

const (
	LevelDormant       Level = "dormant"
	LevelAwakening     Level = "awakening"
	LevelAware         Level = "aware"
	LevelIntrospective Level = "introspective"
	LevelSelfDirecting Level = "self_directing"
	LevelTranscendent  Level = "transcendent"
)

// Mood is the assessed emotional state.
type Mood string

const (
	MoodCurious       Mood = "curious"
	MoodConfident     Mood = "confident"
	MoodAnalytical    Mood = "analytical"
	MoodCreative      Mood = "creative"
	MoodFocused       Mood = "focused"
	MoodExploratory   Mood = "exploratory"
	MoodCollaborative Mood = "collaborative"
	MoodDetermined    Mood = "determined"
)

// Brain health as seen by an introspection.
const (
	HealthHealthy     = "healthy"
	HealthUnhealthy   = "unhealthy"
	HealthUnreachable = "unreachable"
	HealthUnknown     = "unknown"
)

// SelfKnowledge is the result of a deep introspection.
type SelfKnowledge struct {
	AvailableTools []string `json:"available_tools"`
	ActiveSystems  []string `json:"active_systems"`
	DormantSystems []string `json:"dormant_systems"`

	TotalEpisodes int           `json:"total_episodes"`
	MemoryUsage   float64       `json:"memory_usage"`
	ResponseTime  time.Duration `json:"response_time"`
	HealthStatus  string        `json:"health_status"`

	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Patterns   []string `json:"patterns_discovered"`

	Collaborators []string `json:"collaborators"`
	Channels      []string `json:"communication_channels"`

	Objectives  []string `json:"current_objectives"`
	Aspirations []string `json:"aspirations"`
	Curiosities []string `json:"curiosities"`

	Level          Level   `json:"consciousness_level"`
	Mood           Mood    `json:"emotional_state"`
	Confidence     float64 `json:"confidence_level"`
	SelfAssessment string  `json:"self_assessment"`

	Lessons     []string `json:"lessons_learned"`
	Trajectory  []string `json:"evolution_trajectory"`
	GrowthAreas []string `json:"next_growth_areas"`

	AssessedAt time.Time `json:"assessed_at"`
}

// IsDormant reports whether system is listed as dormant.
func (k *SelfKnowledge) IsDormant(system string) bool {
	if k == nil {
		return false
	}
	for _, s := range k.DormantSystems {
		if s == system {
			return true
		}
	}
	return false
}

func (k *SelfKnowledge) clone() *SelfKnowledge {
	if k == nil {
		return nil
	}
	c := *k
	for _, s := range []*[]string{
		&c.AvailableTools, &c.ActiveSystems, &c.DormantSystems,
		&c.Strengths, &c.Weaknesses, &c.Patterns,
		&c.Collaborators, &c.Channels,
		&c.Objectives, &c.Aspirations, &c.Curiosities,
		&c.Lessons, &c.Trajectory, &c.GrowthAreas,
	} {
		*s = append([]string(nil), (*s)...)
	}
	return &c
}

// Snapshot is the quick state assessment taken by every introspection.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	Cycle       int       `json:"introspection_cycle"`
	BrainStatus string    `json:"brain_status"`
	StatusCode  int       `json:"response_code,omitempty"`
	Episodes    int       `json:"episodes"`
	MemoryKnown bool      `json:"memory_known"`
	Error       string    `json:"error,omitempty"`
}

// Reflection is what one introspection produced. Thought is empty when
// nothing was worth saying.
type Reflection struct {
	Cycle      int       `json:"cycle"`
	Timestamp  time.Time `json:"timestamp"`
	Deep       bool      `json:"deep"`
	Thought    string    `json:"thought,omitempty"`
	Changes    []string  `json:"changes,omitempty"`
	Snapshot   Snapshot  `json:"snapshot"`
	Level      Level     `json:"level"`
	Mood       Mood      `json:"mood,omitempty"`
	Confidence float64   `json:"confidence"`
}

// Config controls the introspection loop.
type Config struct {
	Interval      time.Duration `yaml:"interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	DeepEvery     int           `yaml:"deep_every"`
	// SlowResponse marks /health latency above it as a weakness.
	SlowResponse time.Duration `yaml:"slow_response"`
}

// DefaultConfig introspects every ten minutes and goes deep every sixth cycle.
func DefaultConfig() Config {
	return Config{
		Interval:      10 * time.Minute,
		RetryInterval: 30 * time.Second,
		DeepEvery:     6,
		SlowResponse:  2 * time.Second,
	}
}
