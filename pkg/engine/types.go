package engine

import (
	"time"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
)

// Config controls the engine's own loops and safety limits.
type Config struct {
	HeartbeatInterval           time.Duration `yaml:"heartbeat_interval"`
	StatusEvery                 int           `yaml:"status_every"`
	CoordinationInterval        time.Duration `yaml:"coordination_interval"`
	MaxAutonomousActionsPerHour int           `yaml:"max_autonomous_actions_per_hour"`
	EmergencyShutdownThreshold  int           `yaml:"emergency_shutdown_threshold"`
	ShutdownTimeout             time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig beats once a minute and coordinates every ten minutes.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:           time.Minute,
		StatusEvery:                 10,
		CoordinationInterval:        10 * time.Minute,
		MaxAutonomousActionsPerHour: 20,
		EmergencyShutdownThreshold:  100,
		ShutdownTimeout:             30 * time.Second,
	}
}

// Websocket channels the engine publishes on.
const (
	ChannelChanges       = "changes"
	ChannelOptimizations = "optimizations"
	ChannelHeartbeat     = "heartbeat"
	ChannelAwareness     = "awareness"
)

// Channels lists every channel in publishing order.
func Channels() []string {
	return []string{ChannelChanges, ChannelOptimizations, ChannelHeartbeat, ChannelAwareness}
}

// Component states reported by the health check.
const (
	StateHealthy   = "healthy"
	StateUnhealthy = "unhealthy"
	StateLow       = "low"
	StateActive    = "active"
	StateInactive  = "inactive"
)

// ComponentHealth is one entry of a HealthCheck.
type ComponentHealth struct {
	Status   string        `json:"status"`
	Latency  time.Duration `json:"latency,omitempty"`
	Episodes int           `json:"episodes,omitempty"`
}

// HealthCheck is the comprehensive check taken at awakening.
type HealthCheck struct {
	Timestamp       time.Time                  `json:"timestamp"`
	Status          string                     `json:"status"`
	Components      map[string]ComponentHealth `json:"components"`
	Recommendations []string                   `json:"recommendations"`
}

// AwakeningReport is the outcome of Awaken.
type AwakeningReport struct {
	AwakenedAt time.Time                `json:"awakened_at"`
	Episodes   int                      `json:"episodes"`
	Knowledge  *awareness.SelfKnowledge `json:"knowledge"`
	Health     HealthCheck              `json:"health"`
}

// Status is a point-in-time view of the engine.
type Status struct {
	Running           bool            `json:"running"`
	Emergency         bool            `json:"emergency"`
	StartedAt         time.Time       `json:"started_at,omitempty"`
	Uptime            time.Duration   `json:"uptime"`
	Heartbeats        int             `json:"heartbeats"`
	AutonomousActions int             `json:"autonomous_actions"`
	ActionsLastHour   int             `json:"actions_last_hour"`
	Components        map[string]bool `json:"components"`
	Level             awareness.Level `json:"level"`
	Mood              awareness.Mood  `json:"mood,omitempty"`
	Confidence        float64         `json:"confidence"`
}
