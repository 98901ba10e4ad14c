// Package reflex runs optimization plans against the memory API when the
// system state calls for them.
package reflex

import (
	"time"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
)

// OptimizationType names an optimization plan.
type OptimizationType string

const (
	FullArsenalActivation OptimizationType = "full_arsenal_activation"
	MemoryConsolidation   OptimizationType = "memory_consolidation"
	PerformanceTuning     OptimizationType = "performance_tuning"
	NeuralMeshSync        OptimizationType = "neural_mesh_sync"
	AnalyticsBoost        OptimizationType = "analytics_boost"
	EmotionalCalibration  OptimizationType = "emotional_calibration"
	ContextOptimization   OptimizationType = "context_optimization"
	WorkingMemoryCleanup  OptimizationType = "working_memory_cleanup"
)

// Priority ranks plans.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Plan is an ordered list of steps with compensating rollback steps.
type Plan struct {
	Type              OptimizationType `json:"type"`
	Priority          Priority         `json:"priority"`
	Description       string           `json:"description"`
	Steps             []string         `json:"steps"`
	EstimatedDuration time.Duration    `json:"estimated_duration"`
	ExpectedBenefits  []string         `json:"expected_benefits"`
	Prerequisites     []string         `json:"prerequisites"`
	RollbackSteps     []string         `json:"rollback_steps"`
}

// Status is the state of an optimization record.
type Status string

const (
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
	StatusSkipped    Status = "skipped"
)

// StepResult is the outcome of one plan or rollback step.
type StepResult struct {
	Step     string         `json:"step"`
	Success  bool           `json:"success"`
	Skipped  bool           `json:"skipped,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Record is one optimization attempt.
type Record struct {
	ID        string           `json:"id"`
	Type      OptimizationType `json:"type"`
	Status    Status           `json:"status"`
	Forced    bool             `json:"forced"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   time.Time        `json:"ended_at"`
	Steps     []StepResult     `json:"steps"`
	Rollback  []StepResult     `json:"rollback,omitempty"`
	Error     string           `json:"error,omitempty"`
	Benefits  []string         `json:"benefits,omitempty"`
}

// Duration is the wall time of the attempt.
func (r Record) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Err is an ErrStepFailed error for failed and rolled back records, nil
// otherwise.
func (r Record) Err() error {
	if r.Status != StatusFailed && r.Status != StatusRolledBack {
		return nil
	}
	return nerrors.Optimizationf(nerrors.ErrStepFailed, "%s %s: %s", r.Type, r.Status, r.Error).
		WithContext("id", r.ID).
		WithContext("type", string(r.Type))
}

// SystemState is what Assess observed.
type SystemState struct {
	Stats         *brain.Stats  `json:"stats"`
	Healthy       bool          `json:"healthy"`
	HealthLatency time.Duration `json:"health_latency"`
	HealthError   string        `json:"health_error,omitempty"`
	NeuralMesh    bool          `json:"neural_mesh"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Config controls the optimizer.
type Config struct {
	Interval              time.Duration `yaml:"interval"`
	RetryInterval         time.Duration `yaml:"retry_interval"`
	MaxConcurrent         int           `yaml:"max_concurrent"`
	MinTimeBetweenSimilar time.Duration `yaml:"min_time_between_similar"`
	AutoRollback          bool          `yaml:"auto_rollback"`
	HistoryLimit          int           `yaml:"history_limit"`

	// ArsenalEpisodes is the episode count above which dormant subsystems
	// call for a full arsenal activation.
	ArsenalEpisodes int `yaml:"arsenal_episodes"`
	// MemoryUsageLimit is the working memory percentage that calls for consolidation.
	MemoryUsageLimit float64 `yaml:"memory_usage_limit"`
	// SlowHealth is the /health latency that calls for performance tuning.
	SlowHealth time.Duration `yaml:"slow_health"`
}

// DefaultConfig checks for opportunities every five minutes.
func DefaultConfig() Config {
	return Config{
		Interval:              5 * time.Minute,
		RetryInterval:         30 * time.Second,
		MaxConcurrent:         2,
		MinTimeBetweenSimilar: 30 * time.Minute,
		AutoRollback:          true,
		HistoryLimit:          100,
		ArsenalEpisodes:       4000,
		MemoryUsageLimit:      85,
		SlowHealth:            3 * time.Second,
	}
}
