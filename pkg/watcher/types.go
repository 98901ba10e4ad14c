// Package watcher detects significant changes in the memory API and reports
// them as ChangeEvents.
package watcher

import (
	"fmt"
	"time"
)

// ChangeType classifies a detected change.
type ChangeType string

const (
	MassiveRecovery        ChangeType = "massive_recovery"
	SignificantGrowth      ChangeType = "significant_growth"
	PatternEmergence       ChangeType = "pattern_emergence"
	PerformanceDegradation ChangeType = "performance_degradation"
	AnomalyDetected        ChangeType = "anomaly_detected"
	BreakthroughMoment     ChangeType = "breakthrough_moment"
	MemoryConsolidation    ChangeType = "memory_consolidation"
	SystemOptimization     ChangeType = "system_optimization"
)

// Severity is ordered low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// AtLeast reports whether s is as severe as other. Unknown severities rank lowest.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// ChangeEvent is one detected change.
type ChangeEvent struct {
	ID               string         `json:"id"`
	Type             ChangeType     `json:"type"`
	Severity         Severity       `json:"severity"`
	Description      string         `json:"description"`
	Data             map[string]any `json:"data"`
	Timestamp        time.Time      `json:"timestamp"`
	RequiresAction   bool           `json:"requires_action"`
	SuggestedActions []string       `json:"suggested_actions"`
}

// Thresholds tune the detection rules.
type Thresholds struct {
	// MassiveRecovery is the episode growth per scan that counts as a recovery.
	MassiveRecovery int `yaml:"massive_recovery"`
	// SignificantGrowth is the smaller growth that is still worth reporting.
	SignificantGrowth int `yaml:"significant_growth"`
	// MemoryPressure is the working memory usage fraction (0..1) that triggers consolidation.
	MemoryPressure float64 `yaml:"memory_pressure"`
	// PatternConcentration is the share of recent episodes one action type must exceed.
	PatternConcentration float64       `yaml:"pattern_concentration"`
	SlowResponse         time.Duration `yaml:"slow_response"`
	VerySlowResponse     time.Duration `yaml:"very_slow_response"`
	RecentSample         int           `yaml:"recent_sample"`
	BreakthroughWindow   int           `yaml:"breakthrough_window"`
}

// DefaultThresholds returns the stock detection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MassiveRecovery:      1000,
		SignificantGrowth:    100,
		MemoryPressure:       0.9,
		PatternConcentration: 0.5,
		SlowResponse:         2 * time.Second,
		VerySlowResponse:     5 * time.Second,
		RecentSample:         50,
		BreakthroughWindow:   10,
	}
}

// Validate checks the thresholds are usable.
func (t Thresholds) Validate() error {
	switch {
	case t.SignificantGrowth <= 0:
		return fmt.Errorf("significant_growth must be positive")
	case t.MassiveRecovery <= t.SignificantGrowth:
		return fmt.Errorf("massive_recovery (%d) must exceed significant_growth (%d)", t.MassiveRecovery, t.SignificantGrowth)
	case t.MemoryPressure <= 0 || t.MemoryPressure > 1:
		return fmt.Errorf("memory_pressure must be in (0, 1]")
	case t.PatternConcentration <= 0 || t.PatternConcentration > 1:
		return fmt.Errorf("pattern_concentration must be in (0, 1]")
	case t.SlowResponse <= 0 || t.VerySlowResponse < t.SlowResponse:
		return fmt.Errorf("slow_response must be positive and not above very_slow_response")
	case t.RecentSample <= 0 || t.BreakthroughWindow <= 0:
		return fmt.Errorf("recent_sample and breakthrough_window must be positive")
	}
	return nil
}

// Config controls the detector loop.
type Config struct {
	Interval      time.Duration `yaml:"interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	// Cooldown suppresses repeats of the same change type. Zero disables it.
	Cooldown   time.Duration `yaml:"cooldown"`
	Thresholds Thresholds    `yaml:"thresholds"`
}

// DefaultConfig scans every minute.
func DefaultConfig() Config {
	return Config{
		Interval:      time.Minute,
		RetryInterval: 5 * time.Second,
		Thresholds:    DefaultThresholds(),
	}
}
