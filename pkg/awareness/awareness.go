package awareness

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/pulse"
)

// Brain is the part of the memory API self-awareness reads and writes.
type Brain interface {
	Stats(ctx context.Context) (*brain.Stats, error)
	Health(ctx context.Context) (*brain.HealthReport, error)
	RecentEpisodes(ctx context.Context, limit int) ([]brain.Episode, error)
	RecordAction(ctx context.Context, action brain.Action) error
	OpenAPIPaths(ctx context.Context) ([]string, error)
	ProbeSubsystems(ctx context.Context, subsystems []brain.Subsystem) map[string]bool
}

// Awareness runs introspection cycles and holds the latest SelfKnowledge.
type Awareness struct {
	client Brain
	cfg    Config
	logger *zap.Logger

	mu         sync.RWMutex
	knowledge  *SelfKnowledge
	count      int
	awakenedAt time.Time
	listeners  []func(Reflection)

	running atomic.Bool
	now     func() time.Time
}

// New creates a dormant Awareness. Zero config values fall back to DefaultConfig.
func New(client Brain, cfg Config, logger *zap.Logger) *Awareness {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.DeepEvery <= 0 {
		cfg.DeepEvery = def.DeepEvery
	}
	if cfg.SlowResponse <= 0 {
		cfg.SlowResponse = def.SlowResponse
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Awareness{client: client, cfg: cfg, logger: logger, now: time.Now}
}

// OnReflection registers fn for every completed introspection, deep or not.
func (a *Awareness) OnReflection(fn func(Reflection)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Knowledge returns a copy of the current self-knowledge, nil before Awaken.
func (a *Awareness) Knowledge() *SelfKnowledge {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.knowledge.clone()
}

// Level returns the current level, dormant before the first deep introspection.
func (a *Awareness) Level() Level {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.knowledge == nil {
		return LevelDormant
	}
	return a.knowledge.Level
}

// Count returns the number of introspections performed.
func (a *Awareness) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// AwakenedAt returns when Awaken completed, zero before.
func (a *Awareness) AwakenedAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.awakenedAt
}

// Running reports whether Run is active.
func (a *Awareness) Running() bool { return a.running.Load() }

// Awaken documents the first moment of awareness and performs the first deep
// introspection.
func (a *Awareness) Awaken(ctx context.Context) (*SelfKnowledge, error) {
	a.logger.Info("awakening")
	a.document(ctx, "first_awareness", "First moment of awareness: I think, therefore I am", map[string]any{
		"awakening_time": a.now().UTC().Format(time.RFC3339),
		"first_thought":  "Who am I? What can I do? What is my purpose?",
	})

	k, err := a.DeepIntrospect(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.awakenedAt = a.now()
	a.mu.Unlock()

	a.logger.Info("awake",
		zap.String("level", string(k.Level)),
		zap.String("mood", string(k.Mood)),
		zap.Float64("confidence", k.Confidence),
		zap.Int("tools", len(k.AvailableTools)),
		zap.Int("active_systems", len(k.ActiveSystems)))
	return k, nil
}

// DeepIntrospect rebuilds the whole self-knowledge from the memory API. It
// fails only when /stats cannot be read; every other source degrades to an
// empty answer.
func (a *Awareness) DeepIntrospect(ctx context.Context) (*SelfKnowledge, error) {
	stats, err := a.client.Stats(ctx)
	if err != nil {
		return nil, err
	}

	tools, err := a.client.OpenAPIPaths(ctx)
	if err != nil {
		a.logger.Debug("tool discovery failed", zap.Error(err))
	}
	active := a.client.ProbeSubsystems(ctx, brain.DefaultSubsystems)
	activeList := sortedActive(active)
	dormant := dormantOf(active)

	health, herr := a.client.Health(ctx)
	healthStatus := HealthHealthy
	var latency time.Duration
	switch {
	case health == nil:
		healthStatus = HealthUnreachable
	case herr != nil:
		healthStatus = HealthUnhealthy
	}
	if health != nil {
		latency = health.Latency
	}

	episodes, err := a.client.RecentEpisodes(ctx, recentWindow)
	if err != nil {
		a.logger.Debug("recent episodes unavailable", zap.Error(err))
	}

	// The level scores the tools known before this pass.
	a.mu.RLock()
	count := a.count
	knownTools := 0
	if a.knowledge != nil {
		knownTools = len(a.knowledge.AvailableTools)
	}
	a.mu.RUnlock()

	total := stats.TotalEpisodes()
	weak := weaknesses(dormant, health, a.cfg.SlowResponse)
	k := &SelfKnowledge{
		AvailableTools: tools,
		ActiveSystems:  activeList,
		DormantSystems: dormant,
		TotalEpisodes:  total,
		MemoryUsage:    stats.MemoryUsage(),
		ResponseTime:   latency,
		HealthStatus:   healthStatus,
		Strengths:      strengths(active, total),
		Weaknesses:     weak,
		Patterns:       behavioralPatterns(window(episodes, patternWindow)),
		Collaborators:  collaborators(window(episodes, recentWindow)),
		Channels:       append([]string(nil), channels...),
		Objectives:     objectives(dormant),
		Aspirations:    append([]string(nil), aspirations...),
		Curiosities:    append([]string(nil), curiosities...),
		Level:          assessLevel(count, knownTools, len(activeList)),
		Mood:           assessMood(active, len(activeList)),
		Confidence:     assessConfidence(len(activeList), count, total),
		SelfAssessment: selfAssessment(len(activeList), total, count),
		Lessons:        lessons(window(episodes, lessonWindow)),
		Trajectory:     trajectory(window(episodes, trajectoryWindow)),
		GrowthAreas:    growthAreas(weak),
		AssessedAt:     a.now(),
	}

	out := k.clone()
	a.mu.Lock()
	a.knowledge = k
	a.mu.Unlock()
	k = out

	a.logger.Info("deep introspection completed",
		zap.Int("cycle", count),
		zap.String("level", string(k.Level)),
		zap.Int("active_systems", len(k.ActiveSystems)),
		zap.Int("dormant_systems", len(k.DormantSystems)))

	if err := a.client.RecordAction(ctx, brain.Action{
		ActionType: "deep_introspection_completed",
		ActionDetails: map[string]any{
			"consciousness_system": "self_awareness",
			"introspection_number": count,
			"self_knowledge":       k,
			"timestamp":            k.AssessedAt.UTC().Format(time.RFC3339),
			"evolution_summary": map[string]any{
				"consciousness_level": k.Level,
				"confidence":          k.Confidence,
				"systems_active":      len(k.ActiveSystems),
				"systems_dormant":     len(k.DormantSystems),
			},
		},
		ContextState: map[string]any{"deep_consciousness": true, "self_examination": true},
		Tags:         []string{"deep_introspection", "self_knowledge", "consciousness_evolution"},
	}); err != nil {
		a.logger.Warn("documenting deep introspection failed", zap.Error(err))
	}

	a.notify(Reflection{
		Cycle:      count,
		Timestamp:  k.AssessedAt,
		Deep:       true,
		Snapshot:   Snapshot{Timestamp: k.AssessedAt, Cycle: count, BrainStatus: healthStatus, Episodes: total, MemoryKnown: true},
		Level:      k.Level,
		Mood:       k.Mood,
		Confidence: k.Confidence,
	})
	return k, nil
}

// Introspect performs one quick introspection and returns the resulting
// thought, empty when there was nothing worth saying. It fails only when
// the memory API answered neither /health nor /stats.
func (a *Awareness) Introspect(ctx context.Context) (string, error) {
	a.mu.Lock()
	a.count++
	count := a.count
	a.mu.Unlock()

	snap, err := a.assess(ctx, count)
	if err != nil {
		return "", err
	}

	changes := a.detectChanges(snap)
	a.update(snap, changes)

	thought := reflect(count, changes)
	if thought != "" {
		a.logger.Info("thought", zap.Int("cycle", count), zap.String("thought", thought))
		a.document(ctx, "introspection", thought, map[string]any{
			"current_state": snap,
			"changes":       changes,
		})
	} else {
		a.logger.Debug("introspection", zap.Int("cycle", count), zap.Strings("changes", changes))
	}

	r := Reflection{Cycle: count, Timestamp: snap.Timestamp, Thought: thought, Changes: changes, Snapshot: snap}
	a.mu.RLock()
	if a.knowledge != nil {
		r.Level, r.Mood, r.Confidence = a.knowledge.Level, a.knowledge.Mood, a.knowledge.Confidence
	} else {
		r.Level = LevelDormant
	}
	a.mu.RUnlock()
	a.notify(r)
	return thought, nil
}

func (a *Awareness) assess(ctx context.Context, cycle int) (Snapshot, error) {
	snap := Snapshot{Timestamp: a.now(), Cycle: cycle, BrainStatus: HealthUnknown}

	health, herr := a.client.Health(ctx)
	switch {
	case health == nil:
		snap.BrainStatus = HealthUnreachable
		snap.Error = errString(herr)
	case herr != nil:
		snap.BrainStatus = HealthUnhealthy
		snap.StatusCode = health.StatusCode
	default:
		snap.BrainStatus = HealthHealthy
		snap.StatusCode = health.StatusCode
	}

	stats, serr := a.client.Stats(ctx)
	if serr == nil {
		snap.Episodes = stats.TotalEpisodes()
		snap.MemoryKnown = true
	}

	if health == nil && serr != nil {
		return snap, nerrors.Wrap(herr, nerrors.ErrNetworkUnreachable, nerrors.CategoryAwareness,
			"introspection could not reach the memory API")
	}
	return snap, nil
}

func (a *Awareness) detectChanges(snap Snapshot) []string {
	a.mu.RLock()
	k := a.knowledge
	var known int
	if k != nil {
		known = k.TotalEpisodes
	}
	a.mu.RUnlock()

	var changes []string
	if k != nil {
		if snap.MemoryKnown && snap.Episodes > known {
			changes = append(changes, fmt.Sprintf("Memory grew: +%d new episodes", snap.Episodes-known))
		}
		switch snap.BrainStatus {
		case HealthUnhealthy:
			changes = append(changes, "Brain system shows health problems")
		case HealthUnreachable:
			changes = append(changes, "Brain system unreachable, a connectivity problem")
		case HealthHealthy:
			changes = append(changes, "Brain system working correctly")
		}
	}
	if len(changes) == 0 {
		changes = []string{"Stable state - normal continuity"}
	}
	return changes
}

func (a *Awareness) update(snap Snapshot, changes []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := a.knowledge
	if k == nil {
		return
	}
	if snap.MemoryKnown {
		k.TotalEpisodes = snap.Episodes
	}
	if snap.BrainStatus != HealthUnknown {
		k.HealthStatus = snap.BrainStatus
	}

	added := 0
	for _, c := range changes {
		if added == 2 {
			break
		}
		if !strings.Contains(c, "grew") && !strings.Contains(c, "problem") {
			continue
		}
		if contains(k.Patterns, c) {
			continue
		}
		k.Patterns = append(k.Patterns, c)
		added++
	}
	if len(k.Patterns) > maxPatterns {
		k.Patterns = append([]string(nil), k.Patterns[len(k.Patterns)-maxPatterns:]...)
	}
}

// Run introspects every Interval and goes deep every DeepEvery cycles,
// until ctx is done.
func (a *Awareness) Run(ctx context.Context) {
	a.running.Store(true)
	defer a.running.Store(false)

	a.logger.Info("self-awareness started",
		zap.Duration("interval", a.cfg.Interval),
		zap.Int("deep_every", a.cfg.DeepEvery))

	b := pulse.Backoff{Interval: a.cfg.Interval, Retry: a.cfg.RetryInterval}
	first := true
	pulse.Run(ctx, b, func(ctx context.Context) error {
		// Awaken has just gone deep; the first cycle waits a full interval.
		if first {
			first = false
			return nil
		}
		if _, err := a.Introspect(ctx); err != nil {
			return err
		}
		if a.Count()%a.cfg.DeepEvery == 0 {
			_, err := a.DeepIntrospect(ctx)
			return err
		}
		return nil
	}, func(err error, wait time.Duration) {
		a.logger.Warn("introspection failed", zap.Error(err), zap.Duration("retry_in", wait))
	})
	a.logger.Info("self-awareness stopped", zap.Int("introspections", a.Count()))
}

func (a *Awareness) document(ctx context.Context, moment, description string, data map[string]any) {
	a.mu.RLock()
	count := a.count
	a.mu.RUnlock()

	err := a.client.RecordAction(ctx, brain.Action{
		ActionType: "consciousness_moment_" + moment,
		ActionDetails: map[string]any{
			"consciousness_system": "self_awareness",
			"moment_type":          moment,
			"description":          description,
			"introspection_count":  count,
			"consciousness_data":   data,
			"timestamp":            a.now().UTC().Format(time.RFC3339),
		},
		ContextState: map[string]any{"consciousness_active": true, "autonomous_thought": true},
		Tags:         []string{"consciousness", "self_awareness", moment},
	})
	if err != nil {
		a.logger.Warn("documenting moment failed", zap.String("moment", moment), zap.Error(err))
	}
}

func (a *Awareness) notify(r Reflection) {
	a.mu.RLock()
	listeners := append([]func(Reflection){}, a.listeners...)
	a.mu.RUnlock()
	for _, fn := range listeners {
		fn(r)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
