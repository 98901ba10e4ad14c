// Package engine coordinates the change detector, the optimizer and
// self-awareness into one supervised nervous system.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/journal"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/pulse"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

// Brain is the part of the memory API the engine talks to directly.
type Brain interface {
	Health(ctx context.Context) (*brain.HealthReport, error)
	Stats(ctx context.Context) (*brain.Stats, error)
	ProbeSubsystems(ctx context.Context, subsystems []brain.Subsystem) map[string]bool
	RecordAction(ctx context.Context, action brain.Action) error
}

// Journal persists what the engine sees. Close is called at shutdown.
type Journal interface {
	RecordChange(ctx context.Context, ev watcher.ChangeEvent) error
	RecordOptimization(ctx context.Context, rec reflex.Record) error
	RecordHeartbeat(ctx context.Context, hb journal.Heartbeat) error
	RecordIntrospection(ctx context.Context, r awareness.Reflection) error
	RecentChanges(ctx context.Context, limit int) ([]watcher.ChangeEvent, error)
	RecentOptimizations(ctx context.Context, limit int) ([]reflex.Record, error)
	Close() error
}

// Publisher fans engine events out to live subscribers.
type Publisher interface {
	Publish(channel string, data any)
}

// Deps are the engine's collaborators. Journal and Events are optional.
type Deps struct {
	Client    Brain
	Detector  *watcher.Detector
	Optimizer *reflex.Optimizer
	Awareness *awareness.Awareness
	Journal   Journal
	Events    Publisher
	Logger    *zap.Logger
}

// responses maps changes that demand action to the optimization answering them.
var responses = map[watcher.ChangeType]reflex.OptimizationType{
	watcher.MassiveRecovery:        reflex.FullArsenalActivation,
	watcher.PerformanceDegradation: reflex.PerformanceTuning,
	watcher.MemoryConsolidation:    reflex.MemoryConsolidation,
}

// recentChangesLimit bounds the in-memory change buffer used without a journal.
const recentChangesLimit = 100

// Engine is the nervous system.
type Engine struct {
	client    Brain
	detector  *watcher.Detector
	optimizer *reflex.Optimizer
	aware     *awareness.Awareness
	journal   Journal
	events    Publisher
	logger    *zap.Logger
	cfg       Config

	running    atomic.Bool
	emergency  atomic.Bool
	closed     atomic.Bool
	heartbeats atomic.Int64
	actions    atomic.Int64

	// jmu orders journal use against closing it.
	jmu sync.RWMutex

	mu        sync.Mutex
	startedAt time.Time
	budget    []time.Time
	changes   []watcher.ChangeEvent
	cancel    context.CancelFunc

	now func() time.Time
}

// New wires the components together. Zero config values fall back to
// DefaultConfig.
func New(deps Deps, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.StatusEvery <= 0 {
		cfg.StatusEvery = def.StatusEvery
	}
	if cfg.CoordinationInterval <= 0 {
		cfg.CoordinationInterval = def.CoordinationInterval
	}
	if cfg.MaxAutonomousActionsPerHour <= 0 {
		cfg.MaxAutonomousActionsPerHour = def.MaxAutonomousActionsPerHour
	}
	if cfg.EmergencyShutdownThreshold <= 0 {
		cfg.EmergencyShutdownThreshold = def.EmergencyShutdownThreshold
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		client:    deps.Client,
		detector:  deps.Detector,
		optimizer: deps.Optimizer,
		aware:     deps.Awareness,
		journal:   deps.Journal,
		events:    deps.Events,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
	e.detector.Subscribe(e.onChange)
	e.optimizer.OnRecord(e.onRecord)
	e.aware.OnReflection(e.onReflection)
	return e
}

// Awaken brings self-awareness up, verifies the memory API, runs the
// comprehensive health check and documents the awakening.
func (e *Engine) Awaken(ctx context.Context) (*AwakeningReport, error) {
	e.logger.Info("nervous system awakening")

	knowledge, err := e.aware.Awaken(ctx)
	if err != nil {
		return nil, err
	}

	episodes, err := e.verifyBrain(ctx)
	if err != nil {
		return nil, err
	}

	report := &AwakeningReport{
		AwakenedAt: e.now(),
		Episodes:   episodes,
		Knowledge:  knowledge,
		Health:     e.healthCheck(ctx),
	}
	e.documentAwakening(ctx, report)

	e.logger.Info("nervous system awake",
		zap.String("level", string(knowledge.Level)),
		zap.Int("active_systems", len(knowledge.ActiveSystems)),
		zap.String("health", report.Health.Status))
	return report, nil
}

func (e *Engine) verifyBrain(ctx context.Context) (int, error) {
	if _, err := e.client.Health(ctx); err != nil {
		return 0, nerrors.Wrap(err, nerrors.ErrBrainConnection, nerrors.CategoryEngine,
			"memory API health check failed at awakening").
			WithSuggestions(nerrors.SuggestionsFor(nerrors.ErrBrainConnection)...)
	}
	stats, err := e.client.Stats(ctx)
	if err != nil {
		return 0, nerrors.Wrap(err, nerrors.ErrBrainConnection, nerrors.CategoryEngine,
			"memory API stats unavailable at awakening").
			WithSuggestions(nerrors.SuggestionsFor(nerrors.ErrBrainConnection)...)
	}
	e.logger.Info("memory API connected", zap.Int("episodes", stats.TotalEpisodes()))
	return stats.TotalEpisodes(), nil
}

// healthChecked are the advanced subsystems the awakening check reports on.
var healthChecked = []string{brain.NeuralMesh, brain.Analytics, brain.EmotionalContinuity, brain.Consciousness}

func (e *Engine) healthCheck(ctx context.Context) HealthCheck {
	hc := HealthCheck{
		Timestamp:  e.now(),
		Status:     StateHealthy,
		Components: make(map[string]ComponentHealth),
	}

	report, err := e.client.Health(ctx)
	brainHealth := ComponentHealth{Status: StateHealthy}
	if report != nil {
		brainHealth.Latency = report.Latency
	}
	if err != nil {
		brainHealth.Status = StateUnhealthy
		hc.Status = StateUnhealthy
	}
	hc.Components["brain"] = brainHealth

	episodes := 0
	if stats, err := e.client.Stats(ctx); err == nil {
		episodes = stats.TotalEpisodes()
		mem := ComponentHealth{Status: StateHealthy, Episodes: episodes}
		if episodes <= 1000 {
			mem.Status = StateLow
		}
		hc.Components["memory"] = mem
	}

	var probe []brain.Subsystem
	for _, s := range brain.DefaultSubsystems {
		for _, name := range healthChecked {
			if s.Name == name {
				probe = append(probe, s)
			}
		}
	}
	active := e.client.ProbeSubsystems(ctx, probe)
	var inactive []string
	for _, name := range healthChecked {
		state := StateActive
		if !active[name] {
			state = StateInactive
			inactive = append(inactive, name)
		}
		hc.Components[name] = ComponentHealth{Status: state}
	}
	sort.Strings(inactive)

	if len(inactive) > 0 {
		hc.Recommendations = append(hc.Recommendations, "Activate systems: "+strings.Join(inactive, ", "))
	}
	if episodes < 4000 {
		hc.Recommendations = append(hc.Recommendations, "Consider a full memory recovery")
	}
	return hc
}

func (e *Engine) documentAwakening(ctx context.Context, r *AwakeningReport) {
	err := e.client.RecordAction(ctx, brain.Action{
		ActionType: "nervous_system_awakening",
		ActionDetails: map[string]any{
			"system":              "autonomous_nervous_system",
			"awakening_timestamp": r.AwakenedAt.UTC().Format(time.RFC3339),
			"consciousness_level": r.Knowledge.Level,
			"systems_active":      r.Knowledge.ActiveSystems,
			"systems_dormant":     r.Knowledge.DormantSystems,
			"health_report":       r.Health,
			"components":          []string{"DataChangeDetector", "AutoOptimizer", "SelfAwareness"},
			"capabilities": []string{
				"Autonomous change detection",
				"Automatic optimization",
				"Introspective awareness",
				"System coordination",
				"Autonomous decision making",
			},
		},
		ContextState: map[string]any{
			"autonomous_system": true,
			"system_awakening":  true,
			"full_coordination": true,
		},
		Tags: []string{"system_awakening", "autonomous_nervous_system", "coordination"},
	})
	if err != nil {
		e.logger.Warn("documenting awakening failed", zap.Error(err))
	}
}

// Run supervises the heartbeat, detector, optimizer, awareness and
// coordination loops until ctx is done or the emergency limit trips. It
// returns after every loop stopped and shutdown completed.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nerrors.Engine(nerrors.ErrEngineRunning, "engine is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.startedAt = e.now()
	e.cancel = cancel
	e.mu.Unlock()

	e.logger.Info("autonomous operation started",
		zap.Duration("heartbeat", e.cfg.HeartbeatInterval),
		zap.Duration("coordination", e.cfg.CoordinationInterval))

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		pulse.Ticker(gctx, e.cfg.HeartbeatInterval, e.beat)
		return nil
	})
	g.Go(func() error {
		e.detector.Run(gctx)
		return nil
	})
	g.Go(func() error {
		e.optimizer.Run(gctx)
		return nil
	})
	g.Go(func() error {
		e.aware.Run(gctx)
		return nil
	})
	g.Go(func() error {
		pulse.Ticker(gctx, e.cfg.CoordinationInterval, e.coordinate)
		return nil
	})

	stopped := make(chan error, 1)
	go func() { stopped <- g.Wait() }()

	<-runCtx.Done()
	select {
	case <-stopped:
	case <-time.After(e.cfg.ShutdownTimeout):
		e.logger.Warn("loops still running after shutdown timeout", zap.Duration("timeout", e.cfg.ShutdownTimeout))
	}
	e.shutdown()

	if e.emergency.Load() {
		return nerrors.Engine(nerrors.ErrEmergencyShutdown, "autonomous action limit exceeded").
			WithContext("actions", fmt.Sprintf("%d", e.actions.Load())).
			WithContext("threshold", fmt.Sprintf("%d", e.cfg.EmergencyShutdownThreshold))
	}
	return nil
}

func (e *Engine) shutdown() {
	e.running.Store(false)
	e.closeJournal()

	e.mu.Lock()
	uptime := e.now().Sub(e.startedAt)
	e.mu.Unlock()
	e.logger.Info("shutdown complete",
		zap.Duration("uptime", uptime.Round(time.Second)),
		zap.Int64("heartbeats", e.heartbeats.Load()),
		zap.Int64("autonomous_actions", e.actions.Load()))
}

// closeJournal waits for in-flight writes and closes the journal once.
// Later writes are dropped.
func (e *Engine) closeJournal() {
	if e.journal == nil {
		return
	}
	e.jmu.Lock()
	defer e.jmu.Unlock()
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	if err := e.journal.Close(); err != nil {
		e.logger.Warn("closing journal failed", zap.Error(err))
	}
}

// record runs fn against the journal if there is an open one.
func (e *Engine) record(what string, fn func(Journal) error) {
	if e.journal == nil {
		return
	}
	e.jmu.RLock()
	defer e.jmu.RUnlock()
	if e.closed.Load() {
		e.logger.Debug("journal closed, dropping "+what)
		return
	}
	if err := fn(e.journal); err != nil {
		e.logger.Warn("journaling "+what+" failed", zap.Error(err))
	}
}

func (e *Engine) beat(ctx context.Context, n int) {
	e.heartbeats.Store(int64(n))

	e.mu.Lock()
	uptime := e.now().Sub(e.startedAt)
	e.mu.Unlock()

	report, err := e.client.Health(ctx)
	hb := journal.Heartbeat{
		Beat:              n,
		Timestamp:         e.now(),
		Uptime:            uptime,
		AutonomousActions: int(e.actions.Load()),
		BrainHealthy:      err == nil && report.Healthy(),
	}
	e.logger.Debug("heartbeat", zap.Int("beat", n), zap.Duration("uptime", uptime), zap.Bool("brain_healthy", hb.BrainHealthy))

	e.record("heartbeat", func(j Journal) error { return j.RecordHeartbeat(ctx, hb) })
	e.publish(ChannelHeartbeat, hb)

	if n%e.cfg.StatusEvery == 0 {
		e.statusReport()
	}

	if actions := int(e.actions.Load()); actions > e.cfg.EmergencyShutdownThreshold {
		e.emergencyShutdown(ctx, actions)
	}
}

func (e *Engine) statusReport() {
	s := e.Status()
	fields := []zap.Field{
		zap.Int("heartbeats", s.Heartbeats),
		zap.Duration("uptime", s.Uptime.Round(time.Second)),
		zap.Int("autonomous_actions", s.AutonomousActions),
		zap.Int("actions_last_hour", s.ActionsLastHour),
	}
	if s.Level != awareness.LevelDormant {
		fields = append(fields,
			zap.String("level", string(s.Level)),
			zap.String("mood", string(s.Mood)),
			zap.Float64("confidence", s.Confidence))
	}
	e.logger.Info("status report", fields...)
}

func (e *Engine) emergencyShutdown(ctx context.Context, actions int) {
	if !e.emergency.CompareAndSwap(false, true) {
		return
	}
	e.logger.Error("emergency shutdown: too many autonomous actions",
		zap.Int("actions", actions),
		zap.Int("threshold", e.cfg.EmergencyShutdownThreshold))

	err := e.client.RecordAction(ctx, brain.Action{
		ActionType: "emergency_shutdown",
		ActionDetails: map[string]any{
			"reason":        "Too many autonomous actions",
			"actions_count": actions,
			"threshold":     e.cfg.EmergencyShutdownThreshold,
			"timestamp":     e.now().UTC().Format(time.RFC3339),
		},
		Tags: []string{"emergency", "shutdown", "autonomous_limit"},
	})
	if err != nil {
		e.logger.Warn("documenting emergency shutdown failed", zap.Error(err))
	}

	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// onChange counts the change as an autonomous action and, when it demands a
// response, forces the matching optimization within the hourly budget.
func (e *Engine) onChange(ctx context.Context, ev watcher.ChangeEvent) {
	e.actions.Add(1)
	e.remember(ev)
	e.record("change", func(j Journal) error { return j.RecordChange(ctx, ev) })
	e.publish(ChannelChanges, ev)

	if !ev.RequiresAction || !ev.Severity.AtLeast(watcher.SeverityHigh) {
		return
	}
	t, ok := responses[ev.Type]
	if !ok {
		return
	}
	log := e.logger.With(zap.String("change", string(ev.Type)), zap.String("optimization", string(t)))
	if err := e.takeBudget(); err != nil {
		log.Warn("not responding to change", zap.Error(err))
		return
	}

	log.Info("responding to change")
	rec, err := e.optimizer.Force(ctx, t)
	if err != nil {
		log.Warn("response optimization not started", zap.Error(err))
		return
	}
	if err := rec.Err(); err != nil {
		log.Warn("response optimization failed", zap.Error(err))
		return
	}
	log.Info("response optimization finished", zap.String("status", string(rec.Status)))
}

// takeBudget reserves one action in the sliding one-hour window, failing
// with ErrActionBudgetExhausted when the window is full.
func (e *Engine) takeBudget() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	cutoff := now.Add(-time.Hour)
	kept := e.budget[:0]
	for _, t := range e.budget {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.budget = kept
	if len(e.budget) >= e.cfg.MaxAutonomousActionsPerHour {
		return nerrors.Engine(nerrors.ErrActionBudgetExhausted, "hourly action budget exhausted").
			WithContext("budget", strconv.Itoa(e.cfg.MaxAutonomousActionsPerHour))
	}
	e.budget = append(e.budget, now)
	return nil
}

func (e *Engine) actionsLastHour() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := e.now().Add(-time.Hour)
	n := 0
	for _, t := range e.budget {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

func (e *Engine) remember(ev watcher.ChangeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changes = append(e.changes, ev)
	if len(e.changes) > recentChangesLimit {
		e.changes = append([]watcher.ChangeEvent(nil), e.changes[len(e.changes)-recentChangesLimit:]...)
	}
}

// coordinate asks for a neural mesh sync when awareness sees too many
// dormant systems and the mesh is among them.
func (e *Engine) coordinate(ctx context.Context, _ int) {
	k := e.aware.Knowledge()
	if k == nil || len(k.DormantSystems) <= 2 {
		return
	}
	e.logger.Info("awareness reports dormant systems", zap.Strings("dormant", k.DormantSystems))
	if !k.IsDormant(brain.NeuralMesh) {
		return
	}
	if ok, reason := e.optimizer.ShouldExecute(reflex.NeuralMeshSync); !ok {
		e.logger.Debug("neural mesh sync deferred", zap.String("reason", reason))
		return
	}
	state, err := e.optimizer.Assess(ctx)
	if err != nil {
		e.logger.Warn("coordination assessment failed", zap.Error(err))
		return
	}
	if err := e.takeBudget(); err != nil {
		e.logger.Warn("skipping neural mesh sync", zap.Error(err))
		return
	}
	rec, err := e.optimizer.Execute(ctx, reflex.NeuralMeshSync, state)
	if err != nil {
		e.logger.Warn("neural mesh sync not started", zap.Error(err))
		return
	}
	e.logger.Info("neural mesh sync finished", zap.String("status", string(rec.Status)))
}

func (e *Engine) onRecord(rec reflex.Record) {
	e.record("optimization", func(j Journal) error { return j.RecordOptimization(context.Background(), rec) })
	e.publish(ChannelOptimizations, rec)
}

func (e *Engine) onReflection(r awareness.Reflection) {
	e.record("introspection", func(j Journal) error { return j.RecordIntrospection(context.Background(), r) })
	e.publish(ChannelAwareness, r)
}

func (e *Engine) publish(channel string, data any) {
	if e.events != nil {
		e.events.Publish(channel, data)
	}
}

// Status reports the engine's counters and the current awareness.
func (e *Engine) Status() Status {
	e.mu.Lock()
	startedAt := e.startedAt
	e.mu.Unlock()

	s := Status{
		Running:           e.running.Load(),
		Emergency:         e.emergency.Load(),
		StartedAt:         startedAt,
		Heartbeats:        int(e.heartbeats.Load()),
		AutonomousActions: int(e.actions.Load()),
		ActionsLastHour:   e.actionsLastHour(),
		Components: map[string]bool{
			"watcher":   e.detector.Running(),
			"optimizer": e.optimizer.Running(),
			"awareness": e.aware.Running(),
		},
		Level: awareness.LevelDormant,
	}
	if s.Running {
		s.Uptime = e.now().Sub(startedAt)
	}
	if k := e.aware.Knowledge(); k != nil {
		s.Level, s.Mood, s.Confidence = k.Level, k.Mood, k.Confidence
	}
	return s
}

// Knowledge returns the current self-knowledge, nil before awakening.
func (e *Engine) Knowledge() *awareness.SelfKnowledge {
	return e.aware.Knowledge()
}

// Plans lists the optimization plans.
func (e *Engine) Plans() []reflex.Plan {
	return e.optimizer.Plans()
}

// Force runs optimization t on operator request. It does not count against
// the autonomous action budget.
func (e *Engine) Force(ctx context.Context, t reflex.OptimizationType) (*reflex.Record, error) {
	return e.optimizer.Force(ctx, t)
}

// RecentChanges returns up to limit changes, newest first, from the journal
// when there is one.
func (e *Engine) RecentChanges(ctx context.Context, limit int) ([]watcher.ChangeEvent, error) {
	if e.journal != nil {
		e.jmu.RLock()
		if !e.closed.Load() {
			defer e.jmu.RUnlock()
			return e.journal.RecentChanges(ctx, limit)
		}
		e.jmu.RUnlock()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]watcher.ChangeEvent, 0, len(e.changes))
	for i := len(e.changes) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, e.changes[i])
	}
	return out, nil
}

// RecentOptimizations returns up to limit optimization records, newest first.
func (e *Engine) RecentOptimizations(ctx context.Context, limit int) ([]reflex.Record, error) {
	if e.journal != nil {
		e.jmu.RLock()
		if !e.closed.Load() {
			defer e.jmu.RUnlock()
			return e.journal.RecentOptimizations(ctx, limit)
		}
		e.jmu.RUnlock()
	}
	history := e.optimizer.History()
	out := make([]reflex.Record, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, history[i])
	}
	return out, nil
}
