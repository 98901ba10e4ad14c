package reflex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/pulse"
)

// Brain is the part of the memory API the optimizer uses.
type Brain interface {
	Stats(ctx context.Context) (*brain.Stats, error)
	Health(ctx context.Context) (*brain.HealthReport, error)
	Probe(ctx context.Context, endpoint string) bool
	Get(ctx context.Context, endpoint string) (*brain.Response, error)
	Post(ctx context.Context, endpoint string, body any) (*brain.Response, error)
	RecordAction(ctx context.Context, action brain.Action) error
}

// Optimizer assesses the system and executes optimization plans.
type Optimizer struct {
	client Brain
	cfg    Config
	logger *zap.Logger
	steps  *StepRegistry
	plans  map[OptimizationType]Plan
	sem    *semaphore.Weighted

	inFlight atomic.Int32
	running  atomic.Bool

	mu        sync.RWMutex
	lastRun   map[OptimizationType]time.Time
	history   []Record
	listeners []func(Record)

	now func() time.Time
}

// New creates an optimizer with the default plans and built-in steps.
func New(client Brain, cfg Config, logger *zap.Logger) *Optimizer {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	steps := NewStepRegistry()
	registerBuiltinSteps(steps)

	return &Optimizer{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		steps:   steps,
		plans:   DefaultPlans(),
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		lastRun: make(map[OptimizationType]time.Time),
		now:     time.Now,
	}
}

// RegisterStep adds a custom step implementation.
func (o *Optimizer) RegisterStep(name string, fn StepFunc) error {
	return o.steps.Register(name, fn)
}

// Steps returns the names of every implemented step.
func (o *Optimizer) Steps() []string { return o.steps.List() }

// OnRecord registers fn to receive every finished record.
func (o *Optimizer) OnRecord(fn func(Record)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// Plan returns the plan for t.
func (o *Optimizer) Plan(t OptimizationType) (Plan, bool) {
	p, ok := o.plans[t]
	return p, ok
}

// Plans returns every plan, sorted by type.
func (o *Optimizer) Plans() []Plan {
	out := make([]Plan, 0, len(o.plans))
	for _, p := range o.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// History returns finished records, oldest first.
func (o *Optimizer) History() []Record {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Record, len(o.history))
	copy(out, o.history)
	return out
}

// InFlight returns how many optimizations are executing.
func (o *Optimizer) InFlight() int { return int(o.inFlight.Load()) }

// Running reports whether Run is active.
func (o *Optimizer) Running() bool { return o.running.Load() }

// Assess gathers stats, health and neural mesh reachability.
func (o *Optimizer) Assess(ctx context.Context) (*SystemState, error) {
	stats, err := o.client.Stats(ctx)
	if err != nil {
		return nil, err
	}
	state := &SystemState{Stats: stats, Timestamp: o.now()}

	report, err := o.client.Health(ctx)
	if report != nil {
		state.HealthLatency = report.Latency
	}
	state.Healthy = err == nil && report.Healthy()
	if err != nil {
		state.HealthError = err.Error()
	}
	state.NeuralMesh = o.client.Probe(ctx, "/neural-mesh/stats")
	return state, nil
}

// Opportunities lists the optimizations the state calls for.
func (o *Optimizer) Opportunities(ctx context.Context, state *SystemState) []OptimizationType {
	if state == nil {
		return nil
	}
	var out []OptimizationType

	if state.Stats.TotalEpisodes() > o.cfg.ArsenalEpisodes {
		if !state.NeuralMesh || !o.client.Probe(ctx, "/emotional/status") {
			out = append(out, FullArsenalActivation)
		}
	}
	if state.Stats.MemoryUsage() > o.cfg.MemoryUsageLimit {
		out = append(out, MemoryConsolidation)
	}
	if !state.Healthy || state.HealthLatency > o.cfg.SlowHealth {
		out = append(out, PerformanceTuning)
	}
	if !state.NeuralMesh {
		out = append(out, NeuralMeshSync)
	}
	return out
}

// ShouldExecute applies the cooldown and concurrency limits.
func (o *Optimizer) ShouldExecute(t OptimizationType) (bool, string) {
	if err := o.checkCooldown(t); err != nil {
		return false, err.Message
	}
	if n := o.InFlight(); n >= o.cfg.MaxConcurrent {
		return false, fmt.Sprintf("%d optimizations already running", n)
	}
	return true, ""
}

// checkCooldown fails while t is within MinTimeBetweenSimilar of its last
// completed run.
func (o *Optimizer) checkCooldown(t OptimizationType) *nerrors.NexusError {
	o.mu.RLock()
	last, ok := o.lastRun[t]
	o.mu.RUnlock()
	if !ok {
		return nil
	}
	since := o.now().Sub(last)
	if since >= o.cfg.MinTimeBetweenSimilar {
		return nil
	}
	return nerrors.Optimizationf(nerrors.ErrOptimizationCooldown, "ran %s ago, cooldown is %s",
		since.Round(time.Second), o.cfg.MinTimeBetweenSimilar).
		WithContext("type", string(t))
}

// Execute runs the plan for t against state. It refuses while t is cooling
// down. Unmet prerequisites yield a skipped record that is neither kept in
// history nor documented. The returned error is set only when nothing was
// attempted.
func (o *Optimizer) Execute(ctx context.Context, t OptimizationType, state *SystemState) (*Record, error) {
	return o.execute(ctx, t, state, false)
}

// Force assesses the system and executes t, ignoring cooldown and
// prerequisites. The concurrency limit still applies.
func (o *Optimizer) Force(ctx context.Context, t OptimizationType) (*Record, error) {
	if _, ok := o.plans[t]; !ok {
		return nil, unknownPlan(t)
	}
	state, err := o.Assess(ctx)
	if err != nil {
		return nil, err
	}
	o.logger.Info("forcing optimization", zap.String("type", string(t)))
	return o.execute(ctx, t, state, true)
}

func unknownPlan(t OptimizationType) error {
	return nerrors.Optimizationf(nerrors.ErrUnknownOptimization, "no plan for optimization %q", t).
		WithContext("type", string(t))
}

func (o *Optimizer) execute(ctx context.Context, t OptimizationType, state *SystemState, forced bool) (*Record, error) {
	plan, ok := o.plans[t]
	if !ok {
		return nil, unknownPlan(t)
	}
	if !forced {
		if err := o.checkCooldown(t); err != nil {
			return nil, err
		}
	}
	if !o.sem.TryAcquire(1) {
		return nil, nerrors.Optimizationf(nerrors.ErrOptimizationBusy, "%d optimizations already running", o.cfg.MaxConcurrent).
			WithContext("type", string(t))
	}
	o.inFlight.Add(1)
	defer func() {
		o.inFlight.Add(-1)
		o.sem.Release(1)
	}()

	rec := Record{
		ID:        uuid.NewString(),
		Type:      t,
		Status:    StatusRunning,
		Forced:    forced,
		StartedAt: o.now(),
	}
	log := o.logger.With(zap.String("id", rec.ID), zap.String("type", string(t)))

	if !forced {
		if missing := unmetPrerequisites(plan, state, o.cfg); len(missing) > 0 {
			rec.Status = StatusSkipped
			rec.Error = fmt.Sprintf("prerequisites not met: %v", missing)
			rec.EndedAt = o.now()
			log.Debug("optimization skipped", zap.Strings("missing", missing))
			return &rec, nil
		}
	}

	log.Info("optimization started",
		zap.String("priority", string(plan.Priority)),
		zap.String("description", plan.Description),
		zap.Duration("estimated", plan.EstimatedDuration))

	env := StepEnv{
		Client:   o.client,
		Type:     t,
		State:    state,
		Snapshot: snapshot(state),
		Now:      rec.StartedAt,
	}

	for i, name := range plan.Steps {
		if err := ctx.Err(); err != nil {
			rec.Error = fmt.Sprintf("canceled before step %s", name)
			rec.Status = StatusFailed
			break
		}
		res := o.steps.Run(ctx, name, env)
		rec.Steps = append(rec.Steps, res)
		if res.Success {
			log.Debug("step completed",
				zap.Int("step", i+1), zap.Int("of", len(plan.Steps)),
				zap.String("name", name), zap.Bool("skipped", res.Skipped))
			continue
		}

		rec.Error = fmt.Sprintf("step %s failed: %s", name, res.Error)
		log.Warn("step failed", zap.String("name", name), zap.String("error", res.Error))
		rec.Status = StatusFailed
		if o.cfg.AutoRollback {
			env.Failure = rec.Error
			if o.rollback(ctx, plan, env, &rec) {
				rec.Status = StatusRolledBack
			}
		}
		break
	}

	if rec.Status == StatusRunning {
		rec.Status = StatusCompleted
		rec.Benefits = plan.ExpectedBenefits
		o.mu.Lock()
		o.lastRun[t] = o.now()
		o.mu.Unlock()
	}
	return o.finish(ctx, rec, plan), nil
}

// rollback runs the compensating steps and reports whether all succeeded.
// It keeps going after a failed step.
func (o *Optimizer) rollback(ctx context.Context, plan Plan, env StepEnv, rec *Record) bool {
	o.logger.Warn("rolling back optimization", zap.String("type", string(plan.Type)))
	ok := true
	for _, name := range plan.RollbackSteps {
		res := o.steps.Run(context.WithoutCancel(ctx), name, env)
		rec.Rollback = append(rec.Rollback, res)
		if !res.Success {
			ok = false
			o.logger.Error("rollback step failed", zap.String("name", name), zap.String("error", res.Error))
		}
	}
	return ok
}

func (o *Optimizer) finish(ctx context.Context, rec Record, plan Plan) *Record {
	rec.EndedAt = o.now()

	o.mu.Lock()
	o.history = append(o.history, rec)
	if over := len(o.history) - o.cfg.HistoryLimit; over > 0 {
		o.history = append([]Record(nil), o.history[over:]...)
	}
	listeners := make([]func(Record), len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	fields := []zap.Field{
		zap.String("id", rec.ID),
		zap.String("type", string(rec.Type)),
		zap.String("status", string(rec.Status)),
		zap.Duration("duration", rec.Duration()),
	}
	if rec.Status == StatusCompleted {
		o.logger.Info("optimization completed", append(fields, zap.Strings("benefits", plan.ExpectedBenefits))...)
	} else {
		o.logger.Warn("optimization ended", append(fields, zap.String("error", rec.Error))...)
	}

	o.document(context.WithoutCancel(ctx), rec)
	for _, fn := range listeners {
		fn(rec)
	}
	return &rec
}

func (o *Optimizer) document(ctx context.Context, rec Record) {
	executed := make([]string, 0, len(rec.Steps))
	for _, s := range rec.Steps {
		executed = append(executed, s.Step)
	}
	details := map[string]any{
		"optimizer":         "auto_optimizer",
		"optimization_id":   rec.ID,
		"optimization_type": string(rec.Type),
		"status":            string(rec.Status),
		"forced":            rec.Forced,
		"duration_seconds":  rec.Duration().Seconds(),
		"steps_executed":    executed,
		"benefits_achieved": rec.Benefits,
	}
	if rec.Error != "" {
		details["error"] = rec.Error
	}
	err := o.client.RecordAction(ctx, brain.Action{
		ActionType:    "autonomous_optimization_" + string(rec.Status),
		ActionDetails: details,
		ContextState: map[string]any{
			"autonomous_system":       true,
			"optimization_successful": rec.Status == StatusCompleted,
		},
		Tags: []string{"autonomous_optimization", string(rec.Type), string(rec.Status)},
	})
	if err != nil {
		o.logger.Warn("failed to document optimization", zap.String("id", rec.ID), zap.Error(err))
	}
}

func snapshot(state *SystemState) map[string]any {
	if state == nil {
		return map[string]any{}
	}
	return map[string]any{
		"total_episodes": state.Stats.TotalEpisodes(),
		"memory_usage":   state.Stats.MemoryUsage(),
		"healthy":        state.Healthy,
		"neural_mesh":    state.NeuralMesh,
		"captured_at":    state.Timestamp.Format(time.RFC3339),
	}
}

func unmetPrerequisites(plan Plan, state *SystemState, cfg Config) []string {
	var missing []string
	for _, p := range plan.Prerequisites {
		var ok bool
		switch p {
		case "system_healthy":
			ok = state != nil && state.Healthy
		case "data_available":
			ok = state != nil && state.Stats.TotalEpisodes() > 0
		case "memory_pressure_high":
			ok = state != nil && state.Stats.MemoryUsage() > cfg.MemoryUsageLimit
		case "performance_degraded":
			ok = state != nil && (!state.Healthy || state.HealthLatency > cfg.SlowHealth)
		case "neural_mesh_inactive":
			ok = state != nil && !state.NeuralMesh
		default:
			ok = true
		}
		if !ok {
			missing = append(missing, p)
		}
	}
	return missing
}

// Scan assesses the system once and executes every allowed opportunity.
func (o *Optimizer) Scan(ctx context.Context) ([]Record, error) {
	state, err := o.Assess(ctx)
	if err != nil {
		return nil, err
	}
	var done []Record
	for _, t := range o.Opportunities(ctx, state) {
		if ok, reason := o.ShouldExecute(t); !ok {
			o.logger.Debug("optimization deferred", zap.String("type", string(t)), zap.String("reason", reason))
			continue
		}
		rec, err := o.Execute(ctx, t, state)
		if err != nil {
			o.logger.Debug("optimization not started", zap.String("type", string(t)), zap.Error(err))
			continue
		}
		if rec.Status == StatusSkipped {
			continue
		}
		done = append(done, *rec)
	}
	return done, nil
}

// Run scans for opportunities until ctx is done.
func (o *Optimizer) Run(ctx context.Context) {
	o.running.Store(true)
	defer o.running.Store(false)

	o.logger.Info("auto optimizer started", zap.Duration("interval", o.cfg.Interval))
	pulse.Run(ctx, pulse.Backoff{Interval: o.cfg.Interval, Retry: o.cfg.RetryInterval},
		func(ctx context.Context) error {
			_, err := o.Scan(ctx)
			return err
		},
		func(err error, wait time.Duration) {
			o.logger.Warn("optimization scan failed", zap.Error(err), zap.Duration("retry_in", wait))
		})
	o.logger.Info("auto optimizer stopped")
}
