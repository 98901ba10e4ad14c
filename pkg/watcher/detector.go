package watcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/pulse"
)

// Brain is the part of the memory API the detector reads and writes.
type Brain interface {
	Stats(ctx context.Context) (*brain.Stats, error)
	Health(ctx context.Context) (*brain.HealthReport, error)
	RecentEpisodes(ctx context.Context, limit int) ([]brain.Episode, error)
	RecordAction(ctx context.Context, action brain.Action) error
}

// Subscriber is notified of every handled change.
type Subscriber func(ctx context.Context, ev ChangeEvent)

// Detector compares successive memory API snapshots and emits ChangeEvents.
type Detector struct {
	client Brain
	logger *zap.Logger

	mu          sync.RWMutex
	cfg         Config
	baseline    *brain.Stats
	lastEmitted map[ChangeType]time.Time
	subscribers []Subscriber
	lastScan    time.Time

	running atomic.Bool
	now     func() time.Time
}

// New creates a detector. Zero intervals fall back to DefaultConfig.
func New(client Brain, cfg Config, logger *zap.Logger) *Detector {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		client:      client,
		logger:      logger,
		cfg:         cfg,
		lastEmitted: make(map[ChangeType]time.Time),
		now:         time.Now,
	}
}

// Subscribe registers fn for every handled change.
func (d *Detector) Subscribe(fn Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, fn)
}

// SetThresholds replaces the detection thresholds, taking effect on the next scan.
func (d *Detector) SetThresholds(t Thresholds) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.Thresholds = t
}

// Thresholds returns the thresholds in use.
func (d *Detector) Thresholds() Thresholds {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.Thresholds
}

// Running reports whether Run is active.
func (d *Detector) Running() bool { return d.running.Load() }

// LastScan returns the time of the last completed scan.
func (d *Detector) LastScan() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastScan
}

// Scan performs one detection pass. The first successful pass only records
// a baseline. A failed stats fetch leaves the baseline untouched.
func (d *Detector) Scan(ctx context.Context) ([]ChangeEvent, error) {
	current, err := d.client.Stats(ctx)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	baseline := d.baseline
	th := d.cfg.Thresholds
	d.mu.RUnlock()

	if baseline == nil {
		d.mu.Lock()
		d.baseline = current
		d.lastScan = d.now()
		d.mu.Unlock()
		d.logger.Info("baseline recorded", zap.Int("episodes", current.TotalEpisodes()))
		return nil, nil
	}

	var events []ChangeEvent
	if ev := d.checkEpisodes(baseline, current, th); ev != nil {
		events = append(events, *ev)
	}
	if ev := d.checkPerformance(ctx, th); ev != nil {
		events = append(events, *ev)
	}
	if ev := d.checkMemoryPressure(current, th); ev != nil {
		events = append(events, *ev)
	}
	events = append(events, d.checkPatterns(ctx, th)...)

	d.mu.Lock()
	d.baseline = current
	d.lastScan = d.now()
	events = d.debounceLocked(events)
	d.mu.Unlock()

	return events, nil
}

func (d *Detector) debounceLocked(events []ChangeEvent) []ChangeEvent {
	kept := events[:0]
	for _, ev := range events {
		if last, ok := d.lastEmitted[ev.Type]; ok && d.cfg.Cooldown > 0 && ev.Timestamp.Sub(last) < d.cfg.Cooldown {
			d.logger.Debug("change suppressed by cooldown", zap.String("type", string(ev.Type)))
			continue
		}
		d.lastEmitted[ev.Type] = ev.Timestamp
		kept = append(kept, ev)
	}
	return kept
}

func (d *Detector) newEvent(t ChangeType, sev Severity, desc string, data map[string]any, actions ...string) *ChangeEvent {
	return &ChangeEvent{
		ID:               uuid.NewString(),
		Type:             t,
		Severity:         sev,
		Description:      desc,
		Data:             data,
		Timestamp:        d.now(),
		RequiresAction:   len(actions) > 0,
		SuggestedActions: actions,
	}
}

func (d *Detector) checkEpisodes(baseline, current *brain.Stats, th Thresholds) *ChangeEvent {
	total := current.TotalEpisodes()
	diff := total - baseline.TotalEpisodes()

	switch {
	case diff > th.MassiveRecovery:
		return d.newEvent(MassiveRecovery, SeverityCritical,
			fmt.Sprintf("massive recovery: %d new episodes", diff),
			map[string]any{"episodes_recovered": diff, "total_episodes": total},
			"activate_full_arsenal", "optimize_all_systems", "generate_recovery_report", "broadcast_to_neural_mesh")
	case diff > th.SignificantGrowth:
		return d.newEvent(SignificantGrowth, SeverityHigh,
			fmt.Sprintf("significant growth: %d new episodes", diff),
			map[string]any{"episodes_added": diff, "total_episodes": total},
			"analyze_new_episodes", "update_patterns", "consolidate_if_needed")
	case -diff > th.SignificantGrowth:
		return d.newEvent(AnomalyDetected, SeverityHigh,
			fmt.Sprintf("episode count dropped by %d", -diff),
			map[string]any{"episodes_lost": -diff, "total_episodes": total},
			"verify_integrity", "check_recent_migrations")
	}
	return nil
}

func (d *Detector) checkPerformance(ctx context.Context, th Thresholds) *ChangeEvent {
	report, err := d.client.Health(ctx)
	if report == nil {
		if ctx.Err() != nil {
			return nil
		}
		return d.newEvent(AnomalyDetected, SeverityHigh,
			"memory API health endpoint unreachable",
			map[string]any{"error": errString(err)},
			"check_service_status", "restart_if_critical")
	}

	if report.Latency > th.SlowResponse {
		sev := SeverityMedium
		if report.Latency > th.VerySlowResponse {
			sev = SeverityHigh
		}
		return d.newEvent(PerformanceDegradation, sev,
			fmt.Sprintf("memory API responding slowly: %.2fs", report.Latency.Seconds()),
			map[string]any{"response_time": report.Latency.Seconds(), "status_code": report.StatusCode},
			"run_optimization", "check_resource_usage", "restart_if_critical")
	}
	return nil
}

func (d *Detector) checkMemoryPressure(current *brain.Stats, th Thresholds) *ChangeEvent {
	usage := current.MemoryUsage() / 100
	if usage <= th.MemoryPressure {
		return nil
	}
	return d.newEvent(MemoryConsolidation, SeverityHigh,
		fmt.Sprintf("working memory at %.1f%%, consolidation needed", usage*100),
		map[string]any{"memory_usage": usage},
		"trigger_consolidation", "cleanup_old_data", "optimize_memory_usage")
}

func (d *Detector) checkPatterns(ctx context.Context, th Thresholds) []ChangeEvent {
	recent, err := d.client.RecentEpisodes(ctx, th.RecentSample)
	if err != nil {
		d.logger.Warn("pattern detection skipped", zap.Error(err))
		return nil
	}
	if len(recent) == 0 {
		return nil
	}

	var events []ChangeEvent
	counts := make(map[string]int)
	for _, ep := range recent {
		at := ep.ActionType
		if at == "" {
			at = "unknown"
		}
		counts[at]++
	}
	dominant, best := "", 0
	for at, n := range counts {
		if n > best || (n == best && at < dominant) {
			dominant, best = at, n
		}
	}
	concentration := float64(best) / float64(len(recent))
	if concentration > th.PatternConcentration {
		events = append(events, *d.newEvent(PatternEmergence, SeverityMedium,
			fmt.Sprintf("pattern detected: %s (%.1f%% concentration)", dominant, concentration*100),
			map[string]any{"pattern_type": dominant, "concentration": concentration, "sample_size": len(recent)},
			"analyze_pattern_deeply", "generate_insights", "notify_relevant_agents"))
	}

	window := min(th.BreakthroughWindow, len(recent))
	for _, ep := range recent[:window] {
		if strings.Contains(ep.Text(), "breakthrough") {
			events = append(events, *d.newEvent(BreakthroughMoment, SeverityHigh,
				"breakthrough moment detected",
				map[string]any{"episode": ep.Raw},
				"capture_breakthrough_context", "amplify_discovery", "broadcast_to_all_agents", "document_for_learning"))
			break
		}
	}
	return events
}

// Handle logs ev, notifies subscribers and documents it in the memory API.
// A panicking subscriber does not affect the others.
func (d *Detector) Handle(ctx context.Context, ev ChangeEvent) {
	d.logger.Info("change detected",
		zap.String("id", ev.ID),
		zap.String("type", string(ev.Type)),
		zap.String("severity", string(ev.Severity)),
		zap.String("description", ev.Description),
		zap.Strings("suggested_actions", ev.SuggestedActions))

	d.mu.RLock()
	subs := make([]Subscriber, len(d.subscribers))
	copy(subs, d.subscribers)
	d.mu.RUnlock()

	for _, fn := range subs {
		d.notify(ctx, fn, ev)
	}

	err := d.client.RecordAction(ctx, brain.Action{
		ActionType: "autonomous_change_detected_" + string(ev.Type),
		ActionDetails: map[string]any{
			"detector":          "data_change_detector",
			"change_id":         ev.ID,
			"change_type":       string(ev.Type),
			"severity":          string(ev.Severity),
			"description":       ev.Description,
			"data":              ev.Data,
			"suggested_actions": ev.SuggestedActions,
			"timestamp":         ev.Timestamp.Format(time.RFC3339),
		},
		ContextState: map[string]any{
			"autonomous_system": true,
			"requires_action":   ev.RequiresAction,
		},
		Tags: []string{"autonomous_detection", string(ev.Type), string(ev.Severity)},
	})
	if err != nil {
		d.logger.Warn("failed to document change", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

func (d *Detector) notify(ctx context.Context, fn Subscriber, ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("change subscriber panicked",
				zap.String("type", string(ev.Type)),
				zap.Any("panic", r))
		}
	}()
	fn(ctx, ev)
}

// Run scans and handles changes until ctx is done.
func (d *Detector) Run(ctx context.Context) {
	d.running.Store(true)
	defer d.running.Store(false)

	d.mu.RLock()
	b := pulse.Backoff{Interval: d.cfg.Interval, Retry: d.cfg.RetryInterval}
	d.mu.RUnlock()

	d.logger.Info("change detector started", zap.Duration("interval", b.Interval))
	pulse.Run(ctx, b, func(ctx context.Context) error {
		events, err := d.Scan(ctx)
		if err != nil {
			return err
		}
		for _, ev := range events {
			d.Handle(ctx, ev)
		}
		return nil
	}, func(err error, wait time.Duration) {
		d.logger.Warn("change scan failed", zap.Error(err), zap.Duration("retry_in", wait))
	})
	d.logger.Info("change detector stopped")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
