package reflex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
)

// StepEnv is what a step can see.
type StepEnv struct {
	Client Brain
	Type   OptimizationType
	State  *SystemState
	// Snapshot is captured before the first step and used by restore steps.
	Snapshot map[string]any
	// Failure is the error that triggered a rollback; empty during the plan.
	Failure string
	Now     time.Time
}

// StepFunc executes one named step.
type StepFunc func(ctx context.Context, env StepEnv) StepResult

// StepRegistry maps step names to implementations.
type StepRegistry struct {
	mu    sync.RWMutex
	steps map[string]StepFunc
}

// NewStepRegistry creates an empty registry.
func NewStepRegistry() *StepRegistry {
	return &StepRegistry{steps: make(map[string]StepFunc)}
}

// Register adds a step. Names are unique.
func (r *StepRegistry) Register(name string, fn StepFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[name]; exists {
		return nerrors.Optimizationf(nerrors.ErrStepAlreadyRegistered, "step %q already registered", name)
	}
	r.steps[name] = fn
	return nil
}

// Get retrieves a step by name.
func (r *StepRegistry) Get(name string) (StepFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.steps[name]
	return fn, ok
}

// List returns the registered step names, sorted.
func (r *StepRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.steps))
	for name := range r.steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a step by name. Unknown steps succeed as skipped.
func (r *StepRegistry) Run(ctx context.Context, name string, env StepEnv) StepResult {
	fn, ok := r.Get(name)
	start := time.Now()
	if !ok {
		return StepResult{
			Step:    name,
			Success: true,
			Skipped: true,
			Detail:  map[string]any{"note": fmt.Sprintf("step %s has no implementation", name)},
		}
	}
	res := fn(ctx, env)
	res.Step = name
	res.Duration = time.Since(start)
	return res
}

// postStep builds a step that POSTs the body produced by build to endpoint.
func postStep(endpoint string, build func(env StepEnv) any) StepFunc {
	return func(ctx context.Context, env StepEnv) StepResult {
		var body any
		if build != nil {
			body = build(env)
		}
		resp, err := env.Client.Post(ctx, endpoint, body)
		if err != nil {
			return failed(err, map[string]any{"endpoint": endpoint})
		}
		detail := map[string]any{"endpoint": endpoint, "status": resp.StatusCode}
		var decoded any
		if resp.Decode(&decoded) == nil {
			detail["response"] = decoded
		}
		return StepResult{Success: true, Detail: detail}
	}
}

func failed(err error, detail map[string]any) StepResult {
	return StepResult{Success: false, Error: err.Error(), Detail: detail}
}

// verifyEndpoints are the endpoints verify_all_systems requires to answer 200.
var verifyEndpoints = []string{"/health", "/stats", "/neural-mesh/stats"}

// registerBuiltinSteps installs the steps backed by memory API endpoints.
func registerBuiltinSteps(r *StepRegistry) {
	must := func(name string, fn StepFunc) {
		if err := r.Register(name, fn); err != nil {
			panic(err)
		}
	}

	must("activate_neural_mesh", postStep("/neural-mesh/broadcast-learning", func(env StepEnv) any {
		return map[string]any{
			"learning_type": "auto_optimization_neural_mesh",
			"learning_content": map[string]any{
				"event":             "auto_optimizer_activation",
				"optimization_type": string(env.Type),
				"timestamp":         env.Now.Format(time.RFC3339),
			},
			"application_domains": []string{"system_optimization", "performance"},
			"participants":        []string{"nexus", "aria", "ricardo"},
		}
	}))
	must("initialize_emotional_continuity", postStep("/emotional/initialize", func(StepEnv) any {
		return map[string]any{"agent": "auto_optimizer", "session_type": "autonomous_optimization"}
	}))
	must("start_analytics_engine", postStep("/analytics/predictions/generate", func(StepEnv) any {
		return map[string]any{"scope": "post_optimization_performance", "timeframe": "next_hour"}
	}))
	must("enable_consciousness_system", postStep("/consciousness/save", func(env StepEnv) any {
		return map[string]any{
			"state":    "auto_optimization_active",
			"metadata": map[string]any{"optimizer": "autonomous", "timestamp": env.Now.Format(time.RFC3339)},
		}
	}))
	must("optimize_context_system", postStep("/context/add-message", func(StepEnv) any {
		return map[string]any{"message": "system optimized automatically", "importance": 0.8}
	}))
	must("calibrate_working_memory", postStep("/memory/working/context", func(env StepEnv) any {
		return map[string]any{
			"context": "post_auto_optimization",
			"context_data": map[string]any{
				"optimization_type": string(env.Type),
				"timestamp":         env.Now.Format(time.RFC3339),
			},
			"priority": "high",
		}
	}))
	must("run_consolidation", postStep("/memory/consolidate", nil))
	must("backup_current_state", postStep("/consciousness/save", func(env StepEnv) any {
		return map[string]any{"state": "pre_optimization_backup", "metadata": env.Snapshot}
	}))

	must("verify_all_systems", func(ctx context.Context, env StepEnv) StepResult {
		checked := make(map[string]bool, len(verifyEndpoints))
		all := true
		for _, ep := range verifyEndpoints {
			ok := env.Client.Probe(ctx, ep)
			checked[ep] = ok
			all = all && ok
		}
		res := StepResult{Success: all, Detail: map[string]any{"systems_checked": checked}}
		if !all {
			res.Error = "not every system answered 200"
		}
		return res
	})

	must("verify_integrity", func(ctx context.Context, env StepEnv) StepResult {
		resp, err := env.Client.Get(ctx, "/stats")
		if err != nil {
			return failed(err, nil)
		}
		var stats brain.Stats
		if err := resp.Decode(&stats); err != nil {
			return failed(err, nil)
		}
		before, _ := env.Snapshot["total_episodes"].(int)
		after := stats.TotalEpisodes()
		res := StepResult{
			Success: after >= before,
			Detail:  map[string]any{"episodes_before": before, "episodes_after": after},
		}
		if !res.Success {
			res.Error = fmt.Sprintf("episode count fell from %d to %d", before, after)
		}
		return res
	})

	must("analyze_bottlenecks", func(ctx context.Context, env StepEnv) StepResult {
		report, err := env.Client.Health(ctx)
		if report == nil {
			return failed(err, nil)
		}
		return StepResult{Success: true, Detail: map[string]any{
			"health_latency_ms": report.Latency.Milliseconds(),
			"health_status":     report.StatusCode,
		}}
	})

	restore := postStep("/consciousness/save", func(env StepEnv) any {
		return map[string]any{
			"state": "pre_optimization_restore",
			"metadata": map[string]any{
				"optimization_type": string(env.Type),
				"snapshot":          env.Snapshot,
				"reason":            env.Failure,
			},
		}
	})
	must("restore_previous_state", restore)
	must("restore_backup", restore)
	must("restore_original_config", restore)

	notify := func(ctx context.Context, env StepEnv) StepResult {
		err := env.Client.RecordAction(ctx, brain.Action{
			ActionType: "autonomous_optimization_failure_notice",
			ActionDetails: map[string]any{
				"optimization_type": string(env.Type),
				"error":             env.Failure,
				"timestamp":         env.Now.Format(time.RFC3339),
			},
			ContextState: map[string]any{"autonomous_system": true},
			Tags:         []string{"optimization_failure", string(env.Type)},
		})
		if err != nil {
			return failed(err, nil)
		}
		return StepResult{Success: true}
	}
	must("notify_failure", notify)
	must("alert_admin", notify)
}
