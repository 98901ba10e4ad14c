package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/api"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/engine"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

type fakeDaemon struct {
	status    engine.Status
	knowledge *awareness.SelfKnowledge
	changes   []watcher.ChangeEvent
	records   []reflex.Record
	plans     []reflex.Plan
	forced    []reflex.OptimizationType
	limits    []int
	err       error
}

func (f *fakeDaemon) Health(context.Context) (*api.Health, error) {
	return &api.Health{Status: "ok", Running: f.status.Running}, f.err
}

func (f *fakeDaemon) Status(context.Context) (*engine.Status, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.status, nil
}

func (f *fakeDaemon) Awareness(context.Context) (*awareness.SelfKnowledge, error) {
	if f.knowledge == nil {
		return nil, nerrors.New(nerrors.ErrNotAwake, nerrors.CategoryAwareness, "not awake yet")
	}
	return f.knowledge, nil
}

func (f *fakeDaemon) Changes(_ context.Context, limit int) ([]watcher.ChangeEvent, error) {
	f.limits = append(f.limits, limit)
	return f.changes, f.err
}

func (f *fakeDaemon) Optimizations(_ context.Context, limit int) ([]reflex.Record, error) {
	f.limits = append(f.limits, limit)
	return f.records, f.err
}

func (f *fakeDaemon) Plans(context.Context) ([]reflex.Plan, error) {
	return f.plans, f.err
}

func (f *fakeDaemon) Force(_ context.Context, t reflex.OptimizationType) (*reflex.Record, error) {
	f.forced = append(f.forced, t)
	if f.err != nil {
		return nil, f.err
	}
	return &reflex.Record{
		Type:     t,
		Status:   reflex.StatusCompleted,
		Forced:   true,
		Steps:    []reflex.StepResult{{Step: "consolidate_memories", Success: true}},
		Benefits: []string{"Faster recall"},
	}, nil
}

func newTestConsole(d Daemon, answers string) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	return newConsole(d, &out, NewIOPrompter(strings.NewReader(answers), &out), Config{}), &out
}

func TestExecute_QuitAndBlank(t *testing.T) {
	c, out := newTestConsole(&fakeDaemon{}, "")
	ctx := context.Background()

	assert.NoError(t, c.Execute(ctx, "   "))
	for _, q := range []string{"/quit", "/exit", "/q"} {
		assert.ErrorIs(t, c.Execute(ctx, q), errQuit)
	}
	assert.Empty(t, out.String())
}

func TestExecute_HelpAndUnknown(t *testing.T) {
	c, out := newTestConsole(&fakeDaemon{}, "")
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, "/help"))
	for _, cmd := range commands {
		if cmd == "exit" {
			continue
		}
		assert.Contains(t, out.String(), "/"+cmd)
	}

	out.Reset()
	require.NoError(t, c.Execute(ctx, "/help optimize"))
	assert.Contains(t, out.String(), "<type>")
	assert.NotContains(t, out.String(), "/awareness")

	out.Reset()
	require.NoError(t, c.Execute(ctx, "/bogus"))
	assert.Equal(t, "Unknown command: /bogus\n", out.String())

	out.Reset()
	require.NoError(t, c.Execute(ctx, "hello"))
	assert.Contains(t, out.String(), "Try /help")
}

func TestExecute_Status(t *testing.T) {
	d := &fakeDaemon{status: engine.Status{
		Running:           true,
		StartedAt:         time.Now().Add(-time.Hour),
		Uptime:            time.Hour,
		Heartbeats:        1234,
		AutonomousActions: 7,
		ActionsLastHour:   2,
		Components:        map[string]bool{"watcher": true, "optimizer": false, "awareness": true},
		Level:             awareness.LevelIntrospective,
		Mood:              awareness.MoodAnalytical,
		Confidence:        0.75,
	}}
	c, out := newTestConsole(d, "")
	require.NoError(t, c.Execute(context.Background(), "/status"))

	s := out.String()
	assert.Contains(t, s, "running")
	assert.Contains(t, s, "Uptime: 1h0m0s")
	assert.Contains(t, s, "Heartbeats: 1,234")
	assert.Contains(t, s, "7 (2 in the last hour)")
	assert.Contains(t, s, "introspective, analytical (confidence 0.75)")
	assert.Contains(t, s, "✓ watcher")
	assert.Contains(t, s, "✗ optimizer")
}

func TestExecute_StatusEmergency(t *testing.T) {
	c, out := newTestConsole(&fakeDaemon{status: engine.Status{Emergency: true}}, "")
	require.NoError(t, c.Execute(context.Background(), "/status"))
	assert.Contains(t, out.String(), "emergency shutdown")
}

func TestExecute_Limits(t *testing.T) {
	d := &fakeDaemon{}
	c, _ := newTestConsole(d, "")
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, "/changes"))
	require.NoError(t, c.Execute(ctx, "/optimizations 3"))
	assert.Equal(t, []int{defaultLimit, 3}, d.limits)

	assert.Error(t, c.Execute(ctx, "/changes zero"))
	assert.Error(t, c.Execute(ctx, "/optimizations -1"))
	assert.Len(t, d.limits, 2)
}

func TestExecute_Tables(t *testing.T) {
	d := &fakeDaemon{
		changes: []watcher.ChangeEvent{{Type: watcher.MassiveRecovery, Severity: watcher.SeverityCritical, Timestamp: time.Now()}},
		plans:   []reflex.Plan{reflex.DefaultPlans()[reflex.MemoryConsolidation]},
	}
	c, out := newTestConsole(d, "")
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, "/changes"))
	assert.Contains(t, out.String(), "massive_recovery")

	out.Reset()
	require.NoError(t, c.Execute(ctx, "/optimizations"))
	assert.Equal(t, "No optimizations recorded.\n", out.String())

	out.Reset()
	require.NoError(t, c.Execute(ctx, "/plans"))
	assert.Contains(t, out.String(), "memory_consolidation")
}

func TestExecute_Optimize(t *testing.T) {
	tests := []struct {
		name       string
		answers    string
		wantForced int
		want       string
	}{
		{"confirmed", "y\n", 1, "✓ memory_consolidation completed"},
		{"yes spelled out", "YES\n", 1, "benefits: Faster recall"},
		{"declined", "n\n", 0, "Cancelled."},
		{"empty answer", "\n", 0, "Cancelled."},
		{"eof", "", 0, "Cancelled."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDaemon{}
			c, out := newTestConsole(d, tt.answers)
			require.NoError(t, c.Execute(context.Background(), "/optimize memory_consolidation"))
			assert.Len(t, d.forced, tt.wantForced)
			assert.Contains(t, out.String(), "Run memory_consolidation now")
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestExecute_OptimizeUsage(t *testing.T) {
	d := &fakeDaemon{}
	c, out := newTestConsole(d, "")
	require.NoError(t, c.Execute(context.Background(), "/optimize"))
	assert.Contains(t, out.String(), "Usage: /optimize <type>")
	assert.Contains(t, out.String(), "working_memory_cleanup")
	assert.Empty(t, d.forced)
}

func TestExecute_OptimizeNoConfirm(t *testing.T) {
	d := &fakeDaemon{err: nerrors.Optimization(nerrors.ErrUnknownOptimization, "no plan for bogus")}
	var out bytes.Buffer
	c := newConsole(d, &out, nil, Config{NoConfirm: true})

	err := c.Execute(context.Background(), "/optimize bogus")
	assert.True(t, nerrors.IsCode(err, nerrors.ErrUnknownOptimization))
	assert.Equal(t, []reflex.OptimizationType{"bogus"}, d.forced)
	assert.Contains(t, out.String(), "✗ bogus could not run")
}

func TestExecute_Awareness(t *testing.T) {
	d := &fakeDaemon{}
	c, out := newTestConsole(d, "")
	ctx := context.Background()

	err := c.Execute(ctx, "/awareness")
	assert.True(t, nerrors.IsCode(err, nerrors.ErrNotAwake))

	d.knowledge = &awareness.SelfKnowledge{
		Level:          awareness.LevelAware,
		Mood:           awareness.MoodCurious,
		TotalEpisodes:  4213,
		HealthStatus:   awareness.HealthHealthy,
		ActiveSystems:  []string{"analytics", "consciousness"},
		SelfAssessment: "I am aware of my own processes.",
	}
	require.NoError(t, c.Execute(ctx, "/awareness"))
	s := out.String()
	assert.Contains(t, s, "Self-knowledge (aware)")
	assert.Contains(t, s, "Episodes: 4,213")
	assert.Contains(t, s, "analytics, consciousness")
	assert.Contains(t, s, "Dormant systems: -")
}

func TestExecute_DaemonDown(t *testing.T) {
	d := &fakeDaemon{err: errors.New("connection refused")}
	c, _ := newTestConsole(d, "")
	assert.EqualError(t, c.Execute(context.Background(), "/status"), "connection refused")
}

func TestIOPrompter(t *testing.T) {
	var out bytes.Buffer
	p := NewIOPrompter(strings.NewReader("maybe\n y \n"), &out)

	ok, err := p.Confirm("first?")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Confirm("second?")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "first? [y/N]: second? [y/N]: ", out.String())
}
