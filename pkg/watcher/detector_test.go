package watcher

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain/braintest"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
)

func newDetector(t *testing.T) (*Detector, *braintest.Server) {
	t.Helper()
	fake := braintest.New(t)
	return New(fake.Client(), DefaultConfig(), nil), fake
}

func scanTypes(t *testing.T, d *Detector) []ChangeType {
	t.Helper()
	events, err := d.Scan(context.Background())
	require.NoError(t, err)
	types := make([]ChangeType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestSeverity_AtLeast(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityMedium.AtLeast(SeverityHigh))
	assert.False(t, Severity("bogus").AtLeast(SeverityLow))
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.MassiveRecovery = 50
	assert.Error(t, bad.Validate())

	bad = DefaultThresholds()
	bad.MemoryPressure = 1.5
	assert.Error(t, bad.Validate())

	bad = DefaultThresholds()
	bad.VerySlowResponse = time.Second
	assert.Error(t, bad.Validate())
}

func TestScan_FirstPassRecordsBaseline(t *testing.T) {
	d, fake := newDetector(t)
	fake.SetEpisodes(5000)
	fake.SetUsage(99)

	assert.Empty(t, scanTypes(t, d))
	assert.False(t, d.LastScan().IsZero())
}

func TestScan_EpisodeGrowth(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []ChangeType
		severity Severity
	}{
		{"massive recovery", 100, 1200, []ChangeType{MassiveRecovery}, SeverityCritical},
		{"significant growth", 100, 250, []ChangeType{SignificantGrowth}, SeverityHigh},
		{"small growth", 100, 150, nil, ""},
		{"exactly at threshold", 100, 200, nil, ""},
		{"episodes lost", 1000, 700, []ChangeType{AnomalyDetected}, SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, fake := newDetector(t)
			fake.SetEpisodes(tt.from)
			require.Empty(t, scanTypes(t, d))

			fake.SetEpisodes(tt.to)
			events, err := d.Scan(context.Background())
			require.NoError(t, err)
			require.Len(t, events, len(tt.want))
			for i, ev := range events {
				assert.Equal(t, tt.want[i], ev.Type)
				assert.Equal(t, tt.severity, ev.Severity)
				assert.True(t, ev.RequiresAction)
				assert.NotEmpty(t, ev.ID)
			}
		})
	}
}

func TestScan_MassiveRecoveryDetails(t *testing.T) {
	d, fake := newDetector(t)
	fake.SetEpisodes(0)
	scanTypes(t, d)

	fake.SetEpisodes(4500)
	events, err := d.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, 4500, ev.Data["episodes_recovered"])
	assert.Equal(t, 4500, ev.Data["total_episodes"])
	assert.Equal(t, []string{"activate_full_arsenal", "optimize_all_systems", "generate_recovery_report", "broadcast_to_neural_mesh"}, ev.SuggestedActions)
}

func TestScan_EpisodeDropDetails(t *testing.T) {
	d, fake := newDetector(t)
	fake.SetEpisodes(1000)
	scanTypes(t, d)

	fake.SetEpisodes(700)
	events, err := d.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, AnomalyDetected, ev.Type)
	assert.Equal(t, 300, ev.Data["episodes_lost"])
	assert.Equal(t, 700, ev.Data["total_episodes"])
	assert.Equal(t, []string{"verify_integrity", "check_recent_migrations"}, ev.SuggestedActions)
}

func TestScan_BaselineAdvances(t *testing.T) {
	d, fake := newDetector(t)
	fake.SetEpisodes(100)
	scanTypes(t, d)

	fake.SetEpisodes(300)
	assert.Equal(t, []ChangeType{SignificantGrowth}, scanTypes(t, d))
	assert.Empty(t, scanTypes(t, d))
}

func TestScan_Performance(t *testing.T) {
	fake := braintest.New(t)
	cfg := DefaultConfig()
	cfg.Thresholds.SlowResponse = 20 * time.Millisecond
	cfg.Thresholds.VerySlowResponse = 60 * time.Millisecond
	d := New(fake.Client(), cfg, nil)
	scanTypes(t, d)

	fake.SetHealth(http.StatusOK, 30*time.Millisecond)
	events, err := d.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, PerformanceDegradation, events[0].Type)
	assert.Equal(t, SeverityMedium, events[0].Severity)

	fake.SetHealth(http.StatusOK, 80*time.Millisecond)
	events, err = d.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, SeverityHigh, events[0].Severity)
}

func TestScan_MemoryPressure(t *testing.T) {
	d, fake := newDetector(t)
	scanTypes(t, d)

	fake.SetUsage(90)
	assert.Empty(t, scanTypes(t, d))

	fake.SetUsage(95.5)
	events, err := d.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, MemoryConsolidation, events[0].Type)
	assert.Equal(t, SeverityHigh, events[0].Severity)
	assert.InDelta(t, 0.955, events[0].Data["memory_usage"], 0.0001)
}

func TestScan_PatternsAndBreakthrough(t *testing.T) {
	d, fake := newDetector(t)
	scanTypes(t, d)

	recent := make([]map[string]any, 0, 12)
	for i := 0; i < 7; i++ {
		recent = append(recent, map[string]any{"action_type": "code_review"})
	}
	recent = append(recent,
		map[string]any{"action_type": "deploy", "action_details": map[string]any{"note": "A BREAKTHROUGH in caching"}},
		map[string]any{"action_type": "deploy"},
		map[string]any{},
	)
	fake.SetRecent(recent)

	events, err := d.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, PatternEmergence, events[0].Type)
	assert.Equal(t, "code_review", events[0].Data["pattern_type"])
	assert.InDelta(t, 0.7, events[0].Data["concentration"], 0.0001)
	assert.Equal(t, 10, events[0].Data["sample_size"])

	assert.Equal(t, BreakthroughMoment, events[1].Type)
	assert.Equal(t, SeverityHigh, events[1].Severity)
}

func TestScan_BreakthroughOutsideWindowIgnored(t *testing.T) {
	d, fake := newDetector(t)
	scanTypes(t, d)

	recent := make([]map[string]any, 0, 12)
	for i := 0; i < 11; i++ {
		recent = append(recent, map[string]any{"action_type": "t" + string(rune('a'+i))})
	}
	recent = append(recent, map[string]any{"action_type": "note", "text": "breakthrough"})
	fake.SetRecent(recent)

	assert.Empty(t, scanTypes(t, d))
}

func TestScan_StatsFailureKeepsBaseline(t *testing.T) {
	d, fake := newDetector(t)
	fake.SetEpisodes(100)
	scanTypes(t, d)

	fake.SetStatsStatus(http.StatusServiceUnavailable)
	_, err := d.Scan(context.Background())
	require.Error(t, err)
	assert.True(t, nerrors.IsRetryable(err))

	fake.SetStatsStatus(http.StatusOK)
	fake.SetEpisodes(300)
	assert.Equal(t, []ChangeType{SignificantGrowth}, scanTypes(t, d))
}

func TestScan_Cooldown(t *testing.T) {
	fake := braintest.New(t)
	cfg := DefaultConfig()
	cfg.Cooldown = time.Hour
	d := New(fake.Client(), cfg, nil)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	fake.SetUsage(99)
	scanTypes(t, d)
	assert.Equal(t, []ChangeType{MemoryConsolidation}, scanTypes(t, d))

	now = now.Add(10 * time.Minute)
	assert.Empty(t, scanTypes(t, d))

	now = now.Add(time.Hour)
	assert.Equal(t, []ChangeType{MemoryConsolidation}, scanTypes(t, d))
}

func TestSetThresholds(t *testing.T) {
	d, fake := newDetector(t)
	fake.SetEpisodes(0)
	scanTypes(t, d)

	th := DefaultThresholds()
	th.SignificantGrowth = 10
	th.MassiveRecovery = 20
	d.SetThresholds(th)
	assert.Equal(t, 20, d.Thresholds().MassiveRecovery)

	fake.SetEpisodes(25)
	assert.Equal(t, []ChangeType{MassiveRecovery}, scanTypes(t, d))
}

func TestHandle_NotifiesAndDocuments(t *testing.T) {
	d, fake := newDetector(t)

	var mu sync.Mutex
	var seen []ChangeType
	d.Subscribe(func(ctx context.Context, ev ChangeEvent) { panic("subscriber bug") })
	d.Subscribe(func(ctx context.Context, ev ChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Type)
	})

	ev := *d.newEvent(MemoryConsolidation, SeverityHigh, "memory full", map[string]any{"memory_usage": 0.95}, "trigger_consolidation")
	d.Handle(context.Background(), ev)

	assert.Equal(t, []ChangeType{MemoryConsolidation}, seen)

	actions := fake.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, "autonomous_change_detected_memory_consolidation", actions[0].ActionType)
	assert.Equal(t, []string{"autonomous_detection", "memory_consolidation", "high"}, actions[0].Tags)
	assert.Equal(t, "data_change_detector", actions[0].ActionDetails["detector"])
	assert.Equal(t, true, actions[0].ContextState["requires_action"])
}

func TestHandle_DocumentFailureIsLogged(t *testing.T) {
	d, fake := newDetector(t)
	fake.SetStatus("/memory/action", http.StatusInternalServerError)

	called := false
	d.Subscribe(func(ctx context.Context, ev ChangeEvent) { called = true })
	d.Handle(context.Background(), *d.newEvent(AnomalyDetected, SeverityHigh, "x", nil))

	assert.True(t, called)
	assert.Empty(t, fake.Actions())
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := braintest.New(t)
	defer fake.Close()
	cfg := DefaultConfig()
	cfg.Interval = 10 * time.Millisecond
	d := New(fake.Client(), cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()

	assert.Eventually(t, d.Running, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return fake.Calls("/stats") >= 2 }, 2*time.Second, 5*time.Millisecond)

	fake.SetEpisodes(5000)
	assert.Eventually(t, func() bool {
		for _, at := range fake.ActionTypes() {
			if at == "autonomous_change_detected_massive_recovery" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.False(t, d.Running())
}
