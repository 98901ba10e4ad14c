package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

func openMemory(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "nexus.db")
	j, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, j.Path())

	ctx := context.Background()
	require.NoError(t, j.RecordHeartbeat(ctx, Heartbeat{Beat: 1, Timestamp: time.Now()}))
	require.NoError(t, j.Close())

	// Reopening keeps the rows.
	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	c, err := j.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Heartbeats)
}

func TestOpen_BadDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	j, err := Open(blocker)
	require.NoError(t, err)
	j.Close()

	_, err = Open(filepath.Join(blocker, "sub", "nexus.db"))
	require.Error(t, err)
	assert.True(t, nerrors.IsCode(err, nerrors.ErrJournalOpenFailed))
}

func TestRecentChanges(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, typ := range []watcher.ChangeType{watcher.MassiveRecovery, watcher.MemoryConsolidation, watcher.PerformanceDegradation} {
		require.NoError(t, j.RecordChange(ctx, watcher.ChangeEvent{
			ID:               string(typ),
			Type:             typ,
			Severity:         watcher.SeverityHigh,
			Description:      "event " + string(typ),
			Data:             map[string]any{"index": i},
			Timestamp:        base.Add(time.Duration(i) * time.Minute),
			RequiresAction:   i%2 == 0,
			SuggestedActions: []string{"look"},
		}))
	}

	got, err := j.RecentChanges(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, watcher.PerformanceDegradation, got[0].Type)
	assert.Equal(t, watcher.MemoryConsolidation, got[1].Type)
	assert.True(t, got[0].RequiresAction)
	assert.False(t, got[1].RequiresAction)
	assert.Equal(t, float64(2), got[0].Data["index"])
	assert.Equal(t, []string{"look"}, got[0].SuggestedActions)
	assert.True(t, got[0].Timestamp.Equal(base.Add(2*time.Minute)))

	all, err := j.RecentChanges(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordChange_SameIDReplaces(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()
	ev := watcher.ChangeEvent{ID: "x", Type: watcher.AnomalyDetected, Severity: watcher.SeverityLow, Timestamp: time.Now()}
	require.NoError(t, j.RecordChange(ctx, ev))
	ev.Severity = watcher.SeverityCritical
	require.NoError(t, j.RecordChange(ctx, ev))

	got, err := j.RecentChanges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, watcher.SeverityCritical, got[0].Severity)
}

func TestRecentOptimizations(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordOptimization(ctx, reflex.Record{
		ID:        "a",
		Type:      reflex.MemoryConsolidation,
		Status:    reflex.StatusCompleted,
		StartedAt: start,
		EndedAt:   start.Add(2 * time.Second),
		Steps:     []reflex.StepResult{{Step: "run_consolidation", Success: true, Duration: time.Second}},
		Benefits:  []string{"Freed memory"},
	}))
	require.NoError(t, j.RecordOptimization(ctx, reflex.Record{
		ID:        "b",
		Type:      reflex.PerformanceTuning,
		Status:    reflex.StatusRolledBack,
		Forced:    true,
		StartedAt: start.Add(time.Minute),
		Steps:     []reflex.StepResult{{Step: "analyze_bottlenecks", Error: "boom"}},
		Rollback:  []reflex.StepResult{{Step: "restore_original_config", Success: true}},
		Error:     "boom",
	}))

	got, err := j.RecentOptimizations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].ID)
	assert.True(t, got[0].Forced)
	assert.Equal(t, reflex.StatusRolledBack, got[0].Status)
	assert.True(t, got[0].EndedAt.IsZero())
	assert.Equal(t, "boom", got[0].Error)
	require.Len(t, got[0].Rollback, 1)
	assert.Equal(t, "restore_original_config", got[0].Rollback[0].Step)

	assert.Equal(t, reflex.MemoryConsolidation, got[1].Type)
	assert.Equal(t, 2*time.Second, got[1].Duration())
	assert.Equal(t, time.Second, got[1].Steps[0].Duration)
	assert.Equal(t, []string{"Freed memory"}, got[1].Benefits)
	assert.Empty(t, got[1].Rollback)
}

func TestRecentIntrospections(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, j.RecordIntrospection(ctx, awareness.Reflection{
		Cycle: 6, Timestamp: now, Deep: true, Level: awareness.LevelAware, Mood: awareness.MoodCurious, Confidence: 0.7,
		Snapshot: awareness.Snapshot{BrainStatus: awareness.HealthHealthy},
	}))
	require.NoError(t, j.RecordIntrospection(ctx, awareness.Reflection{
		Cycle: 7, Timestamp: now.Add(time.Second), Thought: "hmm", Changes: []string{"Memory grew: +3 new episodes"},
		Level: awareness.LevelAware,
	}))

	got, err := j.RecentIntrospections(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 7, got[0].Cycle)
	assert.Equal(t, "hmm", got[0].Thought)
	assert.Equal(t, []string{"Memory grew: +3 new episodes"}, got[0].Changes)
	assert.True(t, got[1].Deep)
	assert.Equal(t, awareness.HealthHealthy, got[1].Snapshot.BrainStatus)
	assert.InDelta(t, 0.7, got[1].Confidence, 1e-9)
}

func TestCounts(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	c, err := j.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, c)

	require.NoError(t, j.RecordHeartbeat(ctx, Heartbeat{Beat: 1, Timestamp: time.Now(), Uptime: time.Minute, BrainHealthy: true}))
	require.NoError(t, j.RecordHeartbeat(ctx, Heartbeat{Beat: 2, Timestamp: time.Now()}))
	require.NoError(t, j.RecordChange(ctx, watcher.ChangeEvent{ID: "1", Type: watcher.AnomalyDetected, Severity: watcher.SeverityLow, Timestamp: time.Now()}))

	c, err = j.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Changes: 1, Heartbeats: 2}, c)
}

func TestClosedJournal(t *testing.T) {
	j, err := Open(MemoryPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	err = j.RecordHeartbeat(context.Background(), Heartbeat{Beat: 1, Timestamp: time.Now()})
	assert.True(t, nerrors.IsCode(err, nerrors.ErrJournalWriteFailed))
	assert.True(t, nerrors.IsRetryable(err))

	_, err = j.RecentChanges(context.Background(), 1)
	assert.True(t, nerrors.IsCode(err, nerrors.ErrJournalReadFailed))
}
