package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

var base = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func parse(t *testing.T, s string, comma rune) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(s))
	r.Comma = comma
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteChanges(t *testing.T) {
	var buf bytes.Buffer
	err := WriteChanges(&buf, []watcher.ChangeEvent{
		{
			ID:               "c1",
			Type:             watcher.MassiveRecovery,
			Severity:         watcher.SeverityCritical,
			Description:      "Massive memory recovery: +4213 episodes",
			Data:             map[string]any{"growth": 4213},
			Timestamp:        base,
			RequiresAction:   true,
			SuggestedActions: []string{"full_arsenal_activation", "neural_mesh_sync"},
		},
		{ID: "c2", Type: watcher.AnomalyDetected, Severity: watcher.SeverityLow},
	}, nil)
	require.NoError(t, err)

	rows := parse(t, buf.String(), ',')
	require.Len(t, rows, 3)
	assert.Equal(t, ChangeColumns, rows[0])
	assert.Equal(t, []string{
		"c1", "2026-04-02T09:30:00Z", "massive_recovery", "critical", "TRUE",
		"Massive memory recovery: +4213 episodes",
		"full_arsenal_activation; neural_mesh_sync",
		`{"growth":4213}`,
	}, rows[1])
	assert.Equal(t, []string{"c2", "NA", "anomaly_detected", "low", "FALSE", "NA", "NA", "NA"}, rows[2])
}

func TestWriteOptimizations(t *testing.T) {
	var buf bytes.Buffer
	err := WriteOptimizations(&buf, []reflex.Record{
		{
			ID:        "o1",
			Type:      reflex.PerformanceTuning,
			Status:    reflex.StatusRolledBack,
			Forced:    true,
			StartedAt: base,
			EndedAt:   base.Add(1500 * time.Millisecond),
			Steps: []reflex.StepResult{
				{Step: "analyze_bottlenecks", Success: true},
				{Step: "clear_caches", Error: "503"},
			},
			Rollback: []reflex.StepResult{{Step: "restore_original_config", Success: true}},
			Error:    "step clear_caches failed: 503",
		},
		{ID: "o2", Type: reflex.NeuralMeshSync, Status: reflex.StatusRunning, StartedAt: base},
	}, &Config{Dialect: DialectTSV, IncludeHeader: true, NAString: ""})
	require.NoError(t, err)

	rows := parse(t, buf.String(), '\t')
	require.Len(t, rows, 3)
	assert.Equal(t, OptimizationColumns, rows[0])
	assert.Equal(t, []string{
		"o1", "performance_tuning", "rolled_back", "TRUE",
		"2026-04-02T09:30:00Z", "2026-04-02T09:30:01Z", "1.500", "2",
		"clear_caches", "restore_original_config", "step clear_caches failed: 503", "",
	}, rows[1])
	assert.Equal(t, "", rows[2][5])
	assert.Equal(t, "", rows[2][6])
}

func TestWriter_HeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChanges(&buf, nil, nil))
	assert.Equal(t, strings.Join(ChangeColumns, ",")+"\n", buf.String())
}

func TestWriter_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.IncludeHeader = false
	require.NoError(t, WriteChanges(&buf, nil, cfg))
	assert.Empty(t, buf.String())
}

func TestWriter_ExcelBOM(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Dialect = DialectExcel
	require.NoError(t, WriteOptimizations(&buf, []reflex.Record{{ID: "x"}}, cfg))
	assert.True(t, strings.HasPrefix(buf.String(), "\ufeffid,type"))
	assert.Equal(t, 1, strings.Count(buf.String(), "\ufeff"))
}

func TestWriter_RowWidth(t *testing.T) {
	cw := NewWriter(&bytes.Buffer{}, nil, []string{"a", "b"})
	assert.Error(t, cw.WriteRow([]string{"only one"}))
	require.NoError(t, cw.WriteRow([]string{"1", "2"}))
	assert.Equal(t, 1, cw.RowsWritten())
}

func TestTableRenderer(t *testing.T) {
	tr := &TableRenderer{Now: func() time.Time { return base.Add(3 * time.Minute) }}

	var buf bytes.Buffer
	require.NoError(t, tr.Changes(&buf, []watcher.ChangeEvent{{
		Type: watcher.PerformanceDegradation, Severity: watcher.SeverityHigh, Timestamp: base,
		RequiresAction: true, Description: strings.Repeat("slow ", 20),
	}}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "WHEN"))
	assert.Contains(t, lines[1], "3 minutes ago")
	assert.Contains(t, lines[1], "performance_degradation")
	assert.True(t, strings.HasSuffix(lines[1], "..."))

	buf.Reset()
	require.NoError(t, tr.Optimizations(&buf, []reflex.Record{{
		Type: reflex.MemoryConsolidation, Status: reflex.StatusCompleted, StartedAt: base, EndedAt: base.Add(2 * time.Second),
		Steps: make([]reflex.StepResult, 5),
	}}))
	assert.Contains(t, buf.String(), "memory_consolidation")
	assert.Contains(t, buf.String(), "2s")

	buf.Reset()
	require.NoError(t, tr.Optimizations(&buf, nil))
	assert.Equal(t, "No optimizations recorded.\n", buf.String())
}

func TestWriteIntrospections(t *testing.T) {
	var buf bytes.Buffer
	err := WriteIntrospections(&buf, []awareness.Reflection{
		{
			Cycle: 6, Timestamp: base, Deep: true, Level: awareness.LevelAware, Mood: awareness.MoodAnalytical,
			Confidence: 0.8, Snapshot: awareness.Snapshot{BrainStatus: "healthy", Episodes: 4213},
			Changes: []string{"episodes grew by 12"}, Thought: "I am learning.",
		},
		{Cycle: 7},
	}, &Config{Dialect: DialectTSV, IncludeHeader: true, TimestampFormat: time.RFC3339, NAString: "NA"})
	require.NoError(t, err)

	rows := parse(t, buf.String(), '\t')
	require.Len(t, rows, 3)
	assert.Equal(t, IntrospectionColumns, rows[0])
	assert.Equal(t, []string{
		"6", "2026-04-02T09:30:00Z", "TRUE", "aware", "analytical", "0.80", "healthy", "4213",
		"episodes grew by 12", "I am learning.",
	}, rows[1])
	assert.Equal(t, []string{"7", "NA", "FALSE", "NA", "NA", "0.00", "NA", "0", "NA", "NA"}, rows[2])
}

func TestTableRenderer_Introspections(t *testing.T) {
	tr := &TableRenderer{Now: func() time.Time { return base.Add(time.Hour) }}

	var buf bytes.Buffer
	require.NoError(t, tr.Introspections(&buf, []awareness.Reflection{
		{Cycle: 12, Timestamp: base, Deep: true, Level: awareness.LevelIntrospective, Mood: awareness.MoodConfident},
		{Cycle: 11, Timestamp: base, Thought: "What does it mean to remember?"},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "1 hour ago")
	assert.Contains(t, lines[1], "deep")
	assert.Contains(t, lines[1], "introspective")
	assert.Contains(t, lines[2], "routine")
	assert.Contains(t, lines[2], "What does it mean to remember?")

	buf.Reset()
	require.NoError(t, tr.Introspections(&buf, nil))
	assert.Equal(t, "No introspections recorded.\n", buf.String())
}

func TestCountAndList(t *testing.T) {
	assert.Equal(t, "4,213", Count(4213))
	assert.Equal(t, "-", List(nil))
	assert.Equal(t, "a, b", List([]string{"a", "b"}))
}
