package console

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func suffixes(matches [][]rune) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = string(m)
	}
	sort.Strings(out)
	return out
}

func TestCompleter_Do(t *testing.T) {
	c := NewCompleter()

	tests := []struct {
		name       string
		line       string
		pos        int
		want       []string
		wantLength int
	}{
		{"empty", "", 0, []string{}, 0},
		{"slash lists everything", "/", 1, []string{
			"awareness ", "changes ", "exit ", "help ", "optimizations ", "optimize ", "plans ", "quit ", "status ",
		}, 1},
		{"shared prefix", "/opt", 4, []string{"imizations ", "imize "}, 4},
		{"unique", "/st", 3, []string{"atus "}, 3},
		{"no match", "/zz", 3, []string{}, 3},
		{"plain word", "sta", 3, []string{}, 0},
		{"optimize type", "/optimize mem", 13, []string{"ory_consolidation "}, 3},
		{"optimize all types", "/optimize ", 10, []string{
			"analytics_boost ", "context_optimization ", "emotional_calibration ", "full_arsenal_activation ",
			"memory_consolidation ", "neural_mesh_sync ", "performance_tuning ", "working_memory_cleanup ",
		}, 0},
		{"second argument", "/optimize memory_consolidation x", 32, []string{}, 0},
		{"other command argument", "/changes 1", 10, []string{}, 0},
		{"cursor mid line", "/sta xyz", 3, []string{"atus "}, 3},
		{"pos beyond line", "/he", 10, []string{"lp "}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, length := c.Do([]rune(tt.line), tt.pos)
			if diff := cmp.Diff(tt.want, suffixes(got)); diff != "" {
				t.Errorf("completions mismatch (-want +got):\n%s", diff)
			}
			if length != tt.wantLength {
				t.Errorf("length = %d, want %d", length, tt.wantLength)
			}
		})
	}
}

func TestOptimizationTypesSorted(t *testing.T) {
	types := optimizationTypes()
	if len(types) != 8 {
		t.Fatalf("expected 8 optimization types, got %d", len(types))
	}
	if !sort.StringsAreSorted(types) {
		t.Errorf("types not sorted: %v", types)
	}
}
