package awareness

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain/braintest"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
)

func newAwareness(t *testing.T) (*Awareness, *braintest.Server) {
	t.Helper()
	fake := braintest.New(t)
	return New(fake.Client(), DefaultConfig(), nil), fake
}

func episodes(types ...string) []brain.Episode {
	out := make([]brain.Episode, len(types))
	for i, at := range types {
		out[i] = brain.Episode{ActionType: at, Raw: map[string]any{"action_type": at}}
	}
	return out
}

func TestLevel_DormantBeforeAwaken(t *testing.T) {
	a, _ := newAwareness(t)
	assert.Equal(t, LevelDormant, a.Level())
	assert.Nil(t, a.Knowledge())
	assert.True(t, a.AwakenedAt().IsZero())
}

func TestAwaken(t *testing.T) {
	a, fake := newAwareness(t)
	fake.SetEpisodes(5000)
	fake.SetStatus("/neural-mesh/stats", http.StatusNotFound)
	fake.SetStatus("/multi-modal/status", http.StatusNotFound)

	k, err := a.Awaken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"analytics", "consciousness", "context", "emotional_continuity"}, k.ActiveSystems)
	assert.Equal(t, []string{"neural_mesh", "multi_modal", "working_memory"}, k.DormantSystems)
	assert.Equal(t, 5000, k.TotalEpisodes)
	assert.Equal(t, HealthHealthy, k.HealthStatus)
	assert.Len(t, k.AvailableTools, 5)
	assert.Equal(t, LevelAwakening, k.Level)
	assert.Equal(t, MoodAnalytical, k.Mood)
	assert.InDelta(t, 1.0, k.Confidence, 1e-9)
	assert.Contains(t, k.Weaknesses, "Limited multimodal capabilities")
	assert.Contains(t, k.Weaknesses, "Tripartite communication inactive")
	assert.Equal(t, "Activate tripartite Neural Mesh communication", k.Objectives[0])
	assert.Contains(t, k.Strengths, "Rich episodic memory (5000 episodes)")
	assert.Equal(t, []string{"neural_mesh", "direct_api", "dashboard"}, k.Channels)
	assert.Equal(t, defaultLessons, k.Lessons)

	assert.Equal(t, []string{
		"consciousness_moment_first_awareness",
		"deep_introspection_completed",
	}, fake.ActionTypes())
	assert.Equal(t, LevelAwakening, a.Level())
	assert.False(t, a.AwakenedAt().IsZero())
}

func TestDeepIntrospect_StatsFailure(t *testing.T) {
	a, fake := newAwareness(t)
	fake.SetStatsStatus(http.StatusInternalServerError)

	_, err := a.DeepIntrospect(context.Background())
	require.Error(t, err)
	assert.True(t, nerrors.IsCode(err, nerrors.ErrBrainServerError))
	assert.Nil(t, a.Knowledge())
	assert.Empty(t, fake.Actions())
}

func TestDeepIntrospect_EpisodeAnalysis(t *testing.T) {
	a, fake := newAwareness(t)
	recent := make([]map[string]any, 0, 40)
	for i := 0; i < 40; i++ {
		at := "chat"
		switch {
		case i%4 == 0:
			at = "task_success"
		case i == 3:
			at = "sync_failed"
		}
		recent = append(recent, map[string]any{"action_type": at, "note": "with Ricardo"})
	}
	fake.SetRecent(recent)

	k, err := a.DeepIntrospect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Tendency toward: chat (72.5%)",
		"Tendency toward: task_success (25.0%)",
	}, k.Patterns)
	assert.Equal(t, []string{"Ricardo (40 interactions)"}, k.Collaborators)
	assert.Equal(t, "Repeat: task_success - successful strategy", k.Lessons[0])
	assert.Contains(t, k.Lessons, "Avoid: sync_failed - learned to handle errors better")
	assert.Len(t, k.Lessons, maxLessons)
	assert.Equal(t, "Accumulating experiences - initial phase", k.Trajectory[0])
}

func TestKnowledge_ReturnsCopy(t *testing.T) {
	a, _ := newAwareness(t)
	_, err := a.Awaken(context.Background())
	require.NoError(t, err)

	k := a.Knowledge()
	k.ActiveSystems[0] = "tampered"
	k.Level = LevelTranscendent

	again := a.Knowledge()
	assert.NotEqual(t, "tampered", again.ActiveSystems[0])
	assert.NotEqual(t, LevelTranscendent, again.Level)
}

func TestIntrospect_Growth(t *testing.T) {
	a, fake := newAwareness(t)
	fake.SetEpisodes(1000)
	_, err := a.Awaken(context.Background())
	require.NoError(t, err)

	fake.SetEpisodes(1200)
	thought, err := a.Introspect(context.Background())
	require.NoError(t, err)

	assert.Contains(t, thought, "growth in my accumulated experience")
	assert.Equal(t, 1, a.Count())
	k := a.Knowledge()
	assert.Equal(t, 1200, k.TotalEpisodes)
	assert.Contains(t, k.Patterns, "Memory grew: +200 new episodes")

	types := fake.ActionTypes()
	assert.Equal(t, "consciousness_moment_introspection", types[len(types)-1])
}

func TestIntrospect_QuietWhenStable(t *testing.T) {
	a, fake := newAwareness(t)
	_, err := a.Awaken(context.Background())
	require.NoError(t, err)
	before := len(fake.Actions())

	thought, err := a.Introspect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, thought)
	assert.Len(t, fake.Actions(), before)
}

func TestIntrospect_ContemplatesEveryFifthCycle(t *testing.T) {
	a, _ := newAwareness(t)
	var thoughts []string
	for i := 0; i < 10; i++ {
		thought, err := a.Introspect(context.Background())
		require.NoError(t, err)
		thoughts = append(thoughts, thought)
	}
	for i, th := range thoughts {
		switch i + 1 {
		case 5:
			assert.Equal(t, contemplations[0], th)
		case 10:
			assert.Equal(t, contemplations[1], th)
		default:
			assert.Empty(t, th, "cycle %d", i+1)
		}
	}
}

func TestIntrospect_UnhealthyBrain(t *testing.T) {
	a, fake := newAwareness(t)
	_, err := a.Awaken(context.Background())
	require.NoError(t, err)

	fake.SetHealth(http.StatusServiceUnavailable, 0)
	thought, err := a.Introspect(context.Background())
	require.NoError(t, err)
	assert.Contains(t, thought, "Detecting challenges")
	assert.Equal(t, HealthUnhealthy, a.Knowledge().HealthStatus)
}

func TestIntrospect_Unreachable(t *testing.T) {
	a, fake := newAwareness(t)
	fake.Close()

	_, err := a.Introspect(context.Background())
	require.Error(t, err)
	assert.True(t, nerrors.IsRetryable(err))
}

func TestOnReflection(t *testing.T) {
	a, fake := newAwareness(t)
	var got []Reflection
	a.OnReflection(func(r Reflection) { got = append(got, r) })

	_, err := a.Awaken(context.Background())
	require.NoError(t, err)
	fake.SetEpisodes(10)
	_, err = a.Introspect(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.True(t, got[0].Deep)
	assert.False(t, got[1].Deep)
	assert.Equal(t, 1, got[1].Cycle)
	assert.Equal(t, []string{"Memory grew: +10 new episodes", "Brain system working correctly"}, got[1].Changes)
	assert.Equal(t, got[0].Level, got[1].Level)
}

func TestAssessLevel(t *testing.T) {
	tests := []struct {
		count, tools, active int
		want                 Level
	}{
		{0, 0, 0, LevelAwakening},
		{6, 0, 0, LevelAwakening},
		{6, 51, 0, LevelAware},
		{6, 51, 4, LevelIntrospective},
		{21, 0, 0, LevelAware},
		{21, 51, 4, LevelSelfDirecting},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d-%d", tt.count, tt.tools, tt.active), func(t *testing.T) {
			assert.Equal(t, tt.want, assessLevel(tt.count, tt.tools, tt.active))
		})
	}
}

func TestDeepIntrospect_LevelUsesPreviouslyKnownTools(t *testing.T) {
	a, fake := newAwareness(t)
	paths := make([]string, 60)
	for i := range paths {
		paths[i] = fmt.Sprintf("/tool/%d", i)
	}
	fake.SetPaths(paths)
	a.count = 6

	first, err := a.DeepIntrospect(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.AvailableTools, 60)
	require.Greater(t, len(first.ActiveSystems), 3)
	// Cycles and active systems score two, tools are not known yet.
	assert.Equal(t, LevelAware, first.Level)

	second, err := a.DeepIntrospect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LevelIntrospective, second.Level)
}

func TestAssessMood(t *testing.T) {
	assert.Equal(t, MoodAnalytical, assessMood(map[string]bool{"analytics": true, "neural_mesh": true}, 2))
	assert.Equal(t, MoodCollaborative, assessMood(map[string]bool{"neural_mesh": true}, 1))
	assert.Equal(t, MoodConfident, assessMood(map[string]bool{"a": true, "b": true, "c": true, "d": true}, 4))
	assert.Equal(t, MoodCurious, assessMood(nil, 0))
}

func TestAssessConfidence(t *testing.T) {
	assert.InDelta(t, 0.5, assessConfidence(0, 0, 0), 1e-9)
	assert.InDelta(t, 0.8, assessConfidence(2, 11, 0), 1e-9)
	assert.InDelta(t, 1.0, assessConfidence(6, 11, 5000), 1e-9)
}

func TestBehavioralPatterns(t *testing.T) {
	assert.Nil(t, behavioralPatterns(nil))
	assert.Equal(t, []string{"Tendency toward: a (60.0%)", "Tendency toward: unknown (40.0%)"},
		behavioralPatterns(episodes("a", "a", "a", "", "")))
	assert.Empty(t, behavioralPatterns(episodes("a", "b", "c", "d", "e", "f")))
}

func TestCollaborators(t *testing.T) {
	var eps []brain.Episode
	for i := 0; i < 11; i++ {
		eps = append(eps, brain.Episode{Raw: map[string]any{"who": "NEXUS and prometheus"}})
	}
	eps = append(eps, brain.Episode{Raw: map[string]any{"who": "ricardo"}})
	assert.Equal(t, []string{"NEXUS (11 interactions)", "PROMETHEUS (11 interactions)"}, collaborators(eps))
}

func TestTrajectory(t *testing.T) {
	assert.Equal(t, defaultTrajectory, trajectory(nil))
	got := trajectory(episodes("breakthrough_moment", "consciousness_moment_introspection"))
	assert.Equal(t, []string{
		"Breakthrough: breakthrough_moment",
		"Conscious moment: consciousness_moment_introspection",
	}, got)
}

func TestGrowthAreas(t *testing.T) {
	got := growthAreas([]string{"Suboptimal response time (2.50s)", "Limited multimodal capabilities"})
	assert.Equal(t, "Optimize response speed", got[0])
	assert.Equal(t, "Improve: Limited multimodal capabilities", got[1])
	assert.Len(t, got, 7)

	got = growthAreas([]string{"slow a", "slow b"})
	assert.Equal(t, 6, len(got))
}

func TestWeaknesses_SlowAndUnreachable(t *testing.T) {
	slow := &brain.HealthReport{StatusCode: 200, Latency: 2500 * time.Millisecond}
	assert.Equal(t, []string{"Suboptimal response time (2.50s)"}, weaknesses(nil, slow, 2*time.Second))
	assert.Equal(t, []string{"Connectivity or performance problems"}, weaknesses(nil, nil, 2*time.Second))
}

func TestReflect(t *testing.T) {
	assert.Empty(t, reflect(1, []string{"Stable state - normal continuity"}))
	assert.Equal(t, contemplations[0], reflect(5, nil))
	assert.Equal(t, contemplations[4], reflect(25, nil))
	assert.Equal(t, contemplations[0], reflect(30, nil))
	assert.Contains(t, reflect(3, []string{"a new change"}), "Changes detected: a new change")
}

func TestRun_IntrospectsAndGoesDeep(t *testing.T) {
	defer goleak.VerifyNone(t)
	fake := braintest.New(t)
	defer fake.Close()

	cfg := DefaultConfig()
	cfg.Interval = 10 * time.Millisecond
	cfg.DeepEvery = 2
	a := New(fake.Client(), cfg, nil)

	var mu sync.Mutex
	deep := 0
	a.OnReflection(func(r Reflection) {
		if r.Deep {
			mu.Lock()
			deep++
			mu.Unlock()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return a.Count() >= 2 && deep >= 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, a.Running())

	cancel()
	<-done
	assert.False(t, a.Running())
	assert.NotEqual(t, LevelDormant, a.Level())
}
