package brain

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Subsystem is an optional memory API component with a status endpoint.
type Subsystem struct {
	Name     string
	Endpoint string
}

// Subsystem names.
const (
	NeuralMesh          = "neural_mesh"
	EmotionalContinuity = "emotional_continuity"
	Analytics           = "analytics"
	Consciousness       = "consciousness"
	ContextSystem       = "context"
	MultiModal          = "multi_modal"
	WorkingMemory       = "working_memory"
)

// DefaultSubsystems are the probeable subsystems of the memory API.
var DefaultSubsystems = []Subsystem{
	{Name: NeuralMesh, Endpoint: "/neural-mesh/stats"},
	{Name: EmotionalContinuity, Endpoint: "/emotional/status"},
	{Name: Analytics, Endpoint: "/analytics/status"},
	{Name: Consciousness, Endpoint: "/consciousness/stats"},
	{Name: ContextSystem, Endpoint: "/context/status"},
	{Name: MultiModal, Endpoint: "/multi-modal/status"},
}

// AllSystems lists every known subsystem name. working_memory has no status
// endpoint of its own, so it always counts as dormant.
func AllSystems() []string {
	names := make([]string, 0, len(DefaultSubsystems)+1)
	for _, s := range DefaultSubsystems {
		names = append(names, s.Name)
	}
	return append(names, WorkingMemory)
}

// maxParallelProbes bounds concurrent subsystem probes.
const maxParallelProbes = 4

// ProbeSubsystems probes every subsystem concurrently and reports which
// answered 200.
func (c *Client) ProbeSubsystems(ctx context.Context, subsystems []Subsystem) map[string]bool {
	var (
		mu     sync.Mutex
		active = make(map[string]bool, len(subsystems))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelProbes)
	for _, s := range subsystems {
		g.Go(func() error {
			ok := c.Probe(gctx, s.Endpoint)
			mu.Lock()
			active[s.Name] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return active
}
