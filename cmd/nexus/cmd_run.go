package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/api"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/config"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/engine"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/export"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/journal"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/logging"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/spinner"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

var (
	noWatch   bool
	countdown int
	asJSON    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Awaken the nervous system and run it autonomously",
	Long: `Awakens the nervous system, then runs change detection, optimization,
introspection and coordination until interrupted. The daemon API and its
websocket event stream are served on api.host:api.port.

The config file is watched; new watcher thresholds apply without a restart.`,
	RunE: runDaemon,
}

var awakenCmd = &cobra.Command{
	Use:   "awaken",
	Short: "Awaken once and print the awakening report",
	RunE:  runAwaken,
}

func init() {
	runCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the config file on change")
	awakenCmd.Flags().IntVar(&countdown, "countdown", 3, "Seconds to count down before awakening (0 to skip)")
	awakenCmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
}

// system is one wired nervous system.
type system struct {
	client   *brain.Client
	detector *watcher.Detector
	engine   *engine.Engine
	hub      *api.Hub
	journal  *journal.Journal
}

func buildSystem(c *config.Config, log *zap.Logger, withHub bool) (*system, error) {
	s := &system{client: brain.New(c.Brain, logging.Component(log, "brain"))}
	s.detector = watcher.New(s.client, c.Watcher, logging.Component(log, "watcher"))
	optimizer := reflex.New(s.client, c.Optimizer, logging.Component(log, "reflex"))
	aware := awareness.New(s.client, c.Awareness, logging.Component(log, "awareness"))

	deps := engine.Deps{
		Client:    s.client,
		Detector:  s.detector,
		Optimizer: optimizer,
		Awareness: aware,
		Logger:    logging.Component(log, "engine"),
	}
	if c.Journal.Enabled {
		j, err := journal.Open(c.Journal.Path)
		if err != nil {
			return nil, err
		}
		s.journal = j
		deps.Journal = j
	}
	if withHub {
		s.hub = api.NewHub(engine.Channels(), logging.Component(log, "hub"))
		deps.Events = s.hub
	}
	s.engine = engine.New(deps, c.Engine)
	return s, nil
}

// readyInterval is how often /health is polled while waiting for the memory API.
const readyInterval = time.Second

// waitForBrain blocks until the memory API answers /health or timeout
// elapses. A zero timeout skips the wait.
func (s *system) waitForBrain(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	logger.Debug("waiting for memory API", zap.String("url", s.client.BaseURL()), zap.Duration("timeout", timeout))
	return s.client.WaitReady(ctx, timeout, readyInterval)
}

// apply takes the live-reloadable parts of a reloaded config.
func (s *system) apply(c *config.Config) {
	s.detector.SetThresholds(c.Watcher.Thresholds)
	logger.Info("watcher thresholds updated",
		zap.Int("massive_recovery", c.Watcher.Thresholds.MassiveRecovery),
		zap.Duration("slow_response", c.Watcher.Thresholds.SlowResponse))
}

// serve runs the engine and the API server until ctx is done or either
// fails. A non-empty watchPath is reloaded into the system on change.
func (s *system) serve(ctx context.Context, server *api.Server, watchPath string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.engine.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	if watchPath != "" {
		g.Go(func() error {
			if err := config.Watch(gctx, watchPath, logging.Component(logger, "config"), s.apply); err != nil {
				logger.Warn("config reload disabled", zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *system) close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			logger.Warn("closing journal failed", zap.Error(err))
		}
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sys, err := buildSystem(cfg, logger, true)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "╔═══════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║           Nexus - Autonomous Nervous System               ║")
	fmt.Fprintln(out, "╚═══════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
	if path := resolvedConfigPath(); path != "" {
		fmt.Fprintf(out, "Config: %s\n", path)
	} else {
		fmt.Fprintln(out, "Config: (using defaults, run 'nexus init' to create)")
	}
	fmt.Fprintf(out, "Memory API: %s\n\n", sys.client.BaseURL())

	if err := sys.waitForBrain(ctx, cfg.Brain.ReadyTimeout); err != nil {
		sys.close()
		return err
	}
	report, err := sys.engine.Awaken(ctx)
	if err != nil {
		sys.close()
		return err
	}
	printReport(out, report)

	server := api.NewServer(cfg.API, sys.engine, sys.hub, logging.Component(logger, "api"))
	fmt.Fprintf(out, "API: http://%s (websocket /ws)\n", server.Address())
	fmt.Fprintln(out, "Autonomous operation started. Press Ctrl+C to stop.")

	watchPath := ""
	if !noWatch {
		watchPath = resolvedConfigPath()
	}
	err = sys.serve(ctx, server, watchPath)
	sys.close()
	fmt.Fprintln(out, "\nNervous system stopped.")
	return err
}

func runAwaken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sys, err := buildSystem(cfg, logger, false)
	if err != nil {
		return err
	}
	defer sys.close()

	if countdown > 0 && !asJSON {
		cd := spinner.Countdown{Message: "Awakening in", From: countdown, Tick: time.Second, Writer: cmd.ErrOrStderr()}
		if err := cd.Run(ctx); err != nil {
			return err
		}
	}

	if err := sys.waitForBrain(ctx, cfg.Brain.ReadyTimeout); err != nil {
		return err
	}

	spin := spinner.NewWithConfig(spinner.Config{
		Message:     "Awakening the nervous system",
		Writer:      cmd.ErrOrStderr(),
		ShowElapsed: true,
		HideCursor:  true,
	})
	spin.Start()
	report, err := sys.engine.Awaken(ctx)
	if err != nil {
		spin.Fail("Awakening failed")
		return err
	}
	spin.Success(fmt.Sprintf("Awake at %s", report.Knowledge.Level))

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(out, report)
	return nil
}

func healthyState(s string) bool {
	return s == engine.StateHealthy || s == engine.StateActive
}

func printReport(out io.Writer, r *engine.AwakeningReport) {
	fmt.Fprintf(out, "Episodes: %s\n", export.Count(r.Episodes))
	fmt.Fprintf(out, "Health: %s\n", r.Health.Status)

	names := make([]string, 0, len(r.Health.Components))
	for name := range r.Health.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ch := r.Health.Components[name]
		mark := "✗"
		if healthyState(ch.Status) {
			mark = "✓"
		}
		detail := ch.Status
		switch {
		case ch.Latency > 0:
			detail += ", " + ch.Latency.Round(time.Millisecond).String()
		case ch.Episodes > 0:
			detail += ", " + export.Count(ch.Episodes) + " episodes"
		}
		fmt.Fprintf(out, "  %s %-22s %s\n", mark, name, detail)
	}

	if len(r.Health.Recommendations) > 0 {
		fmt.Fprintln(out, "Recommendations:")
		for _, rec := range r.Health.Recommendations {
			fmt.Fprintf(out, "  • %s\n", rec)
		}
	}

	if k := r.Knowledge; k != nil {
		fmt.Fprintf(out, "Self-knowledge: %s, %s (confidence %.2f)\n", k.Level, k.Mood, k.Confidence)
		fmt.Fprintf(out, "  Active:  %s\n", export.List(k.ActiveSystems))
		fmt.Fprintf(out, "  Dormant: %s\n", export.List(k.DormantSystems))
	}
	fmt.Fprintln(out)
}
