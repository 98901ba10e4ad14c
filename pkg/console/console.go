// Package console provides the interactive REPL for a running Nexus daemon.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/api"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/engine"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/export"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/help"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/spinner"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

// Daemon is the part of the daemon API the console talks to. *api.Client
// satisfies it.
type Daemon interface {
	Health(ctx context.Context) (*api.Health, error)
	Status(ctx context.Context) (*engine.Status, error)
	Awareness(ctx context.Context) (*awareness.SelfKnowledge, error)
	Changes(ctx context.Context, limit int) ([]watcher.ChangeEvent, error)
	Optimizations(ctx context.Context, limit int) ([]reflex.Record, error)
	Plans(ctx context.Context) ([]reflex.Plan, error)
	Force(ctx context.Context, t reflex.OptimizationType) (*reflex.Record, error)
}

var _ Daemon = (*api.Client)(nil)

// Config holds console configuration.
type Config struct {
	HistoryFile string
	// Limit is the default row count for /changes and /optimizations.
	Limit int
	// NoConfirm skips the prompt before /optimize.
	NoConfirm bool
}

const defaultLimit = 10

// Console is the interactive command-line interface.
type Console struct {
	daemon   Daemon
	rl       *readline.Instance
	out      io.Writer
	prompter Prompter
	table    *export.TableRenderer
	limit    int
	confirm  bool
}

// New creates a console reading from the terminal.
func New(daemon Daemon, cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[35mnexus>\033[0m ",
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    NewCompleter(),
	})
	if err != nil {
		return nil, err
	}
	c := newConsole(daemon, rl.Stdout(), &readlinePrompter{rl: rl}, cfg)
	c.rl = rl
	return c, nil
}

// NewBatch creates a console without a line editor, for running single
// commands. Confirmations are read from in.
func NewBatch(daemon Daemon, in io.Reader, out io.Writer, cfg Config) *Console {
	return newConsole(daemon, out, NewIOPrompter(in, out), cfg)
}

func newConsole(daemon Daemon, out io.Writer, prompter Prompter, cfg Config) *Console {
	if out == nil {
		out = os.Stdout
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Console{
		daemon:   daemon,
		out:      out,
		prompter: prompter,
		table:    export.NewTableRenderer(),
		limit:    limit,
		confirm:  !cfg.NoConfirm,
	}
}

// Run starts the interactive loop. It returns nil on /quit or EOF.
func (c *Console) Run(ctx context.Context) error {
	defer c.rl.Close()

	fmt.Fprintln(c.out, "Connected to the Nexus nervous system.")
	fmt.Fprintln(c.out, "Commands: /status, /changes, /optimizations, /plans, /optimize, /awareness, /help, /quit")
	fmt.Fprintln(c.out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		if err := c.Execute(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(c.out, nerrors.Sprint(err))
		}
	}
}

var errQuit = errors.New("quit")

// Execute runs one input line. Blank lines do nothing.
func (c *Console) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		fmt.Fprintf(c.out, "Commands start with /. Try /help.\n")
		return nil
	}

	parts := strings.Fields(line)
	cmd := parts[0]

	switch cmd {
	case "/quit", "/exit", "/q":
		return errQuit
	case "/help", "/h":
		c.printHelp(parts[1:])
	case "/status":
		return c.printStatus(ctx)
	case "/changes":
		return c.printChanges(ctx, parts[1:])
	case "/optimizations":
		return c.printOptimizations(ctx, parts[1:])
	case "/plans":
		return c.printPlans(ctx)
	case "/optimize":
		return c.handleOptimize(ctx, parts[1:])
	case "/awareness":
		return c.printAwareness(ctx)
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n", cmd)
	}
	return nil
}

func (c *Console) printHelp(args []string) {
	r := help.NewRenderer(c.out)
	if len(args) > 0 {
		r.RenderCommand(args[0])
		return
	}
	r.RenderFull()
}

func (c *Console) printStatus(ctx context.Context) error {
	st, err := c.daemon.Status(ctx)
	if err != nil {
		return err
	}
	state := "\033[31mstopped\033[0m"
	switch {
	case st.Emergency:
		state = "\033[31;1memergency shutdown\033[0m"
	case st.Running:
		state = "\033[32mrunning\033[0m"
	}
	fmt.Fprintf(c.out, "Nervous system: %s\n", state)
	if !st.StartedAt.IsZero() {
		fmt.Fprintf(c.out, "  Uptime: %s\n", st.Uptime.Round(time.Second))
	}
	fmt.Fprintf(c.out, "  Heartbeats: %s\n", export.Count(st.Heartbeats))
	fmt.Fprintf(c.out, "  Autonomous actions: %s (%d in the last hour)\n",
		export.Count(st.AutonomousActions), st.ActionsLastHour)
	fmt.Fprintf(c.out, "  Awareness: %s", st.Level)
	if st.Mood != "" {
		fmt.Fprintf(c.out, ", %s", st.Mood)
	}
	fmt.Fprintf(c.out, " (confidence %.2f)\n", st.Confidence)

	for _, name := range []string{"watcher", "optimizer", "awareness"} {
		running, ok := st.Components[name]
		if !ok {
			continue
		}
		mark := "✗"
		if running {
			mark = "✓"
		}
		fmt.Fprintf(c.out, "  %s %s\n", mark, name)
	}
	return nil
}

func (c *Console) parseLimit(args []string) (int, error) {
	if len(args) == 0 {
		return c.limit, nil
	}
	var n int
	if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid count: %s", args[0])
	}
	return n, nil
}

func (c *Console) printChanges(ctx context.Context, args []string) error {
	limit, err := c.parseLimit(args)
	if err != nil {
		return err
	}
	changes, err := c.daemon.Changes(ctx, limit)
	if err != nil {
		return err
	}
	return c.table.Changes(c.out, changes)
}

func (c *Console) printOptimizations(ctx context.Context, args []string) error {
	limit, err := c.parseLimit(args)
	if err != nil {
		return err
	}
	records, err := c.daemon.Optimizations(ctx, limit)
	if err != nil {
		return err
	}
	return c.table.Optimizations(c.out, records)
}

func (c *Console) printPlans(ctx context.Context) error {
	plans, err := c.daemon.Plans(ctx)
	if err != nil {
		return err
	}
	return c.table.Plans(c.out, plans)
}

func (c *Console) handleOptimize(ctx context.Context, args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: /optimize <type>")
		fmt.Fprintf(c.out, "  Types: %s\n", strings.Join(optimizationTypes(), ", "))
		return nil
	}
	t := reflex.OptimizationType(args[0])

	if c.confirm && c.prompter != nil {
		ok, err := c.prompter.Confirm(fmt.Sprintf("Run %s now, outside the hourly budget?", t))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "Cancelled.")
			return nil
		}
	}

	spin := spinner.NewWithConfig(spinner.Config{
		Message:     fmt.Sprintf("Running %s", t),
		Writer:      c.out,
		ShowElapsed: true,
		HideCursor:  true,
	})
	spin.Start()
	rec, err := c.daemon.Force(ctx, t)
	if err != nil {
		spin.Fail(fmt.Sprintf("%s could not run", t))
		return err
	}
	if rec.Status == reflex.StatusCompleted {
		spin.Success(fmt.Sprintf("%s %s", t, rec.Status))
	} else {
		spin.Fail(fmt.Sprintf("%s %s", t, rec.Status))
	}

	for _, step := range rec.Steps {
		mark := "\033[32m✓\033[0m"
		if !step.Success {
			mark = "\033[31m✗\033[0m"
		}
		fmt.Fprintf(c.out, "  %s %s\n", mark, step.Step)
	}
	if len(rec.Rollback) > 0 {
		fmt.Fprintf(c.out, "  rolled back: %s\n", export.List(stepNames(rec.Rollback)))
	}
	if rec.Error != "" {
		fmt.Fprintf(c.out, "  \033[31m%s\033[0m\n", rec.Error)
	}
	if len(rec.Benefits) > 0 {
		fmt.Fprintf(c.out, "  benefits: %s\n", export.List(rec.Benefits))
	}
	return nil
}

func stepNames(steps []reflex.StepResult) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Step
	}
	return names
}

func (c *Console) printAwareness(ctx context.Context) error {
	k, err := c.daemon.Awareness(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "\n\033[36m=== Self-knowledge (%s) ===\033[0m\n", k.Level)
	fmt.Fprintf(c.out, "Mood: %s, confidence %.2f\n", k.Mood, k.Confidence)
	fmt.Fprintf(c.out, "Episodes: %s, health: %s\n", export.Count(k.TotalEpisodes), k.HealthStatus)
	if k.SelfAssessment != "" {
		fmt.Fprintf(c.out, "%s\n", k.SelfAssessment)
	}
	fmt.Fprintln(c.out)
	rows := []struct {
		label string
		items []string
	}{
		{"Active systems", k.ActiveSystems},
		{"Dormant systems", k.DormantSystems},
		{"Strengths", k.Strengths},
		{"Weaknesses", k.Weaknesses},
		{"Patterns", k.Patterns},
		{"Objectives", k.Objectives},
		{"Growth areas", k.GrowthAreas},
	}
	for _, r := range rows {
		fmt.Fprintf(c.out, "  %-16s %s\n", r.label+":", export.List(r.items))
	}
	fmt.Fprintln(c.out)
	return nil
}
