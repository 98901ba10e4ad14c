package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/api"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/brain"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/config"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/console"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/export"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/journal"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/logging"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/spinner"
)

// daemonTimeout matches the write deadline the daemon gives forced runs.
const daemonTimeout = 5 * time.Minute

var (
	listPlans   bool
	assumeYes   bool
	direct      bool
	searchLimit int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon status, or probe the memory API when no daemon runs",
	RunE:  runStatus,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [type]",
	Short: "Force an optimization",
	Long: `Forces an optimization through the running daemon. Forced runs skip the
cooldown, prerequisites and hourly budget but still count against
optimizer.max_concurrent. When that many optimizations of any type are
already running the request is refused.

Use --list to see the available types and --direct to run the plan against
the memory API without a daemon.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOptimize,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open an interactive console on the running daemon",
	RunE:  runConsole,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the memory API",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	optimizeCmd.Flags().BoolVarP(&listPlans, "list", "l", false, "List optimization plans")
	optimizeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	optimizeCmd.Flags().BoolVar(&direct, "direct", false, "Run against the memory API without a daemon")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchLimit < 1 {
		return fmt.Errorf("--limit must be positive, got %d", searchLimit)
	}
	query := strings.Join(args, " ")
	client := brain.New(cfg.Brain, logging.Component(logger, "brain"))
	results, err := client.Search(cmd.Context(), brain.SearchRequest{Query: query, Limit: searchLimit})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No results for %q.\n", query)
		return nil
	}
	fmt.Fprintf(out, "%d result(s) for %q:\n", len(results), query)
	for _, r := range results {
		line, err := json.Marshal(r)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s\n", line)
	}
	return nil
}

// daemonBaseURL is --daemon, or the configured API address with wildcard
// hosts mapped to localhost.
func daemonBaseURL(c *config.Config) string {
	if daemonURL != "" {
		return daemonURL
	}
	host := c.API.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.API.Port))
}

func daemonClient() *api.Client {
	return api.NewClient(daemonBaseURL(cfg), daemonTimeout)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	client := daemonClient()

	var err error
	if _, herr := client.Health(ctx); herr == nil {
		fmt.Fprintf(out, "Daemon: %s\n", client.BaseURL())
		err = console.NewBatch(client, cmd.InOrStdin(), out, console.Config{}).Execute(ctx, "/status")
	} else {
		fmt.Fprintf(out, "Daemon: not reachable at %s\n", client.BaseURL())
		err = probeBrain(ctx, out, brain.New(cfg.Brain, logging.Component(logger, "brain")))
	}
	printJournal(ctx, out)
	return err
}

// printJournal summarizes the local journal if there is one. It never
// creates the file.
func printJournal(ctx context.Context, out io.Writer) {
	if !cfg.Journal.Enabled {
		return
	}
	if _, err := os.Stat(cfg.Journal.Path); err != nil {
		return
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		logger.Warn("opening journal failed", zap.String("path", cfg.Journal.Path), zap.Error(err))
		return
	}
	defer j.Close()
	c, err := j.Counts(ctx)
	if err != nil {
		logger.Warn("reading journal counts failed", zap.Error(err))
		return
	}
	fmt.Fprintf(out, "Journal: %s\n", cfg.Journal.Path)
	fmt.Fprintf(out, "  Changes: %s  Optimizations: %s  Heartbeats: %s  Introspections: %s\n",
		export.Count(c.Changes), export.Count(c.Optimizations), export.Count(c.Heartbeats), export.Count(c.Introspections))
}

// probeBrain reports memory API health, episode count and subsystems
// without a daemon.
func probeBrain(ctx context.Context, out io.Writer, client *brain.Client) error {
	fmt.Fprintf(out, "Memory API: %s\n", client.BaseURL())
	health, err := client.Health(ctx)
	if health == nil {
		fmt.Fprintln(out, "  ✗ unreachable")
		return err
	}
	if err != nil {
		fmt.Fprintf(out, "  ✗ unhealthy (HTTP %d)\n", health.StatusCode)
	} else {
		fmt.Fprintf(out, "  ✓ healthy (%s)\n", health.Latency.Round(time.Millisecond))
	}

	if stats, err := client.Stats(ctx); err == nil {
		fmt.Fprintf(out, "  Episodes: %s\n", export.Count(stats.EpisodicMemory.TotalEpisodes))
	}

	active := client.ProbeSubsystems(ctx, brain.DefaultSubsystems)
	names := make([]string, 0, len(active))
	for name := range active {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(out, "Subsystems:")
	for _, name := range names {
		mark := "✗"
		if active[name] {
			mark = "✓"
		}
		fmt.Fprintf(out, "  %s %s\n", mark, name)
	}
	return nil
}

func sortedPlans() []reflex.Plan {
	plans := reflex.DefaultPlans()
	list := make([]reflex.Plan, 0, len(plans))
	for _, p := range plans {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Type < list[j].Type })
	return list
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if listPlans || len(args) == 0 {
		return export.NewTableRenderer().Plans(out, sortedPlans())
	}
	t := reflex.OptimizationType(args[0])

	if direct {
		return optimizeDirect(ctx, out, t)
	}
	c := console.NewBatch(daemonClient(), cmd.InOrStdin(), out, console.Config{NoConfirm: assumeYes})
	return c.Execute(ctx, "/optimize "+string(t))
}

// optimizeDirect runs one plan with a standalone optimizer.
func optimizeDirect(ctx context.Context, out io.Writer, t reflex.OptimizationType) error {
	client := brain.New(cfg.Brain, logging.Component(logger, "brain"))
	optimizer := reflex.New(client, cfg.Optimizer, logging.Component(logger, "reflex"))

	spin := spinner.NewWithConfig(spinner.Config{Message: fmt.Sprintf("Running %s", t), Writer: out, ShowElapsed: true})
	spin.Start()
	rec, err := optimizer.Force(ctx, t)
	if err != nil {
		spin.Fail(fmt.Sprintf("%s could not run", t))
		return err
	}
	if rec.Status == reflex.StatusCompleted {
		spin.Success(fmt.Sprintf("%s %s", t, rec.Status))
	} else {
		spin.Fail(fmt.Sprintf("%s %s", t, rec.Status))
	}
	if err := export.NewTableRenderer().Optimizations(out, []reflex.Record{*rec}); err != nil {
		return err
	}
	return rec.Err()
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := daemonClient()
	if _, err := client.Health(ctx); err != nil {
		return err
	}

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".nexus_history")
	}
	c, err := console.New(client, console.Config{HistoryFile: historyFile})
	if err != nil {
		return err
	}
	return c.Run(ctx)
}
