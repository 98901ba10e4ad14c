// Nexus - autonomous nervous system for the NEXUS memory API
//
// Nexus watches the memory API for changes, answers them with optimizations
// and keeps a self-model of what it is and what it can do.
//
// Components:
//   - watcher: change detection over /stats, /health and recent episodes
//   - reflex: optimization plans with rollback
//   - awareness: introspection and self-knowledge
//   - engine: supervision, budgets and coordination
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/config"
	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/logging"
)

const version = "1.0.0"

var (
	// Global flags
	configPath string
	verbose    bool
	daemonURL  string

	// Set by PersistentPreRunE.
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Nexus - autonomous nervous system for the NEXUS memory API",
	Long: `Nexus keeps the NEXUS memory API healthy without being asked.

It detects changes in the memory (recoveries, slowdowns, memory pressure,
consolidation opportunities), runs optimization plans in response, and
maintains a self-model of which subsystems are active.

Run "nexus run" to start the daemon and "nexus console" to talk to it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "init" {
			return nil
		}
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Nexus %s\n", version)
	},
}

// setup loads .env, the config file and the logger.
func setup() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	c, err := config.LoadOrDefault(path)
	if err != nil {
		return err
	}
	l, err := logging.New(c.Logging, verbose)
	if err != nil {
		return nerrors.ConfigWrap(err, nerrors.ErrConfigInvalid, "failed to initialize logger")
	}
	cfg, logger = c, l
	return nil
}

// resolvedConfigPath is the config file in use, empty when running on
// defaults.
func resolvedConfigPath() string {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: ./nexus.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&daemonURL, "daemon", "", "Daemon API URL (default: from api.host and api.port)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(awakenCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		nerrors.Display(err)
		stop()
		os.Exit(1)
	}
}
