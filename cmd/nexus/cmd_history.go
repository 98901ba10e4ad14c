package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/export"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/journal"
)

var (
	historyKind    string
	historyFormat  string
	historyDialect string
	historyLimit   int
	historyOutput  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled changes, optimizations or introspections",
	Long: `Reads the journal written by the daemon, newest first.

Examples:
  nexus history
  nexus history --kind optimizations --limit 50
  nexus history --kind introspections
  nexus history --format csv --dialect excel -o changes.csv`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyKind, "kind", "k", "changes", "What to show: changes, optimizations or introspections")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "table", "Output format: table or csv")
	historyCmd.Flags().StringVar(&historyDialect, "dialect", string(export.DialectStandard), "CSV dialect: standard, excel or tsv")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum rows, 0 for all")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "Write to file instead of stdout")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	switch historyKind {
	case "changes", "optimizations", "introspections":
	default:
		return fmt.Errorf("unknown kind %q: want changes, optimizations or introspections", historyKind)
	}
	if historyFormat != "table" && historyFormat != "csv" {
		return fmt.Errorf("unknown format %q: want table or csv", historyFormat)
	}
	csvCfg := export.DefaultConfig()
	switch d := export.Dialect(historyDialect); d {
	case export.DialectStandard, export.DialectExcel, export.DialectTSV:
		csvCfg.Dialect = d
	default:
		return fmt.Errorf("unknown dialect %q: want standard, excel or tsv", historyDialect)
	}

	if !cfg.Journal.Enabled {
		return nerrors.New(nerrors.ErrJournalOpenFailed, nerrors.CategoryJournal, "the journal is disabled").
			WithSuggestions("Set journal.enabled: true and restart the daemon")
	}
	if _, err := os.Stat(cfg.Journal.Path); err != nil {
		return nerrors.JournalWrap(err, nerrors.ErrJournalOpenFailed, "no journal found").
			WithContext("path", cfg.Journal.Path).
			WithSuggestions("Run 'nexus run' to start recording")
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	var out io.Writer = cmd.OutOrStdout()
	if historyOutput != "" {
		f, err := os.Create(historyOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", historyOutput, err)
		}
		defer f.Close()
		out = f
	}

	table := export.NewTableRenderer()
	switch historyKind {
	case "changes":
		changes, err := j.RecentChanges(ctx, historyLimit)
		if err != nil {
			return err
		}
		if historyFormat == "csv" {
			return export.WriteChanges(out, changes, csvCfg)
		}
		return table.Changes(out, changes)
	case "introspections":
		reflections, err := j.RecentIntrospections(ctx, historyLimit)
		if err != nil {
			return err
		}
		if historyFormat == "csv" {
			return export.WriteIntrospections(out, reflections, csvCfg)
		}
		return table.Introspections(out, reflections)
	default:
		records, err := j.RecentOptimizations(ctx, historyLimit)
		if err != nil {
			return err
		}
		if historyFormat == "csv" {
			return export.WriteOptimizations(out, records, csvCfg)
		}
		return table.Optimizations(out, records)
	}
}
