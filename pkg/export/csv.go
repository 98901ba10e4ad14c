// Package export renders change events and optimization records as CSV for
// spreadsheets and as aligned tables for terminals.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

// Dialect specifies the CSV format variant.
type Dialect string

const (
	// DialectStandard is RFC 4180 CSV.
	DialectStandard Dialect = "standard"

	// DialectExcel is standard CSV preceded by a UTF-8 byte order mark.
	DialectExcel Dialect = "excel"

	// DialectTSV uses tabs instead of commas.
	DialectTSV Dialect = "tsv"
)

// Config specifies options for CSV export.
type Config struct {
	Dialect       Dialect
	IncludeHeader bool
	// TimestampFormat defaults to time.RFC3339.
	TimestampFormat string
	// NAString stands in for missing values.
	NAString string
}

// DefaultConfig returns RFC 4180 CSV with a header and RFC 3339 timestamps.
func DefaultConfig() *Config {
	return &Config{
		Dialect:         DialectStandard,
		IncludeHeader:   true,
		TimestampFormat: time.RFC3339,
		NAString:        "NA",
	}
}

// ChangeColumns are the columns of a change export.
var ChangeColumns = []string{
	"id",
	"timestamp",
	"type",
	"severity",
	"requires_action",
	"description",
	"suggested_actions",
	"data",
}

// OptimizationColumns are the columns of an optimization export.
var OptimizationColumns = []string{
	"id",
	"type",
	"status",
	"forced",
	"started_at",
	"ended_at",
	"duration_seconds",
	"steps_run",
	"failed_step",
	"rollback_steps",
	"error",
	"benefits",
}

// IntrospectionColumns are the columns of an introspection export.
var IntrospectionColumns = []string{
	"cycle",
	"timestamp",
	"deep",
	"level",
	"mood",
	"confidence",
	"brain_status",
	"episodes",
	"changes",
	"thought",
}

// Writer writes rows of a fixed column set.
type Writer struct {
	config      *Config
	out         io.Writer
	writer      *csv.Writer
	columns     []string
	headerDone  bool
	bomDone     bool
	rowsWritten int
}

// NewWriter creates a Writer for columns. A nil config uses DefaultConfig.
func NewWriter(w io.Writer, config *Config, columns []string) *Writer {
	if config == nil {
		config = DefaultConfig()
	}
	c := *config
	config = &c
	if config.TimestampFormat == "" {
		config.TimestampFormat = time.RFC3339
	}
	cw := csv.NewWriter(w)
	if config.Dialect == DialectTSV {
		cw.Comma = '\t'
	}
	return &Writer{config: config, out: w, writer: cw, columns: columns}
}

func (cw *Writer) start() error {
	if cw.config.Dialect == DialectExcel && !cw.bomDone {
		cw.bomDone = true
		if _, err := io.WriteString(cw.out, "\ufeff"); err != nil {
			return fmt.Errorf("failed to write byte order mark: %w", err)
		}
	}
	if cw.config.IncludeHeader && !cw.headerDone {
		cw.headerDone = true
		if err := cw.writer.Write(cw.columns); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}
	return nil
}

// WriteRow writes one row. It must have one value per column.
func (cw *Writer) WriteRow(row []string) error {
	if len(row) != len(cw.columns) {
		return fmt.Errorf("row has %d values, want %d", len(row), len(cw.columns))
	}
	if err := cw.start(); err != nil {
		return err
	}
	if err := cw.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	cw.rowsWritten++
	return nil
}

// Flush flushes buffered rows, writing the header even when there were none.
func (cw *Writer) Flush() error {
	if err := cw.start(); err != nil {
		return err
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// RowsWritten returns the number of data rows written.
func (cw *Writer) RowsWritten() int {
	return cw.rowsWritten
}

func (cw *Writer) str(s string) string {
	if s == "" {
		return cw.config.NAString
	}
	return s
}

func (cw *Writer) timestamp(t time.Time) string {
	if t.IsZero() {
		return cw.config.NAString
	}
	return t.UTC().Format(cw.config.TimestampFormat)
}

func (cw *Writer) list(items []string) string {
	return cw.str(strings.Join(items, "; "))
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// ChangeRow flattens ev in ChangeColumns order.
func (cw *Writer) ChangeRow(ev watcher.ChangeEvent) []string {
	data := cw.config.NAString
	if len(ev.Data) > 0 {
		if b, err := json.Marshal(ev.Data); err == nil {
			data = string(b)
		}
	}
	return []string{
		cw.str(ev.ID),
		cw.timestamp(ev.Timestamp),
		cw.str(string(ev.Type)),
		cw.str(string(ev.Severity)),
		formatBool(ev.RequiresAction),
		cw.str(ev.Description),
		cw.list(ev.SuggestedActions),
		data,
	}
}

// OptimizationRow flattens rec in OptimizationColumns order.
func (cw *Writer) OptimizationRow(rec reflex.Record) []string {
	failed := ""
	for _, s := range rec.Steps {
		if !s.Success {
			failed = s.Step
			break
		}
	}
	rollback := make([]string, len(rec.Rollback))
	for i, s := range rec.Rollback {
		rollback[i] = s.Step
	}
	duration := cw.config.NAString
	if !rec.EndedAt.IsZero() {
		duration = strconv.FormatFloat(rec.Duration().Seconds(), 'f', 3, 64)
	}
	return []string{
		cw.str(rec.ID),
		cw.str(string(rec.Type)),
		cw.str(string(rec.Status)),
		formatBool(rec.Forced),
		cw.timestamp(rec.StartedAt),
		cw.timestamp(rec.EndedAt),
		duration,
		strconv.Itoa(len(rec.Steps)),
		cw.str(failed),
		cw.list(rollback),
		cw.str(rec.Error),
		cw.list(rec.Benefits),
	}
}

// WriteChanges exports changes as CSV.
func WriteChanges(w io.Writer, changes []watcher.ChangeEvent, config *Config) error {
	cw := NewWriter(w, config, ChangeColumns)
	for _, ev := range changes {
		if err := cw.WriteRow(cw.ChangeRow(ev)); err != nil {
			return err
		}
	}
	return cw.Flush()
}

// WriteOptimizations exports optimization records as CSV.
func WriteOptimizations(w io.Writer, records []reflex.Record, config *Config) error {
	cw := NewWriter(w, config, OptimizationColumns)
	for _, rec := range records {
		if err := cw.WriteRow(cw.OptimizationRow(rec)); err != nil {
			return err
		}
	}
	return cw.Flush()
}

// IntrospectionRow flattens r in IntrospectionColumns order.
func (cw *Writer) IntrospectionRow(r awareness.Reflection) []string {
	return []string{
		strconv.Itoa(r.Cycle),
		cw.timestamp(r.Timestamp),
		formatBool(r.Deep),
		cw.str(string(r.Level)),
		cw.str(string(r.Mood)),
		strconv.FormatFloat(r.Confidence, 'f', 2, 64),
		cw.str(r.Snapshot.BrainStatus),
		strconv.Itoa(r.Snapshot.Episodes),
		cw.list(r.Changes),
		cw.str(r.Thought),
	}
}

// WriteIntrospections exports introspections as CSV.
func WriteIntrospections(w io.Writer, reflections []awareness.Reflection, config *Config) error {
	cw := NewWriter(w, config, IntrospectionColumns)
	for _, r := range reflections {
		if err := cw.WriteRow(cw.IntrospectionRow(r)); err != nil {
			return err
		}
	}
	return cw.Flush()
}
