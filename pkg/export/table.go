package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/awareness"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/watcher"
)

// maxDescription truncates long descriptions in tables.
const maxDescription = 60

// TableRenderer writes aligned, human-oriented tables. Times are shown
// relative to Now.
type TableRenderer struct {
	Now func() time.Time
}

// NewTableRenderer renders relative to the wall clock.
func NewTableRenderer() *TableRenderer {
	return &TableRenderer{Now: time.Now}
}

func (tr *TableRenderer) ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, tr.Now(), "ago", "from now")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Changes renders changes, one per line.
func (tr *TableRenderer) Changes(w io.Writer, changes []watcher.ChangeEvent) error {
	if len(changes) == 0 {
		_, err := fmt.Fprintln(w, "No changes recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tTYPE\tSEVERITY\tACTION\tDESCRIPTION")
	for _, ev := range changes {
		action := ""
		if ev.RequiresAction {
			action = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tr.ago(ev.Timestamp), ev.Type, ev.Severity, action, truncate(ev.Description, maxDescription))
	}
	return tw.Flush()
}

// Optimizations renders optimization records, one per line.
func (tr *TableRenderer) Optimizations(w io.Writer, records []reflex.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No optimizations recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tTYPE\tSTATUS\tFORCED\tSTEPS\tDURATION\tERROR")
	for _, rec := range records {
		forced := ""
		if rec.Forced {
			forced = "yes"
		}
		duration := "-"
		if d := rec.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			tr.ago(rec.StartedAt), rec.Type, rec.Status, forced, len(rec.Steps), duration,
			truncate(rec.Error, maxDescription))
	}
	return tw.Flush()
}

// Introspections renders introspection cycles, one per line.
func (tr *TableRenderer) Introspections(w io.Writer, reflections []awareness.Reflection) error {
	if len(reflections) == 0 {
		_, err := fmt.Fprintln(w, "No introspections recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCYCLE\tKIND\tLEVEL\tMOOD\tTHOUGHT")
	for _, r := range reflections {
		kind := "routine"
		if r.Deep {
			kind = "deep"
		}
		thought := r.Thought
		if thought == "" {
			thought = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			tr.ago(r.Timestamp), r.Cycle, kind, r.Level, r.Mood, truncate(thought, maxDescription))
	}
	return tw.Flush()
}

// Plans renders optimization plans.
func (tr *TableRenderer) Plans(w io.Writer, plans []reflex.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tPRIORITY\tSTEPS\tESTIMATE\tDESCRIPTION")
	for _, p := range plans {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			p.Type, p.Priority, len(p.Steps), p.EstimatedDuration, truncate(p.Description, maxDescription))
	}
	return tw.Flush()
}

// Count formats n with thousands separators, e.g. 4,213 episodes.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// List joins items for one-line display, "-" when empty.
func List(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
