package errors

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[90m"
	colorBold   = "\033[1m"
)

// Formatter renders errors for terminal output.
type Formatter struct {
	// UseColor enables ANSI color codes.
	UseColor bool
	// Writer is the output destination.
	Writer io.Writer
	// Indent prefixes context and suggestion lines.
	Indent string
}

// DefaultFormatter writes to stderr, colored when stderr is a terminal.
func DefaultFormatter() *Formatter {
	return &Formatter{
		UseColor: term.IsTerminal(int(os.Stderr.Fd())),
		Writer:   os.Stderr,
		Indent:   "  ",
	}
}

// Format renders err. NexusErrors get code, context, cause and suggestions;
// other errors a single line.
func (f *Formatter) Format(err error) string {
	if err == nil {
		return ""
	}
	ne, ok := As(err)
	if !ok {
		return f.paint(colorRed, "Error: ") + err.Error()
	}

	var sb strings.Builder
	sb.WriteString(f.paint(colorRed+colorBold, "ERROR"))
	sb.WriteString(f.paint(colorRed, " ["+ne.Code+"]: "))
	sb.WriteString(ne.Message)
	sb.WriteString("\n")

	keys := make([]string, 0, len(ne.Context))
	for k := range ne.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(f.Indent)
		sb.WriteString(f.paint(colorYellow, k+": "))
		sb.WriteString(ne.Context[k])
		sb.WriteString("\n")
	}

	if ne.Cause != nil {
		sb.WriteString(f.Indent)
		sb.WriteString(f.paint(colorDim, "cause: "+ne.Cause.Error()))
		sb.WriteString("\n")
	}

	if ne.HasSuggestions() {
		if ne.HasContext() || ne.Cause != nil {
			sb.WriteString("\n")
		}
		for i, s := range ne.Suggestions {
			sb.WriteString(f.Indent)
			sb.WriteString(f.paint(colorCyan, "→ "+s))
			if i < len(ne.Suggestions)-1 {
				sb.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) paint(color, s string) string {
	if !f.UseColor {
		return s
	}
	return color + s + colorReset
}

// Display writes the formatted error followed by a newline.
func (f *Formatter) Display(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(f.Writer, f.Format(err))
}

// Display writes err to stderr with default settings.
func Display(err error) {
	DefaultFormatter().Display(err)
}

// Sprint returns the formatted error without colors.
func Sprint(err error) string {
	f := &Formatter{Writer: io.Discard, Indent: "  "}
	return f.Format(err)
}

// CategoryLabel returns a human-readable label for a category.
func CategoryLabel(cat Category) string {
	switch cat {
	case CategoryConfig:
		return "Configuration Error"
	case CategoryBrain:
		return "Memory API Error"
	case CategoryNetwork:
		return "Network Error"
	case CategoryOptimization:
		return "Optimization Error"
	case CategoryAwareness:
		return "Awareness Error"
	case CategoryJournal:
		return "Journal Error"
	case CategoryEngine:
		return "Engine Error"
	case CategoryInternal:
		return "Internal Error"
	default:
		return "Error"
	}
}
