package console

import (
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/reflex"
)

// commands is the static list of console commands (without the / prefix).
var commands = []string{
	"status",
	"changes",
	"optimizations",
	"plans",
	"optimize",
	"awareness",
	"help",
	"quit",
	"exit",
}

// optimizationTypes lists every type with a built-in plan, sorted.
func optimizationTypes() []string {
	plans := reflex.DefaultPlans()
	types := make([]string, 0, len(plans))
	for t := range plans {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}

// Completer completes commands and the argument of /optimize.
type Completer struct {
	types []string
}

// NewCompleter creates a completer over the built-in optimization types.
func NewCompleter() *Completer {
	return &Completer{types: optimizationTypes()}
}

var _ readline.AutoCompleter = (*Completer)(nil)

// Do implements readline.AutoCompleter. It returns the suffixes completing
// the word under the cursor and the length of that word.
func (c *Completer) Do(line []rune, pos int) (newLine [][]rune, length int) {
	if len(line) == 0 || pos <= 0 {
		return nil, 0
	}
	if pos > len(line) {
		pos = len(line)
	}

	lineStr := string(line[:pos])
	wordStart := findWordStart(lineStr)
	word := lineStr[wordStart:]

	if wordStart == 0 {
		if !strings.HasPrefix(word, "/") {
			return nil, 0
		}
		return complete(commands, strings.TrimPrefix(word, "/"), len(word))
	}

	// Only the first argument of /optimize completes.
	fields := strings.Fields(lineStr[:wordStart])
	if len(fields) == 1 && fields[0] == "/optimize" {
		return complete(c.types, word, len(word))
	}
	return nil, 0
}

// findWordStart returns the index after the last space or tab in s.
func findWordStart(s string) int {
	return strings.LastIndexAny(s, " \t") + 1
}

func complete(candidates []string, prefix string, length int) ([][]rune, int) {
	var matches [][]rune
	for _, cand := range candidates {
		if strings.HasPrefix(cand, prefix) {
			matches = append(matches, []rune(cand[len(prefix):]+" "))
		}
	}
	return matches, length
}
