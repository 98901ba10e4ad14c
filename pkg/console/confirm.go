package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// Prompter asks the operator to confirm an action.
type Prompter interface {
	// Confirm shows message and reports whether the answer was yes.
	Confirm(message string) (bool, error)
}

// isYes accepts "y" and "yes" in any case. Anything else, including an empty
// answer, is no.
func isYes(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// IOPrompter reads answers line by line from a reader.
type IOPrompter struct {
	scanner *bufio.Scanner
	writer  io.Writer
}

// NewIOPrompter creates a prompter over r and w.
func NewIOPrompter(r io.Reader, w io.Writer) *IOPrompter {
	return &IOPrompter{scanner: bufio.NewScanner(r), writer: w}
}

// Confirm implements Prompter. EOF counts as no.
func (p *IOPrompter) Confirm(message string) (bool, error) {
	fmt.Fprintf(p.writer, "%s [y/N]: ", message)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return false, fmt.Errorf("failed to read confirmation: %w", err)
		}
		return false, nil
	}
	return isYes(p.scanner.Text()), nil
}

// readlinePrompter asks on the console's own line editor so the answer does
// not land in history.
type readlinePrompter struct {
	rl *readline.Instance
}

func (p *readlinePrompter) Confirm(message string) (bool, error) {
	prompt := p.rl.Config.Prompt
	p.rl.SetPrompt(message + " [y/N]: ")
	p.rl.HistoryDisable()
	defer func() {
		p.rl.SetPrompt(prompt)
		p.rl.HistoryEnable()
	}()

	answer, err := p.rl.Readline()
	if err == readline.ErrInterrupt || err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return isYes(answer), nil
}

var (
	_ Prompter = (*IOPrompter)(nil)
	_ Prompter = (*readlinePrompter)(nil)
)
