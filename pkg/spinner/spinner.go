// Package spinner shows terminal feedback while the CLI waits on the
// nervous system: an animated spinner and a countdown.
package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	hideCursor     = "\033[?25l"
	showCursor     = "\033[?25h"
	carriageReturn = "\r"

	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"

	symbolSuccess = "✓"
	symbolFailure = "✗"
)

// CharSet is a sequence of animation frames.
type CharSet []string

var (
	Braille = CharSet{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	Pulse   = CharSet{"∙", "●", "◉", "●"}
	Line    = CharSet{"|", "/", "-", "\\"}
)

// Config holds spinner options.
type Config struct {
	CharSet     CharSet
	Message     string
	RefreshRate time.Duration
	ShowElapsed bool
	Writer      io.Writer
	HideCursor  bool
	// IsTTY overrides terminal detection on Writer. Without a terminal the
	// spinner prints static lines.
	IsTTY *bool
}

// DefaultConfig animates braille frames on stderr.
func DefaultConfig() Config {
	return Config{
		CharSet:     Braille,
		Message:     "Working",
		RefreshRate: 80 * time.Millisecond,
		ShowElapsed: true,
		Writer:      os.Stderr,
		HideCursor:  true,
	}
}

// Spinner is an animated one-line status indicator.
type Spinner struct {
	mu sync.Mutex

	config     Config
	isTTY      bool
	active     bool
	startTime  time.Time
	frame      int
	lastOutput int
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// New creates a spinner with the default config and message.
func New(message string) *Spinner {
	cfg := DefaultConfig()
	cfg.Message = message
	return NewWithConfig(cfg)
}

// NewWithConfig creates a spinner, filling unset fields from DefaultConfig.
func NewWithConfig(config Config) *Spinner {
	def := DefaultConfig()
	if len(config.CharSet) == 0 {
		config.CharSet = def.CharSet
	}
	if config.RefreshRate <= 0 {
		config.RefreshRate = def.RefreshRate
	}
	if config.Writer == nil {
		config.Writer = def.Writer
	}
	isTTY := IsTerminal(config.Writer)
	if config.IsTTY != nil {
		isTTY = *config.IsTTY
	}
	return &Spinner{config: config, isTTY: isTTY}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// IsActive reports whether the spinner is running.
func (s *Spinner) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Message returns the current message.
func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Message
}

// Start begins the animation. Starting a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.startTime = time.Now()
	s.frame = 0

	if !s.isTTY {
		fmt.Fprintf(s.config.Writer, "%s...\n", s.config.Message)
		return
	}
	if s.config.HideCursor {
		fmt.Fprint(s.config.Writer, hideCursor)
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.spin(s.stopCh, s.doneCh)
}

func (s *Spinner) spin(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.config.RefreshRate)
	defer ticker.Stop()

	s.render()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.render()
		}
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	char := s.config.CharSet[s.frame%len(s.config.CharSet)]
	s.frame++

	out := char + " " + s.config.Message
	if s.config.ShowElapsed {
		out += " " + FormatElapsed(time.Since(s.startTime))
	}
	s.clearLine()
	fmt.Fprint(s.config.Writer, out)
	s.lastOutput = len([]rune(out))
}

// clearLine blanks the previous frame. Caller holds mu.
func (s *Spinner) clearLine() {
	if s.lastOutput > 0 {
		fmt.Fprint(s.config.Writer, carriageReturn+strings.Repeat(" ", s.lastOutput)+carriageReturn)
		s.lastOutput = 0
	}
}

// Update changes the message, also while running.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Message = message
}

// Stop ends the animation and clears the line. It blocks until the
// animation goroutine has exited.
func (s *Spinner) Stop() {
	s.halt()
}

// halt stops the animation and returns the elapsed time, zero when the
// spinner was not running.
func (s *Spinner) halt() time.Duration {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return 0
	}
	s.active = false
	elapsed := time.Since(s.startTime)
	stop, done := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isTTY {
		s.clearLine()
		if s.config.HideCursor {
			fmt.Fprint(s.config.Writer, showCursor)
		}
	}
	return elapsed
}

// Success stops the spinner and prints a check mark with message, or the
// current message when empty.
func (s *Spinner) Success(message string) {
	s.complete(message, symbolSuccess, colorGreen)
}

// Fail stops the spinner and prints a cross with message.
func (s *Spinner) Fail(message string) {
	s.complete(message, symbolFailure, colorRed)
}

func (s *Spinner) complete(message, symbol, color string) {
	elapsed := s.halt()

	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		message = s.config.Message
	}
	mark := symbol
	if s.isTTY {
		mark = color + symbol + colorReset
	}
	line := mark + " " + message
	if s.config.ShowElapsed && elapsed > 0 {
		line += " " + FormatElapsed(elapsed)
	}
	fmt.Fprintln(s.config.Writer, line)
}

// FormatElapsed renders "(1.2s)" below a minute and "(1m 30s)" above.
func FormatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("(%.1fs)", d.Seconds())
	}
	return fmt.Sprintf("(%dm %ds)", int(d.Minutes()), int(d.Seconds())%60)
}
