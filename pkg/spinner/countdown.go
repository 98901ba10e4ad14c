package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	barFull  = "█"
	barEmpty = "░"
)

// Countdown counts down from From in steps of Tick with a draining bar.
type Countdown struct {
	Message string
	From    int
	Tick    time.Duration
	// Width of the bar in characters, 20 when unset.
	Width  int
	Writer io.Writer
	IsTTY  *bool
}

// Run counts down and returns nil at zero, or ctx.Err() when canceled first.
func (c Countdown) Run(ctx context.Context) error {
	if c.Tick <= 0 {
		c.Tick = time.Second
	}
	if c.Width <= 0 {
		c.Width = 20
	}
	if c.Writer == nil {
		c.Writer = os.Stderr
	}
	isTTY := IsTerminal(c.Writer)
	if c.IsTTY != nil {
		isTTY = *c.IsTTY
	}

	ticker := time.NewTicker(c.Tick)
	defer ticker.Stop()

	last := 0
	for n := c.From; n > 0; n-- {
		if isTTY {
			line := c.line(n)
			fmt.Fprint(c.Writer, carriageReturn+strings.Repeat(" ", last)+carriageReturn+line)
			last = len([]rune(line))
		} else {
			fmt.Fprintf(c.Writer, "%s %d...\n", c.Message, n)
		}
		select {
		case <-ctx.Done():
			if isTTY {
				fmt.Fprintln(c.Writer)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if isTTY && last > 0 {
		fmt.Fprint(c.Writer, carriageReturn+strings.Repeat(" ", last)+carriageReturn)
	}
	return nil
}

func (c Countdown) line(n int) string {
	filled := 0
	if c.From > 0 {
		filled = c.Width * n / c.From
	}
	bar := strings.Repeat(barFull, filled) + strings.Repeat(barEmpty, c.Width-filled)
	return fmt.Sprintf("%s %d [%s]", c.Message, n, bar)
}
