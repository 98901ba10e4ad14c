// Package pulse runs periodic work with backoff after failures.
package pulse

import (
	"context"
	"time"

	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
)

// Backoff computes the wait before the next run.
type Backoff struct {
	// Interval is the normal period and the backoff ceiling.
	Interval time.Duration
	// Retry is the first wait after a retryable failure.
	Retry time.Duration

	current time.Duration
}

// Next returns the wait after a run that ended with err. Retryable errors
// start at Retry and double up to Interval; success resets the backoff.
// Other errors wait the full Interval.
func (b *Backoff) Next(err error) time.Duration {
	if err == nil || !nerrors.IsRetryable(err) || b.Retry <= 0 {
		b.current = 0
		return b.Interval
	}
	if b.current == 0 {
		b.current = b.Retry
	} else {
		b.current *= 2
	}
	if b.current > b.Interval {
		b.current = b.Interval
	}
	return b.current
}

// Run calls fn immediately and then again after each wait chosen by b, until
// ctx is done. onError, when set, sees each failure with the chosen wait.
func Run(ctx context.Context, b Backoff, fn func(context.Context) error, onError func(err error, wait time.Duration)) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := fn(ctx)
		if ctx.Err() != nil {
			return
		}
		wait := b.Next(err)
		if err != nil && onError != nil {
			onError(err, wait)
		}
		timer.Reset(wait)
	}
}

// Ticker calls fn every interval, without an immediate first call, until ctx
// is done. The beat count starts at 1.
func Ticker(ctx context.Context, interval time.Duration, fn func(ctx context.Context, beat int)) {
	t := time.NewTicker(interval)
	defer t.Stop()

	beat := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			beat++
			fn(ctx, beat)
		}
	}
}
