// Package retry implements the TransientCopyFailure retry policy
// (spec §4.2.1, §7): retry a failing operation in place up to a configured
// number of attempts before giving up.
//
// Adapted from the teacher's lib/dialer.RetryDialer, which retries dialing
// by asking a DialPolicy to choose among several *candidate* upstreams.
// This domain never has more than one candidate for a given retry (the
// Segment is already fixed to one Worker's one Host), so the DialPolicy
// indirection collapses to a plain attempt-count loop; what survives from
// RetryDialer is the attempt/log/continue shape.
package retry

import (
	"context"

	"github.com/lsiudut/yaffmpegp/lib/slog"
)

// Op is a retryable unit of work. It is called once per attempt.
type Op func(ctx context.Context, attempt int) error

// Retrier runs a failing Op up to MaxAttempts times in total.
//
// Multiple goroutines may invoke Do on a Retrier simultaneously: Retrier
// holds no mutable state.
type Retrier struct {
	Logger      slog.Logger
	MaxAttempts int // total attempts, including the first; must be >= 1
	What        string
}

// Do runs op, retrying up to MaxAttempts-1 additional times while it
// returns a non-nil error. It returns the error from the final attempt if
// every attempt failed, or nil as soon as one attempt succeeds.
func (r *Retrier) Do(ctx context.Context, op Op) error {
	max := r.MaxAttempts
	if max < 1 {
		max = 1
	}
	var lastErr error
	for attempt := 1; attempt <= max; attempt++ {
		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if attempt < max {
			r.Logger.Warn(&slog.LogRecord{
				Msg:   r.What + ": attempt failed, retrying",
				Error: lastErr,
			})
		}
	}
	return lastErr
}
