// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry implements the exponential-backoff-with-jitter retry policy
// of spec §4.3 on top of github.com/cenkalti/backoff/v4, distinguishing a
// per-attempt timeout from the overall retry deadline.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/meshintel/paper-mcp/internal/errs"
)

// Policy configures a retry loop.
type Policy struct {
	// MaxAttempts bounds the number of calls to fn, including the first.
	MaxAttempts int
	// InitialInterval is the base delay before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the exponential growth of the delay between
	// attempts.
	MaxInterval time.Duration
	// Multiplier is the exponential growth factor applied to the interval
	// after each attempt.
	Multiplier float64
	// PerAttemptTimeout bounds a single call to fn; zero means no
	// per-attempt timeout beyond ctx's own deadline.
	PerAttemptTimeout time.Duration
	// OverallTimeout bounds the entire retry loop, including all delays;
	// zero means bounded only by ctx.
	OverallTimeout time.Duration
}

// DefaultPolicy mirrors spec §6.4 retry defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		InitialInterval:   250 * time.Millisecond,
		MaxInterval:       30 * time.Second,
		Multiplier:        2.0,
		PerAttemptTimeout: 15 * time.Second,
		OverallTimeout:    45 * time.Second,
	}
}

// Op is a retryable operation. A non-nil error wrapped with Permanent (via
// backoff.Permanent, or an *errs.Error with Retriable == false) stops
// retrying immediately.
type Op func(ctx context.Context) error

// Do runs op according to p, retrying retriable failures with exponential
// backoff and ±20% jitter. It returns the last error if every attempt is
// exhausted, or the first non-retriable error encountered.
func Do(ctx context.Context, p Policy, provider string, op Op) error {
	if p.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.OverallTimeout)
		defer cancel()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = 0.2 // spec §4.3 jitter
	eb.MaxElapsedTime = 0        // bounded by ctx / attempt count instead

	var bo backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		bo = backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1))
	}
	bo = backoff.WithContext(bo, ctx)

	wrapped := func() error {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if p.PerAttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.PerAttemptTimeout)
			defer cancel()
		}

		err := op(attemptCtx)
		if err == nil {
			return nil
		}

		classified := errs.Classify(provider, err)
		if !classified.Retriable {
			return backoff.Permanent(classified)
		}
		return classified
	}

	err := backoff.Retry(wrapped, bo)
	if err == nil {
		return nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
