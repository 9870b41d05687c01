// Package retry runs an operation under an exponential backoff policy.
// It is used to dial backing services at startup and to re-attempt
// best-effort side effects such as event publication.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

var (
	ErrAttemptsExhausted = errors.New("retry attempts exhausted")
	ErrContextCanceled   = errors.New("context canceled during retry")
)

// Policy describes how often and how long an operation is retried.
type Policy struct {
	// MaxRetries is the number of extra attempts after the first (0 = try once)
	MaxRetries int
	// InitialInterval is the wait before the first retry
	InitialInterval time.Duration
	// MaxInterval caps the wait between attempts
	MaxInterval time.Duration
	// Multiplier grows the interval after every retry
	Multiplier float64
	// Jitter is the +/- fraction applied to every interval, in [0,1]
	Jitter float64
}

// DefaultPolicy backs off 500ms, 1s, 2s and gives up after three retries.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		Jitter:          0.1,
	}
}

// Constant returns a policy with a fixed wait between attempts.
func Constant(retries int, interval time.Duration) Policy {
	return Policy{
		MaxRetries:      retries,
		InitialInterval: interval,
		MaxInterval:     interval,
		Multiplier:      1.0,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 500 * time.Millisecond
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	return p
}

// Interval returns the wait that precedes retry number attempt (0-based).
func (p Policy) Interval(attempt int) time.Duration {
	p = p.normalized()
	interval := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt))
	if p.Jitter > 0 {
		interval += (rand.Float64()*2 - 1) * interval * p.Jitter
	}
	if interval > float64(p.MaxInterval) {
		interval = float64(p.MaxInterval)
	}
	if interval <= 0 {
		interval = float64(p.InitialInterval)
	}
	return time.Duration(interval)
}

// Operation is a unit of work that may be retried.
type Operation func(ctx context.Context) error

// OnRetry is invoked before sleeping ahead of retry number attempt (1-based).
type OnRetry func(attempt int, err error, wait time.Duration)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent stops the retry loop and surfaces err unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs op until it succeeds, returns a permanent error, the attempts
// run out or ctx is done. The returned error wraps the last failure.
func Do(ctx context.Context, p Policy, op Operation) error {
	return DoNotify(ctx, p, op, nil)
}

// DoNotify is Do with a hook called before every retry.
func DoNotify(ctx context.Context, p Policy, op Operation, notify OnRetry) error {
	p = p.normalized()

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return joinLast(ErrContextCanceled, lastErr)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt == p.MaxRetries {
			break
		}

		wait := p.Interval(attempt)
		if notify != nil {
			notify(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return joinLast(ErrContextCanceled, lastErr)
		case <-timer.C:
		}
	}

	return joinLast(ErrAttemptsExhausted, lastErr)
}

func joinLast(sentinel, last error) error {
	if last == nil {
		return sentinel
	}
	return errors.Join(sentinel, last)
}
