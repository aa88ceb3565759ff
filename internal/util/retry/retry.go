package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how often and how slowly an operation is retried.
type Policy struct {
	Attempts   int // total tries, including the first
	Delay      time.Duration
	MaxDelay   time.Duration
	Multiplier float64

	// OnRetry, when set, is called before each wait with the failed attempt
	// number (starting at 1) and its error.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy suits network fetches against a CDN.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   4,
		Delay:      500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
		Multiplier: 2,
	}
}

// Option adjusts a Policy.
type Option func(*Policy)

// Attempts sets the total number of tries. Values below 1 mean one try.
func Attempts(n int) Option {
	return func(p *Policy) { p.Attempts = n }
}

// Delay sets the wait before the second attempt.
func Delay(d time.Duration) Option {
	return func(p *Policy) { p.Delay = d }
}

// MaxDelay caps the wait between attempts.
func MaxDelay(d time.Duration) Option {
	return func(p *Policy) { p.MaxDelay = d }
}

// OnRetry registers a hook run before every wait.
func OnRetry(fn func(attempt int, err error)) Option {
	return func(p *Policy) { p.OnRetry = fn }
}

// Do runs op until it succeeds, returns a Permanent error, the attempts are
// used up, or ctx is done.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	p := DefaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}

	wait := p.Delay
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		if attempt >= p.Attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("gave up after %d attempts: %w", attempt, errors.Join(err, ctx.Err()))
		case <-timer.C:
		}
		wait = time.Duration(float64(wait) * p.Multiplier)
		if p.MaxDelay > 0 && wait > p.MaxDelay {
			wait = p.MaxDelay
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", p.Attempts, err)
}

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do stops at once. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
