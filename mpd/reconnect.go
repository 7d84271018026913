package mpd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// jitterFactor spreads each delay by up to a quarter either way.
const jitterFactor = 0.25

// ReconnectConfig controls the backoff used after a lost connection.
type ReconnectConfig struct {
	MaxAttempts  int           // attempts before giving up; 0 disables reconnection
	InitialDelay time.Duration // delay after the first failed attempt
	MaxDelay     time.Duration // ceiling for the growing delay
	Multiplier   float64       // growth factor between attempts
	AddJitter    bool          // randomise each delay by up to 25%
}

// DefaultReconnectConfig retries for under a minute.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxAttempts:  10,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

func (c ReconnectConfig) validate() error {
	if c.MaxAttempts < 0 {
		return errors.New("reconnect: MaxAttempts cannot be negative")
	}
	if c.InitialDelay < 0 || c.MaxDelay < 0 {
		return errors.New("reconnect: delays cannot be negative")
	}
	if c.Multiplier < 0 {
		return errors.New("reconnect: Multiplier cannot be negative")
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.InitialDelay {
		return errors.New("reconnect: MaxDelay must be >= InitialDelay")
	}
	return nil
}

// policy builds the delay schedule between attempts. The first attempt is
// made immediately.
func (c ReconnectConfig) policy() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.InitialDelay
	exp.Multiplier = c.Multiplier
	if exp.Multiplier == 0 {
		exp.Multiplier = 2.0
	}
	exp.MaxInterval = c.MaxDelay
	if exp.MaxInterval == 0 {
		exp.MaxInterval = max(c.InitialDelay, time.Second)
	}
	if exp.InitialInterval == 0 {
		exp.InitialInterval = exp.MaxInterval
	}
	exp.RandomizationFactor = 0
	if c.AddJitter {
		exp.RandomizationFactor = jitterFactor
	}
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(max(c.MaxAttempts-1, 0)))
}

// permanent marks a failure that retrying cannot fix.
func permanent(err error) error {
	return backoff.Permanent(err)
}

// retry calls fn until it succeeds, returns a permanent error, ctx ends,
// or the attempts run out. Running out yields an error wrapping ErrFatal and
// the last failure.
func retry(ctx context.Context, cfg ReconnectConfig, fn func(attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		return errors.New("reconnect disabled")
	}

	attempt := 0
	stopped := false
	op := func() error {
		if err := ctx.Err(); err != nil {
			stopped = true
			return backoff.Permanent(err)
		}
		attempt++
		err := fn(attempt)
		var pe *backoff.PermanentError
		if errors.As(err, &pe) {
			stopped = true
		}
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(cfg.policy(), ctx))
	switch {
	case err == nil:
		return nil
	case stopped:
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrFatal, attempt, err)
}
