// Package retry re-runs short local I/O operations that can fail
// transiently, such as a rename racing a virus scanner or a file indexer
// holding the target open.
//
// Usage:
//
//	err := retry.Do(ctx, retry.FileConfig(), func() error {
//	    return os.Rename(tmp, target)
//	})
package retry

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/cyberph/posture/pkg/duration"
)

// Strategy defines the backoff algorithm.
type Strategy int

const (
	// Exponential doubles the delay each attempt: InitDelay * 2^attempt.
	Exponential Strategy = iota
	// Constant uses the same delay between every attempt.
	Constant
)

// Config controls retry behaviour.
type Config struct {
	MaxAttempts int           // Total attempts (including the first). 0 means no-op.
	InitDelay   time.Duration // Base delay before first retry.
	MaxDelay    time.Duration // Upper bound on any single delay.
	Strategy    Strategy

	// Retryable classifies errors. Nil retries everything except Stop.
	Retryable func(error) bool
}

// FileConfig retries file system operations briefly. Missing paths and
// permission problems are permanent and fail on the first attempt.
func FileConfig() Config {
	return Config{
		MaxAttempts: 4,
		InitDelay:   duration.FileRetryInit,
		MaxDelay:    duration.FileRetryMax,
		Strategy:    Exponential,
		Retryable:   TransientFS,
	}
}

// TransientFS reports whether a file system error may clear on its own.
func TransientFS(err error) bool {
	return !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission) && !errors.Is(err, fs.ErrInvalid)
}

// StopError marks an error as permanent.
type StopError struct {
	Err error
}

func (e *StopError) Error() string { return e.Err.Error() }
func (e *StopError) Unwrap() error { return e.Err }

// Stop wraps err so that Do returns it without further retries.
func Stop(err error) error {
	return &StopError{Err: err}
}

// sleeper is an interface for waiting, allowing tests to override time.After.
type sleeper interface {
	sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do executes fn up to cfg.MaxAttempts times. It returns nil on the first
// success, the error itself when it is permanent, or the last error when
// every attempt failed. A done ctx stops retrying with ctx.Err().
func Do(ctx context.Context, cfg Config, fn func() error) error {
	return doWithSleeper(ctx, cfg, fn, realSleeper{})
}

func doWithSleeper(ctx context.Context, cfg Config, fn func() error, s sleeper) error {
	var lastErr error
	for attempt := range cfg.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var stop *StopError
		if errors.As(lastErr, &stop) {
			return stop.Err
		}
		if cfg.Retryable != nil && !cfg.Retryable(lastErr) {
			return lastErr
		}

		if attempt < cfg.MaxAttempts-1 {
			if err := s.sleep(ctx, CalcDelay(cfg, attempt)); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// CalcDelay computes the sleep duration for a given attempt (0-indexed).
func CalcDelay(cfg Config, attempt int) time.Duration {
	delay := cfg.InitDelay
	if cfg.Strategy == Exponential {
		for i := 0; i < attempt && delay < cfg.MaxDelay; i++ {
			delay *= 2
		}
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return max(delay, 0)
}
