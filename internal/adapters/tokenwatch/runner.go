// Package tokenwatch periodically re-validates the stored session credential so an
// expiry is noticed without waiting for the next navigation.
package tokenwatch

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const defaultInterval = 30 * time.Second

// TokenChecker is the slice of SessionStore the runner drives.
type TokenChecker interface {
	CheckToken(ctx context.Context) bool
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Checker  TokenChecker
	Interval time.Duration
	Logger   *slog.Logger
}

// Runner calls CheckToken on a fixed interval until its context ends.
type Runner struct {
	checker  TokenChecker
	interval time.Duration
	logger   *slog.Logger
}

// NewRunner creates a new token watch runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}
	return &Runner{
		checker:  opts.Checker,
		interval: opts.Interval,
		logger:   opts.Logger.With("component", "tokenwatch"),
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Checker == nil {
		return errors.New("token checker is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// Run checks once immediately, then on every tick. It returns nil on
// cancellation and the context error on deadline.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting token watch", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	loggedIn := r.checker.CheckToken(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "token watch stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			now := r.checker.CheckToken(ctx)
			if loggedIn && !now {
				r.logger.InfoContext(ctx, "session expired during watch")
			}
			loggedIn = now
		}
	}
}
