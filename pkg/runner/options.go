package runner

import (
	"log/slog"
	"time"
)

// DefaultInterval is the period of the ticking callback.
const DefaultInterval = time.Second

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithInterval overrides the ticking period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithClock configures the time source, mostly for tests.
func WithClock(clock Clock) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}
