// Package jobs runs the periodic background work of the server.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper is a unit of periodic work.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Runner calls a Sweeper on a fixed interval until its context is canceled.
type Runner struct {
	name     string
	sweeper  Sweeper
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewRunner(name string, s Sweeper, interval time.Duration, log zerolog.Logger) *Runner {
	return &Runner{
		name:     name,
		sweeper:  s,
		interval: interval,
		log:      log.With().Str("job", name).Logger(),
		now:      time.Now,
	}
}

// Run sweeps once immediately, then on every tick. It returns when ctx is done.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("job started")
	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("job stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and logs its outcome.
func (r *Runner) RunOnce(ctx context.Context) {
	start := time.Now()
	n, err := r.sweeper.Sweep(ctx, r.now().UTC())
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error().Err(err).Msg("sweep failed")
		}
		return
	}
	ev := r.log.Debug()
	if n > 0 {
		ev = r.log.Info()
	}
	ev.Int("released", n).Dur("took", time.Since(start)).Msg("sweep finished")
}
