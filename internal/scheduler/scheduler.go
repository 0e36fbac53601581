// Package scheduler implements the single-threaded loop that moves URLs
// from the upstream filter queue to the crawler queue with backpressure,
// per spec.md §4.9.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/codepr/ottocrawl/internal/metrics"
	"github.com/codepr/ottocrawl/internal/queue"
	"github.com/codepr/ottocrawl/internal/seeds"
)

// transportErrorSleep is how long the loop pauses after a queue-transport
// error before retrying, per spec.md §4.9.
const transportErrorSleep = 2 * time.Second

// Config bundles the scheduler's tunables.
type Config struct {
	MaxQueueSize int64
	SeedFilePath string
	PollTimeout  time.Duration
}

// Scheduler drains the input queue into the output queue, pushing URLs back
// onto the head of the input queue when the output queue is saturated.
type Scheduler struct {
	input  queue.Queue
	output queue.Queue
	cfg    Config
	hooks  metrics.Hooks
	log    zerolog.Logger

	shutdown atomic.Bool
}

// New builds a Scheduler. hooks defaults to metrics.Noop when nil.
func New(input, output queue.Queue, cfg Config, hooks metrics.Hooks, logger zerolog.Logger) *Scheduler {
	if hooks == nil {
		hooks = metrics.Noop{}
	}
	return &Scheduler{input: input, output: output, cfg: cfg, hooks: hooks, log: logger}
}

// RequestShutdown sets the cooperative shutdown flag.
func (s *Scheduler) RequestShutdown() {
	s.shutdown.Store(true)
}

// SeedOnce loads the configured seed file and enqueues its URLs onto the
// output queue, respecting max_queue_size. Called once at startup before
// Run.
func (s *Scheduler) SeedOnce(ctx context.Context) error {
	urls := seeds.Load(s.cfg.SeedFilePath)
	if len(urls) == 0 {
		s.log.Info().Str("seed_file", s.cfg.SeedFilePath).Msg("no seeds to enqueue")
		return nil
	}
	n, err := seeds.Enqueue(ctx, s.output, s.cfg.MaxQueueSize, urls, s.log)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		s.hooks.SeedURLEnqueued()
	}
	s.log.Info().Int("seed_count", len(urls)).Int("enqueued", n).Msg("seeds enqueued")
	return nil
}

// Run blocks until shutdown is requested or ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Int64("max_queue_size", s.cfg.MaxQueueSize).
		Str("seed_file", s.cfg.SeedFilePath).
		Msg("scheduler starting")

	lastSuccess := time.Now()
	for !s.shutdown.Load() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ok, err := s.tick(ctx, &lastSuccess)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error().Err(err).Msg("queue error")
			time.Sleep(transportErrorSleep)
			continue
		}
		_ = ok
	}
	s.log.Info().Msg("scheduler shutting down")
	return nil
}

// tick runs one loop iteration, returning whether a URL was moved.
func (s *Scheduler) tick(ctx context.Context, lastSuccess *time.Time) (bool, error) {
	url, ok, err := s.input.Dequeue(ctx, s.cfg.PollTimeout)
	if err != nil {
		return false, err
	}
	if !ok {
		s.hooks.SchedulerLoopLag(time.Since(*lastSuccess).Seconds())
		return false, nil
	}

	size, err := s.output.Size(ctx)
	if err != nil {
		return false, err
	}
	s.hooks.QueueDepthObserved("crawler_queue", int(size))

	if size >= s.cfg.MaxQueueSize {
		s.log.Warn().Str("url", url).Int64("current", size).Msg("backpressure: output queue at max size, re-queuing to input")
		if err := s.input.Requeue(ctx, url); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.output.Enqueue(ctx, url); err != nil {
		return false, err
	}
	s.hooks.URLEnqueued()
	s.hooks.SchedulerLoopLag(0)
	*lastSuccess = time.Now()
	s.log.Info().Str("url", url).Int64("output_queue_size", size+1).Msg("url moved to crawler queue")
	return true, nil
}
