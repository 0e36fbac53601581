// Package worker drives the per-worker fetch loop: dequeue, fetch, dispatch
// the outcome to the success/requeue/dead-letter path, and gate everything
// on the worker's own circuit breaker, per spec.md §4.8.
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/codepr/ottocrawl/internal/breaker"
	"github.com/codepr/ottocrawl/internal/fetcher"
	"github.com/codepr/ottocrawl/internal/metrics"
	"github.com/codepr/ottocrawl/internal/queue"
)

// Processor is the subset of *fetcher.Fetcher the loop depends on.
type Processor interface {
	Process(ctx context.Context, url string) (fetcher.Outcome, error)
	ProbeDomain(ctx context.Context, domain string) bool
}

// Loop is one fetch worker: its own circuit breaker, its own sequential
// processing of one URL at a time. Multiple Loops may run concurrently
// against the same queues.
type Loop struct {
	id          int
	input       queue.Queue
	dlq         queue.Queue
	fetcher     Processor
	breaker     *breaker.Breaker
	crawlDomain string
	pollTimeout time.Duration
	hooks       metrics.Hooks
	log         zerolog.Logger

	shutdown atomic.Bool
}

// Config bundles the per-worker tunables.
type Config struct {
	ID          int
	CrawlDomain string
	PollTimeout time.Duration
}

// New builds a Loop. hooks defaults to metrics.Noop when nil.
func New(cfg Config, input, dlq queue.Queue, f Processor, b *breaker.Breaker, hooks metrics.Hooks, logger zerolog.Logger) *Loop {
	if hooks == nil {
		hooks = metrics.Noop{}
	}
	return &Loop{
		id:          cfg.ID,
		input:       input,
		dlq:         dlq,
		fetcher:     f,
		breaker:     b,
		crawlDomain: cfg.CrawlDomain,
		pollTimeout: cfg.PollTimeout,
		hooks:       hooks,
		log:         logger.With().Int("worker_id", cfg.ID).Logger(),
	}
}

// RequestShutdown sets the cooperative shutdown flag, observed between
// iterations; an in-flight Process call always runs to completion.
func (l *Loop) RequestShutdown() {
	l.shutdown.Store(true)
}

// Run blocks until shutdown is requested or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Msg("worker starting")
	for !l.shutdown.Load() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := l.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Error().Err(err).Msg("worker tick failed")
		}
	}
	l.log.Info().Msg("worker shutting down")
	return nil
}

func (l *Loop) tick(ctx context.Context) error {
	if err := l.breaker.WaitIfOpen(ctx); err != nil {
		return err
	}
	l.hooks.CircuitStateChanged(int(l.breaker.State()))
	l.hooks.CurrentBackoffSeconds(l.breaker.CurrentBackoff().Seconds())

	if l.breaker.ShouldProbe() {
		l.probe(ctx)
		return nil
	}

	url, ok, err := l.input.Dequeue(ctx, l.pollTimeout)
	if err != nil {
		return err
	}
	if !ok {
		return l.observeQueueDepths(ctx)
	}
	if err := l.observeQueueDepths(ctx); err != nil {
		return err
	}

	outcome, err := l.fetcher.Process(ctx, url)
	if err != nil {
		return err
	}
	return l.dispatch(ctx, url, outcome)
}

func (l *Loop) probe(ctx context.Context) {
	ok := l.fetcher.ProbeDomain(ctx, l.crawlDomain)
	l.hooks.ProbeCompleted(ok)
	if ok {
		l.breaker.RecordSuccess()
		l.hooks.CircuitStateChanged(int(l.breaker.State()))
		l.log.Info().Str("domain", l.crawlDomain).Msg("circuit closed after successful probe")
		return
	}
	l.breaker.RecordProbeFailure()
	l.breaker.RecordSiteWideFailure()
	l.hooks.CircuitStateChanged(int(l.breaker.State()))
}

func (l *Loop) dispatch(ctx context.Context, url string, outcome fetcher.Outcome) error {
	switch o := outcome.(type) {
	case fetcher.WebpageEvent:
		l.breaker.RecordSuccess()
		l.hooks.PageFetched(o.StatusCode)
		l.hooks.ConsecutiveFailures(l.breaker.ConsecutiveFailures())
		l.log.Info().Str("url", url).Int("status", o.StatusCode).Msg("page fetched")
	case fetcher.SkippedRobots:
		l.hooks.PageSkippedRobots()
		l.log.Debug().Str("url", url).Msg("url skipped by robots.txt")
	case fetcher.SiteWideFailure:
		if err := l.input.Enqueue(ctx, url); err != nil {
			return err
		}
		l.breaker.RecordSiteWideFailure()
		l.hooks.PageRequeued()
		l.hooks.ConsecutiveFailures(l.breaker.ConsecutiveFailures())
		l.hooks.CircuitStateChanged(int(l.breaker.State()))
		l.log.Warn().Str("url", url).Str("reason", o.Reason).Msg("site-wide failure, re-enqueued")
	case fetcher.UrlSpecificFailure:
		if err := l.dlq.Enqueue(ctx, url); err != nil {
			return err
		}
		l.hooks.DLQEnqueued()
		l.hooks.PageFailed()
		l.log.Warn().Str("url", url).Str("reason", o.Reason).Msg("url failed, sent to dlq")
	}
	return nil
}

func (l *Loop) observeQueueDepths(ctx context.Context) error {
	size, err := l.input.Size(ctx)
	if err != nil {
		return err
	}
	l.hooks.QueueDepthObserved("input", int(size))

	dlqSize, err := l.dlq.Size(ctx)
	if err != nil {
		return err
	}
	l.hooks.QueueDepthObserved("dlq", int(dlqSize))
	return nil
}
