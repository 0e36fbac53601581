// Command pagefetcher consumes URLs from the crawler queue, fetches them,
// caches the body, and publishes a webpage event per successful fetch.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/codepr/ottocrawl/internal/breaker"
	"github.com/codepr/ottocrawl/internal/cache"
	"github.com/codepr/ottocrawl/internal/config"
	"github.com/codepr/ottocrawl/internal/eventsink"
	"github.com/codepr/ottocrawl/internal/fetcher"
	"github.com/codepr/ottocrawl/internal/metrics"
	"github.com/codepr/ottocrawl/internal/queue"
	"github.com/codepr/ottocrawl/internal/ratelimiter"
	"github.com/codepr/ottocrawl/internal/robots"
	"github.com/codepr/ottocrawl/internal/worker"
)

func main() {
	root := &cobra.Command{
		Use:   "pagefetcher",
		Short: "Fetch URLs from the crawler queue and publish webpage events",
		RunE:  run,
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "page_fetcher").Logger()

	cfg, err := config.LoadFetcherConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("pagefetcher: parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	sink, err := eventsink.NewKafkaSink(cfg.KafkaBootstrapServers)
	if err != nil {
		return fmt.Errorf("pagefetcher: kafka sink: %w", err)
	}
	defer sink.Close()

	c := cache.NewRedisCache(redisClient)
	inputQueue := queue.NewRedisQueue(redisClient, cfg.InputQueue)
	dlq := queue.NewRedisQueue(redisClient, cfg.DLQQueue)
	limiter := ratelimiter.NewRedisLimiter(redisClient, cfg.RateLimitPerSec)

	robotsFetcher := robots.NewHTTPFetcher(cfg.UserAgent, 10*time.Second)
	robotsChecker := robots.New(c, robotsFetcher, time.Duration(cfg.RobotsTxtCacheTTLSeconds)*time.Second, cfg.UserAgent)

	hooks := metrics.Noop{}

	log.Info().
		Str("redis_url", cfg.RedisURL).
		Str("input_queue", cfg.InputQueue).
		Str("dlq_queue", cfg.DLQQueue).
		Str("crawl_domain", cfg.CrawlDomain).
		Int("worker_count", cfg.WorkerCount).
		Msg("page fetcher starting")

	// Workers stop through RequestShutdown, observed between iterations, so a
	// signal does not cancel an in-flight fetch.
	workCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	loops := make([]*worker.Loop, cfg.WorkerCount)
	for i := 0; i < cfg.WorkerCount; i++ {
		f := fetcher.New(c, sink, limiter, robotsChecker, fetcher.Config{
			Topic:            cfg.WebpageLogTopic,
			CacheTTL:         time.Duration(cfg.CacheTTLSeconds) * time.Second,
			RequestTimeout:   cfg.RequestTimeout,
			MaxRetries:       cfg.MaxRetries,
			RetryBackoffBase: cfg.RetryBackoffBase,
			UserAgent:        cfg.UserAgent,
			MaxRedirects:     cfg.MaxRedirects,
		}, hooks, log)

		b := breaker.New(
			cfg.CircuitBreakerFailureThreshold,
			cfg.CircuitBreakerInitialBackoff,
			cfg.CircuitBreakerMaxBackoff,
			cfg.CircuitBreakerMultiplier,
			func(s breaker.State) { hooks.CircuitStateChanged(int(s)) },
		)

		loops[i] = worker.New(worker.Config{
			ID:          i,
			CrawlDomain: cfg.CrawlDomain,
			PollTimeout: cfg.PollTimeout,
		}, inputQueue, dlq, f, b, hooks, log)

		wg.Add(1)
		go func(l *worker.Loop) {
			defer wg.Done()
			if err := l.Run(workCtx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("worker exited unexpectedly")
			}
		}(loops[i])
	}

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
	for _, l := range loops {
		l.RequestShutdown()
	}
	wg.Wait()
	log.Info().Msg("shutting down")
	return nil
}
