// Command crawlerscheduler moves URLs from the upstream filter queue onto
// the crawler queue, applying backpressure and seeding the queue from a
// YAML seed file at startup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/codepr/ottocrawl/internal/config"
	"github.com/codepr/ottocrawl/internal/metrics"
	"github.com/codepr/ottocrawl/internal/queue"
	"github.com/codepr/ottocrawl/internal/scheduler"
)

func main() {
	root := &cobra.Command{
		Use:   "crawlerscheduler",
		Short: "Move URLs from the filter queue to the crawler queue with backpressure",
		RunE:  run,
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "crawler_scheduler").Logger()

	cfg, err := config.LoadSchedulerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("crawlerscheduler: parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	inputQueue := queue.NewRedisQueue(redisClient, cfg.InputQueue)
	outputQueue := queue.NewRedisQueue(redisClient, cfg.OutputQueue)

	s := scheduler.New(inputQueue, outputQueue, scheduler.Config{
		MaxQueueSize: int64(cfg.MaxQueueSize),
		SeedFilePath: cfg.SeedFilePath,
		PollTimeout:  cfg.PollTimeout,
	}, metrics.Noop{}, log)

	if err := s.SeedOnce(ctx); err != nil {
		log.Error().Err(err).Msg("seed ingestion failed")
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		s.RequestShutdown()
	}()

	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("crawlerscheduler: %w", err)
	}
	return nil
}
