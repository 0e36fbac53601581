package config

import (
	"fmt"
	"time"
)

// SchedulerConfig holds the environment-driven settings for the crawler
// scheduler binary. Every field has a CRAWLER_SCHEDULER_-prefixed
// environment variable.
type SchedulerConfig struct {
	RedisURL     string
	InputQueue   string
	OutputQueue  string
	MaxQueueSize int
	SeedFilePath string
	PollTimeout  time.Duration
}

// LoadSchedulerConfig reads CRAWLER_SCHEDULER_* environment variables.
func LoadSchedulerConfig() (*SchedulerConfig, error) {
	cfg := &SchedulerConfig{
		RedisURL:     GetEnv("CRAWLER_SCHEDULER_REDIS_URL", "redis://localhost:6379"),
		InputQueue:   GetEnv("CRAWLER_SCHEDULER_INPUT_QUEUE", "url_filter_output"),
		OutputQueue:  GetEnv("CRAWLER_SCHEDULER_OUTPUT_QUEUE", "crawler_queue"),
		MaxQueueSize: GetEnvAsInt("CRAWLER_SCHEDULER_MAX_QUEUE_SIZE", 100_000),
		SeedFilePath: GetEnv("CRAWLER_SCHEDULER_SEED_FILE_PATH", "seeds.yaml"),
		PollTimeout:  GetEnvAsSeconds("CRAWLER_SCHEDULER_POLL_TIMEOUT_SECONDS", 5*time.Second),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *SchedulerConfig) validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("config: CRAWLER_SCHEDULER_REDIS_URL must not be empty")
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("config: CRAWLER_SCHEDULER_MAX_QUEUE_SIZE must be > 0, got %d", c.MaxQueueSize)
	}
	return nil
}
