// Package seeds loads the Scheduler's startup seed list and pushes it onto
// the crawler queue with backpressure, per spec.md §4.9 and §6.
package seeds

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/codepr/ottocrawl/internal/queue"
)

type seedFile struct {
	Seeds []any `yaml:"seeds"`
}

// Load parses path as `{seeds: [...]}` YAML and returns the list of URL
// strings. A missing file, an unparseable document, or a seeds key that
// isn't a list all yield an empty list rather than an error: seed ingestion
// is best-effort, not a startup precondition. Non-string entries are
// dropped and strings are trimmed.
func Load(path string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var doc seedFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	out := make([]string, 0, len(doc.Seeds))
	for _, s := range doc.Seeds {
		str, ok := s.(string)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(str)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// Enqueue pushes seeds onto output, stopping once output's length reaches
// maxSize. It returns the number of URLs actually enqueued. The first five
// enqueues are logged individually; the rest are summarized by the caller.
func Enqueue(ctx context.Context, output queue.Queue, maxSize int64, urls []string, log zerolog.Logger) (int, error) {
	enqueued := 0
	for _, url := range urls {
		size, err := output.Size(ctx)
		if err != nil {
			return enqueued, err
		}
		if size >= maxSize {
			log.Warn().Int64("current", size).Msg("backpressure: output queue at max size, skipping remaining seeds")
			break
		}
		if err := output.Enqueue(ctx, url); err != nil {
			return enqueued, err
		}
		enqueued++
		if enqueued <= 5 {
			log.Info().Str("url", url).Int("enqueued_so_far", enqueued).Msg("seed enqueued")
		}
	}
	return enqueued, nil
}
