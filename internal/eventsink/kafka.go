package eventsink

import (
	"context"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink is a Sink backed by a franz-go client. Records are produced
// synchronously with all-ISR acknowledgement so Send only returns once the
// broker has durably accepted the record.
type KafkaSink struct {
	client *kgo.Client
}

// NewKafkaSink dials the given comma-separated bootstrap servers.
func NewKafkaSink(bootstrapServers string) (*KafkaSink, error) {
	seeds := strings.Split(bootstrapServers, ",")
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("eventsink: dial kafka: %w", err)
	}
	return &KafkaSink{client: client}, nil
}

func (s *KafkaSink) Send(ctx context.Context, topic string, value []byte, key []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	result := s.client.ProduceSync(ctx, record)
	if err := result.FirstErr(); err != nil {
		return fmt.Errorf("eventsink: produce to %s: %w", topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	s.client.Close()
	return nil
}
