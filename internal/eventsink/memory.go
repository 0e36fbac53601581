package eventsink

import (
	"context"
	"sync"
)

// Record is one captured Send call, for assertions in tests.
type Record struct {
	Topic string
	Value []byte
	Key   []byte
}

// MemorySink is a Sink that records every Send in-process, standing in for
// KafkaSink in unit tests.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
	closed  bool
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Send(_ context.Context, topic string, value []byte, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record{Topic: topic, Value: value, Key: key})
	return nil
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Records returns a copy of everything sent so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
