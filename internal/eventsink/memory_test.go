package eventsink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySinkRecordsSends(t *testing.T) {
	s := NewMemorySink()
	require.NoError(t, s.Send(context.Background(), "webpage_log", []byte("body"), []byte("key")))
	require.NoError(t, s.Send(context.Background(), "webpage_log", []byte("body2"), []byte("key2")))

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "webpage_log", records[0].Topic)
	assert.Equal(t, []byte("body"), records[0].Value)
	assert.Equal(t, []byte("key"), records[0].Key)
}

func TestMemorySinkRecordsAreDefensiveCopy(t *testing.T) {
	s := NewMemorySink()
	require.NoError(t, s.Send(context.Background(), "t", []byte("v"), nil))

	records := s.Records()
	records[0].Topic = "mutated"

	assert.Equal(t, "t", s.Records()[0].Topic)
}

func TestMemorySinkClose(t *testing.T) {
	s := NewMemorySink()
	assert.NoError(t, s.Close())
}
