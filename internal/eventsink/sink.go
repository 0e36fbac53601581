// Package eventsink defines the append-only keyed event log abstraction used
// to publish WebpageEvent records on the webpage_log topic.
package eventsink

import "context"

// Sink is an append-only, partitioned, keyed byte-record stream. Send
// blocks until the broker acknowledges durability; Close flushes any
// pending sends and releases the underlying connection.
type Sink interface {
	// Send appends value to topic. key, when non-nil, determines the
	// partition so that all records for the same logical entity land on the
	// same partition.
	Send(ctx context.Context, topic string, value []byte, key []byte) error

	// Close flushes pending sends and releases resources.
	Close() error
}
