// Package queue defines the FIFO abstraction shared by the crawler queues
// (url_filter_output, crawler_queue, page_fetcher_dlq) and its backends.
package queue

import (
	"context"
	"time"
)

// Queue is an ordered, multi-producer/multi-consumer string FIFO. A single
// producer's enqueues are observed in order by any single consumer; there is
// no exactly-once delivery guarantee across producers or consumers.
type Queue interface {
	// Enqueue appends item to the tail of the queue.
	Enqueue(ctx context.Context, item string) error

	// Requeue pushes item back onto the head of the queue, so it is the next
	// item a consumer observes. Used by the scheduler's backpressure path,
	// where an item popped from the input queue must be retried before
	// newer arrivals rather than pushed to the back.
	Requeue(ctx context.Context, item string) error

	// Dequeue removes and returns the item at the head of the queue. A zero
	// timeout is non-blocking and returns ("", false) immediately when the
	// queue is empty. A positive timeout blocks up to that long and returns
	// ("", false) if nothing arrives in time.
	Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error)

	// Size returns the current length of the queue. It may be stale under
	// concurrent writers but is monotone between observations of a quiescent
	// queue.
	Size(ctx context.Context) (int64, error)
}
