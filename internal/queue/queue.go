// Package queue provides the fixed-capacity FIFO buffer between the fetcher
// and the dispatch workers. The buffer is a plain Go channel, so Put/Get block
// on full/empty without busy-waiting, and dequeue order equals enqueue order.
package queue

import (
	"context"
	"errors"

	"github.com/katsurao/ocrflow/internal/store"
)

// ErrStopped is returned by Get when the item received is a shutdown sentinel.
var ErrStopped = errors.New("queue: stopped")

// item wraps a job or a sentinel. A nil Job marks "no more work, terminate";
// the supervisor pushes one sentinel per worker during shutdown.
type item struct {
	job *store.Job
}

// Bounded is a fixed-capacity FIFO queue of claimed jobs. The capacity is set
// at construction time and never changes; the fetcher sizes its claim batches
// against Free, so the queue cannot overflow by construction.
type Bounded struct {
	ch chan item
}

// NewBounded creates a queue holding at most capacity jobs. Capacity below
// one is raised to one.
func NewBounded(capacity int) *Bounded {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded{ch: make(chan item, capacity)}
}

// Put enqueues job, blocking while the queue is full. Returns ctx.Err() if
// ctx is cancelled first.
func (q *Bounded) Put(ctx context.Context, job *store.Job) error {
	select {
	case q.ch <- item{job: job}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get dequeues the oldest job, blocking while the queue is empty. Returns
// ErrStopped when a shutdown sentinel is received, or ctx.Err() if ctx is
// cancelled while waiting.
func (q *Bounded) Get(ctx context.Context) (*store.Job, error) {
	select {
	case it := <-q.ch:
		if it.job == nil {
			return nil, ErrStopped
		}
		return it.job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PushSentinel attempts a non-blocking enqueue of one shutdown sentinel and
// reports whether it landed. A full queue is tolerated: workers drain the
// queue during shutdown, so the caller retries until the sentinel fits.
func (q *Bounded) PushSentinel() bool {
	select {
	case q.ch <- item{}:
		return true
	default:
		return false
	}
}

// Depth returns the number of buffered items.
func (q *Bounded) Depth() int { return len(q.ch) }

// Cap returns the configured capacity.
func (q *Bounded) Cap() int { return cap(q.ch) }

// Free returns the number of unoccupied slots.
func (q *Bounded) Free() int { return cap(q.ch) - len(q.ch) }
