package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/katsurao/ocrflow/internal/metrics"
	"github.com/katsurao/ocrflow/internal/queue"
)

// Fetcher periodically claims pending jobs from storage and enqueues them.
// The claim batch is sized to the queue's free slots, so the queue can never
// overflow and storage backpressure follows queue backpressure for free.
type Fetcher struct {
	store    JobStore
	queue    *queue.Bounded
	interval time.Duration
	log      *slog.Logger
}

// NewFetcher creates a Fetcher polling at interval.
func NewFetcher(st JobStore, q *queue.Bounded, interval time.Duration) *Fetcher {
	return &Fetcher{
		store:    st,
		queue:    q,
		interval: interval,
		log:      slog.Default(),
	}
}

// Run polls until ctx is cancelled. Uses time.NewTicker (not time.After) to
// avoid timer leaks; shutdown latency is bounded by one tick.
func (f *Fetcher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.log.Info("fetcher started", "interval", f.interval, "queue_capacity", f.queue.Cap())

	for {
		select {
		case <-ctx.Done():
			f.log.Info("fetcher stopping")
			return
		case <-ticker.C:
			f.fetchOnce(ctx)
		}
	}
}

// fetchOnce runs one claim cycle. Storage errors are logged and swallowed:
// the next tick retries, and the interval itself throttles the retry rate.
func (f *Fetcher) fetchOnce(ctx context.Context) {
	free := f.queue.Free()
	if free <= 0 {
		f.log.Debug("queue full, skipping claim cycle", "queue_depth", f.queue.Depth())
		return
	}

	jobs, err := f.store.ClaimPending(ctx, free)
	if err != nil {
		f.log.Error("claim pending jobs", "error", err)
		return
	}

	for i := range jobs {
		job := &jobs[i]
		// free is advisory, not a reservation; Put may block briefly if a
		// concurrent producer raced the capacity check.
		if err := f.queue.Put(ctx, job); err != nil {
			// Cancelled mid-batch. The job is already marked processing in
			// storage; it will surface as stuck, which operators spot via
			// the introspection API.
			f.log.Warn("enqueue interrupted by shutdown", "job_id", job.ID, "error", err)
			return
		}
		metrics.JobsClaimed.Inc()
		metrics.QueueDepth.Set(float64(f.queue.Depth()))
		f.log.Info("job enqueued",
			"job_id", job.ID,
			"file_name", job.FileName,
			"file_type", job.FileType,
			"queue_depth", f.queue.Depth(),
		)
	}
}
