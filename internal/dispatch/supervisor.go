package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/katsurao/ocrflow/internal/queue"
)

// sentinelRetryInterval is how often Stop retries pushing a shutdown sentinel
// into a full queue while workers drain it.
const sentinelRetryInterval = 50 * time.Millisecond

// Supervisor owns the fetcher and the worker pool as a unit: both start
// together, share one stop signal, and Stop returns only after every
// goroutine has exited, so no background activity survives a stop call.
type Supervisor struct {
	fetcher    *Fetcher
	dispatcher *Dispatcher
	queue      *queue.Bounded
	log        *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewSupervisor wires a Supervisor over an already-constructed fetcher,
// dispatcher, and their shared queue.
func NewSupervisor(f *Fetcher, d *Dispatcher, q *queue.Bounded) *Supervisor {
	return &Supervisor{
		fetcher:    f,
		dispatcher: d,
		queue:      q,
		log:        slog.Default(),
	}
}

// Start launches the fetcher and all workers. Idempotent: a second call while
// running is a no-op. The pipeline also stops if ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.log.Info("pipeline already running, start skipped")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.fetcher.Run(loopCtx)
	}()
	for i := 0; i < s.dispatcher.Workers(); i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.dispatcher.runWorker(loopCtx, id)
		}(i)
	}

	done := s.done
	go func() {
		wg.Wait()
		close(done)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.log.Info("pipeline started",
		"workers", s.dispatcher.Workers(),
		"queue_capacity", s.queue.Cap(),
	)
}

// Stop signals the fetcher and workers to stop and waits for them to finish.
// No new jobs are claimed after Stop is called; a job already submitted to
// the engine runs to completion or timeout. Returns ctx.Err() if ctx expires
// before the pipeline drains.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()

	// One sentinel per worker so each observes exactly one. The queue may be
	// full; keep retrying non-blocking pushes while workers drain it, until
	// every sentinel lands, the pipeline reports done, or ctx expires.
	remaining := s.dispatcher.Workers()
	ticker := time.NewTicker(sentinelRetryInterval)
	defer ticker.Stop()
	for remaining > 0 {
		if s.queue.PushSentinel() {
			remaining--
			continue
		}
		select {
		case <-done:
			remaining = 0
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	select {
	case <-done:
		s.log.Info("pipeline stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the pipeline goroutines are alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// QueueDepth returns the number of jobs buffered in the dispatch queue.
func (s *Supervisor) QueueDepth() int {
	return s.queue.Depth()
}
