package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/katsurao/ocrflow/internal/metrics"
	"github.com/katsurao/ocrflow/internal/ocr"
	"github.com/katsurao/ocrflow/internal/queue"
	"github.com/katsurao/ocrflow/internal/store"
)

// WorkerConfig holds the dispatcher tuning parameters.
type WorkerConfig struct {
	// Workers is the number of queue-draining goroutines.
	Workers int
	// ConcurrentRequests caps simultaneous outbound OCR calls across all
	// workers. Workers above the cap block on the semaphore, so Workers may
	// safely exceed ConcurrentRequests.
	ConcurrentRequests int
	// FileBasePath is the directory holding uploaded files; a job's absolute
	// path is FileBasePath joined with its file name.
	FileBasePath string
	// StrictResponse: when true an HTTP 200 with an unparsable body marks
	// the job error instead of completed with an empty result.
	StrictResponse bool
}

// Dispatcher drains the queue with a fixed pool of workers. Each worker
// performs exactly one terminal transition per dequeued job; transition
// writes that fail are logged and swallowed so the pipeline never stalls on
// a storage hiccup.
type Dispatcher struct {
	store  JobStore
	client Submitter
	queue  *queue.Bounded
	sem    chan struct{}
	cfg    WorkerConfig
	log    *slog.Logger
}

// NewDispatcher creates a Dispatcher. Zero Workers or ConcurrentRequests are
// raised to one.
func NewDispatcher(st JobStore, client Submitter, q *queue.Bounded, cfg WorkerConfig) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ConcurrentRequests < 1 {
		cfg.ConcurrentRequests = 1
	}
	return &Dispatcher{
		store:  st,
		client: client,
		queue:  q,
		sem:    make(chan struct{}, cfg.ConcurrentRequests),
		cfg:    cfg,
		log:    slog.Default(),
	}
}

// Workers returns the configured worker count.
func (d *Dispatcher) Workers() int { return d.cfg.Workers }

// runWorker is one worker loop: dequeue, process, repeat. Exits on a shutdown
// sentinel or on ctx cancellation while idle. A job already dequeued is
// processed to its terminal state even during shutdown.
func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	log := d.log.With("worker", id)
	log.Info("worker started")

	for {
		job, err := d.queue.Get(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrStopped) {
				log.Info("worker stopping: sentinel received")
			} else {
				log.Info("worker stopping", "reason", err)
			}
			return
		}
		metrics.QueueDepth.Set(float64(d.queue.Depth()))

		d.sem <- struct{}{} // cap simultaneous outbound calls
		d.process(ctx, job, log)
		<-d.sem
	}
}

// process reads the stored file, submits it, and reconciles the outcome.
// Every failure path converts into a MarkError write; nothing propagates out
// of the worker loop.
func (d *Dispatcher) process(ctx context.Context, job *store.Job, log *slog.Logger) {
	log.Info("processing job",
		"job_id", job.ID,
		"file_name", job.FileName,
		"file_type", job.FileType,
		"queue_depth", d.queue.Depth(),
	)

	// The submission runs to completion or client timeout even if shutdown
	// begins mid-request; there is no partial-job cancellation.
	ctx = context.WithoutCancel(ctx)

	path := filepath.Join(d.cfg.FileBasePath, job.FileName)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			d.markError(ctx, job, fmt.Sprintf("file not found: %s", path), log)
		} else {
			d.markError(ctx, job, fmt.Sprintf("read file %s: %v", path, err), log)
		}
		return
	}

	fileSize := job.FileSize
	if fileSize == 0 {
		fileSize = int64(len(content))
	}

	start := time.Now()
	outcome, err := d.client.Submit(ctx, ocr.Request{
		FileName:         job.FileName,
		OriginalFileName: job.OriginalFileName,
		FileType:         job.FileType,
		FileSize:         fileSize,
		PageCount:        job.PageCount,
		RangeStart:       job.RangeStart,
		RangeEnd:         job.RangeEnd,
		Content:          content,
	})
	metrics.RequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// Network error or timeout: terminal.
		d.markError(ctx, job, err.Error(), log)
		return
	}

	switch outcome.Kind {
	case ocr.KindCompleted:
		d.markCompleted(ctx, job, outcome.Text, outcome.ResultURL, log)

	case ocr.KindStillProcessing:
		// Asynchronous engine: no terminal signal yet, leave the row in
		// processing untouched.
		log.Info("job still processing upstream", "job_id", job.ID)

	case ocr.KindParseFailed:
		if d.cfg.StrictResponse {
			d.markError(ctx, job, "unparsable ocr response", log)
			return
		}
		// Lenient mode treats HTTP 200 as ground truth: complete with an
		// empty result rather than failing the job.
		log.Warn("unparsable ocr response, completing with empty result",
			"job_id", job.ID, "body_prefix", truncate(outcome.Body, 256))
		d.markCompleted(ctx, job, "", "", log)

	case ocr.KindHTTPError:
		d.markError(ctx, job,
			fmt.Sprintf("ocr api status %d: %s", outcome.HTTPStatus, truncate(outcome.Body, 1024)), log)
	}
}

// markCompleted writes the successful terminal state. A failed write is
// logged and swallowed: the job is already off the queue, and blocking the
// pipeline on a reconciliation write would stall unrelated jobs.
func (d *Dispatcher) markCompleted(ctx context.Context, job *store.Job, text, resultURL string, log *slog.Logger) {
	if err := d.store.MarkCompleted(ctx, job.ID, text, resultURL); err != nil {
		log.Error("mark completed", "job_id", job.ID, "error", err)
		return
	}
	metrics.JobsCompleted.Inc()
	log.Info("job completed", "job_id", job.ID, "result_len", len(text))
}

// markError writes the failed terminal state; same best-effort semantics as
// markCompleted.
func (d *Dispatcher) markError(ctx context.Context, job *store.Job, message string, log *slog.Logger) {
	if err := d.store.MarkError(ctx, job.ID, message); err != nil {
		log.Error("mark error", "job_id", job.ID, "error", err)
		return
	}
	metrics.JobsFailed.Inc()
	log.Warn("job failed", "job_id", job.ID, "message", message)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
