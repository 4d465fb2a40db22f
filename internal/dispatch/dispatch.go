// Package dispatch implements the queue-dispatch pipeline: a fetcher that
// claims pending jobs from storage into a bounded queue, a pool of workers
// that submit queued jobs to the OCR engine and reconcile the outcome back
// into storage, and a supervisor that starts and drains both as a unit.
package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/katsurao/ocrflow/internal/ocr"
	"github.com/katsurao/ocrflow/internal/store"
)

// JobStore is the slice of the data layer the pipeline needs. *store.Store
// satisfies it; tests substitute a fake.
type JobStore interface {
	ClaimPending(ctx context.Context, limit int) ([]store.Job, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, text, resultURL string) error
	MarkError(ctx context.Context, id uuid.UUID, message string) error
}

// Submitter submits one job to the OCR engine. *ocr.Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req ocr.Request) (ocr.Outcome, error)
}
