package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/katsurao/ocrflow/internal/store"
)

// fakeStore is an in-memory JobStore. Claims pop pending jobs FIFO; terminal
// writes are recorded for assertions.
type fakeStore struct {
	mu          sync.Mutex
	pending     []store.Job
	claimLimits []int
	claimErr    error
	completed   map[uuid.UUID][2]string // text, result URL
	failed      map[uuid.UUID]string
	writeErr    error
}

func newFakeStore(jobs ...store.Job) *fakeStore {
	return &fakeStore{
		pending:   jobs,
		completed: make(map[uuid.UUID][2]string),
		failed:    make(map[uuid.UUID]string),
	}
}

func (f *fakeStore) ClaimPending(_ context.Context, limit int) ([]store.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimLimits = append(f.claimLimits, limit)
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	n := limit
	if n > len(f.pending) {
		n = len(f.pending)
	}
	claimed := make([]store.Job, n)
	copy(claimed, f.pending[:n])
	f.pending = f.pending[n:]
	for i := range claimed {
		claimed[i].Status = store.StatusProcessing
	}
	return claimed, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id uuid.UUID, text, resultURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.completed[id] = [2]string{text, resultURL}
	return nil
}

func (f *fakeStore) MarkError(_ context.Context, id uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.failed[id] = message
	return nil
}

func (f *fakeStore) completedJob(id uuid.UUID) ([2]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.completed[id]
	return v, ok
}

func (f *fakeStore) failedJob(id uuid.UUID) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.failed[id]
	return v, ok
}

func (f *fakeStore) claimCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.claimLimits)
}

func (f *fakeStore) maxClaimLimit() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, l := range f.claimLimits {
		if l > max {
			max = l
		}
	}
	return max
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func imageJob(name string) store.Job {
	return store.Job{
		ID:       uuid.New(),
		FileName: name,
		FileType: store.FileTypeImage,
		Status:   store.StatusProcessing,
	}
}
