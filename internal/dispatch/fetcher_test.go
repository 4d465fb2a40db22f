package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/katsurao/ocrflow/internal/queue"
	"github.com/katsurao/ocrflow/internal/store"
)

func TestFetchOnceClaimsUpToFreeSlots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newFakeStore(imageJob("a.png"), imageJob("b.png"), imageJob("c.png"))
	q := queue.NewBounded(2)
	f := NewFetcher(st, q, time.Second)

	f.fetchOnce(ctx)

	if got := q.Depth(); got != 2 {
		t.Fatalf("queue depth = %d, want 2", got)
	}
	if got := st.maxClaimLimit(); got != 2 {
		t.Errorf("claim limit = %d, want 2 (the free slot count)", got)
	}

	// Queue now full: the next cycle must not touch storage at all.
	before := st.claimCount()
	f.fetchOnce(ctx)
	if st.claimCount() != before {
		t.Error("fetchOnce on a full queue must skip the claim call")
	}
}

func TestFetchOnceEnqueuesInClaimOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newFakeStore(imageJob("first.png"), imageJob("second.png"))
	q := queue.NewBounded(2)
	f := NewFetcher(st, q, time.Second)

	f.fetchOnce(ctx)

	j1, err := q.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	j2, err := q.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if j1.FileName != "first.png" || j2.FileName != "second.png" {
		t.Errorf("dequeue order (%s, %s), want (first.png, second.png)", j1.FileName, j2.FileName)
	}
}

func TestFetchOnceStorageErrorIsContained(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := newFakeStore()
	st.claimErr = errors.New("connection refused")
	q := queue.NewBounded(1)
	f := NewFetcher(st, q, time.Second)

	// Must not panic; the loop self-heals on the next interval.
	f.fetchOnce(ctx)
	if got := q.Depth(); got != 0 {
		t.Errorf("queue depth = %d, want 0 after failed claim", got)
	}

	// Storage recovers: the next cycle claims normally.
	st.mu.Lock()
	st.claimErr = nil
	st.pending = []store.Job{imageJob("late.png")}
	st.mu.Unlock()

	f.fetchOnce(ctx)
	if got := q.Depth(); got != 1 {
		t.Errorf("queue depth = %d, want 1 after recovery", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	q := queue.NewBounded(1)
	f := NewFetcher(st, q, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fetcher did not stop after cancel")
	}
}
