package sidefx

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestDeferRetriesThenSucceeds(t *testing.T) {
	var calls int32
	var errored bool
	q := NewQueue(Options{
		MaxRetries:  2,
		BaseDelayMs: 5,
		OnError:     func(err error) { errored = true },
	})

	q.Defer(func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return errors.New("transient failure")
		}
		return nil
	})
	q.Flush()

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected exactly 3 invocations, got %d", got)
	}
	if errored {
		t.Fatal("did not expect onError to fire when the call eventually succeeds")
	}
}

func TestDeferExhaustsRetriesAndReportsError(t *testing.T) {
	var calls int32
	var reported error
	q := NewQueue(Options{
		MaxRetries:  1,
		BaseDelayMs: 1,
		OnError:     func(err error) { reported = err },
	})

	q.Defer(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("permanent failure")
	})
	q.Flush()

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 invocations (1 initial + 1 retry), got %d", got)
	}
	if reported == nil {
		t.Fatal("expected onError to be reported after retries exhausted")
	}
}

func TestDeferTrackedRecordsWithoutExecuting(t *testing.T) {
	executed := false
	q := NewQueue(Options{})
	q.Defer(func(ctx context.Context) error {
		executed = true
		return nil
	})
	q.DeferTracked("grantBadge", "player-1", "badge-gold")

	tracked := q.Tracked()
	if len(tracked) != 1 || tracked[0].Method != "grantBadge" {
		t.Fatalf("expected tracked call recorded, got %v", tracked)
	}
	if executed {
		t.Fatal("deferTracked must not execute")
	}
}

func TestFIFOOrderAcrossEntries(t *testing.T) {
	q := NewQueue(Options{})
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		q.Defer(func(ctx context.Context) error {
			order = append(order, i)
			return nil
		})
	}
	q.Flush()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestReset(t *testing.T) {
	q := NewQueue(Options{})
	q.DeferTracked("x")
	q.Defer(func(ctx context.Context) error { return nil })
	q.Reset()
	if len(q.Tracked()) != 0 {
		t.Fatal("expected tracked list cleared")
	}
}
