package actuator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/orcaby/twopc"
)

func TestActuatorRunSucceedsOnFirstAttempt(t *testing.T) {
	a := New()
	a.Registry().Register("ping", func(ctx context.Context, task twopc.Task) error {
		return nil
	})

	var mu sync.Mutex
	var gotStatus twopc.TaskStatus
	a.SetProxy(func(ttid twopc.Ttid, task twopc.Task, outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		gotStatus = outcome.Status
	})

	ttid := a.Push(twopc.Task{CallType: "ping", AttemptsMax: 3})

	n, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 task to advance, got %d", n)
	}
	if !a.IsCompleted(ttid) {
		t.Fatal("expected task to be completed")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotStatus != twopc.TaskDone {
		t.Fatalf("expected TaskDone, got %v", gotStatus)
	}
}

func TestActuatorRetriesThenFails(t *testing.T) {
	a := New(WithRetryStrategy(NoDelayStrategy{}))

	var attempts int
	a.Registry().Register("flaky", func(ctx context.Context, task twopc.Task) error {
		attempts++
		return errors.New("always fails")
	})

	var outcome Outcome
	a.SetProxy(func(ttid twopc.Ttid, task twopc.Task, o Outcome) {
		outcome = o
	})

	a.Push(twopc.Task{CallType: "flaky", AttemptsMax: 3})
	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if outcome.Status != twopc.TaskError {
		t.Fatalf("expected TaskError, got %v", outcome.Status)
	}
}

func TestActuatorUnknownCallTypeReportsUnknown(t *testing.T) {
	a := New()
	var outcome Outcome
	a.SetProxy(func(ttid twopc.Ttid, task twopc.Task, o Outcome) { outcome = o })

	a.Push(twopc.Task{CallType: "missing", AttemptsMax: 1})
	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != twopc.TaskUnknown {
		t.Fatalf("expected TaskUnknown, got %v", outcome.Status)
	}
}

func TestActuatorRemoveByOid(t *testing.T) {
	a := New()
	a.Registry().Register("noop", func(ctx context.Context, task twopc.Task) error { return nil })

	a.Push(twopc.Task{CallType: "noop", Toid: 1})
	a.Push(twopc.Task{CallType: "noop", Toid: 1})
	a.Push(twopc.Task{CallType: "noop", Toid: 2})

	removed := a.RemoveByOid(1)
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
}

func TestActuatorSnapshotRoundTrip(t *testing.T) {
	a := New()
	a.Registry().Register("noop", func(ctx context.Context, task twopc.Task) error { return nil })
	ttid := a.Push(twopc.Task{CallType: "noop", Toid: 1, AttemptsMax: 1})

	data := a.GetData()

	b := New()
	b.SetData(data)

	if ev, ok := b.GetTaskEvent(ttid); !ok || ev.Status != twopc.TaskTodo {
		t.Fatalf("expected restored task to be Todo, got %+v ok=%v", ev, ok)
	}
}

func TestActuatorPauseBlocksRetry(t *testing.T) {
	a := New()
	var attempts int
	a.Registry().Register("slow", func(ctx context.Context, task twopc.Task) error {
		attempts++
		return errors.New("fail")
	})

	ttid := a.Push(twopc.Task{CallType: "slow", AttemptsMax: 2, RecallInterval: time.Millisecond})
	a.Pause(ttid)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _ = a.Run(ctx)

	if attempts != 0 {
		t.Fatalf("expected 0 attempts while paused, got %d", attempts)
	}
}
