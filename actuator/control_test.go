package actuator

import (
	"context"
	"testing"
	"time"
)

func TestManualExecutionControlPauseResume(t *testing.T) {
	c := NewManualExecutionControl()

	done := make(chan error, 1)
	go func() {
		done <- c.WaitIfPaused(context.Background())
	}()

	// Unpaused: WaitIfPaused returns immediately (nil, since ctx has no
	// deadline and the control is neither paused nor done).
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error when unpaused, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected immediate return when unpaused")
	}

	c.Pause()
	go func() {
		done <- c.WaitIfPaused(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("did not expect WaitIfPaused to return while paused")
	case <-time.After(20 * time.Millisecond):
	}

	c.Resume()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error after resume, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected WaitIfPaused to unblock after Resume")
	}
}

func TestManualExecutionControlCancel(t *testing.T) {
	c := NewManualExecutionControl()
	c.Pause()

	cause := context.DeadlineExceeded
	c.Cancel(cause)

	if err := c.WaitIfPaused(context.Background()); err != cause {
		t.Fatalf("expected cancel cause, got %v", err)
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("expected Done() channel closed after Cancel")
	}
}
