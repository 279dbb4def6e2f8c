package actuator

import (
	"testing"
	"time"
)

func TestNoDelayStrategyAlwaysZero(t *testing.T) {
	s := NoDelayStrategy{}
	if d := s.SleepDuration(5, nil); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestFixedIntervalStrategy(t *testing.T) {
	s := FixedIntervalStrategy{Interval: 250 * time.Millisecond}
	if d := s.SleepDuration(0, nil); d != 250*time.Millisecond {
		t.Fatalf("expected fixed interval regardless of attempt, got %v", d)
	}
	if d := s.SleepDuration(9, nil); d != 250*time.Millisecond {
		t.Fatalf("expected fixed interval regardless of attempt, got %v", d)
	}
}

func TestExponentialBackoffStrategyCapsAtMax(t *testing.T) {
	s := ExponentialBackoffStrategy{Base: 100 * time.Millisecond, Factor: 2, Max: 500 * time.Millisecond}
	if d := s.SleepDuration(0, nil); d != 100*time.Millisecond {
		t.Fatalf("attempt 0: expected 100ms, got %v", d)
	}
	if d := s.SleepDuration(2, nil); d != 400*time.Millisecond {
		t.Fatalf("attempt 2: expected 400ms, got %v", d)
	}
	if d := s.SleepDuration(10, nil); d != 500*time.Millisecond {
		t.Fatalf("attempt 10: expected capped 500ms, got %v", d)
	}
}
