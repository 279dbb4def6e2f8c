package twopc

import "testing"

func TestTaskStatusTerminal(t *testing.T) {
	cases := map[TaskStatus]bool{
		TaskTodo:    false,
		TaskDoing:   false,
		TaskDone:    true,
		TaskError:   true,
		TaskUnknown: true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	cases := map[OrderStatus]bool{
		OrderTodo:         false,
		OrderPreparing:    false,
		OrderCommitting:   false,
		OrderCompensating: false,
		OrderBlocking:     false,
		OrderDone:         true,
		OrderAborted:      true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestPhaseResultString(t *testing.T) {
	if PhaseNo.String() != "no" || PhaseYes.String() != "yes" {
		t.Fatalf("unexpected PhaseResult strings: %q %q", PhaseNo, PhaseYes)
	}
}
