package tm

import (
	"testing"

	"github.com/orcaby/twopc"
)

func TestRouterFireTaskFiresRegisteredThenDeletes(t *testing.T) {
	var got twopc.TaskStatus
	var calls int
	r := newRouter(nil, nil)
	r.registerTask(1, func(toid twopc.Toid, ttid twopc.Ttid, status twopc.TaskStatus) {
		calls++
		got = status
	})

	r.fireTask(1, 1, twopc.TaskDone)
	if calls != 1 || got != twopc.TaskDone {
		t.Fatalf("expected callback to fire once with TaskDone, got calls=%d status=%v", calls, got)
	}

	r.fireTask(1, 1, twopc.TaskError)
	if calls != 1 {
		t.Fatalf("expected callback to fire only once, fired %d times", calls)
	}
}

func TestRouterFireTaskFallsBackToDefault(t *testing.T) {
	var calls int
	r := newRouter(func(toid twopc.Toid, ttid twopc.Ttid, status twopc.TaskStatus) {
		calls++
	}, nil)

	r.fireTask(1, 42, twopc.TaskDone)
	if calls != 1 {
		t.Fatalf("expected default to fire once, got %d", calls)
	}
}

func TestRouterParkCommitPromotesOnFanOut(t *testing.T) {
	var firedTtid twopc.Ttid
	r := newRouter(nil, nil)
	r.parkCommit(10, func(toid twopc.Toid, ttid twopc.Ttid, status twopc.TaskStatus) {
		firedTtid = ttid
	})

	r.promoteCommit(10, 20)
	r.fireTask(1, 20, twopc.TaskDone)

	if firedTtid != 20 {
		t.Fatalf("expected promoted callback to fire under commit ttid 20, got %d", firedTtid)
	}

	// original prepare ttid must no longer carry any registration.
	var fired bool
	r2 := newRouter(func(toid twopc.Toid, ttid twopc.Ttid, status twopc.TaskStatus) { fired = true }, nil)
	r2.parkCommit(10, func(toid twopc.Toid, ttid twopc.Ttid, status twopc.TaskStatus) {})
	r2.promoteCommit(10, 20)
	r2.fireTask(1, 10, twopc.TaskDone)
	if !fired {
		t.Fatal("expected prepare ttid to fall through to default after promotion")
	}
}

func TestRouterFireOrderFiresRegisteredThenDeletes(t *testing.T) {
	var calls int
	r := newRouter(nil, nil)
	r.registerOrder(1, func(toid twopc.Toid, status twopc.OrderStatus) { calls++ })

	r.fireOrder(1, twopc.OrderDone)
	r.fireOrder(1, twopc.OrderDone)
	if calls != 1 {
		t.Fatalf("expected order callback to fire once, fired %d times", calls)
	}
}

func TestRouterDropTaskAndDropOrderDoNotFire(t *testing.T) {
	var taskFired, orderFired bool
	r := newRouter(nil, nil)
	r.registerTask(1, func(toid twopc.Toid, ttid twopc.Ttid, status twopc.TaskStatus) { taskFired = true })
	r.registerOrder(1, func(toid twopc.Toid, status twopc.OrderStatus) { orderFired = true })

	r.dropTask(1)
	r.dropOrder(1)

	r.fireTask(1, 1, twopc.TaskDone)
	r.fireOrder(1, twopc.OrderDone)

	if taskFired || orderFired {
		t.Fatal("expected dropped callbacks not to fire")
	}
}
