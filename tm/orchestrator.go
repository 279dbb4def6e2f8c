package tm

import (
	"context"
	"time"

	"github.com/orcaby/twopc"
	"github.com/orcaby/twopc/actuator"
)

// Create starts a new order (status Todo, gate Opening).
func (m *Manager) Create(data []byte) twopc.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := m.store.create(data)
	return *order
}

// Push registers a participant's prepare/commit/optional-compensate
// triplet, queues the prepare task with the actuator, and returns its
// ttid. taskCb, if non-nil, fires when the prepare completes; commitCb,
// if non-nil, is parked and re-keyed to the commit task once the order
// reaches Committing (base spec §4.4).
func (m *Manager) Push(toid twopc.Toid, prepare, commit twopc.Task, comp *twopc.Task, taskCb, commitCb twopc.TaskCallback) (twopc.Ttid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.store.get(toid)
	if !ok {
		return 0, twopc.ErrOrderNotFound(toid)
	}
	if order.AllowPushing != twopc.GateOpening {
		return 0, twopc.ErrGateNotOpening(toid)
	}
	if order.Status.Terminal() {
		return 0, twopc.ErrOrderTerminal(toid, order.Status)
	}

	prepare.Toid = toid
	prepare = m.cfg.ApplyDefaults(prepare)
	commit.Toid = toid
	commit = m.cfg.ApplyDefaults(commit)

	ttid := m.act.Push(prepare)
	order.Tasks = append(order.Tasks, twopc.TPCTask{
		Ttid:    ttid,
		Prepare: prepare,
		Commit:  commit,
		Comp:    comp,
		Status:  twopc.TaskTodo,
	})
	m.store.syncAlive(toid, order)

	if taskCb != nil {
		m.router.registerTask(ttid, twopc.SafeTaskCallback(taskCb, m.logger))
	}
	if commitCb != nil {
		m.router.parkCommit(ttid, twopc.SafeTaskCallback(commitCb, m.logger))
	}

	return ttid, nil
}

// Open flips toid's gate to Opening. Refuses a terminal order: base spec
// invariant 4 (allowPushing = Opening => status not in {Committing,
// Compensating, Done, Aborted}) forbids reopening a Done/Aborted order's
// gate, matching the not-terminal guard assertGovernable already applies
// to every other governance operation.
func (m *Manager) Open(toid twopc.Toid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.store.get(toid)
	if !ok {
		return twopc.ErrOrderNotFound(toid)
	}
	if order.Status.Terminal() {
		return twopc.ErrOrderTerminal(toid, order.Status)
	}
	order.AllowPushing = twopc.GateOpening
	return nil
}

// Finish flips toid's gate to Closed, idempotently (base spec §8
// invariant 6).
func (m *Manager) Finish(toid twopc.Toid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.store.get(toid)
	if !ok {
		return twopc.ErrOrderNotFound(toid)
	}
	order.AllowPushing = twopc.GateClosed
	return nil
}

// Run transitions a Todo order to Preparing and drives the actuator one
// scheduling pass (base spec §4.2 transition table: Todo --run--> Preparing).
// Orders already past Todo are left untouched; the actuator is still
// driven so any already-queued task gets its pass.
func (m *Manager) Run(ctx context.Context, toid twopc.Toid) error {
	m.mu.Lock()
	order, ok := m.store.get(toid)
	if !ok {
		m.mu.Unlock()
		return twopc.ErrOrderNotFound(toid)
	}
	if order.Status == twopc.OrderTodo {
		order.Status = twopc.OrderPreparing
	}
	m.mu.Unlock()

	return m.runActuator(ctx)
}

// taskCallbackProxy is installed as the actuator's ProxyFunc: the
// task-completion proxy of base spec §4.2 _taskCallbackProxy. A proxy
// firing for an unknown order is a no-op (base spec §7 "missing order").
func (m *Manager) taskCallbackProxy(ttid twopc.Ttid, task twopc.Task, outcome actuator.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.store.get(task.Toid)
	if !ok {
		return
	}

	// Snapshot status/gate before mutation (base spec §5 reentrancy).
	statusBefore := order.Status
	gateBefore := order.AllowPushing

	m.applyOutcomeLocked(order, ttid, outcome.Status)

	order.Events = append(order.Events, twopc.TaskEvent{
		Ttid: ttid,
		Kind: eventKindFor(order, ttid),
		At:   time.Now(),
	})

	m.router.fireTask(order.Toid, ttid, outcome.Status)

	m.transitionLocked(order, statusBefore, gateBefore)
	m.store.syncAlive(order.Toid, order)
}

// applyOutcomeLocked writes status onto whichever of TPCTask, TPCCommit
// or TPCCompensate matches ttid (first match wins, id spaces are
// disjoint across orders per base spec §4.2 step 2).
func (m *Manager) applyOutcomeLocked(order *twopc.Order, ttid twopc.Ttid, status twopc.TaskStatus) {
	if t, _, ok := order.FindTask(ttid); ok {
		t.Status = status
		return
	}
	if c, _, ok := order.FindCommit(ttid); ok {
		c.Status = status
		return
	}
	if c, _, ok := order.FindCompensate(ttid); ok {
		c.Status = status
	}
}

func eventKindFor(order *twopc.Order, ttid twopc.Ttid) twopc.TaskEventKind {
	if t, _, ok := order.FindTask(ttid); ok {
		if t.Status == twopc.TaskError || t.Status == twopc.TaskUnknown {
			return twopc.EventFailed
		}
		return twopc.EventPrepared
	}
	if c, _, ok := order.FindCommit(ttid); ok {
		if c.Status == twopc.TaskError || c.Status == twopc.TaskUnknown {
			return twopc.EventFailed
		}
		return twopc.EventCommitted
	}
	if c, _, ok := order.FindCompensate(ttid); ok {
		if c.Status == twopc.TaskError || c.Status == twopc.TaskUnknown {
			return twopc.EventFailed
		}
		return twopc.EventCompensated
	}
	return twopc.EventFailed
}

// transitionLocked applies the order-level state table (base spec §4.2)
// given the gate/status snapshotted before this proxy invocation.
func (m *Manager) transitionLocked(order *twopc.Order, statusBefore twopc.OrderStatus, gateBefore twopc.AllowPushing) {
	switch statusBefore {
	case twopc.OrderPreparing:
		if gateBefore != twopc.GateClosed {
			return
		}
		switch aggregatePhase(order, twopc.PhasePrepare) {
		case twopc.PhaseYes:
			order.Status = twopc.OrderCommitting
			m.commitFanOutLocked(order)
		case twopc.PhaseNo:
			order.Status = twopc.OrderCompensating
			m.compensateFanOutLocked(order)
		}

	case twopc.OrderCommitting:
		if gateBefore != twopc.GateClosed {
			return
		}
		switch aggregatePhase(order, twopc.PhaseCommit) {
		case twopc.PhaseYes:
			m.orderCompleteLocked(order, twopc.OrderDone)
		case twopc.PhaseNo:
			order.Status = twopc.OrderBlocking
			order.AllowPushing = twopc.GateOpening
		}

	case twopc.OrderCompensating:
		if gateBefore != twopc.GateClosed {
			return
		}
		switch aggregatePhase(order, twopc.PhaseCompensate) {
		case twopc.PhaseYes:
			m.orderCompleteLocked(order, twopc.OrderAborted)
		case twopc.PhaseNo:
			order.Status = twopc.OrderBlocking
			order.AllowPushing = twopc.GateOpening
		}
	}
}

// commitFanOutLocked pushes every participant's commit task (base spec
// §4.2 _commit). No prerequisite edges are enforced between commits
// (base spec §9 open question iii): commits are independent under 2PC.
func (m *Manager) commitFanOutLocked(order *twopc.Order) {
	for i := range order.Tasks {
		t := &order.Tasks[i]
		commit := t.Commit
		commit.Toid = order.Toid
		prepareTtid := t.Ttid
		commit.ForTtid = &prepareTtid

		cttid := m.act.Push(commit)
		order.Commits = append(order.Commits, twopc.TPCCommit{
			Ttid:        cttid,
			Commit:      commit,
			PrepareTtid: prepareTtid,
			Status:      twopc.TaskTodo,
		})
		m.router.promoteCommit(prepareTtid, cttid)
	}
}

// compensateFanOutLocked pushes a comp task for every Done prepare that
// has one (base spec §4.2 _compensate).
func (m *Manager) compensateFanOutLocked(order *twopc.Order) {
	for i := range order.Tasks {
		t := &order.Tasks[i]
		if t.Status != twopc.TaskDone || t.Comp == nil {
			continue
		}
		comp := *t.Comp
		comp.Toid = order.Toid
		forTtid := t.Ttid
		comp.ForTtid = &forTtid

		tcid := m.act.Push(comp)
		order.Comps = append(order.Comps, twopc.TPCCompensate{
			ForTtid: forTtid,
			Tcid:    tcid,
			Comp:    comp,
			Status:  twopc.TaskTodo,
		})
	}
}

// orderCompleteLocked implements base spec §4.2 _orderComplete: set the
// terminal status, drop outstanding actuator tasks and per-ttid callback
// registrations for this order, fire the order callback (swallowing
// panics per base spec §7), and record CallbackStatus. Callers then call
// store.syncAlive, which removes the order from the alive set.
func (m *Manager) orderCompleteLocked(order *twopc.Order, target twopc.OrderStatus) {
	order.Status = target
	m.act.RemoveByOid(order.Toid)
	for _, t := range order.Tasks {
		m.router.dropTask(t.Ttid)
	}
	for _, c := range order.Commits {
		m.router.dropTask(c.Ttid)
	}
	for _, c := range order.Comps {
		m.router.dropTask(c.Tcid)
	}

	status := twopc.TaskDone
	func() {
		defer func() {
			if recover() != nil {
				status = twopc.TaskError
			}
		}()
		m.router.fireOrder(order.Toid, target)
	}()
	order.CallbackStatus = &status
}
