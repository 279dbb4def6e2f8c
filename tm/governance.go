package tm

import (
	"time"

	"github.com/orcaby/twopc"
)

// assertGovernable enforces the shared precondition of every governance
// operation (base spec §4.5): the order exists, is gated Opening, and is
// not terminal. No partial mutation happens before this check fails.
func (m *Manager) assertGovernable(toid twopc.Toid) (*twopc.Order, error) {
	order, ok := m.store.get(toid)
	if !ok {
		return nil, twopc.ErrOrderNotFound(toid)
	}
	if order.AllowPushing != twopc.GateOpening {
		return nil, twopc.ErrGateNotOpening(toid)
	}
	if order.Status.Terminal() {
		return nil, twopc.ErrOrderTerminal(toid, order.Status)
	}
	return order, nil
}

// Update replaces a participant's triplet before it has completed. The
// actuator reassigns the prepare's id; old per-ttid callbacks are
// cleared (base spec §4.5 update).
func (m *Manager) Update(toid twopc.Toid, ttid twopc.Ttid, prepare, commit twopc.Task, comp *twopc.Task) (twopc.Ttid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.assertGovernable(toid)
	if err != nil {
		return 0, err
	}
	t, idx, ok := order.FindTask(ttid)
	if !ok {
		return 0, twopc.ErrTaskNotFound(toid, ttid)
	}
	if t.Status.Terminal() {
		return 0, twopc.ErrParticipantStarted(toid, ttid)
	}

	prepare.Toid = toid
	prepare = m.cfg.ApplyDefaults(prepare)
	commit.Toid = toid
	commit = m.cfg.ApplyDefaults(commit)

	newTtid, ok := m.act.Update(ttid, prepare)
	if !ok {
		newTtid = m.act.Push(prepare)
	}

	m.router.dropTask(ttid)

	order.Tasks[idx] = twopc.TPCTask{
		Ttid:    newTtid,
		Prepare: prepare,
		Commit:  commit,
		Comp:    comp,
		Status:  twopc.TaskTodo,
	}
	return newTtid, nil
}

// Remove cancels a not-yet-completed participant: drops it from the
// order and from the actuator (base spec §4.5 remove).
func (m *Manager) Remove(toid twopc.Toid, ttid twopc.Ttid) (twopc.Ttid, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.assertGovernable(toid)
	if err != nil {
		return 0, false, err
	}
	t, idx, ok := order.FindTask(ttid)
	if !ok {
		return 0, false, twopc.ErrTaskNotFound(toid, ttid)
	}
	if t.Status.Terminal() {
		return 0, false, twopc.ErrParticipantStarted(toid, ttid)
	}

	removedTtid, removed := m.act.Remove(ttid)
	m.router.dropTask(ttid)
	order.Tasks = append(order.Tasks[:idx], order.Tasks[idx+1:]...)
	m.store.syncAlive(toid, order)

	return removedTtid, removed, nil
}

// Append adds a participant to an in-flight order (only while Opening;
// base spec §4.5 append). Semantically identical to Push, kept distinct
// to mirror the spec's named operation for hosts that want an explicit
// "this is mid-flight" call site.
func (m *Manager) Append(toid twopc.Toid, prepare, commit twopc.Task, comp *twopc.Task, taskCb, commitCb twopc.TaskCallback) (twopc.Ttid, error) {
	return m.Push(toid, prepare, commit, comp, taskCb, commitCb)
}

// AppendComp injects a compensation for a specific prepare, used while
// Blocking to recover (base spec §4.5 appendComp). Fails if forTtid
// already has a compensation (base spec §3 invariant 2).
func (m *Manager) AppendComp(toid twopc.Toid, forTtid twopc.Ttid, comp twopc.Task, cb twopc.TaskCallback) (twopc.Tcid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.assertGovernable(toid)
	if err != nil {
		return 0, err
	}
	if _, _, ok := order.FindTask(forTtid); !ok {
		return 0, twopc.ErrTaskNotFound(toid, forTtid)
	}
	for _, c := range order.Comps {
		if c.ForTtid == forTtid {
			return 0, twopc.ErrDuplicateCompensate(toid, forTtid)
		}
	}

	comp.Toid = toid
	comp = m.cfg.ApplyDefaults(comp)
	forTtidCopy := forTtid
	comp.ForTtid = &forTtidCopy

	tcid := m.act.Push(comp)
	order.Comps = append(order.Comps, twopc.TPCCompensate{
		ForTtid: forTtid,
		Tcid:    tcid,
		Comp:    comp,
		Status:  twopc.TaskTodo,
	})
	if cb != nil {
		m.router.registerTask(tcid, twopc.SafeTaskCallback(cb, m.logger))
	}
	return tcid, nil
}

// RegisterOrderCallback sets or clears the per-order callback fired once
// when toid reaches Done or Aborted (base spec §4.4/§4.6 orderCallback),
// overriding the process-wide default for this order only. A nil cb
// clears any existing registration, falling back to the default again.
// cb is registered as given: orderCompleteLocked recovers a panic from it
// and records CallbackStatus Error, as it does for the default callback.
func (m *Manager) RegisterOrderCallback(toid twopc.Toid, cb twopc.OrderCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.store.get(toid); !ok {
		return twopc.ErrOrderNotFound(toid)
	}
	m.router.registerOrder(toid, cb)
	return nil
}

// Complete forces a Blocking order to a terminal status; target must be
// Done or Aborted and succeeds only if the corresponding phase is Yes
// (base spec §4.5 complete). Returns false, nil when the order is not
// governable-for-completion for reasons short of an outright error (i.e.
// the phase isn't Yes yet) so callers can poll without treating it as
// exceptional, matching base spec §7's "complete returns false".
func (m *Manager) Complete(toid twopc.Toid, target twopc.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.store.get(toid)
	if !ok {
		return false, twopc.ErrOrderNotFound(toid)
	}
	if order.Status != twopc.OrderBlocking {
		return false, twopc.ErrNotBlocking(toid, order.Status)
	}
	if target != twopc.OrderDone && target != twopc.OrderAborted {
		return false, twopc.ErrInvalidTarget(target)
	}
	if order.AllowPushing != twopc.GateClosed {
		return false, twopc.ErrGateNotOpening(toid)
	}

	var phase twopc.PhaseResult
	if target == twopc.OrderDone {
		phase = aggregatePhase(order, twopc.PhaseCommit)
	} else {
		phase = aggregatePhase(order, twopc.PhaseCompensate)
	}
	if phase != twopc.PhaseYes {
		return false, nil
	}

	m.orderCompleteLocked(order, target)
	m.store.syncAlive(toid, order)
	return true, nil
}

// Clear runs the retention sweep across the Order Store and the
// actuator's own bookkeeping (base spec §4.3 _clear / §6 actuator
// clear). An order is deleted only once its retention window has
// elapsed; delExc additionally allows deleting expired orders that are
// not terminal. In the actuator, delExc drops completed tasks regardless
// of age.
func (m *Manager) Clear(delExc bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.store.clear(now, m.cfg.AutoClearTimeout, delExc)
	if m.cfg.AutoClearTimeout > 0 || delExc {
		m.act.Clear(now.Add(-m.cfg.AutoClearTimeout), delExc)
	}
}
