package tm

import (
	"sync"

	"github.com/orcaby/twopc"
)

// router is the Callback Router (base spec §4.4): per-ttid callbacks
// fire once and are deleted; per-prepare callbacks parked at push time
// are re-keyed to the commit's ttid on fan-out; per-order callbacks fire
// once at terminalization. Unregistered ids fall back to the process-wide
// defaults, which are never deleted. Grounded on
// flow/idempotency_store.go's keyed-record-fires-once map, adapted from
// "replay a cached response once" to "invoke a registered callback once".
type router struct {
	mu sync.Mutex

	taskCallback       map[twopc.Ttid]twopc.TaskCallback
	commitCallbackTemp map[twopc.Ttid]twopc.TaskCallback // keyed by prepare ttid
	orderCallback      map[twopc.Toid]twopc.OrderCallback

	defaultTask  twopc.TaskCallback
	defaultOrder twopc.OrderCallback
}

func newRouter(defaultTask twopc.TaskCallback, defaultOrder twopc.OrderCallback) *router {
	return &router{
		taskCallback:       make(map[twopc.Ttid]twopc.TaskCallback),
		commitCallbackTemp: make(map[twopc.Ttid]twopc.TaskCallback),
		orderCallback:      make(map[twopc.Toid]twopc.OrderCallback),
		defaultTask:        defaultTask,
		defaultOrder:       defaultOrder,
	}
}

// registerTask parks cb for ttid, replacing any prior registration. A nil
// cb clears the registration.
func (r *router) registerTask(ttid twopc.Ttid, cb twopc.TaskCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb == nil {
		delete(r.taskCallback, ttid)
		return
	}
	r.taskCallback[ttid] = cb
}

// parkCommit stashes cb keyed by the prepare's ttid, for re-keying to the
// commit's ttid once fan-out happens (base spec §4.4).
func (r *router) parkCommit(prepareTtid twopc.Ttid, cb twopc.TaskCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb == nil {
		delete(r.commitCallbackTemp, prepareTtid)
		return
	}
	r.commitCallbackTemp[prepareTtid] = cb
}

// promoteCommit moves the parked callback for prepareTtid, if any, to
// taskCallback under commitTtid.
func (r *router) promoteCommit(prepareTtid, commitTtid twopc.Ttid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.commitCallbackTemp[prepareTtid]
	if !ok {
		return
	}
	delete(r.commitCallbackTemp, prepareTtid)
	r.taskCallback[commitTtid] = cb
}

func (r *router) registerOrder(toid twopc.Toid, cb twopc.OrderCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb == nil {
		delete(r.orderCallback, toid)
		return
	}
	r.orderCallback[toid] = cb
}

// fireTask invokes and deletes the per-ttid callback if registered, else
// the default. Never panics: callers are expected to wrap cb via
// twopc.SafeTaskCallback before it reaches the router, but a bare
// recover here would duplicate that; the router only owns lookup/delete
// semantics.
func (r *router) fireTask(toid twopc.Toid, ttid twopc.Ttid, status twopc.TaskStatus) {
	r.mu.Lock()
	cb, ok := r.taskCallback[ttid]
	if ok {
		delete(r.taskCallback, ttid)
	} else {
		cb = r.defaultTask
	}
	r.mu.Unlock()

	if cb != nil {
		cb(toid, ttid, status)
	}
}

// fireOrder invokes the per-order callback if registered, else the
// default, and deletes the per-order registration. The order's per-ttid
// registrations are dropped by orderCompleteLocked before this is called.
func (r *router) fireOrder(toid twopc.Toid, status twopc.OrderStatus) {
	r.mu.Lock()
	cb, ok := r.orderCallback[toid]
	if ok {
		delete(r.orderCallback, toid)
	} else {
		cb = r.defaultOrder
	}
	r.mu.Unlock()

	if cb != nil {
		cb(toid, status)
	}
}

// dropOrder removes any lingering per-order registration for toid
// without firing it.
func (r *router) dropOrder(toid twopc.Toid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orderCallback, toid)
}

// dropTask removes any lingering per-ttid registration without firing
// it, used by governance remove/update.
func (r *router) dropTask(ttid twopc.Ttid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.taskCallback, ttid)
	delete(r.commitCallbackTemp, ttid)
}
