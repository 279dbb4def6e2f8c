package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/orcaby/twopc"
)

// Outcome is what the actuator reports back to the TM for a completed (or
// exhausted) task.
type Outcome struct {
	Status  twopc.TaskStatus
	Receipt any
}

// ProxyFunc is the TM-supplied callback invoked on every task completion
// (base spec §6, "(ttid, task, (status, receipt))").
type ProxyFunc func(ttid twopc.Ttid, task twopc.Task, outcome Outcome)

// Option configures an Actuator, following the teacher's functional
// options idiom (runner/options.go).
type Option func(*Actuator)

// WithLogger sets the actuator's logger.
func WithLogger(logger twopc.Logger) Option {
	return func(a *Actuator) { a.logger = twopc.NormalizeLogger(logger) }
}

// WithRetryStrategy overrides the default per-task retry/back-off policy.
// The strategy is consulted only when a Task's RecallInterval is zero or
// negative; otherwise the Task's RecallInterval is the delay between
// attempts.
func WithRetryStrategy(s RetryStrategy) Option {
	return func(a *Actuator) { a.retryStrategy = s }
}

// WithProxy registers the completion callback at construction time; Push
// may be called before SetProxy otherwise.
func WithProxy(proxy ProxyFunc) Option {
	return func(a *Actuator) { a.proxy = proxy }
}

// WithRegistry supplies a pre-populated LocalCall registry.
func WithRegistry(r *Registry) Option {
	return func(a *Actuator) {
		if r != nil {
			a.registry = r
		}
	}
}

type record struct {
	ttid        twopc.Ttid
	task        twopc.Task
	status      twopc.TaskStatus
	attempts    int
	control     *ManualExecutionControl
	completedAt *time.Time
	outcome     Outcome
}

// Actuator is the retrying task dispatcher collaborator the TM core
// delegates to (base spec §6). Generalized from runner/handler.go's
// single-function attempt loop: instead of one guarded call, it holds a
// table of pending Task records, each retried up to its own AttemptsMax
// with its own RecallInterval, reporting every completion through a
// single TM-supplied proxy.
type Actuator struct {
	mu sync.Mutex

	logger        twopc.Logger
	retryStrategy RetryStrategy
	registry      *Registry
	proxy         ProxyFunc

	ids        *twopc.IDAllocator
	firstIndex uint64
	order      []twopc.Ttid
	tasks      map[twopc.Ttid]*record
}

// New constructs an Actuator. LocalCall handlers are registered via
// Registry() before Run is called for any CallType they serve.
func New(opts ...Option) *Actuator {
	a := &Actuator{
		logger:        twopc.NewFmtLogger(nil),
		retryStrategy: NoDelayStrategy{},
		registry:      NewRegistry(),
		ids:           twopc.NewIDAllocator(1),
		firstIndex:    1,
		tasks:         make(map[twopc.Ttid]*record),
	}
	for _, o := range opts {
		if o != nil {
			o(a)
		}
	}
	return a
}

// Registry returns the LocalCall registry so callers can Register(...)
// handlers by CallType.
func (a *Actuator) Registry() *Registry {
	return a.registry
}

// SetProxy installs the completion callback, following base spec §6's
// "On each task completion the actuator invokes the TM-supplied proxy".
func (a *Actuator) SetProxy(proxy ProxyFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proxy = proxy
}

// Push enqueues task and returns its assigned ttid.
func (a *Actuator) Push(task twopc.Task) twopc.Ttid {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pushLocked(task)
}

func (a *Actuator) pushLocked(task twopc.Task) twopc.Ttid {
	ttid := twopc.Ttid(a.ids.Next())
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	a.tasks[ttid] = &record{ttid: ttid, task: task, status: twopc.TaskTodo}
	a.order = append(a.order, ttid)
	return ttid
}

// Update replaces an unstarted task, reassigning its id (base spec §4.5
// update: "the actuator reassigns the prepare's id").
func (a *Actuator) Update(ttid twopc.Ttid, task twopc.Task) (twopc.Ttid, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.tasks[ttid]
	if !ok || rec.status.Terminal() {
		return 0, false
	}
	delete(a.tasks, ttid)
	a.removeFromOrderLocked(ttid)
	return a.pushLocked(task), true
}

// Remove drops an unstarted task, returning its ttid and true if it
// existed and had not yet completed.
func (a *Actuator) Remove(ttid twopc.Ttid) (twopc.Ttid, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.tasks[ttid]
	if !ok || rec.status.Terminal() {
		return 0, false
	}
	if rec.control != nil {
		rec.control.Cancel(nil)
	}
	delete(a.tasks, ttid)
	a.removeFromOrderLocked(ttid)
	return ttid, true
}

// RemoveByOid drops every task owned by toid, started or not, so the
// actuator stops retrying them once an order terminalizes (base spec §5,
// "_removeTATaskByOid").
func (a *Actuator) RemoveByOid(toid twopc.Toid) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for ttid, rec := range a.tasks {
		if rec.task.Toid != toid {
			continue
		}
		if rec.control != nil {
			rec.control.Cancel(nil)
		}
		delete(a.tasks, ttid)
		a.removeFromOrderLocked(ttid)
		n++
	}
	return n
}

func (a *Actuator) removeFromOrderLocked(ttid twopc.Ttid) {
	for i, id := range a.order {
		if id == ttid {
			a.order = append(a.order[:i], a.order[i+1:]...)
			return
		}
	}
}

// IsCompleted reports whether ttid has reached a terminal TaskStatus.
func (a *Actuator) IsCompleted(ttid twopc.Ttid) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.tasks[ttid]
	return ok && rec.status.Terminal()
}

// TaskEvent is a point-in-time view of a tracked task, returned by
// GetTaskEvent.
type TaskEvent struct {
	Ttid        twopc.Ttid
	Status      twopc.TaskStatus
	Attempts    int
	CompletedAt *time.Time
}

// GetTaskEvent returns the current view of ttid, if tracked.
func (a *Actuator) GetTaskEvent(ttid twopc.Ttid) (TaskEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.tasks[ttid]
	if !ok {
		return TaskEvent{}, false
	}
	return TaskEvent{Ttid: rec.ttid, Status: rec.status, Attempts: rec.attempts, CompletedAt: rec.completedAt}, true
}

// Pause holds back retries for ttid's task until Resume is called,
// wiring governance's Blocking-order intervention (SPEC_FULL
// supplemented feature #3) into the actuator's own attempt loop.
func (a *Actuator) Pause(ttid twopc.Ttid) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.tasks[ttid]
	if !ok {
		return
	}
	if rec.control == nil {
		rec.control = NewManualExecutionControl()
	}
	rec.control.Pause()
}

// Resume releases a Pause on ttid's task.
func (a *Actuator) Resume(ttid twopc.Ttid) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.tasks[ttid]
	if !ok || rec.control == nil {
		return
	}
	rec.control.Resume()
}

// Run executes one scheduling pass: every pending (non-terminal) task is
// processed in queue order. For a paused task the pass waits until it is
// resumed; if it is canceled or ctx ends while waiting, the task is
// skipped for this pass. A task that fails and still has
// attempts remaining sleeps its RecallInterval (or the configured
// RetryStrategy's delay) and is retried within the same pass, mirroring
// runner/handler.go's Handler.Run attempt loop generalized to a table of
// tasks. Terminal tasks fire the proxy exactly once. Returns the number
// of tasks that reached a terminal status during this pass.
func (a *Actuator) Run(ctx context.Context) (int, error) {
	a.mu.Lock()
	pending := make([]*record, 0, len(a.order))
	for _, ttid := range a.order {
		if rec, ok := a.tasks[ttid]; ok && !rec.status.Terminal() {
			pending = append(pending, rec)
		}
	}
	proxy := a.proxy
	a.mu.Unlock()

	advanced := 0
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return advanced, err
		}

		if rec.control != nil {
			if err := rec.control.WaitIfPaused(ctx); err != nil {
				continue
			}
		}

		outcome := a.attempt(ctx, rec)

		a.mu.Lock()
		rec.status = outcome.Status
		rec.outcome = outcome
		if rec.status.Terminal() {
			now := time.Now()
			rec.completedAt = &now
			advanced++
		}
		task := rec.task
		a.mu.Unlock()

		if rec.status.Terminal() && proxy != nil {
			proxy(rec.ttid, task, outcome)
		}
	}

	return advanced, nil
}

func (a *Actuator) attempt(ctx context.Context, rec *record) Outcome {
	a.mu.Lock()
	call, ok := a.registry.Lookup(rec.task.CallType)
	strategy := a.retryStrategy
	logger := a.logger
	a.mu.Unlock()

	if !ok {
		logger.Error("actuator: no LocalCall registered for call type %q (ttid=%d)", rec.task.CallType, uint64(rec.ttid))
		return Outcome{Status: twopc.TaskUnknown}
	}

	maxAttempts := rec.task.AttemptsMax
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		a.mu.Lock()
		rec.attempts++
		a.mu.Unlock()

		lastErr = call(ctx, rec.task)
		if lastErr == nil {
			return Outcome{Status: twopc.TaskDone}
		}

		logger.Warn("actuator: attempt %d/%d failed for ttid=%d: %v", attempt+1, maxAttempts, uint64(rec.ttid), lastErr)

		if attempt < maxAttempts-1 {
			delay := rec.task.RecallInterval
			if delay <= 0 && strategy != nil {
				delay = strategy.SleepDuration(attempt, lastErr)
			}
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return Outcome{Status: twopc.TaskUnknown, Receipt: ctx.Err()}
				case <-timer.C:
				}
			}
		}
	}

	return Outcome{Status: twopc.TaskError, Receipt: lastErr}
}

// Clear mirrors the Order Store's retention sweep for the actuator's own
// bookkeeping: it drops records whose task completed before `before`, so
// in-memory growth is bounded. delExc forces removal of every completed
// record regardless of age when true. Records that have not completed
// are kept.
func (a *Actuator) Clear(before time.Time, delExc bool) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	removed := 0
	kept := a.order[:0]
	for _, ttid := range a.order {
		rec := a.tasks[ttid]
		if rec == nil {
			continue
		}
		expired := rec.completedAt != nil && rec.completedAt.Before(before)
		if rec.status.Terminal() && (delExc || expired) {
			delete(a.tasks, ttid)
			removed++
			continue
		}
		kept = append(kept, ttid)
	}
	a.order = kept
	return removed
}
