package twopc

import (
	"encoding/json"
	"time"
)

// CallType tags what kind of remote call a Task represents. The actuator
// dispatches by this tag; hosts register a LocalCall per CallType they
// support in-process (base spec §6).
type CallType string

// Task is an actuator-level record: one queued, retried remote call.
type Task struct {
	// Callee identifies the target of the call (host-defined format,
	// e.g. a service name or participant id).
	Callee string
	// CallType tags which handler dispatches this task.
	CallType CallType
	// Prereqs lists task ids that this task depends on. The actuator
	// carries the list but does not enforce it. Left empty for
	// commit/compensate tasks (base spec design note (iii)): commits are
	// independent under 2PC.
	Prereqs []Ttid
	// Toid is the owning order.
	Toid Toid
	// ForTtid is the prepare this commit/compensate serves, when
	// applicable.
	ForTtid *Ttid
	// AttemptsMax bounds the actuator's retry count for this task.
	AttemptsMax int
	// RecallInterval is the delay between attempts, in nanoseconds.
	RecallInterval time.Duration
	// CyclesBudget is the task's cycles budget; zero means unbounded.
	// Config.ApplyDefaults fills it, but the actuator does not read or
	// enforce it.
	CyclesBudget int
	// Data is an opaque payload interpreted by the LocalCall handler.
	Data json.RawMessage
	// CreatedAt records when the task was queued.
	CreatedAt time.Time
}

// TPCTask is one participant's prepare/commit/compensate triplet within
// an order (base spec §3).
type TPCTask struct {
	Ttid    Ttid
	Prepare Task
	Commit  Task
	Comp    *Task
	Status  TaskStatus
}

// TPCCommit is a commit task pushed to the actuator once the order enters
// Committing. Ttid is assigned when pushed, zero until then.
type TPCCommit struct {
	Ttid        Ttid
	Commit      Task
	PrepareTtid Ttid
	Status      TaskStatus
}

// TPCCompensate is a compensation task pushed once the order enters
// Compensating (or injected via governance appendComp).
type TPCCompensate struct {
	ForTtid Ttid
	Tcid    Tcid
	Comp    Task
	Status  TaskStatus
}

// TaskEventKind classifies an entry in an order's task-event log.
// Supplements base spec §4.2 step 5's bare ttid log with a classification
// (SPEC_FULL supplemented feature #1), grounded on the teacher's
// ExecutionDispatchHistory / TransitionLifecycleEvent shape.
type TaskEventKind int

const (
	EventPrepared TaskEventKind = iota
	EventCommitted
	EventCompensated
	EventFailed
)

// String implements fmt.Stringer.
func (k TaskEventKind) String() string {
	switch k {
	case EventPrepared:
		return "prepared"
	case EventCommitted:
		return "committed"
	case EventCompensated:
		return "compensated"
	case EventFailed:
		return "failed"
	default:
		return "unrecognized_task_event"
	}
}

// TaskEvent is one entry in an order's task-event log.
type TaskEvent struct {
	Ttid Ttid
	Kind TaskEventKind
	At   time.Time
}

// Order is a 2PC transaction envelope grouping participants (base spec
// §3). Every field is exported so a host's own persistence layer (or the
// Snapshot machinery in package tm) can serialize it directly.
type Order struct {
	Toid Toid

	Tasks  []TPCTask
	Commits []TPCCommit
	Comps  []TPCCompensate

	AllowPushing AllowPushing
	Status       OrderStatus

	// CallbackStatus records whether the order-level callback fired
	// successfully at terminalization (base spec §4.2 _orderComplete).
	CallbackStatus *TaskStatus

	// Time is when the order was created, nanoseconds since epoch on
	// the host's terms; retained for autoClearTimeout accounting.
	Time time.Time

	// Data is an opaque host payload attached at create time.
	Data json.RawMessage

	// Events is the task-completion log for this order (base spec §4.2
	// step 5, enriched per SPEC_FULL supplemented feature #1).
	Events []TaskEvent
}

// FindTask returns the TPCTask with the given ttid and its index, or
// false if absent.
func (o *Order) FindTask(ttid Ttid) (*TPCTask, int, bool) {
	for i := range o.Tasks {
		if o.Tasks[i].Ttid == ttid {
			return &o.Tasks[i], i, true
		}
	}
	return nil, -1, false
}

// FindCommit returns the TPCCommit with the given ttid and its index, or
// false if absent.
func (o *Order) FindCommit(ttid Ttid) (*TPCCommit, int, bool) {
	for i := range o.Commits {
		if o.Commits[i].Ttid == ttid {
			return &o.Commits[i], i, true
		}
	}
	return nil, -1, false
}

// FindCommitByPrepare returns the TPCCommit created for the given prepare
// ttid, or false if none has been pushed yet.
func (o *Order) FindCommitByPrepare(prepareTtid Ttid) (*TPCCommit, int, bool) {
	for i := range o.Commits {
		if o.Commits[i].PrepareTtid == prepareTtid {
			return &o.Commits[i], i, true
		}
	}
	return nil, -1, false
}

// FindCompensate returns the TPCCompensate with the given tcid and its
// index, or false if absent.
func (o *Order) FindCompensate(tcid Tcid) (*TPCCompensate, int, bool) {
	for i := range o.Comps {
		if o.Comps[i].Tcid == tcid {
			return &o.Comps[i], i, true
		}
	}
	return nil, -1, false
}

// Alive reports whether the order belongs in the alive set: non-terminal
// status with at least one participant task (base spec §3 invariant 7).
func (o *Order) Alive() bool {
	return !o.Status.Terminal() && len(o.Tasks) > 0
}
