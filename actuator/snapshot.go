package actuator

import (
	"time"

	"github.com/orcaby/twopc"
)

// TaskRecord is the serializable form of one tracked task, used by Data.
type TaskRecord struct {
	Ttid        twopc.Ttid
	Task        twopc.Task
	Status      twopc.TaskStatus
	Attempts    int
	CompletedAt *int64 // UnixNano, nil if not yet completed
}

// Data is the actuator's own snapshot, nested inside the TM's Data per
// base spec §4.6 ("the actuator's own snapshot"). LocalCall registrations
// are host-side closures and, like the TM's callback maps, are not part
// of the snapshot.
type Data struct {
	Index      uint64
	FirstIndex uint64
	Order      []twopc.Ttid
	Tasks      []TaskRecord
}

// GetData returns a deterministic snapshot of all tracked tasks.
func (a *Actuator) GetData() Data {
	a.mu.Lock()
	defer a.mu.Unlock()

	d := Data{
		Index:      a.ids.Peek(),
		FirstIndex: a.firstIndex,
		Order:      append([]twopc.Ttid(nil), a.order...),
	}
	d.Tasks = make([]TaskRecord, 0, len(a.tasks))
	for _, ttid := range a.order {
		rec := a.tasks[ttid]
		if rec == nil {
			continue
		}
		tr := TaskRecord{Ttid: rec.ttid, Task: rec.task, Status: rec.status, Attempts: rec.attempts}
		if rec.completedAt != nil {
			ns := rec.completedAt.UnixNano()
			tr.CompletedAt = &ns
		}
		d.Tasks = append(d.Tasks, tr)
	}
	return d
}

// SetData replaces all actuator state atomically. Pending tasks resume
// retrying on the next Run once the host re-registers any LocalCall
// handlers the new process needs.
func (a *Actuator) SetData(d Data) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.firstIndex = d.FirstIndex
	a.ids.SetNext(d.Index)
	a.order = append([]twopc.Ttid(nil), d.Order...)
	a.tasks = make(map[twopc.Ttid]*record, len(d.Tasks))
	for _, tr := range d.Tasks {
		rec := &record{ttid: tr.Ttid, task: tr.Task, status: tr.Status, attempts: tr.Attempts}
		if tr.CompletedAt != nil {
			t := unixNanoTime(*tr.CompletedAt)
			rec.completedAt = &t
		}
		a.tasks[tr.Ttid] = rec
	}
}

func unixNanoTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
