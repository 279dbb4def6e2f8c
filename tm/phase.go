package tm

import "github.com/orcaby/twopc"

// aggregatePhase implements the Phase Aggregator (base spec §4.1): a pure
// function over an order's per-participant statuses for the given phase.
// No is the only status a library couldn't express more directly than a
// switch, so this stays on the standard library by design.
func aggregatePhase(order *twopc.Order, phase twopc.Phase) twopc.PhaseResult {
	if order == nil {
		return twopc.PhaseNone
	}

	statuses := phaseStatuses(order, phase)
	if len(statuses) == 0 {
		return twopc.PhaseYes
	}

	sawDoing := false
	for _, s := range statuses {
		switch s {
		case twopc.TaskError, twopc.TaskUnknown:
			return twopc.PhaseNo
		case twopc.TaskTodo, twopc.TaskDoing:
			sawDoing = true
		}
	}
	if sawDoing {
		return twopc.PhaseDoing
	}
	return twopc.PhaseYes
}

func phaseStatuses(order *twopc.Order, phase twopc.Phase) []twopc.TaskStatus {
	switch phase {
	case twopc.PhasePrepare:
		out := make([]twopc.TaskStatus, len(order.Tasks))
		for i, t := range order.Tasks {
			out[i] = t.Status
		}
		return out
	case twopc.PhaseCommit:
		out := make([]twopc.TaskStatus, len(order.Commits))
		for i, c := range order.Commits {
			out[i] = c.Status
		}
		return out
	case twopc.PhaseCompensate:
		out := make([]twopc.TaskStatus, len(order.Comps))
		for i, c := range order.Comps {
			out[i] = c.Status
		}
		return out
	default:
		return nil
	}
}
