package tm

import (
	"testing"

	"github.com/orcaby/twopc"
)

func TestAggregatePhaseEmptyIsYes(t *testing.T) {
	order := &twopc.Order{}
	if got := aggregatePhase(order, twopc.PhasePrepare); got != twopc.PhaseYes {
		t.Fatalf("expected PhaseYes for no participants, got %v", got)
	}
}

func TestAggregatePhaseAllDoneIsYes(t *testing.T) {
	order := &twopc.Order{Tasks: []twopc.TPCTask{
		{Status: twopc.TaskDone},
		{Status: twopc.TaskDone},
	}}
	if got := aggregatePhase(order, twopc.PhasePrepare); got != twopc.PhaseYes {
		t.Fatalf("expected PhaseYes, got %v", got)
	}
}

func TestAggregatePhaseAnyErrorIsNoDominant(t *testing.T) {
	order := &twopc.Order{Tasks: []twopc.TPCTask{
		{Status: twopc.TaskDone},
		{Status: twopc.TaskError},
		{Status: twopc.TaskTodo},
	}}
	if got := aggregatePhase(order, twopc.PhasePrepare); got != twopc.PhaseNo {
		t.Fatalf("expected PhaseNo to dominate over Doing, got %v", got)
	}
}

func TestAggregatePhaseUnknownCountsAsNo(t *testing.T) {
	order := &twopc.Order{Tasks: []twopc.TPCTask{
		{Status: twopc.TaskDone},
		{Status: twopc.TaskUnknown},
	}}
	if got := aggregatePhase(order, twopc.PhasePrepare); got != twopc.PhaseNo {
		t.Fatalf("expected PhaseNo, got %v", got)
	}
}

func TestAggregatePhasePendingIsDoing(t *testing.T) {
	order := &twopc.Order{Tasks: []twopc.TPCTask{
		{Status: twopc.TaskDone},
		{Status: twopc.TaskDoing},
	}}
	if got := aggregatePhase(order, twopc.PhasePrepare); got != twopc.PhaseDoing {
		t.Fatalf("expected PhaseDoing, got %v", got)
	}
}

func TestAggregatePhaseCommitAndCompensateUseTheirOwnSlices(t *testing.T) {
	order := &twopc.Order{
		Tasks:   []twopc.TPCTask{{Status: twopc.TaskDone}},
		Commits: []twopc.TPCCommit{{Status: twopc.TaskError}},
		Comps:   []twopc.TPCCompensate{{Status: twopc.TaskDone}},
	}
	if got := aggregatePhase(order, twopc.PhaseCommit); got != twopc.PhaseNo {
		t.Fatalf("expected commit phase to reflect Commits slice, got %v", got)
	}
	if got := aggregatePhase(order, twopc.PhaseCompensate); got != twopc.PhaseYes {
		t.Fatalf("expected compensate phase to reflect Comps slice, got %v", got)
	}
}

func TestAggregatePhaseNilOrder(t *testing.T) {
	if got := aggregatePhase(nil, twopc.PhasePrepare); got != twopc.PhaseNone {
		t.Fatalf("expected PhaseNone for nil order, got %v", got)
	}
}
