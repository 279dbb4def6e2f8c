package twopc

import (
	stderrors "errors"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

// Error codes for the governance/invariant surface (base spec §7).
// Grounded on the teacher's flow/runtime_errors.go const-block-of-codes
// convention.
const (
	ErrCodeOrderNotFound        = "TM_ORDER_NOT_FOUND"
	ErrCodeTaskNotFound         = "TM_TASK_NOT_FOUND"
	ErrCodeGateClosed           = "TM_ORDER_GATE_CLOSED"
	ErrCodeOrderTerminal        = "TM_ORDER_TERMINAL"
	ErrCodeParticipantCompleted = "TM_PARTICIPANT_ALREADY_COMPLETED"
	ErrCodeNotBlocking          = "TM_ORDER_NOT_BLOCKING"
	ErrCodeInvalidTarget        = "TM_INVALID_COMPLETE_TARGET"
	ErrCodeDuplicateCompensate  = "TM_DUPLICATE_COMPENSATE"
)

// Base errors, cloned and enriched with metadata per call site, following
// flow/runtime_errors.go's base-var-plus-Clone idiom.
var (
	baseOrderNotFound = apperrors.New("order not found", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeOrderNotFound)
	baseTaskNotFound = apperrors.New("task not found", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeTaskNotFound)
	baseGateClosed = apperrors.New("order gate is not opening", apperrors.CategoryConflict).
			WithTextCode(ErrCodeGateClosed)
	baseOrderTerminal = apperrors.New("order is terminal", apperrors.CategoryConflict).
				WithTextCode(ErrCodeOrderTerminal)
	baseParticipantCompleted = apperrors.New("participant already completed", apperrors.CategoryConflict).
					WithTextCode(ErrCodeParticipantCompleted)
	baseNotBlocking = apperrors.New("order is not blocking", apperrors.CategoryConflict).
				WithTextCode(ErrCodeNotBlocking)
	baseInvalidTarget = apperrors.New("complete target must be Done or Aborted", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeInvalidTarget)
	baseDuplicateCompensate = apperrors.New("order already has a compensation for this participant", apperrors.CategoryBadInput).
					WithTextCode(ErrCodeDuplicateCompensate)
)

func cloneErr(base *apperrors.Error, message string, metadata map[string]any) *apperrors.Error {
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrOrderNotFound is returned by governance operations and lookups
// invoked on an unknown order.
func ErrOrderNotFound(toid Toid) error {
	return cloneErr(baseOrderNotFound, "", map[string]any{"toid": uint64(toid)})
}

// ErrTaskNotFound is returned when a ttid does not resolve to any
// participant, commit or compensation record in the owning order.
func ErrTaskNotFound(toid Toid, ttid Ttid) error {
	return cloneErr(baseTaskNotFound, "", map[string]any{"toid": uint64(toid), "ttid": uint64(ttid)})
}

// ErrGateNotOpening is returned when a governance operation requiring the
// Opening gate is invoked on a Closed order (base spec §4.5).
func ErrGateNotOpening(toid Toid) error {
	return cloneErr(baseGateClosed, "", map[string]any{"toid": uint64(toid)})
}

// ErrOrderTerminal is returned when a governance operation is invoked on
// an order whose status is already Done or Aborted.
func ErrOrderTerminal(toid Toid, status OrderStatus) error {
	return cloneErr(baseOrderTerminal, "", map[string]any{"toid": uint64(toid), "status": status.String()})
}

// ErrParticipantStarted is returned by update/remove when the target
// participant has already completed.
func ErrParticipantStarted(toid Toid, ttid Ttid) error {
	return cloneErr(baseParticipantCompleted, "", map[string]any{"toid": uint64(toid), "ttid": uint64(ttid)})
}

// ErrNotBlocking is returned by complete() when the order is not in the
// Blocking state.
func ErrNotBlocking(toid Toid, status OrderStatus) error {
	return cloneErr(baseNotBlocking, "", map[string]any{"toid": uint64(toid), "status": status.String()})
}

// ErrInvalidTarget is returned by complete() when target is neither Done
// nor Aborted.
func ErrInvalidTarget(target OrderStatus) error {
	return cloneErr(baseInvalidTarget, "", map[string]any{"target": target.String()})
}

// ErrDuplicateCompensate is returned when appendComp is called twice for
// the same prepare (base spec §3 invariant 2: at most one compensate per
// TPCTask).
func ErrDuplicateCompensate(toid Toid, forTtid Ttid) error {
	return cloneErr(baseDuplicateCompensate, "", map[string]any{"toid": uint64(toid), "ttid": uint64(forTtid)})
}

// IsCode reports whether err carries the given go-errors text code.
func IsCode(err error, code string) bool {
	var ge *apperrors.Error
	if !stderrors.As(err, &ge) {
		return false
	}
	return ge.TextCode == code
}
