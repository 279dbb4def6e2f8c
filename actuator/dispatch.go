package actuator

import (
	"context"
	"sync"

	"github.com/orcaby/twopc"
)

// LocalCall performs the work behind a Task in-process. The actuator
// invokes the LocalCall registered for the Task's CallType; a Task whose
// CallType is unregistered is reported as TaskUnknown without any
// attempt (base spec §6).
type LocalCall func(ctx context.Context, task twopc.Task) error

// Registry maps CallType to the LocalCall that serves it. Adapted from
// dispatcher/dispatcher.go's handler-by-message-type map, narrowed from
// "many handlers per type, fanned out" to "at most one LocalCall per
// CallType", since a Task names exactly one callee.
type Registry struct {
	mu       sync.RWMutex
	handlers map[twopc.CallType]LocalCall
}

// NewRegistry returns an empty call registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[twopc.CallType]LocalCall)}
}

// Register binds call to callType, replacing any previous registration.
func (r *Registry) Register(callType twopc.CallType, call LocalCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[callType] = call
}

// Lookup returns the LocalCall registered for callType, if any.
func (r *Registry) Lookup(callType twopc.CallType) (LocalCall, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	call, ok := r.handlers[callType]
	return call, ok
}
