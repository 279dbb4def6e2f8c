package tm

import (
	"context"
	"sync"

	"github.com/orcaby/twopc"
	"github.com/orcaby/twopc/actuator"
)

// Manager is the public TM surface (base spec §6): create, push, open,
// finish, run, and the governance/inspection operations. It owns the
// Order Store, the Callback Router, and the Actuator collaborator, and
// serializes every public operation on a single mutex so the
// single-threaded cooperative semantics of base spec §5 hold even when
// hosted on a threaded runtime — the mutex plays the role the design
// notes assign to "a single-consumer command queue". Grounded on
// flow/state_machine.go's StateMachine[T] as the one type hosts talk to.
type Manager struct {
	mu sync.Mutex

	cfg    twopc.Config
	logger twopc.Logger

	store  *store
	router *router
	act    *actuator.Actuator
}

// Option configures a Manager at construction, following the teacher's
// functional-options idiom throughout flow and runner.
type Option func(*Manager)

// WithConfig overrides the default Config.
func WithConfig(cfg twopc.Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// WithLogger sets the Manager's logger and propagates it to the
// actuator.
func WithLogger(logger twopc.Logger) Option {
	return func(m *Manager) { m.logger = twopc.NormalizeLogger(logger) }
}

// WithDefaultTaskCallback sets the process-wide fallback fired when no
// per-ttid callback is registered.
func WithDefaultTaskCallback(cb twopc.TaskCallback) Option {
	return func(m *Manager) { m.router.defaultTask = cb }
}

// WithDefaultOrderCallback sets the process-wide fallback fired when no
// per-order callback is registered.
func WithDefaultOrderCallback(cb twopc.OrderCallback) Option {
	return func(m *Manager) { m.router.defaultOrder = cb }
}

// WithActuator supplies a pre-built actuator instead of the Manager's
// own default. The Manager still installs itself as the proxy.
func WithActuator(act *actuator.Actuator) Option {
	return func(m *Manager) {
		if act != nil {
			m.act = act
		}
	}
}

// New constructs a Manager. Validate is called on the resolved Config;
// an invalid Config is a programmer error and panics, matching the
// teacher's cfg.Validate()-at-construction convention in
// flow/config_loader.go.
func New(opts ...Option) *Manager {
	m := &Manager{
		cfg:    twopc.DefaultConfig(),
		logger: twopc.NewFmtLogger(nil),
		store:  newStore(),
		router: newRouter(nil, nil),
	}
	for _, o := range opts {
		if o != nil {
			o(m)
		}
	}
	if err := m.cfg.Validate(); err != nil {
		panic(err)
	}
	m.router.defaultTask = twopc.SafeTaskCallback(m.router.defaultTask, m.logger)
	if m.act == nil {
		m.act = actuator.New(actuator.WithLogger(m.logger))
	}
	m.act.SetProxy(m.taskCallbackProxy)
	return m
}

// GetActuator exposes the actuator collaborator, e.g. so a host can
// Registry().Register LocalCall handlers before the first Run.
func (m *Manager) GetActuator() *actuator.Actuator {
	return m.act
}

// Count returns the total number of orders ever created still tracked
// (i.e. not yet garbage collected).
func (m *Manager) Count() int {
	return m.store.count()
}

// Status returns toid's current OrderStatus.
func (m *Manager) Status(toid twopc.Toid) (twopc.OrderStatus, error) {
	order, ok := m.store.get(toid)
	if !ok {
		return 0, twopc.ErrOrderNotFound(toid)
	}
	return order.Status, nil
}

// IsCompleted reports whether toid has reached Done or Aborted.
func (m *Manager) IsCompleted(toid twopc.Toid) (bool, error) {
	status, err := m.Status(toid)
	if err != nil {
		return false, err
	}
	return status.Terminal(), nil
}

// IsTaskCompleted reports whether ttid has reached a terminal TaskStatus
// in the owning order's bookkeeping, falling back to the actuator's own
// view if the order has already dropped the record.
func (m *Manager) IsTaskCompleted(toid twopc.Toid, ttid twopc.Ttid) (bool, error) {
	order, ok := m.store.get(toid)
	if !ok {
		return false, twopc.ErrOrderNotFound(toid)
	}
	if t, _, ok := order.FindTask(ttid); ok {
		return t.Status.Terminal(), nil
	}
	if c, _, ok := order.FindCommit(ttid); ok {
		return c.Status.Terminal(), nil
	}
	if c, _, ok := order.FindCompensate(ttid); ok {
		return c.Status.Terminal(), nil
	}
	return m.act.IsCompleted(ttid), nil
}

// GetOrder returns a snapshot copy of toid's Order.
func (m *Manager) GetOrder(toid twopc.Toid) (twopc.Order, error) {
	order, ok := m.store.get(toid)
	if !ok {
		return twopc.Order{}, twopc.ErrOrderNotFound(toid)
	}
	return *order, nil
}

// GetOrders returns a 1-indexed page over the live order range.
func (m *Manager) GetOrders(page, size int) (data []twopc.Order, totalPage int, total int) {
	orders, tp, t := m.store.page(page, size)
	out := make([]twopc.Order, len(orders))
	for i, o := range orders {
		out[i] = *o
	}
	return out, tp, t
}

// GetAliveOrders returns a snapshot of every order in the alive set.
func (m *Manager) GetAliveOrders() []twopc.Order {
	orders := m.store.aliveOrders()
	out := make([]twopc.Order, len(orders))
	for i, o := range orders {
		out[i] = *o
	}
	return out
}

// GetTaskEvents returns toid's task-completion event log.
func (m *Manager) GetTaskEvents(toid twopc.Toid) ([]twopc.TaskEvent, error) {
	order, ok := m.store.get(toid)
	if !ok {
		return nil, twopc.ErrOrderNotFound(toid)
	}
	out := make([]twopc.TaskEvent, len(order.Events))
	copy(out, order.Events)
	return out, nil
}

// SetCacheExpiration changes the retention window applied by Clear.
func (m *Manager) SetCacheExpiration(d twopc.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.AutoClearTimeout = d.AutoClearTimeout
}

// runActuator drives one actuator scheduling pass. Exposed as RunOnce so
// a host can wire it to its own event loop or to package schedule.
func (m *Manager) runActuator(ctx context.Context) error {
	_, err := m.act.Run(ctx)
	return err
}

// RunOnce drives a single actuator scheduling pass across every pending
// task of every order, independent of any particular toid's Run call.
// Intended for a host's own ticker or for package schedule's periodic
// dispatch job.
func (m *Manager) RunOnce(ctx context.Context) error {
	return m.runActuator(ctx)
}
