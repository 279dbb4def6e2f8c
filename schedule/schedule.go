// Package schedule wires periodic retention GC and actuator dispatch
// passes into robfig/cron/v3, the library the teacher already uses for
// its own cron package.
package schedule

import (
	"context"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/orcaby/twopc"
	"github.com/orcaby/twopc/tm"
)

// Option configures a Scheduler, following cron/options.go's functional
// option convention.
type Option func(*Scheduler)

// WithLocation sets the timezone the cron expressions are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

// WithLogger sets the scheduler's logger, used both for its own
// diagnostics and adapted into robfig/cron's logger.
func WithLogger(logger twopc.Logger) Option {
	return func(s *Scheduler) { s.logger = twopc.NormalizeLogger(logger) }
}

// WithErrorHandler overrides the handler invoked when a scheduled GC or
// dispatch pass returns an error. The default logs at Error level.
func WithErrorHandler(h func(error)) Option {
	return func(s *Scheduler) {
		if h != nil {
			s.errorHandler = h
		}
	}
}

// Scheduler wraps a robfig/cron/v3 instance, exposing only the two jobs
// a 2PC Manager needs run periodically: retention GC and an actuator
// dispatch pass. Adapted from cron/cron.go's Scheduler, narrowed from a
// general-purpose job host to these two concerns.
type Scheduler struct {
	mu sync.Mutex

	cron         *rcron.Cron
	location     *time.Location
	logger       twopc.Logger
	errorHandler func(error)

	entries []rcron.EntryID
}

// New constructs a Scheduler. Call Start to begin running registered
// jobs and Stop to halt them.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		location: time.Local,
		logger:   twopc.NewFmtLogger(nil),
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	if s.errorHandler == nil {
		s.errorHandler = func(err error) { s.logger.Error("schedule: job failed: %v", err) }
	}
	s.cron = rcron.New(
		rcron.WithLocation(s.location),
		rcron.WithLogger(&loggerAdapter{logger: s.logger}),
		rcron.WithChain(rcron.Recover(&loggerAdapter{logger: s.logger})),
	)
	return s
}

// ScheduleGC registers m.Clear(delExc) to run on expr (a standard cron
// expression, e.g. "@every 1m"), implementing the periodic half of base
// spec §4.3's retention sweep (SPEC_FULL's robfig/cron/v3 domain-stack
// entry; the base spec only specifies _clear's sweep semantics, not who
// calls it).
func (s *Scheduler) ScheduleGC(expr string, m *tm.Manager, delExc bool) (rcron.EntryID, error) {
	id, err := s.cron.AddFunc(expr, func() {
		m.Clear(delExc)
	})
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.entries = append(s.entries, id)
	s.mu.Unlock()
	return id, nil
}

// ScheduleDispatch registers a periodic actuator scheduling pass
// (m.RunOnce), for hosts that don't drive the actuator from their own
// event loop.
func (s *Scheduler) ScheduleDispatch(expr string, m *tm.Manager, timeout time.Duration) (rcron.EntryID, error) {
	id, err := s.cron.AddFunc(expr, func() {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := m.RunOnce(ctx); err != nil {
			s.errorHandler(err)
		}
	})
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.entries = append(s.entries, id)
	s.mu.Unlock()
	return id, nil
}

// Remove cancels a previously scheduled entry.
func (s *Scheduler) Remove(id rcron.EntryID) {
	s.cron.Remove(id)
}

// Start begins running scheduled jobs in their own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loggerAdapter adapts twopc.Logger to robfig/cron's Logger interface
// (Info/Error with a leading error argument) and to cron.Recover's job
// wrapper, following cron/options.go's loggerAdapter.
type loggerAdapter struct {
	logger twopc.Logger
}

func (l *loggerAdapter) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *loggerAdapter) Error(err error, msg string, keysAndValues ...any) {
	if err != nil {
		l.logger.Error(msg+": %v", err)
		return
	}
	l.logger.Error(msg, keysAndValues...)
}
