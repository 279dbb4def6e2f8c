package twopc

import (
	"context"
	"io"

	"github.com/goliatone/go-logger/glog"
)

// GlogAdapter wraps a glog.Logger so it satisfies this package's Logger
// and FieldsLogger contracts, following flow/logger_compat_test.go's
// glogCompatLogger: a thin method-for-method forward, with WithContext/
// WithFields falling back to FmtLogger when the wrapped logger is nil.
type GlogAdapter struct {
	logger glog.Logger
}

// NewGlogAdapter wraps logger for use anywhere a Logger is accepted
// (Manager, Actuator, Scheduler). A nil logger is stored as is: only
// WithContext and WithFields fall back to FmtLogger, and the leveled
// logging methods need a non-nil logger.
func NewGlogAdapter(logger glog.Logger) *GlogAdapter {
	return &GlogAdapter{logger: logger}
}

// NewJSONGlogAdapter builds a glog.Logger writing leveled JSON to out and
// wraps it, following flow/logger_compat_test.go's construction (
// glog.NewLogger with WithWriter/WithLoggerTypeJSON/WithLevel).
func NewJSONGlogAdapter(out io.Writer, level string) *GlogAdapter {
	if level == "" {
		level = "info"
	}
	return &GlogAdapter{logger: glog.NewLogger(
		glog.WithWriter(out),
		glog.WithLoggerTypeJSON(),
		glog.WithLevel(level),
	)}
}

func (l *GlogAdapter) Trace(msg string, args ...any) { l.logger.Trace(msg, args...) }
func (l *GlogAdapter) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *GlogAdapter) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *GlogAdapter) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *GlogAdapter) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *GlogAdapter) Fatal(msg string, args ...any) { l.logger.Fatal(msg, args...) }

// WithContext returns a GlogAdapter bound to ctx, or an FmtLogger if this
// adapter wraps no logger.
func (l *GlogAdapter) WithContext(ctx context.Context) Logger {
	if l == nil || l.logger == nil {
		return NewFmtLogger(nil).WithContext(ctx)
	}
	return &GlogAdapter{logger: l.logger.WithContext(ctx)}
}

// WithFields returns a GlogAdapter carrying fields if the wrapped logger
// implements glog.FieldsLogger, otherwise returns l unchanged.
func (l *GlogAdapter) WithFields(fields map[string]any) Logger {
	if l == nil || l.logger == nil {
		return NewFmtLogger(nil).WithFields(fields)
	}
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return &GlogAdapter{logger: fl.WithFields(fields)}
	}
	return l
}
