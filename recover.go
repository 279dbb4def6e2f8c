package twopc

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// PanicLogger receives a recovered panic: the guarded function's name,
// the recovered value, a cleaned stack trace, and any fields the caller
// attached for context.
type PanicLogger func(funcName string, err any, stack []byte, fields ...map[string]any)

// MakePanicHandler builds a deferred recover() guard bound to logger.
// Adapted from the teacher's panics.go; retained here because base spec
// §7 requires that a failing order or task callback never take down the
// core - "callback failure... swallowed" extends naturally to a panicking
// callback.
func MakePanicHandler(logger PanicLogger) func(funcName string, fields ...map[string]any) {
	return func(funcName string, fields ...map[string]any) {
		if err := recover(); err != nil {
			fullStack := make([]byte, 8096)
			n := runtime.Stack(fullStack, false)
			fullStack = fullStack[:n]

			logger(funcName, err, cleanStackTrace(fullStack), fields...)
		}
	}
}

// DefaultPanicLogger formats a recovered panic through a Logger at Error
// level instead of the teacher's log.Print, so it shares the Manager's
// configured sink.
func DefaultPanicLogger(logger Logger) PanicLogger {
	logger = NormalizeLogger(logger)
	return func(funcName string, err any, stack []byte, fields ...map[string]any) {
		var sb strings.Builder

		sb.WriteString(fmt.Sprintf("recovered from panic in %s\n", funcName))
		sb.WriteString(fmt.Sprintf("error: %v\n", err))

		if len(fields) > 0 && fields[0] != nil {
			sb.WriteString("context:\n")
			keys := make([]string, 0, len(fields[0]))
			for k := range fields[0] {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				sb.WriteString(fmt.Sprintf("  %s: %v\n", k, fields[0][k]))
			}
		}

		sb.WriteString("stack trace:\n")
		sb.Write(stack)

		logger.Error(sb.String())
	}
}

func cleanStackTrace(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")

	panicLineIndex := -1
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			panicLineIndex = i
			break
		}
	}

	if panicLineIndex >= 0 && panicLineIndex+2 < len(lines) {
		lines = lines[panicLineIndex+2:]
	}

	return []byte(strings.Join(lines, "\n"))
}

// SafeTaskCallback wraps cb so a panic is recovered, logged, and
// swallowed rather than propagated into the Callback Router.
func SafeTaskCallback(cb TaskCallback, logger Logger) TaskCallback {
	if cb == nil {
		return nil
	}
	logLine := DefaultPanicLogger(logger)
	return func(toid Toid, ttid Ttid, status TaskStatus) {
		defer MakePanicHandler(logLine)("TaskCallback", map[string]any{
			"toid": uint64(toid), "ttid": uint64(ttid), "status": status.String(),
		})
		cb(toid, ttid, status)
	}
}

// SafeOrderCallback wraps cb so a panic is recovered, logged, and
// swallowed rather than propagated from _orderComplete.
func SafeOrderCallback(cb OrderCallback, logger Logger) OrderCallback {
	if cb == nil {
		return nil
	}
	logLine := DefaultPanicLogger(logger)
	return func(toid Toid, status OrderStatus) {
		defer MakePanicHandler(logLine)("OrderCallback", map[string]any{
			"toid": uint64(toid), "status": status.String(),
		})
		cb(toid, status)
	}
}
