package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers a panic and logs it with the full stack. It is
// meant for deferred use in background work (reload jobs, watchers)
// where one bad run must not take the hub down:
//
//	defer observability.RecoverPanic(logger, "federation reload")
//
// The panic is not re-raised. State guarded by the panicking code may
// be inconsistent afterwards, so callers keep the scope small.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}
