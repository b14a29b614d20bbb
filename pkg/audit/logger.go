package audit

import (
	"context"
	"time"

	"github.com/platinummonkey/verihub/pkg/state"
)

// Logger is the interface for audit logging. Implementations must be
// safe for concurrent use. Callers treat logging as fire-and-forget:
// errors are reported but never alter protocol flow.
type Logger interface {
	// Log logs an audit event.
	Log(ctx context.Context, event *Event) error

	// LogTransition logs a committed state transition.
	LogTransition(ctx context.Context, sessionID state.SessionID, from, to state.State) error

	// LogSessionTimeout logs the lazy conversion of an expired session.
	LogSessionTimeout(ctx context.Context, sessionID state.SessionID, issuerEntityID string, expiredAt time.Time, requestID string) error

	// LogInvalidStateAccess logs a protocol-sequencing error.
	LogInvalidStateAccess(ctx context.Context, sessionID state.SessionID, expected string, actual state.Name) error

	// Close flushes and releases the logger.
	Close() error
}

// contextKey is the type for context keys.
type contextKey string

const loggerKey contextKey = "audit_logger"

// WithLogger adds an audit logger to the context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the audit logger from context, falling back to
// a no-op logger.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return NopLogger{}
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) Log(context.Context, *Event) error { return nil }

func (NopLogger) LogTransition(context.Context, state.SessionID, state.State, state.State) error {
	return nil
}

func (NopLogger) LogSessionTimeout(context.Context, state.SessionID, string, time.Time, string) error {
	return nil
}

func (NopLogger) LogInvalidStateAccess(context.Context, state.SessionID, string, state.Name) error {
	return nil
}

func (NopLogger) Close() error { return nil }

// baseLogger provides the convenience methods shared by concrete
// loggers in terms of their Log implementation.
type baseLogger struct {
	sink interface {
		Log(ctx context.Context, event *Event) error
	}
}

func (b baseLogger) LogTransition(ctx context.Context, sessionID state.SessionID, from, to state.State) error {
	event := NewEvent(TransitionEventType(to.Name()), sessionID)
	event.FromState = from.Name()
	event.ToState = to.Name()
	event.RequestID = to.Common().RequestID
	event.IssuerEntityID = to.Common().RequestIssuerEntityID
	return b.sink.Log(ctx, event)
}

func (b baseLogger) LogSessionTimeout(ctx context.Context, sessionID state.SessionID, issuerEntityID string, expiredAt time.Time, requestID string) error {
	event := NewEvent(EventSessionTimeout, sessionID)
	event.IssuerEntityID = issuerEntityID
	event.RequestID = requestID
	event.WithDetail("expired_at", expiredAt.UTC().Format(time.RFC3339))
	return b.sink.Log(ctx, event)
}

func (b baseLogger) LogInvalidStateAccess(ctx context.Context, sessionID state.SessionID, expected string, actual state.Name) error {
	event := NewEvent(EventSessionStateInvalid, sessionID)
	event.WithDetail("expected", expected)
	event.WithDetail("actual", string(actual))
	return b.sink.Log(ctx, event)
}
