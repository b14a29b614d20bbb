package audit

import (
	"context"
	"errors"
)

// MultiLogger fans events out to several loggers. Every logger is
// attempted; errors are joined.
type MultiLogger struct {
	baseLogger
	loggers []Logger
}

// NewMultiLogger creates a fan-out logger.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	l := &MultiLogger{loggers: loggers}
	l.baseLogger = baseLogger{sink: l}
	return l
}

// Log implements Logger.
func (l *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []error
	for _, logger := range l.loggers {
		if err := logger.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Logger.
func (l *MultiLogger) Close() error {
	var errs []error
	for _, logger := range l.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
