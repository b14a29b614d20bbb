package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// Registers the postgres driver used by the audit store.
	_ "github.com/lib/pq"
)

// DBLogger writes audit events to a PostgreSQL table for the reporting
// pipeline to query.
type DBLogger struct {
	baseLogger
	db *sql.DB
}

// NewDBLogger creates a database-backed audit logger, creating the
// audit_events table on first use.
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	l := &DBLogger{db: db}
	l.baseLogger = baseLogger{sink: l}

	if err := l.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_events table: %w", err)
	}
	return l, nil
}

func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		event_type VARCHAR(100) NOT NULL,
		session_id VARCHAR(64) NOT NULL,
		request_id VARCHAR(100),
		issuer_entity_id VARCHAR(255),
		from_state VARCHAR(64),
		to_state VARCHAR(64),
		message TEXT,
		details JSONB
	);
	CREATE INDEX IF NOT EXISTS idx_audit_events_session ON audit_events(session_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_type_time ON audit_events(event_type, timestamp);
	`
	_, err := l.db.Exec(query)
	return err
}

// Log implements Logger.
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}

	var details []byte
	if len(event.Details) > 0 {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal event details: %w", err)
		}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(timestamp, event_type, session_id, request_id, issuer_entity_id, from_state, to_state, message, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.Timestamp,
		string(event.Type),
		string(event.SessionID),
		nullable(event.RequestID),
		nullable(event.IssuerEntityID),
		nullable(string(event.FromState)),
		nullable(string(event.ToState)),
		nullable(event.Message),
		details,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Close implements Logger. The connection is owned by the caller.
func (l *DBLogger) Close() error { return nil }
