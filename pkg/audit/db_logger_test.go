package audit

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/verihub/pkg/state"
)

func newTestDBLogger(t *testing.T) (*DBLogger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	logger, err := NewDBLogger(db)
	require.NoError(t, err)
	return logger, mock
}

func TestNewDBLogger_RequiresDB(t *testing.T) {
	_, err := NewDBLogger(nil)
	assert.Error(t, err)
}

func TestDBLogger_Log(t *testing.T) {
	logger, mock := newTestDBLogger(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := NewEvent(EventMatchSucceeded, state.SessionID("session-1"))
	event.RequestID = "request-1"
	event.WithDetail("matching_service", "https://msa.example.com")

	require.NoError(t, logger.Log(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLogger_LogTransition(t *testing.T) {
	logger, mock := newTestDBLogger(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	from := &state.IdpSelected{IdpEntityID: "https://idp-a.example.com"}
	to := &state.Cycle0And1MatchRequestSent{IdpEntityID: "https://idp-a.example.com"}
	to.RequestID = "request-1"

	require.NoError(t, logger.LogTransition(context.Background(), "session-1", from, to))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLogger_NilEvent(t *testing.T) {
	logger, _ := newTestDBLogger(t)
	assert.Error(t, logger.Log(context.Background(), nil))
}
