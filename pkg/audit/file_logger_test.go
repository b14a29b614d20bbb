package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/verihub/pkg/state"
)

func newTestFileLogger(t *testing.T) (*FileLogger, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := NewFileLogger(FileLoggerConfig{BasePath: dir, Rotate: true, MaxSize: 1024, MaxFiles: 2})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, dir
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	return events
}

func TestFileLogger_Log(t *testing.T) {
	l, dir := newTestFileLogger(t)

	event := NewEvent(EventIdpSelected, state.SessionID("session-1"))
	event.RequestID = "request-1"
	event.WithDetail("idp_entity_id", "https://idp-a.example.com")
	require.NoError(t, l.Log(context.Background(), event))

	events := readEvents(t, filepath.Join(dir, "audit.log"))
	require.Len(t, events, 1)
	assert.Equal(t, EventIdpSelected, events[0].Type)
	assert.Equal(t, state.SessionID("session-1"), events[0].SessionID)
	assert.Equal(t, "https://idp-a.example.com", events[0].Details["idp_entity_id"])
}

func TestFileLogger_NilEvent(t *testing.T) {
	l, _ := newTestFileLogger(t)
	assert.Error(t, l.Log(context.Background(), nil))
}

func TestFileLogger_Rotation(t *testing.T) {
	l, dir := newTestFileLogger(t)

	for i := 0; i < 100; i++ {
		event := NewEvent(EventStateTransition, state.SessionID("session-1"))
		event.WithDetail("padding", "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
		require.NoError(t, l.Log(context.Background(), event))
	}

	rotated, err := filepath.Glob(filepath.Join(dir, "audit-*.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, rotated, "expected at least one rotated file")
	assert.LessOrEqual(t, len(rotated), 2, "rotation must prune old files")
}

func TestFileLogger_ConvenienceMethods(t *testing.T) {
	l, dir := newTestFileLogger(t)
	ctx := context.Background()

	from := &state.SessionStarted{}
	from.RequestID = "request-1"
	to := &state.IdpSelected{IdpEntityID: "https://idp-a.example.com"}
	to.RequestID = "request-1"
	to.RequestIssuerEntityID = "https://rp.example.com"

	require.NoError(t, l.LogTransition(ctx, "session-1", from, to))
	require.NoError(t, l.LogSessionTimeout(ctx, "session-1", "https://rp.example.com", time.Now(), "request-1"))
	require.NoError(t, l.LogInvalidStateAccess(ctx, "session-1", "session_started", state.NameIdpSelected))

	events := readEvents(t, filepath.Join(dir, "audit.log"))
	require.Len(t, events, 3)
	assert.Equal(t, EventIdpSelected, events[0].Type)
	assert.Equal(t, state.NameSessionStarted, events[0].FromState)
	assert.Equal(t, state.NameIdpSelected, events[0].ToState)
	assert.Equal(t, EventSessionTimeout, events[1].Type)
	assert.NotEmpty(t, events[1].Details["expired_at"])
	assert.Equal(t, EventSessionStateInvalid, events[2].Type)
	assert.Equal(t, "idp_selected", events[2].Details["actual"])
}

func TestMultiLogger(t *testing.T) {
	a, dirA := newTestFileLogger(t)
	b, dirB := newTestFileLogger(t)
	multi := NewMultiLogger(a, b)

	require.NoError(t, multi.Log(context.Background(), NewEvent(EventSessionStarted, "session-1")))

	assert.Len(t, readEvents(t, filepath.Join(dirA, "audit.log")), 1)
	assert.Len(t, readEvents(t, filepath.Join(dirB, "audit.log")), 1)
}

func TestFromContext_Fallback(t *testing.T) {
	l := FromContext(context.Background())
	assert.NoError(t, l.Log(context.Background(), NewEvent(EventSessionStarted, "session-1")))

	fileLogger, _ := newTestFileLogger(t)
	ctx := WithLogger(context.Background(), fileLogger)
	assert.Same(t, Logger(fileLogger), FromContext(ctx))
}
