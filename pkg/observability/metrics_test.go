package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersAndServes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SessionsCreatedTotal.Inc()
	m.StateTransitionsTotal.WithLabelValues("session_started", "idp_selected").Inc()
	m.ObserveStoreOperation("get", time.Now(), nil)
	m.ObserveStoreOperation("replace", time.Now(), errors.New("boom"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "verihub_sessions_created_total 1")
	assert.Contains(t, body, `verihub_state_transitions_total{from="session_started",to="idp_selected"} 1`)
	assert.Contains(t, body, `verihub_store_errors_total{operation="replace"} 1`)
}

func TestMetrics_Middleware(t *testing.T) {
	m := NewMetrics(nil)

	handler := m.Middleware("/policy/session", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/policy/session", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `verihub_http_requests_total{method="POST",path="/policy/session",status="201"} 1`)
}

func TestHealthChecker_Readiness(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checker := NewHealthChecker(client, nil)

	rec := httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["session_store"].Status)

	mr.Close()
	rec = httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogger_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("session_id", "session-1").Info("state transition committed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "state transition committed", entry["msg"])
	assert.Equal(t, "session-1", entry["session_id"])

	buf.Reset()
	logger.Debug("below threshold")
	assert.Empty(t, buf.String())
}
