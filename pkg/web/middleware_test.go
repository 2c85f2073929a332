package web

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/pubsub"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.SetOutput(&buf, slog.LevelInfo)
	t.Cleanup(func() { logging.SetOutput(os.Stderr, slog.LevelInfo) })
	return &buf
}

func TestAccessLogRecordsDiffOutcome(t *testing.T) {
	logs := captureLogs(t)
	s := newServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/diff", bytes.NewReader(diffBody(t)))
	req.Header.Set("X-Request-ID", "req-0001")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-0001", rec.Header().Get("X-Request-ID"))

	line := logs.String()
	assert.Contains(t, line, "Request served")
	assert.Contains(t, line, "requestID=req-0001")
	assert.Contains(t, line, "route=/api/diff status=200")
	assert.Contains(t, line, "strategy=ged recovery=global_similarity distance=5")
}

func TestAccessLogLeavesDiffFieldsOutElsewhere(t *testing.T) {
	logs := captureLogs(t)

	rec := do(t, newServer(t, nil, nil), http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "route=/healthz")
	assert.NotContains(t, logs.String(), "strategy=")
}

func TestAccessLogCountsByRouteTemplate(t *testing.T) {
	logs := captureLogs(t)
	pub := pubsub.NewSessionPublisher()
	defer pub.Close()
	s := newServer(t, nil, pub)

	rec := do(t, s, http.MethodGet, "/api/subscribe/other", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, logs.String(), "Request rejected")
	assert.Contains(t, logs.String(), "route=/api/subscribe/{topic} status=404")

	rec = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`pdgdiff_http_requests_total{method="GET",route="/api/subscribe/{topic}",status="404"}`)
	assert.Contains(t, rec.Body.String(), "pdgdiff_http_request_duration_seconds")
}
