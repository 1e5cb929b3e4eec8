package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveUpstream(t *testing.T) {
	m := New()

	m.ObserveUpstream("draw", 200, 50*time.Millisecond)
	m.ObserveUpstream("draw", 200, 10*time.Millisecond)
	m.ObserveUpstream("chat", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("draw", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("chat", StatusNetworkError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.upstreamLatency))
}

func TestLoginCounters(t *testing.T) {
	m := New()

	m.LoginFailed()
	m.LoginFailed()
	m.LoginLocked()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lockouts))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/keys", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `keyproxy_http_requests_total{method="GET",route="/api/keys",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
