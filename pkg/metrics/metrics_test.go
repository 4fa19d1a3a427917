package metrics

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGuardMetrics(reg)

	m.RecordCall("native", "linear", 2*time.Millisecond, nil)
	m.RecordCall("native", "linear", time.Millisecond, errors.New("boom"))
	m.RecordScope("native", true, nil)
	m.RecordScope("native", true, errors.New("boom"))
	m.RecordScope("native", false, nil)
	m.RecordCacheLookup("cached", true)
	m.RecordCacheLookup("cached", false)
	m.RecordViolation("linear")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("native", "linear", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("native", "linear", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.masks.WithLabelValues("native")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skips.WithLabelValues("native")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.restores.WithLabelValues("native", "normal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.restores.WithLabelValues("native", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("cached", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("linear")))
}

func TestNilGuardMetricsIsSafe(t *testing.T) {
	var m *GuardMetrics
	m.RecordCall("native", "linear", time.Millisecond, nil)
	m.RecordScope("native", true, nil)
	m.RecordCacheLookup("cached", true)
	m.RecordViolation("linear")
}

func TestRouterServesMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGuardMetrics(reg)
	m.RecordScope("native", true, nil)

	srv := httptest.NewServer(NewRouter(reg, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `modelguard_guard_masks_total{engine="native"} 1`)
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGuardMetrics(reg)
	m.RecordViolation("linear")

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))

	out := buf.String()
	assert.True(t, strings.Contains(out, "# TYPE modelguard_run_restore_violations_total counter"), out)
	assert.Contains(t, out, `modelguard_run_restore_violations_total{model="linear"} 1`)
}

func TestServerLimitsScrapesPerClient(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer("127.0.0.1:0", reg, nil, nil)

	var limited int
	for i := 0; i < ScrapeBurst+1; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		rec := httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 1, limited)
	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()), "second shutdown must not panic")
}
