package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webzook/wintail/pkg/wintail"
)

var _ wintail.Recorder = (*Recorder)(nil)

func TestRecorder_PollCompleted(t *testing.T) {
	r := New()

	r.PollCompleted("webzook", 0, 1000, 12, 2)
	r.PollCompleted("webzook", 1000, 1300, 3, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.PollsTotal.WithLabelValues("webzook", ResultCommitted)))
	assert.Equal(t, 1300.0, testutil.ToFloat64(r.BytesTotal.WithLabelValues("webzook")))
	assert.Equal(t, 15.0, testutil.ToFloat64(r.RecordsTotal.WithLabelValues("webzook")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.WinsTotal.WithLabelValues("webzook")))
	assert.Equal(t, 1300.0, testutil.ToFloat64(r.Offset.WithLabelValues("webzook")))
}

func TestRecorder_SkippedAndFailed(t *testing.T) {
	r := New()

	r.PollSkipped("webzook")
	r.PollSkipped("webzook")
	r.PollFailed("webzook", "fetch")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.PollsTotal.WithLabelValues("webzook", ResultNoNewData)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PollsTotal.WithLabelValues("webzook", ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FailuresTotal.WithLabelValues("webzook", "fetch")))
	assert.Equal(t, 0, testutil.CollectAndCount(r.Offset))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.PollCompleted("webzook", 0, 10, 1, 1)
	r.ObserveRequest("/wins", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `wintail_wins_total{source="webzook"} 1`), body)
	assert.Contains(t, body, "wintail_http_request_duration_seconds_count")
}

func TestNew_IndependentRegistries(t *testing.T) {
	// Two recorders must not collide on registration.
	a, b := New(), New()
	a.PollSkipped("x")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PollsTotal.WithLabelValues("x", ResultNoNewData)))
}
