package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	r := New()

	r.CountItems("S2_SHORTLIST", "kept", 3)
	r.CountItems("S2_SHORTLIST", "kept", 0) // 무시
	r.CountFallback("timeout")
	r.CountPublish("preopen", "locked")
	r.CountRun("ok")
	r.SetBreakerState("kite", 2)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.StageItems.WithLabelValues("S2_SHORTLIST", "kept")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ClassifierFallbacks.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PublishAttempts.WithLabelValues("preopen", "locked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PickRuns.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.BreakerState.WithLabelValues("kite")))
}

func TestObserveStage(t *testing.T) {
	r := New()
	r.ObserveStage("S3_TECHNICAL", time.Now(), nil)
	r.ObserveStage("S3_TECHNICAL", time.Now(), errors.New("boom"))

	assert.Equal(t, 2, testutil.CollectAndCount(r.StageDuration))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.CountItems("s", "o", 1)
		r.CountFallback("x")
		r.ObserveStage("s", time.Now(), nil)
		r.ObserveHTTP("/health", "GET", "200", time.Millisecond)
	})
}

func TestHandlerServesExposition(t *testing.T) {
	r := New()
	r.CountRun("ok")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "picker_runs_total")
}
