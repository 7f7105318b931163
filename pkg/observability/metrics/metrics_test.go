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
)

func TestObservePrediction(t *testing.T) {
	m := New()
	m.ObservePrediction("positive", "high", 3*time.Millisecond)
	m.ObservePrediction("positive", "high", time.Millisecond)
	m.ObserveFailure("no_input")
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveRedaction([]string{"ssn", "email"})
	m.ObserveRedaction([]string{"ssn"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.predictions.WithLabelValues("positive", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("no_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.redactions.WithLabelValues("ssn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redactions.WithLabelValues("email")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObservePrediction("negative", "low", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "urisense_serving_predictions_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePrediction("positive", "high", time.Second)
	m.ObserveFailure("internal")
	m.ObserveCacheLookup(true)
	m.ObserveRedaction([]string{"ssn"})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
