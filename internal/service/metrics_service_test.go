package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceTrackerCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordTrackerPersist("documentSections", persistSuccess, 10*time.Millisecond)
	m.RecordTrackerPersist("documentSections", persistSkipped, 0)
	m.RecordTrackerDeletion("documentSections", deletionRollback)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.persistTotal.WithLabelValues("documentSections", persistSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.persistTotal.WithLabelValues("documentSections", persistSkipped)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.deletionsTotal.WithLabelValues("documentSections", deletionRollback)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.openSessions))
}

func TestMetricsServiceHandler(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/projects/:id", http.StatusOK, time.Millisecond)
	m.RecordTrackerPersist("weeklyFMSReviewSections", persistFailure, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), `result="failure"`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveDBQuery("q", time.Millisecond)
		m.RecordTrackerPersist("k", persistSuccess, time.Millisecond)
		m.RecordTrackerDeletion("k", deletionSuccess)
		m.SessionOpened()
		m.SessionClosed()
	})
}
