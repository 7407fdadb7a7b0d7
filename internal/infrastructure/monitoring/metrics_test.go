package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond, 0, 0)
		m.IncRounds()
		m.ObserveValidation(3)
		m.RecordTransition("start", "intent_parsed")
		m.IncRendered()
		m.RecordUpdate("literal")
		m.RecordCollaboratorCall("intents", "success", time.Millisecond)
		m.RecordCollaboratorFailure("intents", "error")
		m.SetSessionsActive(1)
		m.IncSessionsCreated()
		m.IncSessionsSaved()
		m.IncSessionsRestored()
		m.IncWSConnections()
		m.DecWSConnections()
		m.RecordWSMessage("in", "answer")
		NewTimer(m, "answers").Stop("success")
	})
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestCompilerCounters(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.IncRounds()
	m.IncRounds()
	m.IncRendered()
	m.RecordTransition("validation", "needs_input")
	m.RecordCollaboratorFailure("questions", "timeout")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CompileRounds))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BlueprintsRendered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateTransitions.WithLabelValues("validation", "needs_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollaboratorFailures.WithLabelValues("questions", "timeout")))

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Rounds)
	assert.Equal(t, int64(1), s.BlueprintsRendered)
	assert.Equal(t, int64(1), s.CollaboratorErrors)
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics", Handler(reg))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/sess_123", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/sessions/:id", "404")))
	assert.Equal(t, int64(1), m.Snapshot().TotalErrors)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "envforge_http_requests_total")
}
