package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can run without a collector.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Compiler metrics
	CompileRounds      prometheus.Counter
	Validations        prometheus.Counter
	FindingsPerPass    prometheus.Histogram
	StateTransitions   *prometheus.CounterVec
	BlueprintsRendered prometheus.Counter
	UpdatesApplied     *prometheus.CounterVec

	// Collaborator metrics
	CollaboratorCalls    *prometheus.CounterVec
	CollaboratorDuration *prometheus.HistogramVec
	CollaboratorFailures *prometheus.CounterVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsCreated  prometheus.Counter
	SessionsSaved    prometheus.Counter
	SessionsRestored prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for the JSON stats endpoint.
type Snapshot struct {
	TotalRequests      int64   `json:"total_requests"`
	TotalErrors        int64   `json:"total_errors"`
	Rounds             int64   `json:"rounds"`
	BlueprintsRendered int64   `json:"blueprints_rendered"`
	CollaboratorErrors int64   `json:"collaborator_errors"`
	AverageLatency     float64 `json:"average_latency_seconds"`

	totalDuration float64
}

// NewMetricsWith registers the collectors with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{startTime: time.Now()}

	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "envforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
	m.RequestSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "envforge_http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)
	m.ResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "envforge_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)

	m.CompileRounds = factory.NewCounter(prometheus.CounterOpts{
		Name: "envforge_compile_rounds_total",
		Help: "Total number of inputs processed by compilers",
	})
	m.Validations = factory.NewCounter(prometheus.CounterOpts{
		Name: "envforge_validations_total",
		Help: "Total number of graph validation passes",
	})
	m.FindingsPerPass = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "envforge_findings_per_validation",
		Help:    "Missing requirements reported by one validation pass",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})
	m.StateTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envforge_state_transitions_total",
			Help: "Compiler state transitions",
		},
		[]string{"from", "to"},
	)
	m.BlueprintsRendered = factory.NewCounter(prometheus.CounterOpts{
		Name: "envforge_blueprints_rendered_total",
		Help: "Total number of blueprints rendered",
	})
	m.UpdatesApplied = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envforge_updates_applied_total",
			Help: "Graph updates applied, by classification",
		},
		[]string{"classification"},
	)

	m.CollaboratorCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envforge_collaborator_calls_total",
			Help: "Total number of collaborator calls",
		},
		[]string{"role", "status"},
	)
	m.CollaboratorDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "envforge_collaborator_duration_seconds",
			Help:    "Collaborator call duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"role"},
	)
	m.CollaboratorFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envforge_collaborator_failures_total",
			Help: "Collaborator calls replaced by a fallback",
		},
		[]string{"role", "reason"},
	)

	m.SessionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Name: "envforge_sessions_active",
		Help: "Number of active sessions",
	})
	m.SessionsCreated = factory.NewCounter(prometheus.CounterOpts{
		Name: "envforge_sessions_created_total",
		Help: "Total number of sessions created",
	})
	m.SessionsSaved = factory.NewCounter(prometheus.CounterOpts{
		Name: "envforge_sessions_saved_total",
		Help: "Total number of session snapshots written",
	})
	m.SessionsRestored = factory.NewCounter(prometheus.CounterOpts{
		Name: "envforge_sessions_restored_total",
		Help: "Total number of sessions restored from snapshots",
	})

	m.WSConnections = factory.NewGauge(prometheus.GaugeOpts{
		Name: "envforge_ws_connections",
		Help: "Number of active WebSocket connections",
	})
	m.WSMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envforge_ws_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction", "type"},
	)

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "envforge_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// IncRounds counts one processed input.
func (m *Metrics) IncRounds() {
	if m == nil {
		return
	}
	m.CompileRounds.Inc()
	m.mu.Lock()
	m.snapshot.Rounds++
	m.mu.Unlock()
}

// ObserveValidation records the size of one validation pass.
func (m *Metrics) ObserveValidation(findings int) {
	if m == nil {
		return
	}
	m.Validations.Inc()
	m.FindingsPerPass.Observe(float64(findings))
}

// RecordTransition counts a state change.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.StateTransitions.WithLabelValues(from, to).Inc()
}

// IncRendered counts a rendered blueprint.
func (m *Metrics) IncRendered() {
	if m == nil {
		return
	}
	m.BlueprintsRendered.Inc()
	m.mu.Lock()
	m.snapshot.BlueprintsRendered++
	m.mu.Unlock()
}

// RecordUpdate counts an applied graph update.
func (m *Metrics) RecordUpdate(classification string) {
	if m == nil {
		return
	}
	m.UpdatesApplied.WithLabelValues(classification).Inc()
}

// RecordCollaboratorCall records one collaborator call.
func (m *Metrics) RecordCollaboratorCall(role, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CollaboratorCalls.WithLabelValues(role, status).Inc()
	m.CollaboratorDuration.WithLabelValues(role).Observe(duration.Seconds())
}

// RecordCollaboratorFailure records a call replaced by a fallback.
func (m *Metrics) RecordCollaboratorFailure(role, reason string) {
	if m == nil {
		return
	}
	m.CollaboratorFailures.WithLabelValues(role, reason).Inc()
	m.mu.Lock()
	m.snapshot.CollaboratorErrors++
	m.mu.Unlock()
}

// SetSessionsActive sets the number of active sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
}

// IncSessionsCreated increments the sessions created counter
func (m *Metrics) IncSessionsCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

// IncSessionsSaved increments the sessions saved counter
func (m *Metrics) IncSessionsSaved() {
	if m == nil {
		return
	}
	m.SessionsSaved.Inc()
}

// IncSessionsRestored increments the sessions restored counter
func (m *Metrics) IncSessionsRestored() {
	if m == nil {
		return
	}
	m.SessionsRestored.Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Snapshot returns the running totals.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AverageLatency = s.totalDuration / float64(s.TotalRequests)
	}
	return s
}
