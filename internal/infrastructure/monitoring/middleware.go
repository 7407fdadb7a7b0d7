package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		// Route templates keep session ids out of label values.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(method, path, status, time.Since(start), reqSize, respSize)
	}
}

// Timer measures one collaborator call
type Timer struct {
	start   time.Time
	metrics *Metrics
	role    string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, role string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		role:    role,
	}
}

// Stop records the call duration with its outcome
func (t *Timer) Stop(status string) time.Duration {
	duration := time.Since(t.start)
	t.metrics.RecordCollaboratorCall(t.role, status, duration)
	return duration
}
