package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/knowledge"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/render"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/resolver"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/validator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/EnvForge/backend/internal/session"
	"github.com/GriffinCanCode/EnvForge/backend/internal/shared/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Options wires the handlers.
type Options struct {
	// Collaborator names the collaborator mode for the health endpoint.
	Collaborator string
	Logger       *zap.Logger
	Metrics      *monitoring.Metrics
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions  *session.Manager
	registry  *contracts.Registry
	kb        *knowledge.Base
	validator *validator.Validator
	resolver  *resolver.Resolver
	renderer  *render.Renderer
	hasher    *utils.Hasher

	collaborator string
	logger       *zap.Logger
	metrics      *monitoring.Metrics
	started      time.Time
}

// NewHandlers creates a handler set. Stateless graph endpoints use the
// same contracts, knowledge base and pipeline stages as the sessions.
func NewHandlers(sessions *session.Manager, opts Options) *Handlers {
	copts := sessions.CompilerOptions()
	return &Handlers{
		sessions:     sessions,
		registry:     copts.Contracts,
		kb:           copts.Knowledge,
		validator:    copts.Validator,
		resolver:     copts.Resolver,
		renderer:     copts.Renderer,
		hasher:       utils.DefaultHasher(),
		collaborator: opts.Collaborator,
		logger:       logging.Component(opts.Logger, "api"),
		metrics:      opts.Metrics,
		started:      time.Now(),
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "EnvForge Blueprint Compiler",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"sessions":       h.sessions.Count(),
		"max_rounds":     h.sessions.MaxRounds(),
		"backend_types":  h.registry.BackendTypes(),
		"knowledge":      h.kb.Stats(),
		"collaborator":   h.collaborator,
		"resolver":       h.resolver.Policy().String(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// Knowledge serves the merged resource catalogue.
func (h *Handlers) Knowledge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":     h.kb.Stats(),
		"catalogue": h.kb.Catalogue(),
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrRoundLimit), errors.Is(err, compiler.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotComplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// encoded writes data in format, honouring If-None-Match.
func (h *Handlers) encoded(c *gin.Context, data []byte, format string) {
	etag := h.hasher.ETag(data)
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, contentType(format), data)
}

func contentType(format string) string {
	if format == "json" {
		return "application/json; charset=utf-8"
	}
	return "application/yaml; charset=utf-8"
}
