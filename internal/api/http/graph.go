package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/shared/utils"
	"github.com/gin-gonic/gin"
)

// ValidationResponse lists the findings for an uploaded graph.
type ValidationResponse struct {
	Valid    bool                           `json:"valid"`
	Entities int                            `json:"entities"`
	Findings []blueprint.MissingRequirement `json:"findings"`
}

func readGraph(c *gin.Context) (*blueprint.Graph, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxGraphSize)
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return nil, false
		}
		badRequest(c, err)
		return nil, false
	}
	if err := utils.ValidateGraphSize(data); err != nil {
		badRequest(c, err)
		return nil, false
	}
	g, err := blueprint.DecodeGraph(data)
	if err != nil {
		badRequest(c, err)
		return nil, false
	}
	return g, true
}

func encodeGraph(g *blueprint.Graph, format blueprint.Format) ([]byte, error) {
	return blueprint.EncodeGraph(g, format)
}

func (h *Handlers) findings(g *blueprint.Graph) []blueprint.MissingRequirement {
	findings := h.validator.Validate(g)
	h.metrics.ObserveValidation(len(findings))
	if findings == nil {
		findings = []blueprint.MissingRequirement{}
	}
	return findings
}

// ValidateGraph reports the findings for an uploaded graph as it stands.
func (h *Handlers) ValidateGraph(c *gin.Context) {
	g, ok := readGraph(c)
	if !ok {
		return
	}
	findings := h.findings(g)
	c.JSON(http.StatusOK, ValidationResponse{
		Valid:    len(findings) == 0,
		Entities: g.Len(),
		Findings: findings,
	})
}

// ResolveGraph fills missing bindings of an uploaded graph and returns it.
func (h *Handlers) ResolveGraph(c *gin.Context) {
	format, err := utils.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, err)
		return
	}
	g, ok := readGraph(c)
	if !ok {
		return
	}
	data, err := encodeGraph(h.resolver.Resolve(g), format)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.encoded(c, data, string(format))
}

// RenderGraph resolves and validates an uploaded graph and renders it.
// A graph with findings is rejected with the findings.
func (h *Handlers) RenderGraph(c *gin.Context) {
	format, err := utils.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, err)
		return
	}
	g, ok := readGraph(c)
	if !ok {
		return
	}
	resolved := h.resolver.Resolve(g)
	if findings := h.findings(resolved); len(findings) > 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "blueprint not complete",
			"findings": findings,
		})
		return
	}
	data, err := h.renderer.Render(resolved).Encode(format)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.IncRendered()
	h.encoded(c, data, string(format))
}
