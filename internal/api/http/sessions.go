package http

import (
	"net/http"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/EnvForge/backend/internal/session"
	"github.com/GriffinCanCode/EnvForge/backend/internal/shared/id"
	"github.com/GriffinCanCode/EnvForge/backend/internal/shared/utils"
	"github.com/gin-gonic/gin"
)

// MessageRequest carries one conversation input.
type MessageRequest struct {
	Message string `json:"message"`
}

// SessionResponse is returned by endpoints that advance a session.
type SessionResponse struct {
	Session  session.Info       `json:"session"`
	Response *compiler.Response `json:"response,omitempty"`
}

func sessionParam(c *gin.Context) (id.SessionID, bool) {
	sid := id.SessionID(c.Param("id"))
	if !sid.Valid() {
		badRequest(c, session.ErrInvalidID)
		return "", false
	}
	return sid, true
}

// CreateSession starts a session. A message in the body is processed as
// the opening intent.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req MessageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if req.Message != "" {
			if err := utils.ValidateMessage(req.Message); err != nil {
				badRequest(c, err)
				return
			}
		}
	}

	s := h.sessions.Create()
	out := SessionResponse{}
	if req.Message != "" {
		resp, err := h.sessions.Process(c.Request.Context(), s.ID, req.Message)
		if err != nil {
			h.fail(c, err)
			return
		}
		out.Response = resp
	}
	out.Session = s.Info()
	c.JSON(http.StatusCreated, out)
}

// ListSessions lists live sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	list := h.sessions.List()
	if list == nil {
		list = []session.Info{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list, "count": len(list)})
}

// GetSession summarises one session
func (h *Handlers) GetSession(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	s, err := h.sessions.Get(sid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Info())
}

// DeleteSession drops a live session
func (h *Handlers) DeleteSession(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	if err := h.sessions.Delete(sid); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": sid})
}

// PostMessage feeds one input to a session.
func (h *Handlers) PostMessage(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := utils.ValidateMessage(req.Message); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.sessions.Process(c.Request.Context(), sid, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	s, err := h.sessions.Get(sid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{Session: s.Info(), Response: resp})
}

// GetDocument serves the rendered blueprint as YAML (default) or JSON.
func (h *Handlers) GetDocument(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	format, err := utils.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, err)
		return
	}
	doc, err := h.sessions.Document(sid)
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := doc.Encode(format)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.encoded(c, data, string(format))
}

// GetGraph serves the session's current graph in the graph file format.
func (h *Handlers) GetGraph(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	format, err := utils.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.sessions.Get(sid)
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := encodeGraph(s.Graph(), format)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.encoded(c, data, string(format))
}

// ResumeSession starts a session from an uploaded graph file.
func (h *Handlers) ResumeSession(c *gin.Context) {
	g, ok := readGraph(c)
	if !ok {
		return
	}
	s, resp, err := h.sessions.Resume(c.Request.Context(), g)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, SessionResponse{Session: s.Info(), Response: resp})
}

// SaveSession writes a snapshot of the session to the store.
func (h *Handlers) SaveSession(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	rec, err := h.sessions.Save(c.Request.Context(), sid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       rec.ID,
		"state":    rec.Compiler.State,
		"saved_at": rec.SavedAt,
	})
}

// ListSnapshots lists stored session ids.
func (h *Handlers) ListSnapshots(c *gin.Context) {
	ids, err := h.sessions.Stored(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if ids == nil {
		ids = []id.SessionID{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": ids, "count": len(ids)})
}

// RestoreSession makes a stored session live again.
func (h *Handlers) RestoreSession(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}
	s, err := h.sessions.Restore(c.Request.Context(), sid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Info())
}
