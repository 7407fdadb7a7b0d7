package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/EnvForge/backend/internal/session"
	"github.com/GriffinCanCode/EnvForge/backend/internal/shared/id"
	"github.com/GriffinCanCode/EnvForge/backend/internal/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message types.
const (
	TypeStart    = "start"
	TypeAttach   = "attach"
	TypeMessage  = "message"
	TypeDocument = "document"
	TypePing     = "ping"

	TypeSystem   = "system"
	TypeSession  = "session"
	TypeResponse = "response"
	TypePong     = "pong"
	TypeError    = "error"
)

const (
	readLimit    = 2 * utils.MaxMessageSize
	writeTimeout = 10 * time.Second
	// messageTimeout bounds one compiler round, collaborator calls included.
	messageTimeout = 2 * time.Minute
)

// Inbound is a client message.
type Inbound struct {
	Type      string       `json:"type"`
	SessionID id.SessionID `json:"session_id,omitempty"`
	Message   string       `json:"message,omitempty"`
	Format    string       `json:"format,omitempty"`
}

// Outbound is a server message.
type Outbound struct {
	Type         string             `json:"type"`
	ConnectionID id.ConnectionID    `json:"connection_id,omitempty"`
	Message      string             `json:"message,omitempty"`
	Session      *session.Info      `json:"session,omitempty"`
	Response     *compiler.Response `json:"response,omitempty"`
	Format       string             `json:"format,omitempty"`
	Content      string             `json:"content,omitempty"`
	Timestamp    int64              `json:"timestamp"`
}

// Handler manages WebSocket connections
type Handler struct {
	sessions *session.Manager
	upgrader websocket.Upgrader
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler
func NewHandler(sessions *session.Manager, logger *zap.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logging.Component(logger, "ws"),
		metrics: metrics,
	}
}

// conn is one client connection bound to at most one session.
type conn struct {
	id      id.ConnectionID
	ws      *websocket.Conn
	session id.SessionID
	logger  *zap.Logger
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()
	ws.SetReadLimit(readLimit)

	cn := &conn{id: id.NewConnectionID(), ws: ws}
	cn.logger = h.logger.With(zap.String("connection_id", cn.id.String()))
	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()
	cn.logger.Debug("Connection opened")

	reqCtx := c.Request.Context()
	h.send(cn, Outbound{Type: TypeSystem, ConnectionID: cn.id, Message: "Connected to EnvForge blueprint compiler"})

	for {
		var msg Inbound
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				cn.logger.Debug("Read failed", zap.Error(err))
			}
			break
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case TypeStart:
			h.handleStart(reqCtx, cn, msg)
		case TypeAttach:
			h.handleAttach(cn, msg)
		case TypeMessage:
			h.handleMessage(reqCtx, cn, msg)
		case TypeDocument:
			h.handleDocument(cn, msg)
		case TypePing:
			h.send(cn, Outbound{Type: TypePong})
		default:
			h.sendError(cn, "unknown message type")
		}
	}
	logging.Session(cn.logger, cn.session.String()).Debug("Connection closed")
}

func (h *Handler) handleStart(ctx context.Context, cn *conn, msg Inbound) {
	s := h.sessions.Create()
	cn.session = s.ID
	if msg.Message == "" {
		info := s.Info()
		h.send(cn, Outbound{Type: TypeSession, Session: &info})
		return
	}
	h.handleMessage(ctx, cn, msg)
}

func (h *Handler) handleAttach(cn *conn, msg Inbound) {
	s, err := h.sessions.Get(msg.SessionID)
	if err != nil {
		h.sendError(cn, err.Error())
		return
	}
	cn.session = s.ID
	info := s.Info()
	h.send(cn, Outbound{Type: TypeSession, Session: &info})
}

func (h *Handler) handleMessage(reqCtx context.Context, cn *conn, msg Inbound) {
	if cn.session == "" {
		h.sendError(cn, "no session: send start or attach first")
		return
	}
	if err := utils.ValidateMessage(msg.Message); err != nil {
		h.sendError(cn, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(reqCtx, messageTimeout)
	defer cancel()

	resp, err := h.sessions.Process(ctx, cn.session, msg.Message)
	if err != nil {
		if errors.Is(err, session.ErrRoundLimit) {
			logging.Session(cn.logger, cn.session.String()).Info("Round limit reached")
		}
		h.sendError(cn, err.Error())
		return
	}
	out := Outbound{Type: TypeResponse, Response: resp}
	if s, err := h.sessions.Get(cn.session); err == nil {
		info := s.Info()
		out.Session = &info
	}
	h.send(cn, out)
}

func (h *Handler) handleDocument(cn *conn, msg Inbound) {
	format, err := utils.ParseFormat(msg.Format)
	if err != nil {
		h.sendError(cn, err.Error())
		return
	}
	doc, err := h.sessions.Document(cn.session)
	if err != nil {
		h.sendError(cn, err.Error())
		return
	}
	data, err := doc.Encode(format)
	if err != nil {
		h.sendError(cn, err.Error())
		return
	}
	h.send(cn, Outbound{Type: TypeDocument, Format: string(format), Content: string(data)})
}

func (h *Handler) send(cn *conn, out Outbound) error {
	out.Timestamp = time.Now().Unix()
	_ = cn.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := cn.ws.WriteJSON(out); err != nil {
		cn.logger.Debug("Write failed", zap.Error(err))
		return err
	}
	h.metrics.RecordWSMessage("out", out.Type)
	return nil
}

func (h *Handler) sendError(cn *conn, msg string) error {
	return h.send(cn, Outbound{Type: TypeError, Message: msg})
}
