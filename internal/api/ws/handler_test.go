package ws

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator/direct"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/EnvForge/backend/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const namespaceIntent = `{
  "entities": [{"id": "ns", "backend_type": "HarnessIACM", "template": "TempNamespace"}],
  "bindings": {"ns.values.workspace": "team-ws"}
}`

// reply mirrors Outbound with the nested payloads kept loose.
type reply struct {
	Type         string         `json:"type"`
	ConnectionID string         `json:"connection_id"`
	Message      string         `json:"message"`
	Session      map[string]any `json:"session"`
	Response     map[string]any `json:"response"`
	Format       string         `json:"format"`
	Content      string         `json:"content"`
}

func setup(t *testing.T) (*websocket.Conn, *session.Manager, *monitoring.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	guard := collaborator.NewGuard(direct.New(logger).Set(), collaborator.GuardOptions{Logger: logger})
	sessions := session.NewManager(guard, session.Options{Logger: logger, Metrics: metrics})

	router := gin.New()
	router.GET("/stream", NewHandler(sessions, logger, metrics).HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello reply
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, TypeSystem, hello.Type)
	require.True(t, strings.HasPrefix(hello.ConnectionID, "conn_"))
	return conn, sessions, metrics
}

func exchange(t *testing.T, conn *websocket.Conn, in Inbound) reply {
	t.Helper()
	require.NoError(t, conn.WriteJSON(in))
	var out reply
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestConversationStream(t *testing.T) {
	conn, sessions, metrics := setup(t)

	out := exchange(t, conn, Inbound{Type: TypeStart, Message: namespaceIntent})
	require.Equal(t, TypeResponse, out.Type, out.Message)
	assert.Equal(t, "needs_input", out.Response["state"])
	assert.NotEmpty(t, out.Response["question"])
	require.NotNil(t, out.Session)
	assert.Equal(t, 1, sessions.Count())

	out = exchange(t, conn, Inbound{Type: TypeDocument})
	assert.Equal(t, TypeError, out.Type)
	assert.Contains(t, out.Message, "not complete")

	out = exchange(t, conn, Inbound{Type: TypeMessage, Message: "my-namespace"})
	require.Equal(t, TypeResponse, out.Type, out.Message)
	assert.Equal(t, "yaml_rendered", out.Response["state"])
	assert.Equal(t, "yaml_rendered", out.Session["state"])

	out = exchange(t, conn, Inbound{Type: TypeDocument, Format: "yaml"})
	require.Equal(t, TypeDocument, out.Type, out.Message)
	assert.Equal(t, "yaml", out.Format)
	assert.Contains(t, out.Content, "ns_e1")

	out = exchange(t, conn, Inbound{Type: TypeDocument, Format: "json"})
	require.Equal(t, TypeDocument, out.Type, out.Message)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out.Content), "{"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.WSMessages.WithLabelValues("in", TypeDocument)))
}

func TestAttach(t *testing.T) {
	conn, sessions, _ := setup(t)
	s := sessions.Create()

	out := exchange(t, conn, Inbound{Type: TypeAttach, SessionID: s.ID})
	require.Equal(t, TypeSession, out.Type, out.Message)
	assert.Equal(t, s.ID.String(), out.Session["id"])

	out = exchange(t, conn, Inbound{Type: TypeMessage, Message: namespaceIntent})
	require.Equal(t, TypeResponse, out.Type, out.Message)
	assert.Equal(t, 1, s.Info().Rounds)
}

func TestStreamErrors(t *testing.T) {
	conn, _, _ := setup(t)

	tests := []struct {
		name string
		in   Inbound
		want string
	}{
		{"message before start", Inbound{Type: TypeMessage, Message: "hello"}, "no session"},
		{"unknown type", Inbound{Type: "shout"}, "unknown message type"},
		{"attach unknown session", Inbound{Type: TypeAttach, SessionID: "sess_01ARZ3NDEKTSV4RRFFQ69G5FAV"}, "session not found"},
		{"bad format", Inbound{Type: TypeDocument, Format: "xml"}, "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := exchange(t, conn, tt.in)
			assert.Equal(t, TypeError, out.Type)
			assert.Contains(t, out.Message, tt.want)
		})
	}
}

func TestStartWithoutMessage(t *testing.T) {
	conn, _, _ := setup(t)

	out := exchange(t, conn, Inbound{Type: TypeStart})
	require.Equal(t, TypeSession, out.Type)
	assert.Equal(t, "start", out.Session["state"])

	out = exchange(t, conn, Inbound{Type: TypeMessage, Message: "   "})
	assert.Equal(t, TypeError, out.Type)
}

func TestPing(t *testing.T) {
	conn, _, _ := setup(t)
	out := exchange(t, conn, Inbound{Type: TypePing})
	assert.Equal(t, TypePong, out.Type)
}
