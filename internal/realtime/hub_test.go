package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"approval-orchestrator/backend/internal/logging"
	"approval-orchestrator/backend/pkg/models"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(logging.NewLogger())

	e := echo.New()
	e.GET("/ws/workflows/:workflow_id", hub.ServeWorkflow)
	e.GET("/ws/approvals/:approval_id", hub.ServeApproval)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestApprovalUpdatedReachesBothRooms(t *testing.T) {
	hub, srv := newTestServer(t)

	approvalConn := dial(t, srv, "/ws/approvals/step-1")
	workflowConn := dial(t, srv, "/ws/workflows/wf-1")

	// The subscribe handshake finishes before the handler returns, so both
	// rooms are live once Dial comes back.
	hub.ApprovalUpdated(&models.ApprovalStep{
		ID:         "step-1",
		WorkflowID: "wf-1",
		StepName:   "sign-off",
		Status:     models.ApprovalApproved,
	})

	ev := readEvent(t, approvalConn)
	assert.Equal(t, EventApprovalUpdated, ev.Event)
	payload, ok := ev.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "step-1", payload["id"])
	assert.Equal(t, "approved", payload["status"])

	ev = readEvent(t, workflowConn)
	assert.Equal(t, EventWorkflowUpdated, ev.Event)
}

func TestWorkflowUpdatedTargetsOneRoom(t *testing.T) {
	hub, srv := newTestServer(t)

	subscribed := dial(t, srv, "/ws/workflows/wf-1")
	other := dial(t, srv, "/ws/workflows/wf-2")

	hub.WorkflowUpdated("wf-1")

	ev := readEvent(t, subscribed)
	assert.Equal(t, EventWorkflowUpdated, ev.Event)

	// The other room stays silent.
	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var stray Event
	assert.Error(t, other.ReadJSON(&stray))
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub(logging.NewLogger())
	hub.WorkflowUpdated("nobody-listening")
	hub.ApprovalUpdated(&models.ApprovalStep{ID: "x", WorkflowID: "y"})
}

func TestDisconnectedClientIsRemoved(t *testing.T) {
	hub, srv := newTestServer(t)

	conn := dial(t, srv, "/ws/workflows/wf-1")
	conn.Close()

	assert.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.rooms["workflow:wf-1"]
		return !ok
	}, time.Second, 10*time.Millisecond)
}
