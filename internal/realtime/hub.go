// Package realtime fans post-mutation events out to live websocket
// subscribers, grouped by workflow and approval identity. It is a one-way
// push side-channel: the engines emit into it and never wait on delivery.
package realtime

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"approval-orchestrator/backend/internal/logging"
	"approval-orchestrator/backend/pkg/models"
)

// Event names pushed to subscribers.
const (
	EventApprovalUpdated = "approval-updated"
	EventWorkflowUpdated = "workflow-updated"
)

// Event is a single message pushed to a room.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// Hub tracks subscriber rooms keyed "workflow:<id>" and "approval:<id>".
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// same-origin policy is handled upstream; the hub carries
			// no credentials
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeWorkflow subscribes the caller to one workflow's updates.
func (h *Hub) ServeWorkflow(c echo.Context) error {
	return h.subscribe(c, "workflow:"+c.Param("workflow_id"))
}

// ServeApproval subscribes the caller to one approval's updates.
func (h *Hub) ServeApproval(c echo.Context) error {
	return h.subscribe(c, "approval:"+c.Param("approval_id"))
}

func (h *Hub) subscribe(c echo.Context, room string) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{conn: conn, send: make(chan Event, 16)}
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*client]struct{})
	}
	h.rooms[room][cl] = struct{}{}
	h.mu.Unlock()

	go cl.writeLoop()
	go h.readLoop(room, cl)
	return nil
}

// readLoop drains inbound frames until the peer goes away, then removes the
// client from its room.
func (h *Hub) readLoop(room string, cl *client) {
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if clients, ok := h.rooms[room]; ok {
		delete(clients, cl)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	close(cl.send)
	h.mu.Unlock()
}

// ApprovalUpdated pushes the updated step to its own room and pokes the
// owning workflow's room.
func (h *Hub) ApprovalUpdated(step *models.ApprovalStep) {
	h.broadcast("approval:"+step.ID, Event{Event: EventApprovalUpdated, Payload: step})
	h.broadcast("workflow:"+step.WorkflowID, Event{Event: EventWorkflowUpdated})
}

// WorkflowUpdated pokes a workflow's room.
func (h *Hub) WorkflowUpdated(workflowID string) {
	h.broadcast("workflow:"+workflowID, Event{Event: EventWorkflowUpdated})
}

func (h *Hub) broadcast(room string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.rooms[room] {
		select {
		case cl.send <- ev:
		default:
			// slow consumer; drop rather than block the engine
		}
	}
}
