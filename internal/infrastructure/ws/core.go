package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"spinroom/internal/infrastructure/metrics"
)

// Dispatcher is the coordinator surface the transport drives. Defined
// here so the game core never imports the transport.
type Dispatcher interface {
	CreateRoom(connID, rawName string)
	JoinRoom(connID, code, rawName string)
	LeaveRoom(connID, code string)
	SetName(connID, code, rawName string)
	SpinRequest(connID, code string)
	Disconnect(connID string)
}

// Core owns the live connections and the per-room broadcast groups. It
// implements the game core's Broadcaster interface.
type Core struct {
	dispatcher Dispatcher
	logger     *zap.SugaredLogger
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*Client             // connID → client
	groups  map[string]map[string]struct{} // room code → connIDs
}

func NewCore(logger *zap.SugaredLogger) *Core {
	return &Core{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]struct{}),
	}
}

// Bind attaches the coordinator after construction; the coordinator
// needs the Core as its Broadcaster first.
func (c *Core) Bind(d Dispatcher) {
	c.dispatcher = d
}

// ServeWS upgrades the connection, assigns its handle and starts the
// read/write pumps.
func (c *Core) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, uuid.NewString())

	c.mu.Lock()
	c.clients[client.ID] = client
	c.mu.Unlock()
	metrics.AddConnections(1)

	c.logger.Debugw("connection opened", "conn", client.ID)

	go client.WritePump()
	go client.ReadPump(c)
}

func (c *Core) dispatch(cl *Client, env Envelope) {
	switch env.Type {
	case CreateRoomEvent:
		var p CreateRoomPayload
		if !c.decode(cl, env.Data, &p) {
			return
		}
		c.dispatcher.CreateRoom(cl.ID, p.Name)

	case JoinRoomEvent:
		var p JoinRoomPayload
		if !c.decode(cl, env.Data, &p) {
			return
		}
		c.dispatcher.JoinRoom(cl.ID, p.RoomID, p.Name)

	case LeaveRoomEvent:
		var p LeaveRoomPayload
		if !c.decode(cl, env.Data, &p) {
			return
		}
		c.dispatcher.LeaveRoom(cl.ID, p.RoomID)

	case SetNameEvent:
		var p SetNamePayload
		if !c.decode(cl, env.Data, &p) {
			return
		}
		c.dispatcher.SetName(cl.ID, p.RoomID, p.Name)

	case SpinRequestEvent:
		var p SpinRequestPayload
		if !c.decode(cl, env.Data, &p) {
			return
		}
		c.dispatcher.SpinRequest(cl.ID, p.RoomID)

	default:
		cl.trySend(NewError("unknown event: " + env.Type))
	}
}

func (c *Core) decode(cl *Client, raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		cl.trySend(NewError("missing payload"))
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		cl.trySend(NewError("bad payload: " + err.Error()))
		return false
	}
	return true
}

// drop tears a connection down: membership first (so broadcasts to the
// surviving rooms still reach everyone else), then the send channel.
func (c *Core) drop(cl *Client) {
	c.dispatcher.Disconnect(cl.ID)

	c.mu.Lock()
	if _, ok := c.clients[cl.ID]; ok {
		delete(c.clients, cl.ID)
		close(cl.Send)
	}
	for code, group := range c.groups {
		delete(group, cl.ID)
		if len(group) == 0 {
			delete(c.groups, code)
		}
	}
	c.mu.Unlock()

	metrics.AddConnections(-1)
	c.logger.Debugw("connection closed", "conn", cl.ID)
}

func (c *Core) Subscribe(roomCode, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	group, ok := c.groups[roomCode]
	if !ok {
		group = make(map[string]struct{})
		c.groups[roomCode] = group
	}
	group[connID] = struct{}{}
}

func (c *Core) Unsubscribe(roomCode, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if group, ok := c.groups[roomCode]; ok {
		delete(group, connID)
		if len(group) == 0 {
			delete(c.groups, roomCode)
		}
	}
}

func (c *Core) Broadcast(roomCode, event string, data any) {
	msg := &Message{Type: event, RoomID: roomCode, Data: data}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for connID := range c.groups[roomCode] {
		if cl, ok := c.clients[connID]; ok {
			cl.trySend(msg)
		}
	}
}

func (c *Core) Unicast(connID, event string, data any) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if cl, ok := c.clients[connID]; ok {
		cl.trySend(&Message{Type: event, Data: data})
	}
}

// Connections is read by the status page.
func (c *Core) Connections() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.clients)
}
