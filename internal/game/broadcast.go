package game

// Broadcaster is the transport capability the coordinator drives: a
// room-wide fanout group per join code plus targeted delivery to one
// connection. The websocket layer implements it; tests use a recorder.
type Broadcaster interface {
	Subscribe(roomCode, connID string)
	Unsubscribe(roomCode, connID string)
	Broadcast(roomCode, event string, data any)
	Unicast(connID, event string, data any)
}
