package ws

import "encoding/json"

// Inbound event names (client → server).
const (
	CreateRoomEvent  = "create_room"
	JoinRoomEvent    = "join_room"
	LeaveRoomEvent   = "leave_room"
	SetNameEvent     = "set_name"
	SpinRequestEvent = "spin_request"
)

const ErrorEvent = "error"

// Envelope is the tagged inbound frame. Data is decoded per event name
// before anything reaches the coordinator.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Message is the outbound frame shared by broadcasts and unicasts.
type Message struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type CreateRoomPayload struct {
	Name string `json:"name"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type SetNamePayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type SpinRequestPayload struct {
	RoomID string `json:"roomId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewError(message string) *Message {
	return &Message{
		Type: ErrorEvent,
		Data: ErrorPayload{Message: message},
	}
}
