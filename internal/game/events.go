package game

import "spinroom/internal/domain"

// Outbound event names. room_state follows every mutation; spin_start is
// sent once per accepted spin; the rest are targeted at one connection.
const (
	EventRoomState  = "room_state"
	EventSpinStart  = "spin_start"
	EventSpinDenied = "spin_denied"
	EventJoinError  = "join_error"

	EventCreateAck  = "create_room_ack"
	EventJoinAck    = "join_room_ack"
	EventLeaveAck   = "leave_room_ack"
	EventSetNameAck = "set_name_ack"
)

const (
	ErrRoomNotFoundCode = "ROOM_NOT_FOUND"
	ErrServerFullCode   = "SERVER_FULL"
)

type CreateAck struct {
	OK     bool   `json:"ok"`
	RoomID string `json:"roomId,omitempty"`
	Error  string `json:"error,omitempty"`
}

type JoinAck struct {
	OK     bool   `json:"ok"`
	RoomID string `json:"roomId,omitempty"`
	Error  string `json:"error,omitempty"`
}

type LeaveAck struct {
	OK bool `json:"ok"`
}

type NameAck struct {
	OK   bool   `json:"ok"`
	Name string `json:"name,omitempty"`
}

type UserState struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joinedAt"`
}

// RoomState is the full snapshot broadcast after every room mutation.
type RoomState struct {
	RoomID    string      `json:"roomId"`
	Users     []UserState `json:"users"`
	HostID    string      `json:"hostId"`
	Spins     int         `json:"spins"`
	LockUntil int64       `json:"lockUntil,omitempty"`
}

// SpinStart carries everything a client needs to render the wheel. All
// timestamps are unix milliseconds.
type SpinStart struct {
	OrderIDs     []string `json:"orderIds"`
	TargetIndex  int      `json:"targetIndex"`
	DurationMs   int      `json:"durationMs"`
	Turns        int      `json:"turns"`
	StartAt      int64    `json:"startAt"`
	NextHostID   string   `json:"nextHostId"`
	HostSwitchAt int64    `json:"hostSwitchAt"`
	Spins        int      `json:"spins"`
}

type Rejection struct {
	Reason string `json:"reason"`
}

func snapshotRoom(room *domain.Room) RoomState {
	users := make([]UserState, 0, len(room.Users))
	for _, u := range room.Users {
		users = append(users, UserState{
			ID:       u.ID,
			Name:     u.Name,
			JoinedAt: u.JoinedAt.UnixMilli(),
		})
	}

	return RoomState{
		RoomID:    room.Code,
		Users:     users,
		HostID:    room.HostID,
		Spins:     room.Spins,
		LockUntil: room.LockUntil,
	}
}
