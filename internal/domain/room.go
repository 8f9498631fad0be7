package domain

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// ErrRoomFull is returned when the registry is at its configured
// capacity and no further room can be created.
var ErrRoomFull = errors.New("room capacity reached")

const (
	JoinCodeLength = 6

	// No 0/O/1/I; codes are meant to be read aloud and typed.
	joinCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var charsetLen = big.NewInt(int64(len(joinCodeChars)))

// Room is an ephemeral party keyed by its join code. Users keeps join
// order; it is the canonical turn sequence for the wheel.
type Room struct {
	Code          string  `json:"code"`
	Users         []*User `json:"users"`
	HostID        string  `json:"hostId"`
	Spins         int     `json:"spins"`
	LockUntil     int64   `json:"lockUntil,omitempty"`     // unix ms; 0 = no spin in progress
	PendingHostID string  `json:"pendingHostId,omitempty"` // set only while LockUntil is set
}

func NewRoom(code string) *Room {
	return &Room{
		Code:  code,
		Users: make([]*User, 0, 8),
	}
}

func (r *Room) AddUser(u *User) {
	r.Users = append(r.Users, u)
}

func (r *Room) FindUser(id string) *User {
	for _, u := range r.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (r *Room) HasUser(id string) bool {
	return r.FindUser(id) != nil
}

// RemoveUser deletes the user while preserving join order.
func (r *Room) RemoveUser(id string) bool {
	for i, u := range r.Users {
		if u.ID == id {
			r.Users = append(r.Users[:i], r.Users[i+1:]...)
			return true
		}
	}
	return false
}

// EarliestUserID returns the longest-present member, or "" on an empty room.
func (r *Room) EarliestUserID() string {
	if len(r.Users) == 0 {
		return ""
	}
	return r.Users[0].ID
}

// Locked reports whether a spin animation window is still running at nowMs.
func (r *Room) Locked(nowMs int64) bool {
	return r.LockUntil != 0 && nowMs < r.LockUntil
}

// GenerateJoinCode returns a short human-typeable code. Uniqueness against
// live rooms is the store's job.
func GenerateJoinCode() (string, error) {
	var sb strings.Builder
	sb.Grow(JoinCodeLength)

	for i := 0; i < JoinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		sb.WriteByte(joinCodeChars[n.Int64()])
	}

	return sb.String(), nil
}
