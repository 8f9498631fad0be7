package domain

import "time"

// User is one connection's presence in a room. ID is the opaque
// connection handle supplied by the transport.
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

func NewUser(id, name string, joinedAt time.Time) *User {
	return &User{
		ID:       id,
		Name:     name,
		JoinedAt: joinedAt,
	}
}
