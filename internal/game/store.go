package game

import (
	"sync"

	"spinroom/internal/domain"
)

// RoomStore is the in-memory registry of live rooms, keyed by join code.
// All mutation happens on the coordinator goroutine; the mutex only makes
// the read-side snapshots (status page) safe.
type RoomStore struct {
	rooms    map[string]*domain.Room
	capacity int // <= 0 means unbounded
	mu       sync.RWMutex
}

func NewRoomStore(capacity int) *RoomStore {
	return &RoomStore{
		rooms:    make(map[string]*domain.Room),
		capacity: capacity,
	}
}

// CreateRoom allocates an empty room under a fresh join code,
// regenerating on collision with any live room. Returns
// domain.ErrRoomFull when the registry is at capacity.
func (s *RoomStore) CreateRoom() (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capacity > 0 && len(s.rooms) >= s.capacity {
		return nil, domain.ErrRoomFull
	}

	for {
		code, err := domain.GenerateJoinCode()
		if err != nil {
			return nil, err
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}

		room := domain.NewRoom(code)
		s.rooms[code] = room
		return room, nil
	}
}

// GetRoom signals not-found with ok=false, never an error.
func (s *RoomStore) GetRoom(code string) (*domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) DeleteRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, code)
}

// Codes snapshots the live join codes, for disconnect sweeps.
func (s *RoomStore) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	return codes
}

func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rooms)
}
