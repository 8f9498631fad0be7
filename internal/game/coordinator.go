package game

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"spinroom/internal/domain"
	"spinroom/internal/infrastructure/metrics"
)

// Coordinator is the façade behind every inbound connection event. All
// room mutations run to completion on the single Run goroutine, so a
// broadcast always reflects the exact state at the end of the mutation
// that produced it. Deferred spin commits re-enter through the same
// queue and therefore never interleave mid-mutation.
type Coordinator struct {
	store  *RoomStore
	spins  *SpinScheduler
	bcast  Broadcaster
	timers TimerFactory
	logger *zap.SugaredLogger

	clock func() time.Time
	ops   chan func()
}

func NewCoordinator(
	store *RoomStore,
	spins *SpinScheduler,
	bcast Broadcaster,
	timers TimerFactory,
	logger *zap.SugaredLogger,
) *Coordinator {
	return &Coordinator{
		store:  store,
		spins:  spins,
		bcast:  bcast,
		timers: timers,
		logger: logger,
		clock:  time.Now,
		ops:    make(chan func(), 256),
	}
}

// Run drains the op queue until the context ends.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case op := <-c.ops:
			op()
		case <-ctx.Done():
			return
		}
	}
}

// run enqueues an op and waits for it to finish, which keeps a
// connection's events strictly ordered from its read loop.
func (c *Coordinator) run(op func()) {
	done := make(chan struct{})
	c.ops <- func() {
		op()
		close(done)
	}
	<-done
}

func (c *Coordinator) CreateRoom(connID, rawName string) {
	c.run(func() { c.handleCreate(connID, rawName) })
}

func (c *Coordinator) JoinRoom(connID, code, rawName string) {
	c.run(func() { c.handleJoin(connID, code, rawName) })
}

func (c *Coordinator) LeaveRoom(connID, code string) {
	c.run(func() { c.handleLeave(connID, code) })
}

func (c *Coordinator) SetName(connID, code, rawName string) {
	c.run(func() { c.handleSetName(connID, code, rawName) })
}

func (c *Coordinator) SpinRequest(connID, code string) {
	c.run(func() { c.handleSpin(connID, code) })
}

// Disconnect is the transport-triggered equivalent of leave_room against
// every room the connection belongs to, without an ack channel.
func (c *Coordinator) Disconnect(connID string) {
	c.run(func() { c.handleDisconnect(connID) })
}

func (c *Coordinator) handleCreate(connID, rawName string) {
	room, err := c.store.CreateRoom()
	if errors.Is(err, domain.ErrRoomFull) {
		c.logger.Warnw("room capacity reached", "conn", connID)
		c.bcast.Unicast(connID, EventCreateAck, CreateAck{OK: false, Error: ErrServerFullCode})
		return
	}
	if err != nil {
		c.logger.Errorw("join code generation failed", "error", err)
		c.bcast.Unicast(connID, EventCreateAck, CreateAck{OK: false})
		return
	}

	name := ResolveName(room, rawName, connID)
	room.AddUser(domain.NewUser(connID, name, c.clock()))
	room.HostID = connID

	c.bcast.Subscribe(room.Code, connID)
	metrics.AddRooms(1)
	metrics.AddUsers(1)

	c.bcast.Unicast(connID, EventCreateAck, CreateAck{OK: true, RoomID: room.Code})
	c.broadcastState(room)

	c.logger.Infow("room created", "room", room.Code, "host", connID, "name", name)
}

func (c *Coordinator) handleJoin(connID, code, rawName string) {
	room, ok := c.store.GetRoom(code)
	if !ok {
		c.bcast.Unicast(connID, EventJoinAck, JoinAck{OK: false, Error: ErrRoomNotFoundCode})
		c.bcast.Unicast(connID, EventJoinError, Rejection{Reason: ErrRoomNotFoundCode})
		return
	}

	// Joining never affects an in-flight spin's lock or pending host.
	if !room.HasUser(connID) {
		name := ResolveName(room, rawName, connID)
		room.AddUser(domain.NewUser(connID, name, c.clock()))
		metrics.AddUsers(1)
	} else {
		c.logger.Debugw("connection rejoining room", "room", code, "conn", connID)
	}

	c.bcast.Subscribe(code, connID)
	c.bcast.Unicast(connID, EventJoinAck, JoinAck{OK: true, RoomID: code})
	c.broadcastState(room)
}

func (c *Coordinator) handleLeave(connID, code string) {
	// Leaving an unknown room is a no-op success.
	c.bcast.Unicast(connID, EventLeaveAck, LeaveAck{OK: true})

	room, ok := c.store.GetRoom(code)
	if !ok {
		return
	}

	c.bcast.Unsubscribe(code, connID)

	if survived := c.removeFromRoom(room, connID); survived {
		c.broadcastState(room)
	}
}

func (c *Coordinator) handleSetName(connID, code, rawName string) {
	room, ok := c.store.GetRoom(code)
	if !ok {
		c.bcast.Unicast(connID, EventSetNameAck, NameAck{OK: false})
		return
	}

	user := room.FindUser(connID)
	if user == nil {
		c.bcast.Unicast(connID, EventSetNameAck, NameAck{OK: false})
		return
	}

	// The caller's own current name is excluded from the uniqueness
	// check, since it is being replaced.
	user.Name = ResolveName(room, rawName, connID)

	c.bcast.Unicast(connID, EventSetNameAck, NameAck{OK: true, Name: user.Name})
	c.broadcastState(room)
}

func (c *Coordinator) handleSpin(connID, code string) {
	room, ok := c.store.GetRoom(code)
	if !ok {
		// No valid room context, so no rejection channel either.
		return
	}

	payload, deny := c.spins.Request(room, connID, c.clock())
	if deny != "" {
		c.bcast.Unicast(connID, EventSpinDenied, Rejection{Reason: deny})
		return
	}

	metrics.IncSpins()
	c.bcast.Broadcast(code, EventSpinStart, payload)

	c.logger.Infow("spin started",
		"room", code,
		"spins", payload.Spins,
		"winner", payload.NextHostID,
		"hostSwitchAt", payload.HostSwitchAt,
	)

	// The commit re-enters the op queue so it lands between mutations,
	// never inside one. The generation guard lets it no-op when a newer
	// spin (started by the incoming winner of an elapsed lock) already
	// owns the room.
	gen := payload.Spins
	delay := time.Duration(payload.HostSwitchAt-c.clock().UnixMilli()) * time.Millisecond
	c.timers.After(delay, func() {
		c.ops <- func() { c.handleCommit(code, gen) }
	})
}

func (c *Coordinator) handleCommit(code string, gen int) {
	room, ok := c.store.GetRoom(code)
	if !ok {
		// Room vanished while the timer was pending; the commit always
		// fires but is idempotent against deletion.
		return
	}
	if room.Spins != gen {
		return
	}

	c.spins.Commit(room)
	c.broadcastState(room)

	c.logger.Infow("host switched", "room", code, "host", room.HostID)
}

func (c *Coordinator) handleDisconnect(connID string) {
	for _, code := range c.store.Codes() {
		room, ok := c.store.GetRoom(code)
		if !ok || !room.HasUser(connID) {
			continue
		}

		c.bcast.Unsubscribe(code, connID)

		if survived := c.removeFromRoom(room, connID); survived {
			c.broadcastState(room)
		}
	}
}

// removeFromRoom takes a user out, repairs host authority and deletes
// the room when it empties. Returns false when the room is gone (or the
// user never was a member), so callers skip the broadcast.
func (c *Coordinator) removeFromRoom(room *domain.Room, connID string) bool {
	if !room.RemoveUser(connID) {
		return false
	}
	metrics.AddUsers(-1)

	if len(room.Users) == 0 {
		c.deleteRoom(room.Code)
		return false
	}

	if room.HostID == connID {
		room.HostID = room.EarliestUserID()
	}

	// A departed pending winner is left to the scheduled commit, which
	// falls back to the earliest remaining member.
	return true
}

func (c *Coordinator) deleteRoom(code string) {
	c.store.DeleteRoom(code)
	metrics.AddRooms(-1)
	c.logger.Infow("room deleted", "room", code)
}

func (c *Coordinator) broadcastState(room *domain.Room) {
	c.bcast.Broadcast(room.Code, EventRoomState, snapshotRoom(room))
}
