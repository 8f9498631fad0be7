package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"spinroom/internal/infrastructure/configs"
)

type recorded struct {
	Conn  string
	Room  string
	Event string
	Data  any
}

type fakeBroadcaster struct {
	mu         sync.Mutex
	broadcasts []recorded
	unicasts   []recorded
	subs       []recorded
	unsubs     []recorded
}

func (f *fakeBroadcaster) Subscribe(roomCode, connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, recorded{Conn: connID, Room: roomCode})
}

func (f *fakeBroadcaster) Unsubscribe(roomCode, connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubs = append(f.unsubs, recorded{Conn: connID, Room: roomCode})
}

func (f *fakeBroadcaster) Broadcast(roomCode, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, recorded{Room: roomCode, Event: event, Data: data})
}

func (f *fakeBroadcaster) Unicast(connID, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unicasts = append(f.unicasts, recorded{Conn: connID, Event: event, Data: data})
}

func (f *fakeBroadcaster) unicastsTo(connID, event string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.unicasts {
		if r.Conn == connID && r.Event == event {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeBroadcaster) broadcastsOf(roomCode, event string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.broadcasts {
		if r.Room == roomCode && r.Event == event {
			out = append(out, r)
		}
	}
	return out
}

type manualTimers struct {
	mu  sync.Mutex
	fns []func()
}

func (m *manualTimers) After(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, fn)
}

// fire runs every scheduled callback once, in order.
func (m *manualTimers) fire() {
	m.mu.Lock()
	fns := m.fns
	m.fns = nil
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

type fixture struct {
	coord  *Coordinator
	store  *RoomStore
	bcast  *fakeBroadcaster
	timers *manualTimers

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:  NewRoomStore(0),
		bcast:  &fakeBroadcaster{},
		timers: &manualTimers{},
		now:    time.UnixMilli(1_700_000_000_000),
	}

	sched := NewSpinScheduler(configs.DefaultSpin(), rand.New(rand.NewSource(7)))
	f.coord = NewCoordinator(f.store, sched, f.bcast, f.timers, zap.NewNop().Sugar())
	f.coord.clock = func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}

	ctx, cancel := context.WithCancel(context.Background())
	go f.coord.Run(ctx)
	t.Cleanup(cancel)

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// flush waits until every queued op (e.g. a fired commit) has executed.
func (f *fixture) flush() {
	f.coord.run(func() {})
}

// createRoom drives create_room and returns the new join code.
func (f *fixture) createRoom(t *testing.T, connID, name string) string {
	t.Helper()
	f.coord.CreateRoom(connID, name)

	acks := f.bcast.unicastsTo(connID, EventCreateAck)
	require.NotEmpty(t, acks)
	ack := acks[len(acks)-1].Data.(CreateAck)
	require.True(t, ack.OK)
	require.NotEmpty(t, ack.RoomID)
	return ack.RoomID
}

func (f *fixture) lastSpinStart(t *testing.T, code string) *SpinStart {
	t.Helper()
	starts := f.bcast.broadcastsOf(code, EventSpinStart)
	require.NotEmpty(t, starts)
	return starts[len(starts)-1].Data.(*SpinStart)
}

func TestCreateRoomAcksAndBroadcasts(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")

	room, ok := f.store.GetRoom(code)
	require.True(t, ok)
	assert.Equal(t, "connA", room.HostID)
	require.Len(t, room.Users, 1)
	assert.Equal(t, "Ann", room.Users[0].Name)

	states := f.bcast.broadcastsOf(code, EventRoomState)
	require.Len(t, states, 1)
	state := states[0].Data.(RoomState)
	assert.Equal(t, "connA", state.HostID)
	assert.Zero(t, state.Spins)
	assert.Zero(t, state.LockUntil)

	assert.Equal(t, []recorded{{Conn: "connA", Room: code}}, f.bcast.subs)
}

func TestCreateRoomAtCapacity(t *testing.T) {
	f := newFixture(t)
	f.store.capacity = 1

	f.createRoom(t, "connA", "Ann")
	f.coord.CreateRoom("connB", "Ben")

	acks := f.bcast.unicastsTo("connB", EventCreateAck)
	require.Len(t, acks, 1)
	ack := acks[0].Data.(CreateAck)
	assert.False(t, ack.OK)
	assert.Equal(t, ErrServerFullCode, ack.Error)
	assert.Equal(t, 1, f.store.Len())
}

func TestJoinUnknownRoom(t *testing.T) {
	f := newFixture(t)

	f.coord.JoinRoom("connB", "NOSUCH", "Ben")

	acks := f.bcast.unicastsTo("connB", EventJoinAck)
	require.Len(t, acks, 1)
	ack := acks[0].Data.(JoinAck)
	assert.False(t, ack.OK)
	assert.Equal(t, ErrRoomNotFoundCode, ack.Error)

	rejections := f.bcast.unicastsTo("connB", EventJoinError)
	require.Len(t, rejections, 1)
	assert.Equal(t, ErrRoomNotFoundCode, rejections[0].Data.(Rejection).Reason)

	assert.Empty(t, f.bcast.broadcasts)
}

func TestJoinResolvesCollidingNames(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Alex")
	f.coord.JoinRoom("connB", code, "Alex")
	f.coord.JoinRoom("connC", code, "alex")

	room, ok := f.store.GetRoom(code)
	require.True(t, ok)
	require.Len(t, room.Users, 3)
	assert.Equal(t, "Alex", room.Users[0].Name)
	assert.Equal(t, "Alex 2", room.Users[1].Name)
	assert.Equal(t, "Alex 3", room.Users[2].Name)
}

func TestSetName(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	f.advance(time.Second)
	f.coord.JoinRoom("connB", code, "Ben")

	f.coord.SetName("connB", code, "  Ann ")
	acks := f.bcast.unicastsTo("connB", EventSetNameAck)
	require.Len(t, acks, 1)
	ack := acks[0].Data.(NameAck)
	assert.True(t, ack.OK)
	assert.Equal(t, "Ann 2", ack.Name)

	// Renaming to your own name is not a collision with yourself
	f.coord.SetName("connA", code, "Ann")
	acks = f.bcast.unicastsTo("connA", EventSetNameAck)
	require.Len(t, acks, 1)
	assert.Equal(t, "Ann", acks[0].Data.(NameAck).Name)

	f.coord.SetName("connA", "NOSUCH", "Whoever")
	acks = f.bcast.unicastsTo("connA", EventSetNameAck)
	require.Len(t, acks, 2)
	assert.False(t, acks[1].Data.(NameAck).OK)
}

func TestLeavePromotesEarliestRemaining(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	f.advance(time.Second)
	f.coord.JoinRoom("connB", code, "Ben")
	f.advance(time.Second)
	f.coord.JoinRoom("connC", code, "Cal")

	f.coord.LeaveRoom("connA", code)

	room, ok := f.store.GetRoom(code)
	require.True(t, ok)
	assert.Equal(t, "connB", room.HostID)
	assert.Len(t, room.Users, 2)

	acks := f.bcast.unicastsTo("connA", EventLeaveAck)
	require.Len(t, acks, 1)
	assert.True(t, acks[0].Data.(LeaveAck).OK)

	states := f.bcast.broadcastsOf(code, EventRoomState)
	last := states[len(states)-1].Data.(RoomState)
	assert.Equal(t, "connB", last.HostID)
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	before := len(f.bcast.broadcastsOf(code, EventRoomState))

	f.coord.LeaveRoom("connA", code)

	_, ok := f.store.GetRoom(code)
	assert.False(t, ok, "a room with zero users does not exist")
	assert.Len(t, f.bcast.broadcastsOf(code, EventRoomState), before,
		"no broadcast for a deleted room")
}

func TestLeaveUnknownRoomIsNoopSuccess(t *testing.T) {
	f := newFixture(t)

	f.coord.LeaveRoom("connA", "NOSUCH")

	acks := f.bcast.unicastsTo("connA", EventLeaveAck)
	require.Len(t, acks, 1)
	assert.True(t, acks[0].Data.(LeaveAck).OK)
}

func TestDisconnectSweepsEveryRoom(t *testing.T) {
	f := newFixture(t)

	code1 := f.createRoom(t, "connA", "Ann")
	f.advance(time.Second)
	code2 := f.createRoom(t, "connB", "Ben")
	f.coord.JoinRoom("connA", code2, "Ann")

	f.coord.Disconnect("connA")

	_, ok := f.store.GetRoom(code1)
	assert.False(t, ok, "sole member gone, room deleted")

	room2, ok := f.store.GetRoom(code2)
	require.True(t, ok)
	assert.False(t, room2.HasUser("connA"))
	assert.Equal(t, "connB", room2.HostID)
}

func TestHostAlwaysCurrentMember(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	conns := []string{"connB", "connC", "connD"}
	for _, id := range conns {
		f.advance(time.Second)
		f.coord.JoinRoom(id, code, "P "+id)
	}

	steps := []func(){
		func() { f.coord.LeaveRoom("connA", code) },
		func() { f.coord.SetName("connC", code, "renamed") },
		func() { f.coord.Disconnect("connB") },
		func() { f.coord.LeaveRoom("connD", code) },
	}

	for _, step := range steps {
		step()
		room, ok := f.store.GetRoom(code)
		if !ok {
			break
		}
		require.NotEmpty(t, room.Users)
		assert.True(t, room.HasUser(room.HostID),
			"hostId must reference a current member")
	}
}

func TestSpinFlow(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	f.advance(time.Second)
	f.coord.JoinRoom("connB", code, "Ben")
	f.advance(time.Second)
	f.coord.JoinRoom("connC", code, "Cal")

	f.coord.SpinRequest("connA", code)

	payload := f.lastSpinStart(t, code)
	assert.Equal(t, []string{"connA", "connB", "connC"}, payload.OrderIDs)
	assert.Equal(t, payload.OrderIDs[payload.TargetIndex], payload.NextHostID)
	assert.Equal(t, 1, payload.Spins)

	room, ok := f.store.GetRoom(code)
	require.True(t, ok)
	assert.Equal(t, payload.HostSwitchAt, room.LockUntil)
	assert.Equal(t, payload.NextHostID, room.PendingHostID)

	// Second request before hostSwitchAt elapses is rejected, targeted
	// only at the caller, with no second spin_start.
	f.coord.SpinRequest("connA", code)
	denials := f.bcast.unicastsTo("connA", EventSpinDenied)
	require.Len(t, denials, 1)
	assert.Equal(t, DenySpinInProgress, denials[0].Data.(Rejection).Reason)
	assert.Len(t, f.bcast.broadcastsOf(code, EventSpinStart), 1)

	// Commit fires: the broadcast winner becomes host, lock clears.
	f.advance(6 * time.Second)
	f.timers.fire()
	f.flush()

	room, ok = f.store.GetRoom(code)
	require.True(t, ok)
	assert.Equal(t, payload.NextHostID, room.HostID)
	assert.Zero(t, room.LockUntil)
	assert.Empty(t, room.PendingHostID)

	states := f.bcast.broadcastsOf(code, EventRoomState)
	last := states[len(states)-1].Data.(RoomState)
	assert.Equal(t, payload.NextHostID, last.HostID)
	assert.Zero(t, last.LockUntil)
}

func TestSpinDeniedForSingleMember(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	f.coord.SpinRequest("connA", code)

	denials := f.bcast.unicastsTo("connA", EventSpinDenied)
	require.Len(t, denials, 1)
	assert.Equal(t, DenyNeedPlayers, denials[0].Data.(Rejection).Reason)

	room, _ := f.store.GetRoom(code)
	assert.Zero(t, room.Spins)
	assert.Empty(t, f.bcast.broadcastsOf(code, EventSpinStart))
}

func TestSpinDeniedForNonHost(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	f.coord.JoinRoom("connB", code, "Ben")

	f.coord.SpinRequest("connB", code)

	denials := f.bcast.unicastsTo("connB", EventSpinDenied)
	require.Len(t, denials, 1)
	assert.Equal(t, DenyNotHost, denials[0].Data.(Rejection).Reason)
}

func TestSpinUnknownRoomSilentlyIgnored(t *testing.T) {
	f := newFixture(t)

	f.coord.SpinRequest("connA", "NOSUCH")

	assert.Empty(t, f.bcast.unicasts)
	assert.Empty(t, f.bcast.broadcasts)
}

func TestPendingWinnerLeavesBeforeCommit(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	f.advance(time.Second)
	f.coord.JoinRoom("connB", code, "Ben")
	f.advance(time.Second)
	f.coord.JoinRoom("connC", code, "Cal")

	f.coord.SpinRequest("connA", code)
	payload := f.lastSpinStart(t, code)

	f.coord.Disconnect(payload.NextHostID)

	room, ok := f.store.GetRoom(code)
	require.True(t, ok)
	expected := room.EarliestUserID()

	f.advance(6 * time.Second)
	f.timers.fire()
	f.flush()

	room, ok = f.store.GetRoom(code)
	require.True(t, ok)
	assert.Equal(t, expected, room.HostID,
		"eventual host is the earliest-joined remaining member, not the vanished winner")
	assert.Zero(t, room.LockUntil)
	assert.Empty(t, room.PendingHostID)
}

func TestCommitAfterRoomDeleted(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	f.coord.JoinRoom("connB", code, "Ben")

	f.coord.SpinRequest("connA", code)
	require.Len(t, f.bcast.broadcastsOf(code, EventSpinStart), 1)

	f.coord.Disconnect("connA")
	f.coord.Disconnect("connB")
	_, ok := f.store.GetRoom(code)
	require.False(t, ok)

	before := len(f.bcast.broadcastsOf(code, EventRoomState))

	// The commit always eventually fires; against a vanished room it is
	// a no-op.
	f.advance(6 * time.Second)
	f.timers.fire()
	f.flush()

	assert.Len(t, f.bcast.broadcastsOf(code, EventRoomState), before)
}

func TestIncomingWinnerSpinsBeforeCommit(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	f.advance(time.Second)
	f.coord.JoinRoom("connB", code, "Ben")
	f.advance(time.Second)
	f.coord.JoinRoom("connC", code, "Cal")

	f.coord.SpinRequest("connA", code)
	first := f.lastSpinStart(t, code)

	// The lock elapses but the deferred commit has not run yet; the
	// incoming winner may already request the next spin.
	f.advance(10 * time.Second)
	f.coord.SpinRequest(first.NextHostID, code)

	starts := f.bcast.broadcastsOf(code, EventSpinStart)
	require.Len(t, starts, 2)
	second := starts[1].Data.(*SpinStart)
	assert.Equal(t, 2, second.Spins)

	// Both timers fire; the stale commit must not clobber the second
	// spin's pending host.
	f.timers.fire()
	f.flush()

	room, ok := f.store.GetRoom(code)
	require.True(t, ok)
	assert.Equal(t, second.NextHostID, room.HostID)
	assert.Zero(t, room.LockUntil)
	assert.Empty(t, room.PendingHostID)
}

func TestJoinDoesNotDisturbActiveSpin(t *testing.T) {
	f := newFixture(t)

	code := f.createRoom(t, "connA", "Ann")
	f.coord.JoinRoom("connB", code, "Ben")

	f.coord.SpinRequest("connA", code)
	payload := f.lastSpinStart(t, code)

	f.coord.JoinRoom("connC", code, "Cal")

	room, ok := f.store.GetRoom(code)
	require.True(t, ok)
	assert.Equal(t, payload.HostSwitchAt, room.LockUntil)
	assert.Equal(t, payload.NextHostID, room.PendingHostID)
}
