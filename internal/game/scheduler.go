package game

import (
	"math/rand"
	"time"

	"spinroom/internal/domain"
	"spinroom/internal/infrastructure/configs"
)

// Rejection reasons delivered only to the requesting connection.
const (
	DenyNotHost        = "only the host can spin"
	DenySpinInProgress = "a spin is already in progress"
	DenyNeedPlayers    = "need at least 2 players"
)

// seedMixConstant is odd so the XOR perturbs the low bits of a
// millisecond timestamp before the shift mixing.
const seedMixConstant uint64 = 0x9E3779B97F4A7C15

// SpinScheduler validates spin requests, picks the winner and computes
// the animation window. It mutates the room but never touches the store;
// the coordinator owns room lifetime and the deferred commit.
type SpinScheduler struct {
	cfg configs.SpinConfig
	rng *rand.Rand
}

func NewSpinScheduler(cfg configs.SpinConfig, rng *rand.Rand) *SpinScheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SpinScheduler{cfg: cfg, rng: rng}
}

// Request runs the precondition chain in order and, when every check
// passes, locks the room and returns the spin_start payload. A non-empty
// deny reason means nothing was mutated.
//
// The caller is authorized either as the current host or as the pending
// winner of an already-elapsed lock, so the incoming host can spin again
// before the deferred commit has formally run.
func (s *SpinScheduler) Request(room *domain.Room, callerID string, now time.Time) (*SpinStart, string) {
	nowMs := now.UnixMilli()

	authorized := callerID == room.HostID ||
		(room.LockUntil != 0 && nowMs >= room.LockUntil && callerID == room.PendingHostID)
	if !authorized {
		return nil, DenyNotHost
	}

	if room.Locked(nowMs) {
		return nil, DenySpinInProgress
	}

	order := room.Users
	if len(order) > s.cfg.WheelSize {
		order = order[:s.cfg.WheelSize]
	}
	if len(order) < 2 {
		return nil, DenyNeedPlayers
	}

	room.Spins++

	targetIndex := wheelIndex(nowMs, len(order))
	winner := order[targetIndex]

	turns := s.cfg.MinTurns + s.rng.Intn(s.cfg.MaxTurns-s.cfg.MinTurns+1)
	durationMs := s.cfg.MinDurationMs + s.rng.Intn(s.cfg.MaxDurationMs-s.cfg.MinDurationMs+1)
	startAt := nowMs + int64(s.cfg.GraceMs)
	hostSwitchAt := startAt + int64(durationMs) + int64(s.cfg.BufferMs)

	// This is what blocks concurrent spins until the commit clears it.
	room.LockUntil = hostSwitchAt
	room.PendingHostID = winner.ID

	orderIDs := make([]string, len(order))
	for i, u := range order {
		orderIDs[i] = u.ID
	}

	return &SpinStart{
		OrderIDs:     orderIDs,
		TargetIndex:  targetIndex,
		DurationMs:   durationMs,
		Turns:        turns,
		StartAt:      startAt,
		NextHostID:   winner.ID,
		HostSwitchAt: hostSwitchAt,
		Spins:        room.Spins,
	}, ""
}

// Commit installs the pending winner as host once the lock window has
// elapsed. A winner who left in the meantime falls back to the
// earliest-joined remaining member; an empty room keeps its stale host,
// but such a room has already been deleted by the leave path.
func (s *SpinScheduler) Commit(room *domain.Room) {
	switch {
	case room.PendingHostID != "" && room.HasUser(room.PendingHostID):
		room.HostID = room.PendingHostID
	default:
		if id := room.EarliestUserID(); id != "" {
			room.HostID = id
		}
	}

	room.PendingHostID = ""
	room.LockUntil = 0
}

// wheelIndex derives the winning slot from a millisecond timestamp:
// XOR with a fixed odd constant, xorshift at widths 13/17/5, absolute
// value modulo the order length. Not cryptographic; one index per
// millisecond tick is enough for gameplay.
func wheelIndex(seedMs int64, n int) int {
	x := uint64(seedMs) ^ seedMixConstant
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5

	v := int64(x)
	if v < 0 {
		v = -v
	}
	// uint64 keeps the MinInt64 edge well-defined
	return int(uint64(v) % uint64(n))
}
