package ratelimiter

import (
	"sync"
	"time"
)

// FixedWindowRateLimiter counts requests per source key inside aligned
// time windows. All state lives behind one mutex; a background sweep
// drops keys whose window has passed so idle sources do not accumulate.
type FixedWindowRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	size    time.Duration
	done    chan struct{}
}

type window struct {
	count   int
	resetAt time.Time
}

func NewFixedWindowRateLimiter(limit int, size time.Duration) *FixedWindowRateLimiter {
	rl := &FixedWindowRateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		size:    size,
		done:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Allow reports whether the source may proceed. When denied, the second
// return value is how long until the current window resets.
func (rl *FixedWindowRateLimiter) Allow(sourceKey string) (bool, time.Duration) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[sourceKey]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Truncate(rl.size).Add(rl.size)}
		rl.windows[sourceKey] = w
	}

	if w.count >= rl.limit {
		return false, time.Until(w.resetAt)
	}

	w.count++
	return true, 0
}

func (rl *FixedWindowRateLimiter) sweep() {
	ticker := time.NewTicker(rl.size)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.mu.Lock()
			for key, w := range rl.windows {
				if !now.Before(w.resetAt) {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

func (rl *FixedWindowRateLimiter) Close() {
	close(rl.done)
}
