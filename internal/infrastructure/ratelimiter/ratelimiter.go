package ratelimiter

import "time"

// Limiter is what the HTTP layer consumes; retryAfter is only meaningful
// when allow is false.
type Limiter interface {
	Allow(sourceKey string) (bool, time.Duration)
	Close()
}
