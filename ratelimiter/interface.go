package ratelimiter

import (
	"time"
)

// Limiter defines the interface for admission limiters.
// Implementations can be local (in-memory) or distributed (Redis, etc.).
type Limiter interface {
	// Reserve atomically checks whether a request arriving at now may proceed
	// and, if so, records it. When the request is rejected the returned
	// reservation is nil and wait holds the remaining cooldown.
	Reserve(now time.Time) (res *Reservation, wait time.Duration)
}
