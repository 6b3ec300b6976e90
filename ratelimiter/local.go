package ratelimiter

import (
	"sync"
	"time"
)

// DefaultMinInterval is the minimum spacing between accepted requests.
const DefaultMinInterval = 3 * time.Second

// MinIntervalGate admits at most one request per MinInterval across the whole process.
// It bounds the request rate, not the success rate: an admitted request counts
// even if the work behind it later fails.
type MinIntervalGate struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

// Ensure MinIntervalGate implements Limiter.
var _ Limiter = (*MinIntervalGate)(nil)

// New creates a gate with the given interval. A non-positive interval uses DefaultMinInterval.
func New(minInterval time.Duration) *MinIntervalGate {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &MinIntervalGate{minInterval: minInterval}
}

// MinInterval returns the configured interval.
func (g *MinIntervalGate) MinInterval() time.Duration {
	return g.minInterval
}

// Reserve checks the cooldown and advances the shared timestamp on success.
// A rejected call leaves the timestamp untouched.
func (g *MinIntervalGate) Reserve(now time.Time) (*Reservation, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() {
		if elapsed := now.Sub(g.last); elapsed < g.minInterval {
			return nil, g.minInterval - elapsed
		}
	}

	res := &Reservation{gate: g, prev: g.last, at: now}
	g.last = now
	return res, 0
}

// CheckAdmit is Reserve without the reservation handle.
func (g *MinIntervalGate) CheckAdmit(now time.Time) (bool, time.Duration) {
	res, wait := g.Reserve(now)
	return res != nil, wait
}

// TimeUntilAvailable returns how long until a request arriving at now would be admitted (read-only).
func (g *MinIntervalGate) TimeUntilAvailable(now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.last.IsZero() {
		return 0
	}
	if elapsed := now.Sub(g.last); elapsed < g.minInterval {
		return g.minInterval - elapsed
	}
	return 0
}

// Reservation is an admitted slot. It can be handed back while the request has
// not yet reached the remote model.
type Reservation struct {
	gate *MinIntervalGate
	prev time.Time
	at   time.Time
	once sync.Once
}

// At returns the admission time.
func (r *Reservation) At() time.Time {
	return r.at
}

// Cancel gives the slot back by restoring the previous timestamp, unless a
// later reservation has already replaced it.
func (r *Reservation) Cancel() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		r.gate.mu.Lock()
		defer r.gate.mu.Unlock()
		if r.gate.last.Equal(r.at) {
			r.gate.last = r.prev
		}
	})
}
