package imagestudio

import (
	"log/slog"
	"time"

	"github.com/mhpenta/imagestudio/ratelimiter"
)

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets a structured logger for the manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLimiter replaces the default admission gate.
func WithLimiter(limiter ratelimiter.Limiter) ManagerOption {
	return func(m *Manager) {
		m.limiter = limiter
	}
}

// WithArtifactStore sets where generated images are kept.
func WithArtifactStore(store ArtifactStore) ManagerOption {
	return func(m *Manager) {
		m.artifacts = store
	}
}

// WithSessionLedger sets where session turns are recorded.
func WithSessionLedger(ledger SessionLedger) ManagerOption {
	return func(m *Manager) {
		m.ledger = ledger
	}
}

// WithRequestTimeout bounds each streaming call. Zero disables the bound.
func WithRequestTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.requestTimeout = d
	}
}

// WithClock overrides the time source used for admission decisions.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager around a model streamer.
//
// Example:
//
//	gen, err := gemini.NewWithAPIKey(ctx, apiKey)
//	if err != nil {
//	    return err
//	}
//	manager := imagestudio.NewManager(gen,
//	    imagestudio.WithArtifactStore(store.NewArtifactStore(store.ArtifactOptions{})),
//	    imagestudio.WithSessionLedger(store.NewSessionLedger(store.LedgerOptions{})),
//	    imagestudio.WithLogger(slog.Default()),
//	)
func NewManager(streamer ImageStreamer, opts ...ManagerOption) *Manager {
	m := &Manager{
		streamer:       streamer,
		limiter:        ratelimiter.New(ratelimiter.DefaultMinInterval),
		logger:         slog.Default(),
		requestTimeout: DefaultRequestTimeout,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.limiter == nil {
		m.limiter = ratelimiter.New(ratelimiter.DefaultMinInterval)
	}

	return m
}
