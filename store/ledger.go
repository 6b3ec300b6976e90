package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mhpenta/imagestudio"
)

const (
	// DefaultMaxSessions is the number of sessions kept before the least
	// recently updated one is dropped.
	DefaultMaxSessions = 1000
	// DefaultSessionMaxAge is how long an idle session is kept.
	DefaultSessionMaxAge = 24 * time.Hour
)

// ErrEmptySessionID is returned when appending without a session id.
var ErrEmptySessionID = errors.New("session id is required")

// LedgerOptions configures a SessionLedger. Zero values select the defaults;
// negative values disable the limit.
type LedgerOptions struct {
	MaxSessions int
	MaxAge      time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

type session struct {
	turns     []imagestudio.SessionTurn
	updatedAt time.Time
}

// SessionLedger records the ordered turns of each session.
type SessionLedger struct {
	mu          sync.RWMutex
	sessions    map[string]*session
	maxSessions int
	maxAge      time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

var _ imagestudio.SessionLedger = (*SessionLedger)(nil)

// NewSessionLedger creates an empty ledger.
func NewSessionLedger(opts LedgerOptions) *SessionLedger {
	l := &SessionLedger{
		sessions:    make(map[string]*session),
		maxSessions: opts.MaxSessions,
		maxAge:      opts.MaxAge,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if l.maxSessions == 0 {
		l.maxSessions = DefaultMaxSessions
	}
	if l.maxAge == 0 {
		l.maxAge = DefaultSessionMaxAge
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Append adds a turn to the session, creating it on first use.
func (l *SessionLedger) Append(sessionID string, turn imagestudio.SessionTurn) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	now := l.now()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = now
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sess := l.getOrCreateLocked(sessionID, now)
	sess.turns = append(sess.turns, turn)
	sess.updatedAt = now

	l.evictLocked(sessionID)
	return nil
}

// Turns returns a copy of the session's turns in append order.
func (l *SessionLedger) Turns(sessionID string) ([]imagestudio.SessionTurn, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sess, ok := l.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}

	turns := make([]imagestudio.SessionTurn, len(sess.turns))
	copy(turns, sess.turns)
	return turns, nil
}

// Len returns the number of sessions.
func (l *SessionLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions)
}

// Cleanup removes sessions idle for longer than MaxAge.
func (l *SessionLedger) Cleanup() int {
	if l.maxAge < 0 {
		return 0
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, sess := range l.sessions {
		if now.Sub(sess.updatedAt) > l.maxAge {
			delete(l.sessions, id)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup on every tick until ctx is cancelled.
func (l *SessionLedger) RunCleanup(ctx context.Context, interval time.Duration) error {
	return runTicker(ctx, interval, func() {
		if n := l.Cleanup(); n > 0 {
			l.logger.Debug("removed idle sessions", "count", n, "max_age", l.maxAge.String())
		}
	})
}

func (l *SessionLedger) getOrCreateLocked(sessionID string, now time.Time) *session {
	if sess, ok := l.sessions[sessionID]; ok {
		return sess
	}
	sess := &session{updatedAt: now}
	l.sessions[sessionID] = sess
	return sess
}

// evictLocked drops the least recently updated sessions, never the one just written.
func (l *SessionLedger) evictLocked(keep string) {
	if l.maxSessions < 0 || len(l.sessions) <= l.maxSessions {
		return
	}

	type entry struct {
		id        string
		updatedAt time.Time
	}
	entries := make([]entry, 0, len(l.sessions))
	for id, sess := range l.sessions {
		if id == keep {
			continue
		}
		entries = append(entries, entry{id: id, updatedAt: sess.updatedAt})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].updatedAt.Before(entries[j].updatedAt)
	})

	toDelete := len(l.sessions) - l.maxSessions
	for i := 0; i < toDelete && i < len(entries); i++ {
		delete(l.sessions, entries[i].id)
	}
}
