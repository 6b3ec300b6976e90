// Package store holds the in-memory artifact store and session ledger.
//
// Both are bounded: the artifact store evicts the least recently accessed
// image once it is full and drops images older than MaxAge on cleanup; the
// ledger does the same for sessions by last update time.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhpenta/imagestudio"
)

const (
	// DefaultMaxImages is the number of images kept before LRU eviction starts.
	DefaultMaxImages = 500
	// DefaultMaxAge is how long an image is kept after creation.
	DefaultMaxAge = 24 * time.Hour
	// DefaultCleanupInterval is how often expired entries are removed.
	DefaultCleanupInterval = 10 * time.Minute
)

var (
	// ErrNotFound indicates the requested image or session does not exist
	ErrNotFound = errors.New("not found")
	// ErrEmptyImage indicates an attempt to store zero bytes
	ErrEmptyImage = errors.New("empty image data")
)

// ArtifactOptions configures an ArtifactStore. Zero values select the
// defaults; a negative MaxImages or MaxAge disables that limit.
type ArtifactOptions struct {
	MaxImages int
	MaxAge    time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

type storedImage struct {
	image      imagestudio.GeneratedImage
	accessedAt time.Time
}

// ArtifactStore provides thread-safe in-memory image storage.
type ArtifactStore struct {
	mu        sync.RWMutex
	images    map[string]*storedImage
	maxImages int
	maxAge    time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

var _ imagestudio.ArtifactStore = (*ArtifactStore)(nil)

// NewArtifactStore creates an empty store.
func NewArtifactStore(opts ArtifactOptions) *ArtifactStore {
	s := &ArtifactStore{
		images:    make(map[string]*storedImage),
		maxImages: opts.MaxImages,
		maxAge:    opts.MaxAge,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.maxImages == 0 {
		s.maxImages = DefaultMaxImages
	}
	if s.maxAge == 0 {
		s.maxAge = DefaultMaxAge
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Put stores a copy of data under a new UUID.
func (s *ArtifactStore) Put(data []byte, mimeType, sessionID string) (imagestudio.GeneratedImage, error) {
	if len(data) == 0 {
		return imagestudio.GeneratedImage{}, ErrEmptyImage
	}

	now := s.now()
	img := imagestudio.GeneratedImage{
		ID:        uuid.New().String(),
		Data:      cloneBytes(data),
		MIMEType:  mimeType,
		SessionID: sessionID,
		CreatedAt: now,
	}

	s.mu.Lock()
	s.images[img.ID] = &storedImage{image: img, accessedAt: now}
	evicted := s.evictLocked(img.ID)
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Debug("evicted images", "count", evicted, "limit", s.maxImages)
	}

	img.Data = cloneBytes(img.Data)
	return img, nil
}

// Get retrieves an image by id, returning ErrNotFound if it does not exist.
func (s *ArtifactStore) Get(id string) (imagestudio.GeneratedImage, error) {
	if _, err := uuid.Parse(id); err != nil {
		return imagestudio.GeneratedImage{}, fmt.Errorf("image %q: %w", id, ErrNotFound)
	}

	s.mu.Lock()
	entry, ok := s.images[id]
	if ok {
		entry.accessedAt = s.now()
	}
	s.mu.Unlock()

	if !ok {
		return imagestudio.GeneratedImage{}, fmt.Errorf("image %q: %w", id, ErrNotFound)
	}

	img := entry.image
	img.Data = cloneBytes(img.Data)
	return img, nil
}

// Delete removes an image if present.
func (s *ArtifactStore) Delete(id string) error {
	s.mu.Lock()
	delete(s.images, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored images.
func (s *ArtifactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// Cleanup removes images older than MaxAge and returns how many were removed.
func (s *ArtifactStore) Cleanup() int {
	if s.maxAge < 0 {
		return 0
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.images {
		if now.Sub(entry.image.CreatedAt) > s.maxAge {
			delete(s.images, id)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup on every tick until ctx is cancelled.
func (s *ArtifactStore) RunCleanup(ctx context.Context, interval time.Duration) error {
	return runTicker(ctx, interval, func() {
		if n := s.Cleanup(); n > 0 {
			s.logger.Debug("removed expired images", "count", n, "max_age", s.maxAge.String())
		}
	})
}

// evictLocked drops least recently accessed images until the store is within
// MaxImages, never the one just written.
func (s *ArtifactStore) evictLocked(keep string) int {
	if s.maxImages < 0 || len(s.images) <= s.maxImages {
		return 0
	}

	type entry struct {
		id         string
		accessedAt time.Time
	}
	entries := make([]entry, 0, len(s.images))
	for id, img := range s.images {
		if id == keep {
			continue
		}
		entries = append(entries, entry{id: id, accessedAt: img.accessedAt})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].accessedAt.Before(entries[j].accessedAt)
	})

	toDelete := len(s.images) - s.maxImages
	deleted := 0
	for ; deleted < toDelete && deleted < len(entries); deleted++ {
		delete(s.images, entries[deleted].id)
	}
	return deleted
}

func runTicker(ctx context.Context, interval time.Duration, fn func()) error {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
