package presets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// document is the on-disk shape of the presets file.
type document struct {
	Presets      []Preset `json:"presets"`
	Version      string   `json:"version"`
	LastModified *string  `json:"lastModified"`
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithLogger sets the logger used to report repaired files.
func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// WithClock overrides the time source for timestamps.
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) {
		s.now = now
	}
}

// FileStore keeps presets in a single JSON file.
//
// A missing or malformed file is replaced with an empty database on the next
// access instead of failing the request.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by path. The file is created lazily.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *FileStore) List(ctx context.Context) ([]Preset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	return doc.Presets, nil
}

func (s *FileStore) Create(ctx context.Context, p Preset) (Preset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	now := s.now()
	created := newPreset(p, now)
	doc.Presets = append(doc.Presets, created)
	doc.touch(now)

	if err := s.writeLocked(doc); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *FileStore) Update(ctx context.Context, id string, p Preset) (Preset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	for i, existing := range doc.Presets {
		if existing.ID() != id {
			continue
		}
		now := s.now()
		updated := replacePreset(existing, p, now)
		doc.Presets[i] = updated
		doc.touch(now)

		if err := s.writeLocked(doc); err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, fmt.Errorf("preset %q: %w", id, ErrNotFound)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return err
	}

	kept := doc.Presets[:0]
	for _, p := range doc.Presets {
		if p.ID() != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(doc.Presets) {
		return fmt.Errorf("preset %q: %w", id, ErrNotFound)
	}
	doc.Presets = kept
	doc.touch(s.now())

	return s.writeLocked(doc)
}

// Check loads the file, repairing it if needed.
func (s *FileStore) Check(ctx context.Context) error {
	_, err := s.List(ctx)
	return err
}

// Location returns the absolute path of the presets file.
func (s *FileStore) Location() string {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return s.path
	}
	return abs
}

func (s *FileStore) Close(context.Context) error {
	return nil
}

func (d *document) touch(now time.Time) {
	ts := Timestamp(now)
	d.LastModified = &ts
}

// loadLocked reads the file, resetting it to an empty database when it is
// missing or structurally invalid.
func (s *FileStore) loadLocked() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.resetLocked("missing")
	}
	if err != nil {
		return nil, fmt.Errorf("reading presets: %w", err)
	}

	if reason := invalidReason(data); reason != "" {
		return s.resetLocked(reason)
	}

	var doc document
	if err := decodeJSONBytes(data, &doc); err != nil {
		return s.resetLocked("undecodable presets: " + err.Error())
	}
	if doc.Presets == nil {
		doc.Presets = []Preset{}
	}
	return &doc, nil
}

// invalidReason reports why data is not a usable presets database, or "" if it is.
func invalidReason(data []byte) string {
	if !gjson.ValidBytes(data) {
		return "invalid json"
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return "not an object"
	}
	presets := root.Get("presets")
	if !presets.Exists() {
		return "missing presets key"
	}
	if !presets.IsArray() {
		return "presets is not an array"
	}
	return ""
}

func (s *FileStore) resetLocked(reason string) (*document, error) {
	doc := &document{
		Presets: []Preset{},
		Version: Version,
	}
	doc.touch(s.now())

	if err := s.writeLocked(doc); err != nil {
		return nil, err
	}
	s.logger.Warn("presets database reset",
		"path", s.path,
		"reason", reason,
	)
	return doc, nil
}

// writeLocked replaces the file atomically via a temp file in the same directory.
func (s *FileStore) writeLocked(doc *document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating presets directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding presets: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".presets-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing presets: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing presets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing presets: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing presets file: %w", err)
	}
	return nil
}
