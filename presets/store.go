// Package presets persists user-defined generation presets.
//
// A preset is an arbitrary JSON object. The store owns three keys: "id",
// "createdAt" and "updatedAt"; every other field belongs to the client and is
// stored as sent.
package presets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"time"

	"github.com/google/uuid"
)

const (
	// Version is written into freshly created preset databases.
	Version = "1.0.0"

	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// ErrNotFound is returned when no preset has the requested id.
var ErrNotFound = errors.New("preset not found")

// Preset is one stored preset document.
type Preset map[string]any

// DecodePreset reads one JSON object from r. Numbers are kept as json.Number
// so large integers survive a round trip.
func DecodePreset(r io.Reader) (Preset, error) {
	var p Preset
	if err := decodeJSON(r, &p); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("preset must be a JSON object")
	}
	return p, nil
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(v)
}

func decodeJSONBytes(data []byte, v any) error {
	return decodeJSON(bytes.NewReader(data), v)
}

// ID returns the preset id, or "" when it has none.
func (p Preset) ID() string {
	id, _ := p[FieldID].(string)
	return id
}

// Store is a preset collection.
type Store interface {
	// List returns every preset in insertion order.
	List(ctx context.Context) ([]Preset, error)

	// Create stores p under a new id and returns the stored document.
	Create(ctx context.Context, p Preset) (Preset, error)

	// Update replaces the preset with the given id, keeping its createdAt.
	Update(ctx context.Context, id string, p Preset) (Preset, error)

	// Delete removes the preset with the given id.
	Delete(ctx context.Context, id string) error

	// Check verifies the backing storage is usable.
	Check(ctx context.Context) error

	// Location describes where presets are kept, for health reporting.
	Location() string

	Close(ctx context.Context) error
}

// Timestamp formats t the way preset timestamps are stored.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// newPreset stamps a copy of p with a fresh id and equal created/updated times.
func newPreset(p Preset, now time.Time) Preset {
	out := make(Preset, len(p)+3)
	maps.Copy(out, p)

	ts := Timestamp(now)
	out[FieldID] = uuid.NewString()
	out[FieldCreatedAt] = ts
	out[FieldUpdatedAt] = ts
	return out
}

// replacePreset builds the document that replaces existing.
func replacePreset(existing, p Preset, now time.Time) Preset {
	out := make(Preset, len(p)+3)
	maps.Copy(out, p)

	out[FieldID] = existing.ID()
	out[FieldCreatedAt] = existing[FieldCreatedAt]
	out[FieldUpdatedAt] = Timestamp(now)
	return out
}
