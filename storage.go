package imagestudio

import (
	"errors"
)

// ErrStorageNotConfigured is returned when a Manager is used without
// an artifact store or session ledger.
var ErrStorageNotConfigured = errors.New("storage not configured")

// ArtifactStore keeps generated images addressable by id for the process lifetime.
// Stored images are never mutated.
type ArtifactStore interface {
	// Put stores the image under a freshly generated id.
	Put(data []byte, mimeType, sessionID string) (GeneratedImage, error)

	// Get returns a copy of the image, or an error wrapping a not-found sentinel.
	Get(id string) (GeneratedImage, error)

	// Delete removes an image. Removing an unknown id is not an error.
	Delete(id string) error
}

// SessionLedger records the ordered turns of each session.
type SessionLedger interface {
	// Append adds a turn, creating the session on first use.
	Append(sessionID string, turn SessionTurn) error

	// Turns returns a copy of the session's turns in append order.
	Turns(sessionID string) ([]SessionTurn, error)
}

// ExtensionFromMIME returns a file extension (without dot) for common image MIME types.
func ExtensionFromMIME(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
