package imagestudio

import "time"

// NoImageNote is attached to a result when the model answered with text only.
const NoImageNote = "No image generated"

// ContentPart is one element of the ordered payload sent to the model.
// It is implemented by ImagePart and TextPart only.
type ContentPart interface {
	isContentPart()
}

// ImagePart carries raw image bytes.
type ImagePart struct {
	// Data contains the raw image bytes
	Data []byte

	// MIMEType of the image (e.g., "image/jpeg", "image/png")
	MIMEType string
}

// TextPart carries the prompt text.
type TextPart struct {
	Text string
}

func (ImagePart) isContentPart() {}
func (TextPart) isContentPart()  {}

// StreamChunk is the useful content of one chunk of a streamed model response.
// A chunk carries either an image or text, never both.
type StreamChunk struct {
	Text  string
	Image *ImagePart
}

// StreamResult is everything accumulated from a fully drained stream.
type StreamResult struct {
	// Text is the concatenation of all text chunks, in arrival order
	Text string

	// Image is the last image chunk received, nil when the model sent none
	Image *ImagePart
}

// GeneratedImage is an image produced by the model and kept for download.
type GeneratedImage struct {
	ID        string
	Data      []byte
	MIMEType  string
	SessionID string
	CreatedAt time.Time
}

// SessionTurn represents a single successful turn in a session.
type SessionTurn struct {
	Prompt    string
	ImageID   string
	CreatedAt time.Time
}

// GenerateResult holds the outcome of a successful generation request.
type GenerateResult struct {
	// ImageID is the store id of the generated image, empty when no image was produced
	ImageID string

	// Image is the generated image
	Image *ImagePart

	// Text contains any text response from the model
	Text string

	// SessionID the turn was recorded under
	SessionID string

	// Note explains a missing image
	Note string
}

// HasImage reports whether the model produced an image.
func (r *GenerateResult) HasImage() bool {
	return r != nil && r.Image != nil && len(r.Image.Data) > 0
}
