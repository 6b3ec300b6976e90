package imagestudio

import (
	"github.com/google/uuid"
)

// Model represents a specific image generation model.
type Model string

// ModelDefault is the Gemini image model used when none is configured.
const ModelDefault Model = "gemini-2.5-flash-image"

// AspectRatio represents the aspect ratio for generated images.
type AspectRatio string

const (
	AspectRatio1x1  AspectRatio = "1:1"
	AspectRatio16x9 AspectRatio = "16:9"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatio4x3  AspectRatio = "4:3"
	AspectRatio3x4  AspectRatio = "3:4"
	AspectRatio2x3  AspectRatio = "2:3"  // Photo portrait
	AspectRatio3x2  AspectRatio = "3:2"  // Photo landscape (35mm film ratio)
	AspectRatio4x5  AspectRatio = "4:5"  // Instagram portrait
	AspectRatio5x4  AspectRatio = "5:4"  // Large format photo
	AspectRatio21x9 AspectRatio = "21:9" // Ultrawide/cinematic

	AspectRatioDefault = AspectRatio1x1
)

// Mode selects how uploaded images take part in a generation.
type Mode string

const (
	ModeTextToImage       Mode = "text-to-image"
	ModeImageEdit         Mode = "image-edit"
	ModeMultiImageCompose Mode = "multi-image-compose"

	ModeDefault = ModeTextToImage
)

// UsesImages reports whether uploaded images are sent to the model in this mode.
func (m Mode) UsesImages() bool {
	return m == ModeImageEdit || m == ModeMultiImageCompose
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeTextToImage, ModeImageEdit, ModeMultiImageCompose:
		return true
	default:
		return false
	}
}

// GenerationRequest is a single inbound generation request.
type GenerationRequest struct {
	// Prompt is the instruction for the model. Required.
	Prompt string

	// AspectRatio of the output image (default 1:1)
	AspectRatio AspectRatio

	// Mode decides whether UploadedImages are used (default text-to-image)
	Mode Mode

	// UploadedImages are base64 blobs, optionally carrying a data URI prefix
	UploadedImages []string

	// SessionID groups turns for multi-turn editing. Generated when empty.
	SessionID string
}

// Normalize fills in defaults for every optional field.
func (r *GenerationRequest) Normalize() {
	if r.AspectRatio == "" {
		r.AspectRatio = AspectRatioDefault
	}
	if r.Mode == "" {
		r.Mode = ModeDefault
	}
	if r.SessionID == "" {
		r.SessionID = uuid.NewString()
	}
}

// Validate checks the request without touching the uploaded image payloads.
func (r *GenerationRequest) Validate() error {
	if err := ValidatePrompt(r.Prompt); err != nil {
		return err
	}
	return ValidateMode(r.Mode)
}

// GenerateConfig holds the options passed to the model for one call.
type GenerateConfig struct {
	// Model to use for generation (if empty, the provider default is used)
	Model Model

	// AspectRatio of the output image
	AspectRatio AspectRatio
}

// DefaultConfig returns a GenerateConfig with sensible defaults.
func DefaultConfig() *GenerateConfig {
	return &GenerateConfig{
		Model:       ModelDefault,
		AspectRatio: AspectRatioDefault,
	}
}

// String returns the string representation for API calls.
func (a AspectRatio) String() string {
	return string(a)
}

// String returns the model identifier.
func (m Model) String() string {
	return string(m)
}

func (m Mode) String() string {
	return string(m)
}
