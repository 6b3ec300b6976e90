package imagestudio

import (
	"fmt"
)

// Validation errors
var (
	ErrEmptyPrompt = fmt.Errorf("%w: prompt is required", ErrValidation)
	ErrInvalidMode = fmt.Errorf("%w: unknown mode", ErrValidation)
)

// ValidatePrompt validates a text prompt.
func ValidatePrompt(prompt string) error {
	if prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// ValidateMode rejects modes outside the known set. An empty mode is
// treated as the default.
func ValidateMode(mode Mode) error {
	if mode == "" || mode.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidMode, string(mode))
}
