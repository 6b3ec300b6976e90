package imagestudio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation is the parent of every request validation error.
var ErrValidation = errors.New("invalid request")

// AdmissionError is returned when a request arrives inside the global cooldown window.
type AdmissionError struct {
	Wait time.Duration
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("Please wait %.1f seconds before next request", e.Wait.Seconds())
}

// RateLimitError is returned when the remote model reports a quota or rate limit.
type RateLimitError struct {
	Model string
	Err   error // Underlying error from the provider
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %v", e.Model, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// UpstreamError is returned when the remote model reports an internal failure.
// These are usually transient.
type UpstreamError struct {
	Model string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error from %s: %v", e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// RemoteError wraps any remote failure that is neither a rate limit nor an upstream internal error.
type RemoteError struct {
	Model string
	Err   error
}

func (e *RemoteError) Error() string {
	return e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRateLimitError checks if an error is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// IsUpstreamError checks if an error is an UpstreamError.
func IsUpstreamError(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr)
}

// IsValidationError reports whether err was caused by an invalid request.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// AsAdmissionError extracts an AdmissionError from err.
func AsAdmissionError(err error) (*AdmissionError, bool) {
	var admErr *AdmissionError
	if errors.As(err, &admErr) {
		return admErr, true
	}
	return nil, false
}

// ClassifyRemoteError maps a failure of the remote call onto the error taxonomy.
// Already classified errors pass through untouched.
//
// Detection rules on the error text:
//   - "429", "quota" or "rate limit" (case-insensitive) -> RateLimitError
//   - "500" or "INTERNAL" -> UpstreamError
//   - anything else -> RemoteError
func ClassifyRemoteError(err error, model string) error {
	if err == nil {
		return nil
	}

	var (
		rlErr  *RateLimitError
		upErr  *UpstreamError
		remErr *RemoteError
	)
	if errors.As(err, &rlErr) || errors.As(err, &upErr) || errors.As(err, &remErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return &RemoteError{Model: model, Err: err}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	if strings.Contains(msg, "429") || strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit") {
		return &RateLimitError{Model: model, Err: err}
	}
	if strings.Contains(msg, "500") || strings.Contains(msg, "INTERNAL") {
		return &UpstreamError{Model: model, Err: err}
	}

	return &RemoteError{Model: model, Err: err}
}
