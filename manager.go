package imagestudio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mhpenta/imagestudio/ratelimiter"
)

// DefaultRequestTimeout bounds a single streaming call to the model.
const DefaultRequestTimeout = 3 * time.Minute

// ErrStreamerNotConfigured is returned when the Manager has no model streamer.
var ErrStreamerNotConfigured = errors.New("image streamer not configured")

// Manager runs the generation pipeline: admission, composition, streaming,
// then committing the image to the artifact store and session ledger.
//
// The three shared resources (admission timestamp, artifact store, session
// ledger) synchronize internally, so a Manager is safe for concurrent use.
type Manager struct {
	streamer ImageStreamer

	// Admission control (one shared cooldown for all callers)
	limiter ratelimiter.Limiter

	artifacts ArtifactStore
	ledger    SessionLedger

	// Logger for structured logging
	logger *slog.Logger

	requestTimeout time.Duration
	now            func() time.Time

	mu sync.RWMutex
}

// Generate runs one generation request end to end.
//
// Errors are one of: *AdmissionError, a validation error (IsValidationError),
// *RateLimitError, *UpstreamError or *RemoteError.
func (m *Manager) Generate(ctx context.Context, req GenerationRequest) (*GenerateResult, error) {
	req.Normalize()

	m.mu.RLock()
	streamer, limiter := m.streamer, m.limiter
	artifacts, ledger := m.artifacts, m.ledger
	timeout := m.requestTimeout
	m.mu.RUnlock()

	if streamer == nil {
		return nil, ErrStreamerNotConfigured
	}
	if artifacts == nil || ledger == nil {
		return nil, ErrStorageNotConfigured
	}

	model := streamer.Model()

	res, wait := limiter.Reserve(m.now())
	if res == nil {
		m.logger.Warn("admission rejected",
			"session_id", req.SessionID,
			"wait_ms", wait.Milliseconds(),
		)
		return nil, &AdmissionError{Wait: wait}
	}

	if err := req.Validate(); err != nil {
		res.Cancel()
		return nil, err
	}

	parts, err := Compose(req, m.logger)
	if err != nil {
		res.Cancel()
		return nil, err
	}

	m.logger.Debug("starting image generation",
		"model", model.String(),
		"mode", req.Mode.String(),
		"session_id", req.SessionID,
		"prompt_length", len(req.Prompt),
		"parts", len(parts),
	)

	start := time.Now()

	streamCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := streamer.Stream(streamCtx, parts, &GenerateConfig{
		Model:       model,
		AspectRatio: req.AspectRatio,
	})
	duration := time.Since(start)

	if err != nil {
		err = ClassifyRemoteError(err, model.String())
		m.logger.Error("generation failed",
			"model", model.String(),
			"session_id", req.SessionID,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	return m.assemble(req, out, artifacts, ledger, duration)
}

// assemble commits a drained stream and builds the outward result.
func (m *Manager) assemble(req GenerationRequest, out *StreamResult, artifacts ArtifactStore, ledger SessionLedger, duration time.Duration) (*GenerateResult, error) {
	result := &GenerateResult{
		SessionID: req.SessionID,
	}
	if out != nil {
		result.Text = out.Text
	}

	if out == nil || out.Image == nil || len(out.Image.Data) == 0 {
		result.Note = NoImageNote
		m.logger.Info("generation completed without image",
			"session_id", req.SessionID,
			"duration_ms", duration.Milliseconds(),
			"text_length", len(result.Text),
		)
		return result, nil
	}

	stored, err := artifacts.Put(out.Image.Data, out.Image.MIMEType, req.SessionID)
	if err != nil {
		return nil, err
	}

	if err := ledger.Append(req.SessionID, SessionTurn{
		Prompt:    req.Prompt,
		ImageID:   stored.ID,
		CreatedAt: stored.CreatedAt,
	}); err != nil {
		if delErr := artifacts.Delete(stored.ID); delErr != nil {
			m.logger.Error("failed to roll back image",
				"image_id", stored.ID,
				"error", delErr.Error(),
			)
		}
		return nil, err
	}

	result.ImageID = stored.ID
	result.Image = &ImagePart{Data: out.Image.Data, MIMEType: out.Image.MIMEType}

	m.logger.Info("generation completed",
		"session_id", req.SessionID,
		"image_id", stored.ID,
		"mime_type", out.Image.MIMEType,
		"image_bytes", len(out.Image.Data),
		"duration_ms", duration.Milliseconds(),
	)

	return result, nil
}

// Close releases the streamer.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.streamer == nil {
		return nil
	}
	err := m.streamer.Close()
	m.streamer = nil
	return err
}
