package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mhpenta/imagestudio"
	"github.com/mhpenta/imagestudio/store"
)

const (
	msgPromptRequired = "Prompt is required"
	msgRateLimited    = "Rate limit exceeded. Please wait a few seconds and try again."
	msgUpstream       = "Google API temporary error. Please wait a moment and try again."
	msgImageNotFound  = "Image not found"
	msgSessionMissing = "Session not found"
)

type generateRequest struct {
	Prompt         string   `json:"prompt"`
	AspectRatio    string   `json:"aspect_ratio"`
	Mode           string   `json:"mode"`
	UploadedImages []string `json:"uploaded_images"`
	SessionID      string   `json:"session_id"`
}

type generateResponse struct {
	Success     bool   `json:"success"`
	ImageID     string `json:"image_id,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MIMEType    string `json:"mime_type,omitempty"`
	Text        string `json:"text"`
	SessionID   string `json:"session_id"`
	Note        string `json:"note,omitempty"`
}

type sessionTurn struct {
	Prompt    string `json:"prompt"`
	ImageID   string `json:"image_id"`
	CreatedAt string `json:"created_at"`
}

type sessionResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []sessionTurn `json:"turns"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeBindError(c, err)
		return
	}

	result, err := s.gen.Generate(c.Request.Context(), imagestudio.GenerationRequest{
		Prompt:         body.Prompt,
		AspectRatio:    imagestudio.AspectRatio(body.AspectRatio),
		Mode:           imagestudio.Mode(body.Mode),
		UploadedImages: body.UploadedImages,
		SessionID:      body.SessionID,
	})
	if err != nil {
		s.writeGenerateError(c, err)
		return
	}

	resp := generateResponse{
		Success:   true,
		Text:      result.Text,
		SessionID: result.SessionID,
	}
	if result.HasImage() {
		resp.ImageID = result.ImageID
		resp.ImageBase64 = base64.StdEncoding.EncodeToString(result.Image.Data)
		resp.MIMEType = result.Image.MIMEType
	} else {
		resp.Note = result.Note
	}
	c.JSON(http.StatusOK, resp)
}

// writeGenerateError maps the generation error taxonomy onto HTTP responses.
func (s *Server) writeGenerateError(c *gin.Context, err error) {
	_ = c.Error(err)

	if admErr, ok := imagestudio.AsAdmissionError(err); ok {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":     admErr.Error(),
			"wait_time": admErr.Wait.Seconds(),
		})
		return
	}

	switch {
	case errors.Is(err, imagestudio.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgPromptRequired})
	case imagestudio.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case imagestudio.IsRateLimitError(err):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": msgRateLimited,
			"type":  "rate_limit",
		})
	case imagestudio.IsUpstreamError(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   msgUpstream,
			"type":    "api_internal",
			"details": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"details": fmt.Sprintf("%T: %v", err, err),
		})
	}
}

func (s *Server) handleDownload(c *gin.Context) {
	id := c.Param("id")

	img, err := s.gen.Image(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": msgImageNotFound})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("generated_image_%s.%s", img.ID, imagestudio.ExtensionFromMIME(img.MIMEType))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, img.MIMEType, img.Data)
}

func (s *Server) handleSession(c *gin.Context) {
	id := c.Param("id")

	turns, err := s.gen.Session(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": msgSessionMissing})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := sessionResponse{
		SessionID: id,
		Turns:     make([]sessionTurn, 0, len(turns)),
	}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, sessionTurn{
			Prompt:    t.Prompt,
			ImageID:   t.ImageID,
			CreatedAt: t.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// writeBindError reports a body that could not be decoded.
func (s *Server) writeBindError(c *gin.Context, err error) {
	_ = c.Error(err)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
}
