package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/mhpenta/imagestudio/presets"
)

type healthResponse struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	PresetsDBPath    string `json:"presetsDbPath"`
	FieldLibraryPath string `json:"fieldLibraryPath"`
	PresetsDBLoaded  bool   `json:"presetsDbLoaded"`
	Error            string `json:"error,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := healthResponse{
		Status:           "ok",
		Timestamp:        presets.Timestamp(s.now().UTC()),
		PresetsDBPath:    s.presets.Location(),
		FieldLibraryPath: absPath(s.fieldLibraryPath),
	}

	if err := s.presets.Check(c.Request.Context()); err != nil {
		_ = c.Error(err)
		resp.Error = err.Error()
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	resp.PresetsDBLoaded = true
	c.JSON(http.StatusOK, resp)
}

// handleFieldLibrary serves the field library file as is.
func (s *Server) handleFieldLibrary(c *gin.Context) {
	data, err := os.ReadFile(s.fieldLibraryPath)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !gjson.ValidBytes(data) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "field library is not valid JSON"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) handleListPresets(c *gin.Context) {
	list, err := s.presets.List(c.Request.Context())
	if err != nil {
		s.writePresetError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleCreatePreset(c *gin.Context) {
	body, err := presets.DecodePreset(c.Request.Body)
	if err != nil {
		s.writeBindError(c, err)
		return
	}

	created, err := s.presets.Create(c.Request.Context(), body)
	if err != nil {
		s.writePresetError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdatePreset(c *gin.Context) {
	body, err := presets.DecodePreset(c.Request.Body)
	if err != nil {
		s.writeBindError(c, err)
		return
	}

	updated, err := s.presets.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		s.writePresetError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeletePreset(c *gin.Context) {
	if err := s.presets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writePresetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) writePresetError(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, presets.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Preset not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
