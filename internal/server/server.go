// Package server exposes the studio over HTTP.
package server

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mhpenta/imagestudio"
	"github.com/mhpenta/imagestudio/internal/lib/sl"
	"github.com/mhpenta/imagestudio/presets"
)

const (
	// DefaultMaxBodyBytes caps request bodies; uploads arrive base64 encoded inline.
	DefaultMaxBodyBytes = 50 << 20

	shutdownTimeout = 10 * time.Second
)

//go:embed templates/index.html
var indexHTML []byte

// Generator is the part of imagestudio.Manager the server depends on.
type Generator interface {
	Generate(ctx context.Context, req imagestudio.GenerationRequest) (*imagestudio.GenerateResult, error)
	Image(id string) (imagestudio.GeneratedImage, error)
	Session(sessionID string) ([]imagestudio.SessionTurn, error)
}

// Options configures a Server.
type Options struct {
	Addr             string
	FieldLibraryPath string
	MaxBodyBytes     int64
	Logger           *slog.Logger
	Now              func() time.Time
}

// Server serves the studio UI and JSON API.
type Server struct {
	gen              Generator
	presets          presets.Store
	fieldLibraryPath string
	addr             string
	maxBodyBytes     int64
	log              *slog.Logger
	now              func() time.Time
	engine           *gin.Engine
}

// New builds the router. Call Run to start listening.
func New(gen Generator, store presets.Store, opts Options) *Server {
	s := &Server{
		gen:              gen,
		presets:          store,
		fieldLibraryPath: opts.FieldLibraryPath,
		addr:             opts.Addr,
		maxBodyBytes:     opts.MaxBodyBytes,
		log:              opts.Logger,
		now:              opts.Now,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With(sl.Module("server"))
	if s.now == nil {
		s.now = time.Now
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger(), s.limitBody())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleIndex)

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/generate", s.handleGenerate)
	api.GET("/download/:id", s.handleDownload)
	api.GET("/sessions/:id", s.handleSession)
	api.GET("/field-library", s.handleFieldLibrary)

	api.GET("/presets", s.handleListPresets)
	api.POST("/presets", s.handleCreatePreset)
	api.PUT("/presets/:id", s.handleUpdatePreset)
	api.DELETE("/presets/:id", s.handleDeletePreset)
}

// Handler returns the router for use with httptest or a custom http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server started", slog.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			s.log.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			s.log.Warn("request", attrs...)
		default:
			s.log.Info("request", attrs...)
		}
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
		}
		c.Next()
	}
}
