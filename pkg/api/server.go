// Package api exposes the editing service over HTTP: session lifecycle,
// video ingest, assistant prompts, direct actions, subtitle generation
// and asynchronous exports.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/clipforge/clipforge/pkg/assistant"
	"github.com/clipforge/clipforge/pkg/media"
	"github.com/clipforge/clipforge/pkg/render"
	"github.com/clipforge/clipforge/pkg/storage"
	"github.com/clipforge/clipforge/pkg/store"
	"github.com/clipforge/clipforge/pkg/subtitles"
)

// Options carries the server dependencies. Store is required; the rest
// degrade gracefully when nil so partial deployments (no LLM key, no
// whisper model) still serve the editing surface.
type Options struct {
	Store     store.Store
	Bridge    *assistant.Bridge
	Prober    media.Prober
	Fetcher   *storage.Fetcher
	Exporter  *render.Exporter
	Subtitles *subtitles.Generator

	// UploadDir receives ingested sources
	UploadDir string

	// MaxUploadSize caps one uploaded video in bytes
	MaxUploadSize int64

	// AllowedOrigins is the CORS allow-list; empty denies cross-origin
	AllowedOrigins []string

	Logger zerolog.Logger
}

// Server holds the handler dependencies
type Server struct {
	store     store.Store
	bridge    *assistant.Bridge
	prober    media.Prober
	fetcher   *storage.Fetcher
	exporter  *render.Exporter
	subtitles *subtitles.Generator

	uploadDir      string
	maxUploadSize  int64
	allowedOrigins []string
	logger         zerolog.Logger
}

// NewServer creates the API server
func NewServer(opts Options) *Server {
	return &Server{
		store:          opts.Store,
		bridge:         opts.Bridge,
		prober:         opts.Prober,
		fetcher:        opts.Fetcher,
		exporter:       opts.Exporter,
		subtitles:      opts.Subtitles,
		uploadDir:      opts.UploadDir,
		maxUploadSize:  opts.MaxUploadSize,
		allowedOrigins: opts.AllowedOrigins,
		logger:         opts.Logger,
	}
}

// Router builds the HTTP routing table
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(Recovery(s.logger))
	r.Use(RequestLogger(s.logger))
	r.Use(CORS(s.allowedOrigins))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteSession)
			r.Get("/project", s.handleGetProject)
			r.Post("/videos", s.handleAddVideo)
			r.Post("/prompt", s.handlePrompt)
			r.Post("/actions", s.handleAction)
			r.Post("/subtitles", s.handleSubtitles)
			r.Post("/export", s.handleExport)
		})

		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Get("/jobs/{jobID}/download", s.handleDownload)
	})

	return r
}

// Close releases the server's resources
func (s *Server) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
