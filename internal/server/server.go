// Package server provides the HTTP API for MedRAG.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/medintel/medrag/internal/config"
	"github.com/medintel/medrag/internal/evaluate"
	"github.com/medintel/medrag/internal/pipeline"
	"github.com/medintel/medrag/internal/storage"
	"github.com/medintel/medrag/internal/vector"
)

// Server is the HTTP server for the MedRAG API.
type Server struct {
	pipeline  *pipeline.Pipeline
	evaluator *evaluate.Evaluator
	storage   storage.Storage
	index     vector.Index
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. evaluator may be
// nil; the evaluate endpoint then responds 501.
func NewServer(
	p *pipeline.Pipeline,
	evaluator *evaluate.Evaluator,
	store storage.Storage,
	index vector.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline:  p,
		evaluator: evaluator,
		storage:   store,
		index:     index,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the HTTP routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(2 * time.Minute))
		r.Post("/api/v1/query", s.handleQuery)
		r.Get("/api/v1/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
	})
	// Evaluation runs every question through retrieval, generation, and the
	// judge, so it gets a much longer budget than a single query.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Minute))
		r.Post("/api/v1/evaluate", s.handleEvaluate)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
