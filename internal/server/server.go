// Package server wires the HTTP surface: the streaming /query endpoint
// that drives the pipeline stages, plus health and manifest routes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/policyrag/policyrag/internal/db"
	"github.com/policyrag/policyrag/internal/eventlog"
	"github.com/policyrag/policyrag/internal/pipeline"
	"github.com/policyrag/policyrag/internal/vectorstore"
)

const serviceName = "policyrag"

// Router classifies a query; it never fails.
type Router interface {
	Route(ctx context.Context, q pipeline.Query) pipeline.RoutingResult
}

// Retriever returns candidate chunks for a query text.
type Retriever interface {
	Retrieve(ctx context.Context, text string) ([]vectorstore.Chunk, error)
}

// Evaluator re-ranks chunks and applies the confidence gate.
type Evaluator interface {
	EvaluateAndRerank(ctx context.Context, query string, chunks []vectorstore.Chunk) ([]vectorstore.Chunk, bool, error)
}

// Generator streams the grounded answer followed by its citation block.
type Generator interface {
	Generate(ctx context.Context, query string, chunks []vectorstore.Chunk) <-chan string
}

// EventSink receives the per-request audit record. Submissions must not block.
type EventSink interface {
	Submit(rec eventlog.Record)
}

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server is the query gateway.
type Server struct {
	cfg        Config
	router     Router
	retriever  Retriever
	evaluator  Evaluator
	generator  Generator
	events     EventSink
	manifest   *db.Manifest
	mux        chi.Router
	httpServer *http.Server
}

// New creates a Server with all pipeline stages injected. manifest may be
// nil, in which case the /documents route is not registered.
func New(cfg Config, router Router, retriever Retriever, evaluator Evaluator, generator Generator, events EventSink, manifest *db.Manifest) *Server {
	s := &Server{
		cfg:       cfg,
		router:    router,
		retriever: retriever,
		evaluator: evaluator,
		generator: generator,
		events:    events,
		manifest:  manifest,
	}

	s.mux = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": serviceName,
		})
	})

	r.Post("/query", s.handleQuery)

	if s.manifest != nil {
		r.Get("/documents", s.handleListDocuments)
	}

	return r
}

// Mux returns the chi router, mainly for tests.
func (s *Server) Mux() chi.Router { return s.mux }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("policyrag gateway listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.manifest.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing documents failed")
		return
	}
	if docs == nil {
		docs = []db.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

// writeError produces the failure response shape. True failures are
// distinguishable from short-circuit messages by status and content type.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
