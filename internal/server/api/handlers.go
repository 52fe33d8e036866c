// Package api exposes an export.Writer over HTTP. Node and edge batches are
// posted as JSON lines; each request is one write call.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/systemshift/graphbulk/internal/core"
	"github.com/systemshift/graphbulk/internal/export"
	"github.com/systemshift/graphbulk/internal/logger"
	"github.com/systemshift/graphbulk/internal/server/graph"
)

// maxBodySize bounds a single posted batch
const maxBodySize = 1 << 30

// Server holds the HTTP server dependencies
type Server struct {
	mu     sync.Mutex // Serialises write calls into the engine
	writer *export.Writer
	repo   *graph.Repository
	log    logger.Logger
}

// New creates a new API server. repo may be nil, which disables /api/verify.
func New(writer *export.Writer, repo *graph.Repository, log logger.Logger) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Server{writer: writer, repo: repo, log: log}
}

// Routes returns the router serving every endpoint
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/nodes", s.WriteNodes)
		r.Post("/edges", s.WriteEdges)
		r.Get("/import-call", s.GetImportCall)
		r.Post("/import-call", s.WriteImportCall)
		r.Get("/duplicates", s.GetDuplicates)
		r.Get("/buckets", s.GetBuckets)
		r.Post("/manifest", s.WriteManifest)
		r.Get("/verify", s.Verify)
	})
	return r
}

// WriteResponse is the response of a node or edge batch
type WriteResponse struct {
	CallID      string `json:"call_id"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	Conformance bool   `json:"conformance,omitempty"`
	Buckets     int    `json:"buckets"`
}

// WriteNodes handles POST /api/nodes
func (s *Server) WriteNodes(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, s.writer.WriteNodesFrom)
}

// WriteEdges handles POST /api/edges
func (s *Server) WriteEdges(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, s.writer.WriteEdgesFrom)
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, call func(*core.Reader) bool) {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)

	s.mu.Lock()
	ok := call(core.NewReader(body))
	resp := WriteResponse{
		CallID:  uuid.New().String(),
		OK:      ok,
		Buckets: len(s.writer.Buckets()),
	}
	err := s.writer.Err()
	s.mu.Unlock()

	status := http.StatusOK
	if !ok {
		resp.Error = err.Error()
		resp.Conformance = export.IsConformance(err)
		status = statusFor(err)
		s.log.Warn("batch rejected",
			zap.String("call_id", resp.CallID),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	writeJSON(w, status, resp)
}

// statusFor maps a failed write call to a response status
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, export.ErrIO):
		return http.StatusInternalServerError
	case errors.Is(err, export.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

// ImportCallResponse carries the loader command line
type ImportCallResponse struct {
	ImportCall string `json:"import_call"`
	Path       string `json:"path,omitempty"`
}

// GetImportCall handles GET /api/import-call
func (s *Server) GetImportCall(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	call := s.writer.ImportCall()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, ImportCallResponse{ImportCall: call})
}

// WriteImportCall handles POST /api/import-call
func (s *Server) WriteImportCall(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.writer.WriteImportCall()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ImportCallResponse{ImportCall: s.writer.ImportCall(), Path: path})
}

// DuplicatesResponse lists suppressed duplicates
type DuplicatesResponse struct {
	NodeTypes []string `json:"node_types"`
	NodeIDs   []string `json:"node_ids"`
	EdgeTypes []string `json:"edge_types"`
	EdgeIDs   []string `json:"edge_ids"`
}

// GetDuplicates handles GET /api/duplicates
func (s *Server) GetDuplicates(w http.ResponseWriter, r *http.Request) {
	var resp DuplicatesResponse
	s.mu.Lock()
	resp.NodeTypes, resp.NodeIDs = s.writer.DuplicateNodes()
	resp.EdgeTypes, resp.EdgeIDs = s.writer.DuplicateEdges()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// GetBuckets handles GET /api/buckets
func (s *Server) GetBuckets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	m := s.writer.Manifest()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"nodes":         m.Nodes,
		"relationships": m.Relationships,
	})
}

// WriteManifest handles POST /api/manifest
func (s *Server) WriteManifest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.WriteManifest(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.writer.Manifest())
}

// Verify handles GET /api/verify
func (s *Server) Verify(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		http.Error(w, "no neo4j connection configured", http.StatusServiceUnavailable)
		return
	}

	s.mu.Lock()
	buckets := s.writer.Buckets()
	s.mu.Unlock()

	checks, err := s.repo.Verify(r.Context(), buckets)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
