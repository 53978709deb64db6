// Package api exposes scan results over HTTP.
//
// The server wraps a [manager.Manager]: every request queries the shared
// merged graph, building it lazily on first use. Responses are JSON except
// for the report endpoints, which return the plain text the CLI prints.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mfeldweg/crossgraph/pkg/errors"
	"github.com/mfeldweg/crossgraph/pkg/graph"
	"github.com/mfeldweg/crossgraph/pkg/manager"
	"github.com/mfeldweg/crossgraph/pkg/observability"
)

// Server serves scan results over HTTP.
type Server struct {
	manager *manager.Manager
	logger  *log.Logger
}

// NewServer creates a server over the given manager.
// If logger is nil, the default logger is used.
func NewServer(m *manager.Manager, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{manager: m, logger: logger}
}

// Router builds the HTTP route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Get("/repos", s.handleRepos)
	r.Get("/integration-points", s.handlePoints)
	r.Get("/dependencies", s.handleDependencies)
	r.Get("/links", s.handleLinks)
	r.Get("/relations", s.handleRelations)
	r.Get("/reach", s.handleReach)
	r.Get("/graph", s.handleGraph)

	return r
}

// observe logs each request and feeds the server hooks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.Server().OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		observability.Server().OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), duration)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", duration)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRepos(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.manager.List())
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	points, err := s.manager.Points(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	deps, err := s.manager.Dependencies(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deps)
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	report, err := s.manager.RelevantLinks(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeText(w, report)
}

func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request) {
	report, err := s.manager.Relations(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeText(w, report)
}

func (s *Server) handleReach(w http.ResponseWriter, r *http.Request) {
	node := r.URL.Query().Get("node")
	repo, local, ok := strings.Cut(node, "|")
	if !ok || repo == "" || local == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput,
			"node parameter must have the form repo|local"))
		return
	}

	reach, err := s.manager.Reach(r.Context(), graph.NodeID{Repo: repo, Local: local})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if reach == nil {
		reach = []string{}
	}
	s.writeJSON(w, http.StatusOK, reach)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.manager.Graph(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, graph.FromGraph(g))
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidRepo, errors.ErrCodeInvalidPath:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeRepoNotFound, errors.ErrCodeNodeNotFound:
		status = http.StatusNotFound
	case "":
		code = errors.ErrCodeInternal
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Code: code, Message: errors.UserMessage(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
