// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/Trawl_phase1/internal/analyzer"
	"github.com/nicodishanthj/Trawl_phase1/internal/common"
	"github.com/nicodishanthj/Trawl_phase1/internal/store"
)

// Server exposes the context pipeline over HTTP. Builds are asynchronous
// via the task queue; analysis runs inline.
type Server struct {
	router    chi.Router
	store     *store.Store
	analyzer  *analyzer.Analyzer
	outputDir string
}

// Config controls the API server.
type Config struct {
	// OutputDir is where context documents are read from.
	OutputDir string
}

func NewServer(st *store.Store, epicAnalyzer *analyzer.Analyzer, cfg Config) (*Server, error) {
	if st == nil {
		return nil, fmt.Errorf("store required")
	}
	outputDir := strings.TrimSpace(cfg.OutputDir)
	if outputDir == "" {
		outputDir = ".context"
	}
	srv := &Server{
		router:    chi.NewRouter(),
		store:     st,
		analyzer:  epicAnalyzer,
		outputDir: outputDir,
	}
	srv.routes()
	common.Logger().Info("api: server ready", "output_dir", outputDir)
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Get("/v1/contexts", s.handleListContexts)
	s.router.Get("/v1/contexts/{ticketID}", s.handleGetContext)
	s.router.Post("/v1/contexts/{ticketID}/build", s.handleBuildContext)
	s.router.Post("/v1/contexts/{ticketID}/refresh", s.handleRefreshContext)
	s.router.Delete("/v1/contexts/{ticketID}", s.handleDeleteContext)
	s.router.Post("/v1/epics/{epicID}/analyze", s.handleAnalyzeEpic)
	s.router.Get("/v1/tasks", s.handleListTasks)
	s.router.Get("/v1/tasks/{taskID}", s.handleGetTask)
	s.router.Get("/v1/logs", s.handleLogs)
	s.router.Handle("/debug/vars", expvar.Handler())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": common.LogEntries()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
