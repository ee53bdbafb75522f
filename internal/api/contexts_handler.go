// File path: internal/api/contexts_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/Trawl_phase1/internal/analyzer"
	"github.com/nicodishanthj/Trawl_phase1/internal/common"
	"github.com/nicodishanthj/Trawl_phase1/internal/store"
)

type contextSummary struct {
	TicketID    string    `json:"ticket_id"`
	Filename    string    `json:"filename"`
	Keywords    []string  `json:"keywords,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
}

type contextDetail struct {
	contextSummary
	Content      string                     `json:"content,omitempty"`
	FetchHistory []store.FetchHistoryRecord `json:"fetch_history,omitempty"`
}

func summarize(record store.DocumentRecord) contextSummary {
	return contextSummary{
		TicketID:    record.TicketID,
		Filename:    record.Filename,
		Keywords:    record.Keywords,
		LastUpdated: record.LastUpdated,
		CreatedAt:   record.CreatedAt,
	}
}

func (s *Server) handleListContexts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	var (
		records []store.DocumentRecord
		err     error
	)
	if query != "" {
		records, err = s.store.SearchDocuments(r.Context(), query)
	} else {
		records, err = s.store.ListDocuments(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	summaries := make([]contextSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, summarize(record))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contexts": summaries})
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	record, err := s.store.Document(r.Context(), ticketID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no context for %s", strings.ToUpper(ticketID)))
		return
	}
	detail := contextDetail{contextSummary: summarize(*record)}
	if raw, readErr := os.ReadFile(filepath.Join(s.outputDir, record.Filename)); readErr == nil {
		detail.Content = string(raw)
	} else if !os.IsNotExist(readErr) {
		writeError(w, http.StatusInternalServerError, readErr)
		return
	}
	if history, histErr := s.store.FetchHistory(r.Context(), record.ID); histErr == nil {
		detail.FetchHistory = history
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleBuildContext(w http.ResponseWriter, r *http.Request) {
	s.enqueue(w, r, store.TaskBuild)
}

func (s *Server) handleRefreshContext(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	record, err := s.store.Document(r.Context(), ticketID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no context for %s", strings.ToUpper(ticketID)))
		return
	}
	s.enqueue(w, r, store.TaskRefresh)
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, taskType string) {
	ticketID := chi.URLParam(r, "ticketID")
	id, err := s.store.CreateTask(r.Context(), ticketID, taskType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("api: task queued", "ticket", strings.ToUpper(ticketID), "type", taskType, "task", id)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": id,
		"status":  store.StatusPending,
	})
}

func (s *Server) handleDeleteContext(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	record, err := s.store.Document(r.Context(), ticketID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no context for %s", strings.ToUpper(ticketID)))
		return
	}
	if _, err := s.store.DeleteDocument(r.Context(), ticketID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := os.Remove(filepath.Join(s.outputDir, record.Filename)); err != nil && !os.IsNotExist(err) {
		common.Logger().Warn("api: document file removal failed", "filename", record.Filename, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": record.TicketID})
}

type analyzeRequest struct {
	Tickets []analyzer.TicketSummary `json:"tickets"`
}

func (s *Server) handleAnalyzeEpic(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("analyzer not configured"))
		return
	}
	epicID := chi.URLParam(r, "epicID")
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.Tickets) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("tickets required"))
		return
	}
	report, err := s.analyzer.Analyze(r.Context(), epicID, req.Tickets)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
