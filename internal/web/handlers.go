package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mailsense/mailsense/internal/analysis"
	"github.com/mailsense/mailsense/internal/store"
)

const (
	maxBodyBytes     = 10 << 20
	maxBatchSize     = 500
	defaultListLimit = 50
)

type batchRequest struct {
	Emails []analysis.RawEmail `json:"emails"`
}

type batchResult struct {
	Email *analysis.ProcessedEmail `json:"email,omitempty"`
	Error string                   `json:"error,omitempty"`
}

type scanRequest struct {
	Days  *int `json:"days"`
	Limit *int `json:"limit"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"store":   s.store != nil,
		"scanner": s.scanner != nil,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var raw analysis.RawEmail
	if err := decodeJSON(w, r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	email, err := s.analyzer.Process(raw)
	if errors.Is(err, analysis.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("analysis failed", "id", raw.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	if s.store != nil {
		if err := s.store.Save(r.Context(), email); err != nil {
			s.logger.Error("failed to save email", "id", email.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save email")
			return
		}
	}

	writeJSON(w, http.StatusOK, email)
}

func (s *Server) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Emails) > maxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("batch exceeds %d emails", maxBatchSize))
		return
	}

	results := s.analyzer.ProcessBatch(r.Context(), req.Emails)

	out := make([]batchResult, len(results))
	var processed []*analysis.ProcessedEmail
	for i, res := range results {
		if res.Err != nil {
			out[i].Error = res.Err.Error()
			continue
		}
		out[i].Email = res.Email
		processed = append(processed, res.Email)
	}

	if s.store != nil && len(processed) > 0 {
		if err := s.store.SaveAll(r.Context(), processed); err != nil {
			s.logger.Error("failed to save batch", "count", len(processed), "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save emails")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (s *Server) handleListEmails(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	emails, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list emails", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list emails")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"emails": emails,
		"count":  len(emails),
	})
}

func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	filter := store.Filter{Limit: defaultListLimit}

	if v := q.Get("category"); v != "" {
		category, ok := analysis.ParseCategory(v)
		if !ok {
			return filter, fmt.Errorf("unknown category %q", v)
		}
		filter.Category = category
	}

	if v := q.Get("priority"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < int(analysis.MinPriority) || p > int(analysis.MaxPriority) {
			return filter, fmt.Errorf("priority must be between %d and %d", analysis.MinPriority, analysis.MaxPriority)
		}
		filter.MinPriority = analysis.Priority(p)
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("limit must be a non-negative integer")
		}
		filter.Limit = n
	}

	return filter, nil
}

func (s *Server) handleGetEmail(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	email, err := s.store.Get(r.Context(), chi.URLParam(r, "emailID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "email not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get email", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get email")
		return
	}

	writeJSON(w, http.StatusOK, email)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	window := time.Duration(s.config.Store.RecentWindowDays) * 24 * time.Hour
	stats, err := s.store.Stats(r.Context(), s.now(), window)
	if err != nil {
		s.logger.Error("failed to get stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "inbox monitoring not configured")
		return
	}

	days, limit := s.config.Inbox.ScanDays, s.config.Inbox.ScanLimit
	var req scanRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Days != nil {
		days = *req.Days
	}
	if req.Limit != nil {
		limit = *req.Limit
	}
	if days < 0 || limit < 0 {
		writeError(w, http.StatusBadRequest, "days and limit must be non-negative")
		return
	}

	s.jobManager.Cleanup(jobRetention)
	job, started := s.jobManager.Start(days, limit)
	if !started {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "a scan is already running",
			"job":   job.View(),
		})
		return
	}

	go s.runScan(job)

	writeJSON(w, http.StatusAccepted, job.View())
}

func (s *Server) handleJobActive(w http.ResponseWriter, r *http.Request) {
	job := s.jobManager.GetActive()
	if job == nil {
		writeJSON(w, http.StatusOK, map[string]any{"job": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job.View()})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobManager.Get(chi.URLParam(r, "jobID"))
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}

func (s *Server) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	job := s.jobManager.Get(chi.URLParam(r, "jobID"))
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job.Cancel()
	writeJSON(w, http.StatusOK, job.View())
}
