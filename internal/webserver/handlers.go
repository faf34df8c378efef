package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/okservice/repairdesk/internal/db"
	"github.com/okservice/repairdesk/internal/export"
	"github.com/okservice/repairdesk/internal/intake"
)

const maxFormBytes = 64 << 10

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, intake.Result{Status: intake.StatusError, Message: message})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmit accepts the website form. The body is read as JSON whatever
// the Content-Type says.
func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload intake.Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.Gateway.Submit(r.Context(), payload)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, res)
	case errors.Is(err, db.ErrValidation):
		respondJSON(w, http.StatusBadRequest, res)
	default:
		s.Logger.Error("site request failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, res)
	}
}

func (s *server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	var (
		requests []db.Request
		err      error
	)
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		requests, err = s.Store.SearchByName(r.Context(), name)
	} else {
		requests, err = s.Store.ListAll(r.Context())
	}
	if err != nil {
		s.Logger.Error("listing requests failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load requests")
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	requests, err := s.Store.ListAll(r.Context())
	if err != nil {
		s.Logger.Error("export query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load requests")
		return
	}
	data, err := export.Workbook(requests, s.Location)
	if err != nil {
		s.Logger.Error("export failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	if s.Broker == nil {
		respondError(w, http.StatusServiceUnavailable, "event stream disabled")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe()
	defer s.Broker.Unsubscribe(ch)

	fmt.Fprintf(w, ": keepalive\n\n")
	flusher.Flush()

	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: new-request\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
