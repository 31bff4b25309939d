package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/igorvan/qrscan/pkg/device"
	"github.com/igorvan/qrscan/pkg/history"
	"github.com/igorvan/qrscan/pkg/logging"
	"github.com/igorvan/qrscan/pkg/scanning"
	"github.com/igorvan/qrscan/pkg/session"
)

const requestTimeout = 10 * time.Second

// Session - commands the API forwards
type Session interface {
	Start(ctx context.Context) error
	Stop()
	ToggleTorch() error
	ManualEntry(ctx context.Context, data string) (scanning.Outcome, history.ScanRecord, error)
	DeleteData(ctx context.Context, values []string) (int, error)
	Snapshot() session.Snapshot
}

type handler struct {
	session Session
	log     logging.Logger
}

// NewRouter - HTTP command surface over a scanner session
func NewRouter(s Session, log logging.Logger) http.Handler {
	h := &handler{session: s, log: logging.NullSafe(log)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", h.health)
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.snapshot)
		r.Post("/start", h.start)
		r.Post("/stop", h.stop)
		r.Post("/torch", h.torch)
	})
	r.Get("/history", h.history)
	r.Delete("/history", h.deleteHistory)
	r.Post("/scans", h.scan)
	return r
}

type scanRequest struct {
	Data string `json:"data"`
}

type scanResponse struct {
	Outcome string              `json:"outcome"`
	Record  *history.ScanRecord `json:"record,omitempty"`
}

type deleteRequest struct {
	Data []string `json:"data"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *handler) start(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Start(r.Context()); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, device.ErrDeviceUnavailable):
			status = http.StatusServiceUnavailable
		case errors.Is(err, session.ErrClosed):
			status = http.StatusConflict
		}
		h.writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *handler) stop(w http.ResponseWriter, _ *http.Request) {
	h.session.Stop()
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *handler) torch(w http.ResponseWriter, _ *http.Request) {
	if err := h.session.ToggleTorch(); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *handler) history(w http.ResponseWriter, _ *http.Request) {
	rows := h.session.Snapshot().Rows
	if rows == nil {
		rows = []session.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handler) scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	outcome, rec, err := h.session.ManualEntry(r.Context(), req.Data)
	switch {
	case errors.Is(err, scanning.ErrEmptyPayload):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, session.ErrClosed):
		h.writeError(w, http.StatusConflict, err)
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, err)
	case outcome == scanning.OutcomeDuplicate:
		writeJSON(w, http.StatusConflict, scanResponse{Outcome: outcome.String()})
	default:
		writeJSON(w, http.StatusCreated, scanResponse{Outcome: outcome.String(), Record: &rec})
	}
}

func (h *handler) deleteHistory(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := h.session.DeleteData(r.Context(), req.Data)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: n})
}

func (h *handler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
