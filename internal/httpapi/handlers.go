// Package httpapi serves the triage service over JSON/HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/godilite/ticket-triage/internal/service"
)

const maxBodyBytes = 1 << 20

// TriageService is the part of the service layer exposed over HTTP.
type TriageService interface {
	Triage(ctx context.Context, req service.Request) (service.Result, error)
	GetTicket(ctx context.Context, id string) (service.Record, error)
	ListTickets(ctx context.Context, limit int) ([]service.Record, error)
}

type triageRequest struct {
	EmailText string `json:"email_text"`
	Model     string `json:"model"`
	Demo      bool   `json:"demo"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type Handlers struct {
	triage TriageService
	logger *zap.Logger
}

func NewHandlers(triage TriageService, logger *zap.Logger) *Handlers {
	if triage == nil {
		panic("nil TriageService provided to NewHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{triage: triage, logger: logger.Named("http-handler")}
}

// Routes returns the API mux.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /triage", h.triageEmail)
	mux.HandleFunc("GET /tickets", h.listTickets)
	mux.HandleFunc("GET /tickets/{id}", h.getTicket)
	return mux
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, errorResponse{Detail: detail})
}

func (h *Handlers) root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Ticket Triage API",
		"version": service.Version,
		"health":  "/health",
		"endpoints": map[string]string{
			"triage":  "/triage",
			"tickets": "/tickets",
		},
	})
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Version: service.Version})
}

func (h *Handlers) triageEmail(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.EmailText == "" {
		h.writeError(w, http.StatusBadRequest, "email_text is required")
		return
	}

	res, err := h.triage.Triage(r.Context(), service.Request{
		EmailText:  req.EmailText,
		Model:      req.Model,
		DisableLLM: req.Demo,
	})
	if err != nil {
		var validationErr *service.ValidationError
		switch {
		case errors.Is(err, service.ErrEmptyEmail):
			h.writeError(w, http.StatusBadRequest, "email_text is required")
		case errors.As(err, &validationErr):
			h.writeError(w, http.StatusUnprocessableEntity, validationErr.Error())
		default:
			h.logger.Error("triage failed", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing email: %v", err))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, res.Ticket)
}

func (h *Handlers) getTicket(w http.ResponseWriter, r *http.Request) {
	rec, err := h.triage.GetTicket(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			h.writeError(w, http.StatusNotFound, "ticket not found")
			return
		}
		h.logger.Error("get ticket failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load ticket")
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) listTickets(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	recs, err := h.triage.ListTickets(r.Context(), limit)
	if err != nil {
		h.logger.Error("list tickets failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	if recs == nil {
		recs = []service.Record{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"tickets": recs})
}
