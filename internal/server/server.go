// Package server exposes the chat pipeline over HTTP. The routes mirror the
// pipeline's external contract; all pipeline failures surface as resolved
// fallback payloads with status 200, never as raw errors.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"companiond/internal/orchestrator"
	"companiond/internal/session"
	"companiond/internal/types"
)

// Pipeline is the orchestrator surface the HTTP layer consumes.
type Pipeline interface {
	Chat(ctx context.Context, message, sessionID string) (orchestrator.Result, error)
	History(ctx context.Context, sessionID string) ([]types.Turn, error)
	Stats(ctx context.Context) (types.Stats, error)
}

// Handler carries the route dependencies.
type Handler struct {
	pipeline Pipeline
	logger   *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(pipeline Pipeline, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pipeline: pipeline, logger: logger}
}

// Routes builds the chi router with middleware and all API routes.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(CORS(allowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.handleChat)
		r.Get("/history/{sessionID}", h.handleHistory)
		r.Get("/stats", h.handleStats)
		r.Get("/health", h.handleHealth)
	})

	return r
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string                `json:"response"`
	SessionID string                `json:"session_id"`
	Approved  bool                  `json:"approved"`
	Workflow  orchestrator.Workflow `json:"workflow"`
}

type historyResponse struct {
	SessionID string       `json:"session_id"`
	Turns     []types.Turn `json:"turns"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.pipeline.Chat(r.Context(), req.Message, req.SessionID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyMessage) {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message cannot be empty"})
			return
		}
		h.logger.Error("chat request failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	h.writeJSON(w, http.StatusOK, chatResponse{
		Response:  result.Response,
		SessionID: result.SessionID,
		Approved:  result.Approved,
		Workflow:  result.Workflow,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.pipeline.History(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
			return
		}
		h.logger.Error("history request failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	if turns == nil {
		turns = []types.Turn{}
	}
	h.writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Turns: turns})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pipeline.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats request failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
