package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/chatsync"
)

// Pinger is a backend that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	engine *chatsync.Engine
	db     Pinger
	rt     Pinger
	log    zerolog.Logger
}

// NewHandler creates a new Handler around the sync engine.
func NewHandler(engine *chatsync.Engine, db, rt Pinger, log zerolog.Logger) *Handler {
	return &Handler{engine: engine, db: db, rt: rt, log: log}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
