package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
)

// SessionListResponse represents the session list response.
type SessionListResponse struct {
	Sessions []models.ChatSession `json:"sessions"`
	Active   string               `json:"active,omitempty"`
}

// ListSessions returns the user's session directory.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	active := ""
	if id := h.engine.ActiveSession(); id != uuid.Nil {
		active = id.String()
	}
	h.JSON(w, http.StatusOK, SessionListResponse{
		Sessions: h.engine.Sessions(),
		Active:   active,
	})
}

// RefreshSessions forces an immediate directory refresh.
func (h *Handler) RefreshSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RefreshSessions(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("session refresh failed")
		h.Error(w, http.StatusBadGateway, "session refresh failed")
		return
	}
	h.ListSessions(w, r)
}

// ActivateSession switches the engine to a session and returns its timeline.
func (h *Handler) ActivateSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := h.engine.SetActiveSession(r.Context(), sessionID); err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("session activation failed")
		h.Error(w, http.StatusBadGateway, "session activation failed")
		return
	}

	h.JSON(w, http.StatusOK, MessageListResponse{
		SessionID: sessionID.String(),
		Messages:  h.engine.Messages(),
	})
}

// MarkSessionRead marks a session read. The local unread counter zeroes
// immediately; the backend round-trip completes in the background.
func (h *Handler) MarkSessionRead(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	h.engine.MarkReadSession(sessionID)
	h.JSON(w, http.StatusAccepted, map[string]string{"status": "marked"})
}
