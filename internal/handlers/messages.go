package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/chatsync"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/store"
)

// MessageListResponse represents the active session's timeline.
type MessageListResponse struct {
	SessionID string               `json:"session_id"`
	Messages  []models.ChatMessage `json:"messages"`
}

// SendMessageRequest is the request body for sending a message.
type SendMessageRequest struct {
	Content   *string              `json:"content"`
	Media     []models.MediaRef    `json:"media,omitempty"`
	Resources []models.ResourceRef `json:"resources,omitempty"`
}

// EditMessageRequest is the request body for editing a message.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// GetMessages returns the active session's ordered timeline.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	active := h.engine.ActiveSession()
	if active == uuid.Nil {
		h.Error(w, http.StatusConflict, "no active session")
		return
	}
	h.JSON(w, http.StatusOK, MessageListResponse{
		SessionID: active.String(),
		Messages:  h.engine.Messages(),
	})
}

// SendMessage sends a message to the active session.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if emptyContent(req.Content) && len(req.Media) == 0 && len(req.Resources) == 0 {
		h.Error(w, http.StatusBadRequest, "message needs content, media, or resources")
		return
	}

	msg, err := h.engine.Send(r.Context(), req.Content, req.Media, req.Resources)
	if err != nil {
		if errors.Is(err, chatsync.ErrNoActiveSession) {
			h.Error(w, http.StatusConflict, "no active session")
			return
		}
		// The provisional entry stays in the timeline marked failed so the
		// client can offer a retry.
		h.log.Error().Err(err).Msg("send failed")
		h.JSON(w, http.StatusBadGateway, map[string]any{
			"error":   "send failed",
			"message": msg,
		})
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// EditMessage replaces a message's content.
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "id")

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		h.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	msg, err := h.engine.Edit(r.Context(), messageID, req.Content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusNotFound, "message not found")
			return
		}
		h.log.Error().Err(err).Str("message_id", messageID).Msg("edit failed")
		h.Error(w, http.StatusBadGateway, "edit failed")
		return
	}

	h.JSON(w, http.StatusOK, msg)
}

// DeleteMessage removes a message.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "id")

	if err := h.engine.Delete(r.Context(), messageID); err != nil {
		h.log.Error().Err(err).Str("message_id", messageID).Msg("delete failed")
		h.Error(w, http.StatusBadGateway, "delete failed")
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func emptyContent(content *string) bool {
	return content == nil || strings.TrimSpace(*content) == ""
}
