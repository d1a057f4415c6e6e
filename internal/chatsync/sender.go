package chatsync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/metrics"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/store"
)

// SendCoordinator wraps the send operation with an optimistic insert. The
// provisional entry uses a client-generated ULID as both its id and its
// correlation id; the server echoes the correlation id on the confirmed
// record so the merge collapses both into one entry, even for two rapid
// identical-content sends.
type SendCoordinator struct {
	backend  store.MessageBackend
	messages *MessageStore
	userID   uuid.UUID
	log      zerolog.Logger
}

// NewSendCoordinator creates a coordinator for one user.
func NewSendCoordinator(backend store.MessageBackend, messages *MessageStore, userID uuid.UUID, log zerolog.Logger) *SendCoordinator {
	return &SendCoordinator{
		backend:  backend,
		messages: messages,
		userID:   userID,
		log:      log,
	}
}

// Send inserts a provisional message, invokes the send operation, and
// merges the confirmed record on success. On failure the provisional
// entry is marked failed and kept so the user can retry without losing
// composed content.
func (c *SendCoordinator) Send(ctx context.Context, sessionID uuid.UUID, content *string, media []models.MediaRef, resources []models.ResourceRef) (models.ChatMessage, error) {
	clientID := ulid.Make().String()
	now := time.Now()

	provisional := models.ChatMessage{
		ID:        clientID,
		ClientID:  clientID,
		SessionID: sessionID,
		SenderID:  c.userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		Delivery:  models.DeliveryOptimistic,
		Media:     media,
		Resources: resources,
	}
	c.messages.InsertOptimistic(provisional)
	metrics.MessagesMerged.WithLabelValues("optimistic").Inc()

	sendStart := time.Now()
	confirmed, err := c.backend.SendMessage(ctx, store.SendRequest{
		SessionID: sessionID,
		SenderID:  c.userID,
		ClientID:  clientID,
		Content:   content,
		Media:     media,
		Resources: resources,
	})
	metrics.BackendLatency.WithLabelValues("send").Observe(time.Since(sendStart).Seconds())
	if err != nil {
		c.messages.MarkFailed(clientID)
		metrics.SendsFailed.Inc()
		c.log.Error().Err(err).Str("client_id", clientID).Msg("send failed")
		provisional.Delivery = models.DeliveryFailed
		return provisional, err
	}

	c.messages.Merge([]models.ChatMessage{*confirmed})
	metrics.MessagesMerged.WithLabelValues("confirmed").Inc()
	return *confirmed, nil
}
