package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryState tracks a message through the optimistic-send lifecycle.
type DeliveryState string

const (
	// DeliveryOptimistic marks a locally inserted message awaiting server confirmation.
	DeliveryOptimistic DeliveryState = "optimistic"
	// DeliveryConfirmed marks a message the server has acknowledged or pushed.
	DeliveryConfirmed DeliveryState = "confirmed"
	// DeliveryFailed marks an optimistic message whose send failed; kept for retry.
	DeliveryFailed DeliveryState = "failed"
)

// ChatMessage represents one entry in a session's timeline.
// Identity is ID; ClientID carries the sender's correlation id so the
// optimistic copy and the server-confirmed copy collapse into one entry.
type ChatMessage struct {
	ID         string        `json:"id"` // ULID
	ClientID   string        `json:"client_id,omitempty"`
	SessionID  uuid.UUID     `json:"session_id"`
	SenderID   uuid.UUID     `json:"sender_id"`
	SenderName string        `json:"sender_name,omitempty"`
	Content    *string       `json:"content"` // nil when only media/resources attached
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	IsEdited   bool          `json:"is_edited"`
	IsRead     bool          `json:"is_read"`
	Delivery   DeliveryState `json:"delivery"`

	Media     []MediaRef    `json:"media,omitempty"`
	Resources []ResourceRef `json:"resources,omitempty"`

	// Enriched holds hydrated previews for Resources. Recomputed on each
	// batch ingest, never persisted.
	Enriched []EnrichedResource `json:"enriched,omitempty"`
}

// Before reports whether m sorts ahead of other in a session timeline:
// non-decreasing CreatedAt, ties broken by ID.
func (m *ChatMessage) Before(other *ChatMessage) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}
