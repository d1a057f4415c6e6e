package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionType distinguishes direct (two-user) and group conversations.
type SessionType string

const (
	SessionDirect SessionType = "direct"
	SessionGroup  SessionType = "group"
)

// ChatSession represents a direct or group conversation container.
type ChatSession struct {
	ID           uuid.UUID   `json:"id"`
	Type         SessionType `json:"type"`
	ParticipantA uuid.UUID   `json:"participant_a,omitempty"` // direct sessions only
	ParticipantB uuid.UUID   `json:"participant_b,omitempty"`
	GroupID      *uuid.UUID  `json:"group_id,omitempty"` // group sessions only
	LastMessage  string      `json:"last_message"`
	UnreadCount  int         `json:"unread_count"`
	LastActiveAt time.Time   `json:"last_active_at"`
}

// PeerID returns the other participant of a direct session.
func (s *ChatSession) PeerID(userID uuid.UUID) uuid.UUID {
	if s.ParticipantA == userID {
		return s.ParticipantB
	}
	return s.ParticipantA
}
