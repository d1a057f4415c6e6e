// Package chatsync keeps a user's chat sessions and the active session's
// message timeline consistent across optimistic local inserts, confirmed
// send results, and realtime row-level change events.
package chatsync

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
)

// MessageStore is the per-session ordered, deduplicated message cache.
// The timeline is always sorted by CreatedAt, ties broken by ID. All
// operations are idempotent; unknown ids are no-ops.
type MessageStore struct {
	mu        sync.Mutex
	sessionID uuid.UUID
	messages  []models.ChatMessage
	// tombstones absorbs delete-before-insert races between realtime events:
	// a deleted id never re-enters the timeline.
	tombstones map[string]struct{}
}

// NewMessageStore creates an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{tombstones: map[string]struct{}{}}
}

// Reset clears the timeline for a newly activated session.
func (s *MessageStore) Reset(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	s.messages = nil
	s.tombstones = map[string]struct{}{}
}

// SessionID returns the session the store currently caches.
func (s *MessageStore) SessionID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Merge folds confirmed messages into the timeline. An id already present
// is updated in place; a message carrying the correlation id of a pending
// optimistic entry replaces that entry; anything else is inserted at its
// ordering position. Merging the same message twice is a no-op.
func (s *MessageStore) Merge(msgs []models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range msgs {
		if _, dead := s.tombstones[msg.ID]; dead {
			continue
		}
		if msg.Delivery == "" {
			msg.Delivery = models.DeliveryConfirmed
		}

		if i := s.indexOf(msg.ID); i >= 0 {
			s.replaceAt(i, msg)
			continue
		}
		// Reconcile against the optimistic copy, which carries the
		// correlation id as its provisional ID.
		if msg.ClientID != "" && msg.ClientID != msg.ID {
			if i := s.indexOf(msg.ClientID); i >= 0 && s.messages[i].Delivery != models.DeliveryConfirmed {
				s.removeAt(i)
				s.insertSorted(msg)
				continue
			}
		}
		s.insertSorted(msg)
	}
}

// InsertOptimistic appends a provisional message immediately, before the
// send round-trip completes.
func (s *MessageStore) InsertOptimistic(msg models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(msg.ID) >= 0 {
		return
	}
	msg.Delivery = models.DeliveryOptimistic
	s.insertSorted(msg)
}

// ApplyUpdate replaces an existing message after an edit event. Unknown
// and tombstoned ids are ignored.
func (s *MessageStore) ApplyUpdate(msg models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dead := s.tombstones[msg.ID]; dead {
		return
	}
	i := s.indexOf(msg.ID)
	if i < 0 {
		return
	}
	if msg.Delivery == "" {
		msg.Delivery = models.DeliveryConfirmed
	}
	s.replaceAt(i, msg)
}

// ApplyDelete removes a message by id. Deleting an id that never arrived
// locally records a tombstone so a late insert stays suppressed.
func (s *MessageStore) ApplyDelete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tombstones[id] = struct{}{}
	if i := s.indexOf(id); i >= 0 {
		s.removeAt(i)
	}
}

// MarkFailed flags a pending optimistic entry as failed, keeping the
// composed content visible for a retry.
func (s *MessageStore) MarkFailed(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(clientID); i >= 0 && s.messages[i].Delivery == models.DeliveryOptimistic {
		s.messages[i].Delivery = models.DeliveryFailed
	}
}

// MarkAllRead flags every cached message as read.
func (s *MessageStore) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		s.messages[i].IsRead = true
	}
}

// Snapshot returns a copy of the ordered timeline.
func (s *MessageStore) Snapshot() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of cached messages.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *MessageStore) indexOf(id string) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *MessageStore) insertSorted(msg models.ChatMessage) {
	pos := sort.Search(len(s.messages), func(i int) bool {
		return msg.Before(&s.messages[i])
	})
	s.messages = append(s.messages, models.ChatMessage{})
	copy(s.messages[pos+1:], s.messages[pos:])
	s.messages[pos] = msg
}

// replaceAt swaps a message in place, repositioning it if the update
// changed its ordering key.
func (s *MessageStore) replaceAt(i int, msg models.ChatMessage) {
	if s.messages[i].CreatedAt.Equal(msg.CreatedAt) && s.messages[i].ID == msg.ID {
		s.messages[i] = msg
		return
	}
	s.removeAt(i)
	s.insertSorted(msg)
}

func (s *MessageStore) removeAt(i int) {
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
}
