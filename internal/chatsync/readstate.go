package chatsync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// markTimeout bounds the background read-marking round-trip.
const markTimeout = 10 * time.Second

// readMarker is the single backend operation the tracker needs.
type readMarker interface {
	MarkSessionRead(ctx context.Context, sessionID, userID uuid.UUID) error
}

// ReadTracker is the single source of truth for read-state. The directory
// and the message store are downstream observers; neither mutates
// read-state on its own.
type ReadTracker struct {
	marker    readMarker
	userID    uuid.UUID
	directory *Directory
	messages  *MessageStore
	log       zerolog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
	done    chan uuid.UUID // signals round-trip completion; nil outside tests
}

// NewReadTracker creates a tracker updating the given observers.
func NewReadTracker(marker readMarker, userID uuid.UUID, directory *Directory, messages *MessageStore, log zerolog.Logger) *ReadTracker {
	return &ReadTracker{
		marker:    marker,
		userID:    userID,
		directory: directory,
		messages:  messages,
		log:       log,
		pending:   map[uuid.UUID]struct{}{},
	}
}

// MarkRead zeroes the session's unread counter immediately and issues one
// read-marking operation in the background. A failed round-trip is never
// rolled back; the session is recorded for opportunistic retry instead.
func (t *ReadTracker) MarkRead(sessionID uuid.UUID) {
	if sessionID == uuid.Nil {
		return
	}

	// Optimistic local zeroing, independent of the round-trip outcome.
	t.directory.ZeroUnread(sessionID)
	if t.messages.SessionID() == sessionID {
		t.messages.MarkAllRead()
	}

	go t.mark(sessionID)
}

func (t *ReadTracker) mark(sessionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), markTimeout)
	defer cancel()

	err := t.marker.MarkSessionRead(ctx, sessionID, t.userID)

	t.mu.Lock()
	if err != nil {
		t.pending[sessionID] = struct{}{}
	} else {
		delete(t.pending, sessionID)
	}
	done := t.done
	t.mu.Unlock()

	if err != nil {
		t.log.Warn().
			Err(err).
			Str("session_id", sessionID.String()).
			Msg("mark-read failed; will retry opportunistically")
	}
	if done != nil {
		done <- sessionID
	}
}

// RetryPending re-issues read marks that previously failed.
func (t *ReadTracker) RetryPending() {
	t.mu.Lock()
	ids := make([]uuid.UUID, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	for _, id := range ids {
		go t.mark(id)
	}
}

// Pending returns the sessions whose read marks still need to reach the
// backend.
func (t *ReadTracker) Pending() []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	return ids
}
