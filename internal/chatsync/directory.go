package chatsync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/metrics"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/store"
)

// refreshTimeout bounds a background directory refresh.
const refreshTimeout = 10 * time.Second

// Directory maintains the list of chat sessions for the current user with
// unread counts and last-message previews. Session-table change events
// trigger a debounced full re-fetch rather than incremental merging;
// refresh is idempotent and cheap to repeat.
type Directory struct {
	backend store.SessionBackend
	userID  uuid.UUID
	window  time.Duration
	log     zerolog.Logger

	mu       sync.Mutex
	sessions []models.ChatSession
	timer    *time.Timer
	closed   bool
}

// NewDirectory creates a directory for one user.
func NewDirectory(backend store.SessionBackend, userID uuid.UUID, window time.Duration, log zerolog.Logger) *Directory {
	return &Directory{
		backend: backend,
		userID:  userID,
		window:  window,
		log:     log,
	}
}

// Refresh re-fetches the full session list and replaces local state.
func (d *Directory) Refresh(ctx context.Context) error {
	start := time.Now()
	sessions, err := d.backend.FetchSessionsForUser(ctx, d.userID)
	metrics.BackendLatency.WithLabelValues("fetch_sessions").Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.sessions = sessions
	d.mu.Unlock()

	metrics.DirectoryRefreshes.Inc()
	return nil
}

// NotifyChanged schedules a debounced background refresh in response to a
// session-table change event.
func (d *Directory) NotifyChanged() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.backgroundRefresh)
}

func (d *Directory) backgroundRefresh() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := d.Refresh(ctx); err != nil {
		d.log.Warn().Err(err).Msg("session directory refresh failed")
	}
}

// Sessions returns a copy of the current session list.
func (d *Directory) Sessions() []models.ChatSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.ChatSession, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// ZeroUnread optimistically clears the unread counter of one session.
// Called by the read tracker; the next Refresh restores the true count.
func (d *Directory) ZeroUnread(sessionID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.sessions {
		if d.sessions[i].ID == sessionID {
			d.sessions[i].UnreadCount = 0
			return
		}
	}
}

// Close cancels any pending debounced refresh.
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
