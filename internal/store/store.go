package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
)

// ErrNotFound is returned by lookups whose referent does not exist or is
// not visible to the current user.
var ErrNotFound = errors.New("not found or access denied")

// SendRequest carries everything needed to persist a new message.
// ClientID is the sender-generated correlation id echoed back on the
// confirmed record so the optimistic copy can be reconciled.
type SendRequest struct {
	SessionID uuid.UUID
	SenderID  uuid.UUID
	ClientID  string
	Content   *string
	Media     []models.MediaRef
	Resources []models.ResourceRef
}

// MessageBackend persists and fetches messages. Both ChatStore (Postgres)
// and SQLiteStore implement this interface.
type MessageBackend interface {
	SendMessage(ctx context.Context, req SendRequest) (*models.ChatMessage, error)
	EditMessage(ctx context.Context, messageID string, content string) (*models.ChatMessage, error)
	DeleteMessage(ctx context.Context, messageID string) error

	// FetchRecentMessages loads the newest messages of a session for the
	// initial timeline, oldest first.
	FetchRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error)
	// FetchMessagesBatch loads full message rows (with sender info) for a
	// batch of ids in one call.
	FetchMessagesBatch(ctx context.Context, ids []string) ([]models.ChatMessage, error)
	FetchMediaForMessages(ctx context.Context, ids []string) (map[string][]models.MediaRef, error)
	FetchResourceLinks(ctx context.Context, ids []string) (map[string][]models.ResourceRef, error)

	MarkSessionRead(ctx context.Context, sessionID, userID uuid.UUID) error
}

// SessionBackend lists the sessions visible to a user: direct sessions
// matching the user on either side plus the user's group sessions.
type SessionBackend interface {
	FetchSessionsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error)
}

// ResourceBackend resolves resource referents by type. A missing or
// inaccessible referent yields ErrNotFound, never a nil record.
type ResourceBackend interface {
	ResolveNote(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error)
	ResolveDocument(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error)
	ResolveRecording(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error)
	ResolvePost(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error)
}

// URLSigner issues time-limited authorized links to private storage objects.
type URLSigner interface {
	CreateSignedURL(bucket, path string, ttl time.Duration) (string, error)
}

// MessageHandlers receives row-level change events for one session.
// Inserts carry only the new row's id; the engine batch-fetches the rows.
type MessageHandlers struct {
	OnInsert func(messageID string)
	OnUpdate func(msg models.ChatMessage)
	OnDelete func(messageID string)
	// OnDrop fires once when the subscription stops delivering events for
	// any reason other than Unsubscribe.
	OnDrop func(err error)
}

// SessionHandlers receives session-table change notifications for one user.
type SessionHandlers struct {
	OnChange func()
	// OnDrop fires once when the subscription stops delivering events for
	// any reason other than Unsubscribe.
	OnDrop func(err error)
}

// Subscription is an owned handle to a live realtime channel. Unsubscribe
// is idempotent and must be called before the handle is discarded.
type Subscription interface {
	Unsubscribe()
}

// Transport is the push-event channel delivering row-level change events.
type Transport interface {
	SubscribeMessages(ctx context.Context, sessionID uuid.UUID, h MessageHandlers) (Subscription, error)
	// SubscribeSessions delivers a notification whenever the session table
	// changes for the given user.
	SubscribeSessions(ctx context.Context, userID uuid.UUID, h SessionHandlers) (Subscription, error)
}

// Publisher broadcasts row-level change events after a local mutation so
// other parties' subscriptions observe it.
type Publisher interface {
	PublishInsert(ctx context.Context, sessionID uuid.UUID, messageID string) error
	PublishUpdate(ctx context.Context, sessionID uuid.UUID, msg models.ChatMessage) error
	PublishDelete(ctx context.Context, sessionID uuid.UUID, messageID string) error
}
