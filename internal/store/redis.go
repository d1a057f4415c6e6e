package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
)

// ErrSubscriptionClosed is passed to OnDrop when a channel stops delivering
// without an explicit Unsubscribe.
var ErrSubscriptionClosed = errors.New("subscription closed")

const (
	opInsert = "insert"
	opUpdate = "update"
	opDelete = "delete"
)

// messageEvent is the wire format for row-level message change events.
// Inserts carry only the id; updates carry the full row.
type messageEvent struct {
	Op      string              `json:"op"`
	ID      string              `json:"id"`
	Message *models.ChatMessage `json:"message,omitempty"`
}

// RedisTransport delivers row-level change events over Redis pub/sub.
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport creates a new Redis-backed realtime transport.
func NewRedisTransport(ctx context.Context, redisURL string) (*RedisTransport, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisTransport{client: client}, nil
}

// Close closes the Redis connection.
func (t *RedisTransport) Close() error {
	return t.client.Close()
}

// Ping checks the Redis connection.
func (t *RedisTransport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// sessionEventsKey returns the channel for a session's message events.
func sessionEventsKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("chat:session:%s:events", sessionID)
}

// userSessionsKey returns the channel for a user's session-table changes.
func userSessionsKey(userID uuid.UUID) string {
	return fmt.Sprintf("chat:user:%s:sessions", userID)
}

// pubsubSubscription is an owned handle to one live pub/sub channel.
type pubsubSubscription struct {
	ps   *redis.PubSub
	once sync.Once
	done chan struct{}
}

func (s *pubsubSubscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		_ = s.ps.Close()
	})
}

// SubscribeMessages subscribes to row-level change events for one session.
func (t *RedisTransport) SubscribeMessages(ctx context.Context, sessionID uuid.UUID, h MessageHandlers) (Subscription, error) {
	ps := t.client.Subscribe(ctx, sessionEventsKey(sessionID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &pubsubSubscription{ps: ps, done: make(chan struct{})}

	go func() {
		for msg := range ps.Channel() {
			var ev messageEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			switch ev.Op {
			case opInsert:
				if h.OnInsert != nil {
					h.OnInsert(ev.ID)
				}
			case opUpdate:
				if h.OnUpdate != nil && ev.Message != nil {
					h.OnUpdate(*ev.Message)
				}
			case opDelete:
				if h.OnDelete != nil {
					h.OnDelete(ev.ID)
				}
			}
		}
		select {
		case <-sub.done:
			// Deliberate teardown
		default:
			if h.OnDrop != nil {
				h.OnDrop(ErrSubscriptionClosed)
			}
		}
	}()

	return sub, nil
}

// SubscribeSessions subscribes to session-table change notifications for one user.
func (t *RedisTransport) SubscribeSessions(ctx context.Context, userID uuid.UUID, h SessionHandlers) (Subscription, error) {
	ps := t.client.Subscribe(ctx, userSessionsKey(userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &pubsubSubscription{ps: ps, done: make(chan struct{})}

	go func() {
		for range ps.Channel() {
			if h.OnChange != nil {
				h.OnChange()
			}
		}
		select {
		case <-sub.done:
			// Deliberate teardown
		default:
			if h.OnDrop != nil {
				h.OnDrop(ErrSubscriptionClosed)
			}
		}
	}()

	return sub, nil
}

// PublishInsert announces a newly persisted message to session subscribers.
func (t *RedisTransport) PublishInsert(ctx context.Context, sessionID uuid.UUID, messageID string) error {
	return t.publish(ctx, sessionID, messageEvent{Op: opInsert, ID: messageID})
}

// PublishUpdate announces an edited message to session subscribers.
func (t *RedisTransport) PublishUpdate(ctx context.Context, sessionID uuid.UUID, msg models.ChatMessage) error {
	return t.publish(ctx, sessionID, messageEvent{Op: opUpdate, ID: msg.ID, Message: &msg})
}

// PublishDelete announces a deleted message to session subscribers.
func (t *RedisTransport) PublishDelete(ctx context.Context, sessionID uuid.UUID, messageID string) error {
	return t.publish(ctx, sessionID, messageEvent{Op: opDelete, ID: messageID})
}

// PublishSessionChange nudges a user's directory to refresh.
func (t *RedisTransport) PublishSessionChange(ctx context.Context, userID uuid.UUID) error {
	return t.client.Publish(ctx, userSessionsKey(userID), "1").Err()
}

func (t *RedisTransport) publish(ctx context.Context, sessionID uuid.UUID, ev messageEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, sessionEventsKey(sessionID), data).Err()
}

// Interface checks
var (
	_ Transport = (*RedisTransport)(nil)
	_ Publisher = (*RedisTransport)(nil)
)
