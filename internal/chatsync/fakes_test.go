package chatsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/store"
)

// fakeBackend implements store.MessageBackend in memory.
type fakeBackend struct {
	mu       sync.Mutex
	seq      int
	sendErr  error
	markErr  error
	fetchErr error

	sent     []store.SendRequest
	marked   []uuid.UUID
	recent   []models.ChatMessage
	messages map[string]models.ChatMessage
	media    map[string][]models.MediaRef
	links    map[string][]models.ResourceRef
	batches  [][]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		messages: map[string]models.ChatMessage{},
		media:    map[string][]models.MediaRef{},
		links:    map[string][]models.ResourceRef{},
	}
}

func (b *fakeBackend) SendMessage(ctx context.Context, req store.SendRequest) (*models.ChatMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, req)
	if b.sendErr != nil {
		return nil, b.sendErr
	}
	b.seq++
	msg := models.ChatMessage{
		ID:        fmt.Sprintf("srv-%04d", b.seq),
		ClientID:  req.ClientID,
		SessionID: req.SessionID,
		SenderID:  req.SenderID,
		Content:   req.Content,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Delivery:  models.DeliveryConfirmed,
		Media:     req.Media,
		Resources: req.Resources,
	}
	b.messages[msg.ID] = msg
	return &msg, nil
}

func (b *fakeBackend) EditMessage(ctx context.Context, messageID, content string) (*models.ChatMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg, ok := b.messages[messageID]
	if !ok {
		return nil, store.ErrNotFound
	}
	msg.Content = &content
	msg.IsEdited = true
	msg.UpdatedAt = time.Now()
	b.messages[messageID] = msg
	return &msg, nil
}

func (b *fakeBackend) DeleteMessage(ctx context.Context, messageID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.messages, messageID)
	return nil
}

func (b *fakeBackend) FetchRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.ChatMessage(nil), b.recent...), nil
}

func (b *fakeBackend) FetchMessagesBatch(ctx context.Context, ids []string) ([]models.ChatMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	b.batches = append(b.batches, append([]string(nil), ids...))
	var out []models.ChatMessage
	for _, id := range ids {
		if msg, ok := b.messages[id]; ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (b *fakeBackend) FetchMediaForMessages(ctx context.Context, ids []string) (map[string][]models.MediaRef, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := map[string][]models.MediaRef{}
	for _, id := range ids {
		if m, ok := b.media[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (b *fakeBackend) FetchResourceLinks(ctx context.Context, ids []string) (map[string][]models.ResourceRef, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := map[string][]models.ResourceRef{}
	for _, id := range ids {
		if l, ok := b.links[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (b *fakeBackend) MarkSessionRead(ctx context.Context, sessionID, userID uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.markErr != nil {
		return b.markErr
	}
	b.marked = append(b.marked, sessionID)
	return nil
}

func (b *fakeBackend) batchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

// fakeSessions implements store.SessionBackend.
type fakeSessions struct {
	mu       sync.Mutex
	sessions []models.ChatSession
	calls    int
	err      error
}

func (f *fakeSessions) FetchSessionsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.ChatSession(nil), f.sessions...), nil
}

func (f *fakeSessions) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeResources implements store.ResourceBackend over maps.
type fakeResources struct {
	notes      map[uuid.UUID]*models.ResourceRecord
	documents  map[uuid.UUID]*models.ResourceRecord
	recordings map[uuid.UUID]*models.ResourceRecord
	posts      map[uuid.UUID]*models.ResourceRecord
}

func newFakeResources() *fakeResources {
	return &fakeResources{
		notes:      map[uuid.UUID]*models.ResourceRecord{},
		documents:  map[uuid.UUID]*models.ResourceRecord{},
		recordings: map[uuid.UUID]*models.ResourceRecord{},
		posts:      map[uuid.UUID]*models.ResourceRecord{},
	}
}

func resolve(m map[uuid.UUID]*models.ResourceRecord, id uuid.UUID) (*models.ResourceRecord, error) {
	if rec, ok := m[id]; ok {
		return rec, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeResources) ResolveNote(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	return resolve(f.notes, id)
}

func (f *fakeResources) ResolveDocument(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	return resolve(f.documents, id)
}

func (f *fakeResources) ResolveRecording(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	return resolve(f.recordings, id)
}

func (f *fakeResources) ResolvePost(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	return resolve(f.posts, id)
}

// fakeSigner records requested TTLs.
type fakeSigner struct {
	mu   sync.Mutex
	ttls map[string]time.Duration
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{ttls: map[string]time.Duration{}}
}

func (s *fakeSigner) CreateSignedURL(bucket, path string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls[bucket+"/"+path] = ttl
	return fmt.Sprintf("https://cdn.test/sign/%s/%s", bucket, path), nil
}

// fakeSub tracks unsubscribe calls.
type fakeSub struct {
	mu     sync.Mutex
	closed bool
}

func (s *fakeSub) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeTransport hands out fake subscriptions and exposes the handlers so
// tests can drive realtime events.
type fakeTransport struct {
	mu           sync.Mutex
	subscribeErr error
	msgSubs      []*fakeMsgSub
	sessSubs     []*fakeSessSub
}

type fakeMsgSub struct {
	fakeSub
	sessionID uuid.UUID
	handlers  store.MessageHandlers
}

type fakeSessSub struct {
	fakeSub
	userID   uuid.UUID
	handlers store.SessionHandlers
}

func (t *fakeTransport) SubscribeMessages(ctx context.Context, sessionID uuid.UUID, h store.MessageHandlers) (store.Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subscribeErr != nil {
		return nil, t.subscribeErr
	}
	sub := &fakeMsgSub{sessionID: sessionID, handlers: h}
	t.msgSubs = append(t.msgSubs, sub)
	return sub, nil
}

func (t *fakeTransport) SubscribeSessions(ctx context.Context, userID uuid.UUID, h store.SessionHandlers) (store.Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := &fakeSessSub{userID: userID, handlers: h}
	t.sessSubs = append(t.sessSubs, sub)
	return sub, nil
}

// liveMessageSubs counts message subscriptions not yet unsubscribed.
func (t *fakeTransport) liveMessageSubs() []*fakeMsgSub {
	t.mu.Lock()
	defer t.mu.Unlock()
	var live []*fakeMsgSub
	for _, sub := range t.msgSubs {
		if !sub.isClosed() {
			live = append(live, sub)
		}
	}
	return live
}

// liveSessionSubs counts session subscriptions not yet unsubscribed.
func (t *fakeTransport) liveSessionSubs() []*fakeSessSub {
	t.mu.Lock()
	defer t.mu.Unlock()
	var live []*fakeSessSub
	for _, sub := range t.sessSubs {
		if !sub.isClosed() {
			live = append(live, sub)
		}
	}
	return live
}
