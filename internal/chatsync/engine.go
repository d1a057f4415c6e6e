package chatsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/metrics"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/store"
)

var (
	ErrEngineClosed    = errors.New("engine closed")
	ErrNoActiveSession = errors.New("no active session")
)

const (
	historyLimit = 50
	flushTimeout = 15 * time.Second

	resubscribeBase = 500 * time.Millisecond
	resubscribeCap  = 30 * time.Second
)

// Options configures an Engine.
type Options struct {
	Backend   store.MessageBackend
	Sessions  store.SessionBackend
	Resources store.ResourceBackend
	Signer    store.URLSigner
	Transport store.Transport
	// Publisher broadcasts local mutations to other subscribers. Optional.
	Publisher store.Publisher
	UserID    uuid.UUID

	IngestDebounce    time.Duration
	DirectoryDebounce time.Duration
	Logger            zerolog.Logger
}

// Engine owns the chat synchronization state for one user: the session
// directory, the active session's message timeline, its realtime
// subscription, and the ingest batcher. At most one message subscription
// is live at any time; SetActiveSession tears the previous one down
// before establishing the next.
type Engine struct {
	backend   store.MessageBackend
	transport store.Transport
	publisher store.Publisher
	userID    uuid.UUID
	window    time.Duration
	log       zerolog.Logger

	directory *Directory
	reader    *ReadTracker
	messages  *MessageStore
	sender    *SendCoordinator
	enricher  *Enricher

	mu      sync.Mutex
	active  uuid.UUID
	gen     uint64 // bumped on every session switch; stale async work checks it
	msgSub  store.Subscription
	sessSub store.Subscription
	batcher *Batcher
	closed  bool
}

// NewEngine wires the engine's components.
func NewEngine(opts Options) *Engine {
	messages := NewMessageStore()
	directory := NewDirectory(opts.Sessions, opts.UserID, opts.DirectoryDebounce, opts.Logger)

	e := &Engine{
		backend:   opts.Backend,
		transport: opts.Transport,
		publisher: opts.Publisher,
		userID:    opts.UserID,
		window:    opts.IngestDebounce,
		log:       opts.Logger,
		directory: directory,
		messages:  messages,
		enricher:  NewEnricher(opts.Resources, opts.Signer, opts.Logger),
	}
	e.sender = NewSendCoordinator(opts.Backend, messages, opts.UserID, opts.Logger)
	e.reader = NewReadTracker(opts.Backend, opts.UserID, directory, messages, opts.Logger)
	return e
}

// Start loads the session directory and subscribes to session-table
// change events for the user.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.directory.Refresh(ctx); err != nil {
		return err
	}

	sub, err := e.transport.SubscribeSessions(ctx, e.userID, e.sessionHandlers())
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		sub.Unsubscribe()
		return ErrEngineClosed
	}
	e.sessSub = sub
	return nil
}

func (e *Engine) sessionHandlers() store.SessionHandlers {
	return store.SessionHandlers{
		OnChange: e.directory.NotifyChanged,
		OnDrop:   func(err error) { go e.resubscribeSessions() },
	}
}

// SetActiveSession switches the engine to a new session: the previous
// subscription and batcher are torn down first, then the new subscription
// is established and the recent timeline loaded.
func (e *Engine) SetActiveSession(ctx context.Context, sessionID uuid.UUID) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.teardownActiveLocked()
	e.gen++
	gen := e.gen
	e.active = sessionID
	e.messages.Reset(sessionID)

	batcher := NewBatcher(e.window, func(ids []string) { e.flushBatch(gen, ids) })
	e.batcher = batcher
	e.mu.Unlock()

	sub, err := e.transport.SubscribeMessages(ctx, sessionID, store.MessageHandlers{
		OnInsert: batcher.Notify,
		OnUpdate: func(msg models.ChatMessage) { e.applyUpdate(gen, msg) },
		OnDelete: func(id string) { e.applyDelete(gen, id) },
		OnDrop:   func(err error) { go e.resubscribe(gen, sessionID) },
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed || e.gen != gen {
		// Lost a race with another switch or Close; this handle must not
		// outlive its turn.
		e.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	e.msgSub = sub
	e.mu.Unlock()

	// Initial history load. The subscription is already live, so anything
	// arriving concurrently dedups through Merge.
	history, err := e.backend.FetchRecentMessages(ctx, sessionID, historyLimit)
	if err != nil {
		return err
	}
	e.mergeIfCurrent(gen, history, "realtime")
	return nil
}

// teardownActiveLocked releases the active session's subscription and
// batcher. Caller holds e.mu.
func (e *Engine) teardownActiveLocked() {
	if e.msgSub != nil {
		e.msgSub.Unsubscribe()
		e.msgSub = nil
	}
	if e.batcher != nil {
		e.batcher.Close()
		e.batcher = nil
	}
	e.active = uuid.Nil
}

// Close tears down all subscriptions and timers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.gen++
	e.teardownActiveLocked()
	if e.sessSub != nil {
		e.sessSub.Unsubscribe()
		e.sessSub = nil
	}
	e.directory.Close()
}

// current reports whether work tagged with gen may still touch state.
func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && e.gen == gen
}

func (e *Engine) applyUpdate(gen uint64, msg models.ChatMessage) {
	if !e.current(gen) {
		return
	}
	e.messages.ApplyUpdate(msg)
}

func (e *Engine) applyDelete(gen uint64, id string) {
	if !e.current(gen) {
		return
	}
	e.messages.ApplyDelete(id)
}

func (e *Engine) mergeIfCurrent(gen uint64, msgs []models.ChatMessage, source string) {
	if len(msgs) == 0 || !e.current(gen) {
		return
	}
	e.messages.Merge(msgs)
	metrics.MessagesMerged.WithLabelValues(source).Add(float64(len(msgs)))
}

// flushBatch runs one batched fetch-and-enrich cycle for the drained ids.
// If the session changed while the fetch was in flight, the result is
// discarded silently.
func (e *Engine) flushBatch(gen uint64, ids []string) {
	if !e.current(gen) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	fetchStart := time.Now()
	msgs, err := e.backend.FetchMessagesBatch(ctx, ids)
	metrics.BackendLatency.WithLabelValues("fetch_batch").Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		e.log.Warn().Err(err).Int("batch", len(ids)).Msg("batch fetch failed")
		return
	}
	media, err := e.backend.FetchMediaForMessages(ctx, ids)
	if err != nil {
		e.log.Warn().Err(err).Msg("media fetch failed")
		media = map[string][]models.MediaRef{}
	}
	links, err := e.backend.FetchResourceLinks(ctx, ids)
	if err != nil {
		e.log.Warn().Err(err).Msg("resource-link fetch failed")
		links = map[string][]models.ResourceRef{}
	}

	for i := range msgs {
		msgs[i].Media = media[msgs[i].ID]
		msgs[i].Resources = links[msgs[i].ID]
		msgs[i].Enriched = e.enricher.EnrichAll(ctx, msgs[i].Resources)
	}

	if !e.current(gen) {
		metrics.BatchesDiscarded.Inc()
		return
	}
	e.mergeIfCurrent(gen, msgs, "realtime")
	metrics.BatchesFlushed.Inc()
	metrics.BatchSize.Observe(float64(len(ids)))
}

// resubscribe re-establishes a dropped message subscription with capped
// exponential backoff, as long as the session is still active.
func (e *Engine) resubscribe(gen uint64, sessionID uuid.UUID) {
	metrics.SubscriptionDrops.Inc()
	delay := resubscribeBase

	for e.current(gen) {
		time.Sleep(delay)
		if !e.current(gen) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		sub, err := e.transport.SubscribeMessages(ctx, sessionID, store.MessageHandlers{
			OnInsert: func(id string) { e.notifyBatcher(gen, id) },
			OnUpdate: func(msg models.ChatMessage) { e.applyUpdate(gen, msg) },
			OnDelete: func(id string) { e.applyDelete(gen, id) },
			OnDrop:   func(err error) { go e.resubscribe(gen, sessionID) },
		})
		cancel()
		if err != nil {
			e.log.Warn().Err(err).Dur("backoff", delay).Msg("resubscribe failed")
			delay *= 2
			if delay > resubscribeCap {
				delay = resubscribeCap
			}
			continue
		}

		e.mu.Lock()
		if e.closed || e.gen != gen {
			e.mu.Unlock()
			sub.Unsubscribe()
			return
		}
		e.msgSub = sub
		e.mu.Unlock()
		metrics.Resubscribes.Inc()
		return
	}
}

// resubscribeSessions re-establishes a dropped session-table subscription
// with the same capped backoff as the message path. The directory is
// nudged after reconnecting because change events may have been missed
// while disconnected.
func (e *Engine) resubscribeSessions() {
	metrics.SubscriptionDrops.Inc()
	delay := resubscribeBase

	for {
		e.mu.Lock()
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return
		}
		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		sub, err := e.transport.SubscribeSessions(ctx, e.userID, e.sessionHandlers())
		cancel()
		if err != nil {
			e.log.Warn().Err(err).Dur("backoff", delay).Msg("session resubscribe failed")
			delay *= 2
			if delay > resubscribeCap {
				delay = resubscribeCap
			}
			continue
		}

		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			sub.Unsubscribe()
			return
		}
		e.sessSub = sub
		e.mu.Unlock()
		metrics.Resubscribes.Inc()
		e.directory.NotifyChanged()
		return
	}
}

func (e *Engine) notifyBatcher(gen uint64, id string) {
	e.mu.Lock()
	b := e.batcher
	ok := !e.closed && e.gen == gen && b != nil
	e.mu.Unlock()
	if ok {
		b.Notify(id)
	}
}

// Send sends a message to the active session.
func (e *Engine) Send(ctx context.Context, content *string, media []models.MediaRef, resources []models.ResourceRef) (models.ChatMessage, error) {
	e.mu.Lock()
	sessionID := e.active
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return models.ChatMessage{}, ErrEngineClosed
	}
	if sessionID == uuid.Nil {
		return models.ChatMessage{}, ErrNoActiveSession
	}

	msg, err := e.sender.Send(ctx, sessionID, content, media, resources)
	if err != nil {
		return msg, err
	}

	if e.publisher != nil {
		if perr := e.publisher.PublishInsert(ctx, sessionID, msg.ID); perr != nil {
			e.log.Warn().Err(perr).Msg("insert broadcast failed")
		}
	}
	e.directory.NotifyChanged()
	return msg, nil
}

// Edit replaces a message's content and broadcasts the update.
func (e *Engine) Edit(ctx context.Context, messageID, content string) (models.ChatMessage, error) {
	msg, err := e.backend.EditMessage(ctx, messageID, content)
	if err != nil {
		return models.ChatMessage{}, err
	}
	e.messages.ApplyUpdate(*msg)

	if e.publisher != nil {
		if perr := e.publisher.PublishUpdate(ctx, msg.SessionID, *msg); perr != nil {
			e.log.Warn().Err(perr).Msg("update broadcast failed")
		}
	}
	return *msg, nil
}

// Delete removes a message and broadcasts the deletion.
func (e *Engine) Delete(ctx context.Context, messageID string) error {
	e.mu.Lock()
	sessionID := e.active
	e.mu.Unlock()

	if err := e.backend.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	e.messages.ApplyDelete(messageID)

	if e.publisher != nil && sessionID != uuid.Nil {
		if perr := e.publisher.PublishDelete(ctx, sessionID, messageID); perr != nil {
			e.log.Warn().Err(perr).Msg("delete broadcast failed")
		}
	}
	return nil
}

// MarkRead marks the active session read.
func (e *Engine) MarkRead() {
	e.mu.Lock()
	sessionID := e.active
	e.mu.Unlock()
	e.MarkReadSession(sessionID)
}

// MarkReadSession marks an arbitrary session read and opportunistically
// retries earlier failed marks.
func (e *Engine) MarkReadSession(sessionID uuid.UUID) {
	if sessionID == uuid.Nil {
		return
	}
	e.reader.MarkRead(sessionID)
	e.reader.RetryPending()
}

// Messages returns the active session's ordered timeline.
func (e *Engine) Messages() []models.ChatMessage {
	return e.messages.Snapshot()
}

// Sessions returns the user's session list.
func (e *Engine) Sessions() []models.ChatSession {
	return e.directory.Sessions()
}

// ActiveSession returns the currently active session id, or uuid.Nil.
func (e *Engine) ActiveSession() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// RefreshSessions forces an immediate directory refresh.
func (e *Engine) RefreshSessions(ctx context.Context) error {
	return e.directory.Refresh(ctx)
}
