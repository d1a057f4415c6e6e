package chatsync

import (
	"sync"
	"time"
)

// Batcher coalesces bursts of realtime message-id notifications into one
// batched fetch-and-enrich cycle. Each Notify (re)starts the debounce
// timer; when it fires, all pending ids drain into a single flush. The
// pending set and timer belong exclusively to the active session's
// batcher; Close discards both.
type Batcher struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]struct{}
	timer   *time.Timer
	closed  bool
	flush   func(ids []string)
}

// NewBatcher creates a batcher that calls flush with the drained ids
// after the debounce window elapses without further notifications.
func NewBatcher(window time.Duration, flush func(ids []string)) *Batcher {
	return &Batcher{
		window:  window,
		pending: map[string]struct{}{},
		flush:   flush,
	}
}

// Notify queues a message id and restarts the debounce timer.
func (b *Batcher) Notify(messageID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.pending[messageID] = struct{}{}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.window, b.fire)
}

func (b *Batcher) fire() {
	b.mu.Lock()
	if b.closed || len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	ids := make([]string, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	b.pending = map[string]struct{}{}
	b.timer = nil
	b.mu.Unlock()

	b.flush(ids)
}

// Close cancels the pending timer and discards queued ids. A timer that
// already fired flushes into a closed batcher and is dropped silently.
func (b *Batcher) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.pending = nil
}

// Closed reports whether the batcher has been torn down.
func (b *Batcher) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
