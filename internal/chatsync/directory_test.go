package chatsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDirectoryRefreshReplacesState(t *testing.T) {
	backend := &fakeSessions{sessions: []models.ChatSession{
		{ID: uuid.New(), UnreadCount: 3},
	}}
	d := NewDirectory(backend, uuid.New(), 20*time.Millisecond, zerolog.Nop())
	defer d.Close()

	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := d.Sessions(); len(got) != 1 || got[0].UnreadCount != 3 {
		t.Fatalf("sessions = %+v", got)
	}

	backend.mu.Lock()
	backend.sessions = nil
	backend.mu.Unlock()

	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := d.Sessions(); len(got) != 0 {
		t.Fatalf("stale sessions survived refresh: %+v", got)
	}
}

func TestDirectoryRefreshPropagatesError(t *testing.T) {
	backend := &fakeSessions{err: errors.New("backend down")}
	d := NewDirectory(backend, uuid.New(), 20*time.Millisecond, zerolog.Nop())
	defer d.Close()

	if err := d.Refresh(context.Background()); err == nil {
		t.Fatal("expected error from refresh")
	}
}

func TestDirectoryNotifyChangedDebounces(t *testing.T) {
	backend := &fakeSessions{}
	d := NewDirectory(backend, uuid.New(), 30*time.Millisecond, zerolog.Nop())
	defer d.Close()

	// A burst of change events collapses into one re-fetch.
	for i := 0; i < 5; i++ {
		d.NotifyChanged()
	}

	waitFor(t, func() bool { return backend.callCount() == 1 }, "debounced refresh never ran")
	time.Sleep(80 * time.Millisecond)
	if backend.callCount() != 1 {
		t.Fatalf("burst caused %d refreshes, want 1", backend.callCount())
	}
}

func TestDirectoryZeroUnread(t *testing.T) {
	target := uuid.New()
	backend := &fakeSessions{sessions: []models.ChatSession{
		{ID: target, UnreadCount: 7},
		{ID: uuid.New(), UnreadCount: 2},
	}}
	d := NewDirectory(backend, uuid.New(), 20*time.Millisecond, zerolog.Nop())
	defer d.Close()

	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	d.ZeroUnread(target)

	for _, s := range d.Sessions() {
		if s.ID == target && s.UnreadCount != 0 {
			t.Fatalf("target session unread = %d, want 0", s.UnreadCount)
		}
		if s.ID != target && s.UnreadCount != 2 {
			t.Fatalf("other session unread changed to %d", s.UnreadCount)
		}
	}
}

func TestDirectoryCloseCancelsPendingRefresh(t *testing.T) {
	backend := &fakeSessions{}
	d := NewDirectory(backend, uuid.New(), 20*time.Millisecond, zerolog.Nop())

	d.NotifyChanged()
	d.Close()

	time.Sleep(60 * time.Millisecond)
	if backend.callCount() != 0 {
		t.Fatal("closed directory still refreshed")
	}
}
