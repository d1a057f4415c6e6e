package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func seedDirectSession(t *testing.T, s *SQLiteStore, a, b uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := s.db.Exec(`
		INSERT INTO chat_sessions (id, type, participant_a, participant_b)
		VALUES (?, 'direct', ?, ?)
	`, id.String(), a.String(), b.String())
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func strptr(v string) *string { return &v }

func TestSendMessagePersistsAttachments(t *testing.T) {
	s := newTestStore(t)
	alice, bob := uuid.New(), uuid.New()
	sessionID := seedDirectSession(t, s, alice, bob)

	noteID := uuid.New()
	msg, err := s.SendMessage(context.Background(), SendRequest{
		SessionID: sessionID,
		SenderID:  alice,
		ClientID:  "01CLIENT",
		Content:   strptr("look at this"),
		Media:     []models.MediaRef{{ID: "med1", URL: "https://cdn.test/x.png", MimeType: "image/png"}},
		Resources: []models.ResourceRef{{ResourceID: noteID, ResourceType: models.ResourceNote}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID == "" || msg.ClientID != "01CLIENT" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Delivery != models.DeliveryConfirmed {
		t.Fatalf("delivery = %s", msg.Delivery)
	}

	media, err := s.FetchMediaForMessages(context.Background(), []string{msg.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(media[msg.ID]) != 1 || media[msg.ID][0].URL != "https://cdn.test/x.png" {
		t.Fatalf("media = %+v", media)
	}

	links, err := s.FetchResourceLinks(context.Background(), []string{msg.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(links[msg.ID]) != 1 || links[msg.ID][0].ResourceID != noteID {
		t.Fatalf("links = %+v", links)
	}
}

func TestFetchRecentMessagesOldestFirst(t *testing.T) {
	s := newTestStore(t)
	alice, bob := uuid.New(), uuid.New()
	sessionID := seedDirectSession(t, s, alice, bob)

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		msg, err := s.SendMessage(context.Background(), SendRequest{
			SessionID: sessionID,
			SenderID:  alice,
			Content:   strptr(text),
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, msg.ID)
		time.Sleep(2 * time.Millisecond)
	}

	msgs, err := s.FetchRecentMessages(context.Background(), sessionID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	// Newest two, oldest first.
	if msgs[0].ID != ids[1] || msgs[1].ID != ids[2] {
		t.Fatalf("order = [%s %s], want [%s %s]", msgs[0].ID, msgs[1].ID, ids[1], ids[2])
	}
}

func TestEditMessage(t *testing.T) {
	s := newTestStore(t)
	alice, bob := uuid.New(), uuid.New()
	sessionID := seedDirectSession(t, s, alice, bob)

	msg, err := s.SendMessage(context.Background(), SendRequest{
		SessionID: sessionID,
		SenderID:  alice,
		Content:   strptr("typo"),
	})
	if err != nil {
		t.Fatal(err)
	}

	edited, err := s.EditMessage(context.Background(), msg.ID, "fixed")
	if err != nil {
		t.Fatal(err)
	}
	if *edited.Content != "fixed" || !edited.IsEdited {
		t.Fatalf("edited = %+v", edited)
	}

	if _, err := s.EditMessage(context.Background(), "missing", "x"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMarkSessionReadSkipsOwnMessages(t *testing.T) {
	s := newTestStore(t)
	alice, bob := uuid.New(), uuid.New()
	sessionID := seedDirectSession(t, s, alice, bob)

	mine, err := s.SendMessage(context.Background(), SendRequest{SessionID: sessionID, SenderID: alice, Content: strptr("mine")})
	if err != nil {
		t.Fatal(err)
	}
	theirs, err := s.SendMessage(context.Background(), SendRequest{SessionID: sessionID, SenderID: bob, Content: strptr("theirs")})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.MarkSessionRead(context.Background(), sessionID, alice); err != nil {
		t.Fatal(err)
	}

	msgs, err := s.FetchMessagesBatch(context.Background(), []string{mine.ID, theirs.ID})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range msgs {
		switch m.ID {
		case theirs.ID:
			if !m.IsRead {
				t.Fatal("peer message not marked read")
			}
		case mine.ID:
			if m.IsRead {
				t.Fatal("own message marked read")
			}
		}
	}
}

func TestFetchSessionsForUser(t *testing.T) {
	s := newTestStore(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	sessionID := seedDirectSession(t, s, alice, bob)
	seedDirectSession(t, s, bob, carol) // alice is not a participant

	if _, err := s.SendMessage(context.Background(), SendRequest{
		SessionID: sessionID,
		SenderID:  bob,
		Content:   strptr("hey alice"),
	}); err != nil {
		t.Fatal(err)
	}

	sessions, err := s.FetchSessionsForUser(context.Background(), alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	got := sessions[0]
	if got.ID != sessionID {
		t.Fatalf("session = %s, want %s", got.ID, sessionID)
	}
	if got.UnreadCount != 1 {
		t.Fatalf("unread = %d, want 1", got.UnreadCount)
	}
	if got.LastMessage != "hey alice" {
		t.Fatalf("last message = %q", got.LastMessage)
	}
	if got.PeerID(alice) != bob {
		t.Fatalf("peer = %s, want bob", got.PeerID(alice))
	}
}

func TestResolveNote(t *testing.T) {
	s := newTestStore(t)

	noteID := uuid.New()
	_, err := s.db.Exec(`
		INSERT INTO notes (id, title, content, file_path)
		VALUES (?, 'Biology', 'Cells are the basic unit of life.', 'notes/u1/bio.md')
	`, noteID.String())
	if err != nil {
		t.Fatal(err)
	}

	rec, err := s.ResolveNote(context.Background(), noteID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title != "Biology" || rec.StoragePath != "notes/u1/bio.md" {
		t.Fatalf("rec = %+v", rec)
	}
	if rec.Preview == "" || rec.ExtractedText == "" {
		t.Fatalf("note content not carried: %+v", rec)
	}

	if _, err := s.ResolveNote(context.Background(), uuid.New()); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTruncatePreview(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	got := truncatePreview(string(long))
	if len(got) != previewLen {
		t.Fatalf("preview length = %d, want %d", len(got), previewLen)
	}
	if truncatePreview("short") != "short" {
		t.Fatal("short preview modified")
	}
}

func TestTruncatePreviewKeepsRunesIntact(t *testing.T) {
	// 3-byte runes: a naive byte cut at previewLen lands mid-sequence
	// since 280 is not a multiple of 3.
	long := strings.Repeat("世", 200)
	got := truncatePreview(long)
	if !utf8.ValidString(got) {
		t.Fatal("truncated preview is not valid UTF-8")
	}
	if len(got) > previewLen {
		t.Fatalf("preview length = %d, want at most %d", len(got), previewLen)
	}
	if len(got) < previewLen-utf8.UTFMax {
		t.Fatalf("preview cut too far back: %d bytes", len(got))
	}
}
