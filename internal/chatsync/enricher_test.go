package chatsync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
)

func newTestEnricher(t *testing.T) (*Enricher, *fakeResources, *fakeSigner) {
	t.Helper()
	resources := newFakeResources()
	signer := newFakeSigner()
	return NewEnricher(resources, signer, zerolog.Nop()), resources, signer
}

func TestEnrichAllIsolatesFailures(t *testing.T) {
	e, resources, _ := newTestEnricher(t)

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
	}
	resources.notes[ids[0]] = &models.ResourceRecord{Title: "note one"}
	resources.documents[ids[1]] = &models.ResourceRecord{Title: "doc", StoragePath: "documents/u1/report.pdf"}
	resources.recordings[ids[2]] = &models.ResourceRecord{Title: "lecture", StoragePath: "recordings/u1/lec.mp4"}
	resources.posts[ids[3]] = &models.ResourceRecord{Title: "post", StoragePath: "https://cdn.test/public/p.png"}
	// ids[4] deliberately unresolvable.

	refs := []models.ResourceRef{
		{ResourceID: ids[0], ResourceType: models.ResourceNote},
		{ResourceID: ids[1], ResourceType: models.ResourceDocument},
		{ResourceID: ids[2], ResourceType: models.ResourceRecording},
		{ResourceID: ids[3], ResourceType: models.ResourcePost},
		{ResourceID: ids[4], ResourceType: models.ResourceNote},
	}

	out := e.EnrichAll(context.Background(), refs)
	if len(out) != len(refs) {
		t.Fatalf("got %d results, want %d", len(out), len(refs))
	}
	for i := 0; i < 4; i++ {
		if out[i].Err != "" {
			t.Fatalf("resource %d failed: %s", i, out[i].Err)
		}
	}
	if out[4].Err != "not found or access denied" {
		t.Fatalf("missing resource marker = %q", out[4].Err)
	}
}

func TestEnrichUnknownTypeMarker(t *testing.T) {
	e, _, _ := newTestEnricher(t)

	out := e.Enrich(context.Background(), models.ResourceRef{
		ResourceID:   uuid.New(),
		ResourceType: "quiz",
	})
	if out.Err == "" {
		t.Fatal("unknown resource type did not produce an error marker")
	}
}

func TestEnrichSignedURLTTLs(t *testing.T) {
	e, resources, signer := newTestEnricher(t)

	docID, recID := uuid.New(), uuid.New()
	resources.documents[docID] = &models.ResourceRecord{Title: "doc", StoragePath: "documents/u1/a.pdf"}
	resources.recordings[recID] = &models.ResourceRecord{Title: "rec", StoragePath: "recordings/u1/b.mp4"}

	e.Enrich(context.Background(), models.ResourceRef{ResourceID: docID, ResourceType: models.ResourceDocument})
	e.Enrich(context.Background(), models.ResourceRef{ResourceID: recID, ResourceType: models.ResourceRecording})

	if got := signer.ttls["documents/u1/a.pdf"]; got != time.Hour {
		t.Fatalf("document TTL = %v, want 1h", got)
	}
	if got := signer.ttls["recordings/u1/b.mp4"]; got != 2*time.Hour {
		t.Fatalf("recording TTL = %v, want 2h", got)
	}
}

func TestEnrichPostUsesPublicURL(t *testing.T) {
	e, resources, signer := newTestEnricher(t)

	id := uuid.New()
	resources.posts[id] = &models.ResourceRecord{Title: "post", StoragePath: "https://cdn.test/public/p.png"}

	out := e.Enrich(context.Background(), models.ResourceRef{ResourceID: id, ResourceType: models.ResourcePost})
	if out.SignedURL != "https://cdn.test/public/p.png" {
		t.Fatalf("post URL = %q, want the public storage path untouched", out.SignedURL)
	}
	if len(signer.ttls) != 0 {
		t.Fatal("post enrichment went through the signer")
	}
}

func TestDisplayAsText(t *testing.T) {
	tests := []struct {
		name string
		kind models.ResourceType
		rec  models.ResourceRecord
		want bool
	}{
		{"note always", models.ResourceNote, models.ResourceRecord{}, true},
		{"post always", models.ResourcePost, models.ResourceRecord{}, true},
		{"recording never", models.ResourceRecording, models.ResourceRecord{ContentType: "text/plain"}, false},
		{"document with extracted text", models.ResourceDocument, models.ResourceRecord{ExtractedText: "hi"}, true},
		{"document plain text", models.ResourceDocument, models.ResourceRecord{ContentType: "text/plain"}, true},
		{"document markdown with charset", models.ResourceDocument, models.ResourceRecord{ContentType: "text/markdown; charset=utf-8"}, true},
		{"document json", models.ResourceDocument, models.ResourceRecord{ContentType: "application/json"}, true},
		{"document pdf", models.ResourceDocument, models.ResourceRecord{ContentType: "application/pdf"}, false},
		{"document empty", models.ResourceDocument, models.ResourceRecord{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayAsText(tt.kind, &tt.rec); got != tt.want {
				t.Fatalf("displayAsText = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStoragePath(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		bucket string
		path   string
		ok     bool
	}{
		{
			"full public url",
			"https://storage.test/storage/v1/object/public/documents/u1/a.pdf",
			"documents", "u1/a.pdf", true,
		},
		{
			"full sign url",
			"https://storage.test/storage/v1/object/sign/recordings/u1/b.mp4",
			"recordings", "u1/b.mp4", true,
		},
		{
			"authenticated url",
			"https://storage.test/storage/v1/object/authenticated/notes/u1/n.md",
			"notes", "u1/n.md", true,
		},
		{
			"generic url falls back to first segment",
			"https://cdn.test/avatars/u1.png",
			"avatars", "u1.png", true,
		},
		{
			"legacy relative path",
			"documents/u1/deep/nested/a.pdf",
			"documents", "u1/deep/nested/a.pdf", true,
		},
		{"bare bucket", "documents", "", "", false},
		{"empty", "", "", "", false},
		{"whitespace", "   ", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, path, ok := parseStoragePath(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if bucket != tt.bucket || path != tt.path {
				t.Fatalf("got (%q, %q), want (%q, %q)", bucket, path, tt.bucket, tt.path)
			}
		})
	}
}
