package chatsync

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/metrics"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/store"
)

const (
	// Signed-URL lifetimes per resource kind.
	documentURLTTL  = time.Hour
	recordingURLTTL = 2 * time.Hour
)

// enrichErrNotFound is the per-resource marker for missing or
// inaccessible referents. A single unresolved resource never fails the
// owning message.
const enrichErrNotFound = "not found or access denied"

// Enricher hydrates lightweight resource pointers into displayable
// previews, resolving private storage paths to time-limited signed URLs.
type Enricher struct {
	resources store.ResourceBackend
	signer    store.URLSigner
	log       zerolog.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(resources store.ResourceBackend, signer store.URLSigner, log zerolog.Logger) *Enricher {
	return &Enricher{resources: resources, signer: signer, log: log}
}

// EnrichAll hydrates a batch of refs. Failures degrade to per-resource
// error markers; the returned slice always matches the input length.
func (e *Enricher) EnrichAll(ctx context.Context, refs []models.ResourceRef) []models.EnrichedResource {
	if len(refs) == 0 {
		return nil
	}
	out := make([]models.EnrichedResource, len(refs))
	for i, ref := range refs {
		out[i] = e.Enrich(ctx, ref)
	}
	return out
}

// Enrich hydrates one ref into a preview, or an error marker when the
// referent is missing, inaccessible, or of an unknown type.
func (e *Enricher) Enrich(ctx context.Context, ref models.ResourceRef) models.EnrichedResource {
	var (
		rec *models.ResourceRecord
		err error
		ttl time.Duration
	)

	switch ref.ResourceType {
	case models.ResourceNote:
		rec, err = e.resources.ResolveNote(ctx, ref.ResourceID)
		ttl = documentURLTTL
	case models.ResourceDocument:
		rec, err = e.resources.ResolveDocument(ctx, ref.ResourceID)
		ttl = documentURLTTL
	case models.ResourceRecording:
		rec, err = e.resources.ResolveRecording(ctx, ref.ResourceID)
		ttl = recordingURLTTL
	case models.ResourcePost:
		rec, err = e.resources.ResolvePost(ctx, ref.ResourceID)
	default:
		return e.failed(ref, "unknown resource type")
	}
	if err != nil {
		e.log.Debug().
			Err(err).
			Str("resource_type", string(ref.ResourceType)).
			Str("resource_id", ref.ResourceID.String()).
			Msg("resource enrichment failed")
		return e.failed(ref, enrichErrNotFound)
	}

	enriched := models.EnrichedResource{
		ResourceRef:   ref,
		Title:         rec.Title,
		Preview:       rec.Preview,
		DisplayAsText: displayAsText(ref.ResourceType, rec),
	}

	// Posts reference public objects; everything else lives in private
	// buckets and needs a signed URL.
	if ref.ResourceType != models.ResourcePost && rec.StoragePath != "" {
		if bucket, objectPath, ok := parseStoragePath(rec.StoragePath); ok {
			signed, signErr := e.signer.CreateSignedURL(bucket, objectPath, ttl)
			if signErr != nil {
				e.log.Warn().
					Err(signErr).
					Str("resource_id", ref.ResourceID.String()).
					Msg("signed URL generation failed")
			} else {
				enriched.SignedURL = signed
			}
		}
	}
	if ref.ResourceType == models.ResourcePost {
		enriched.SignedURL = rec.StoragePath
	}

	return enriched
}

func (e *Enricher) failed(ref models.ResourceRef, msg string) models.EnrichedResource {
	metrics.EnrichmentFailures.WithLabelValues(string(ref.ResourceType)).Inc()
	return models.EnrichedResource{ResourceRef: ref, Err: msg}
}

// textContentTypes are MIME types the UI renders inline rather than
// offering only a download.
var textContentTypes = map[string]bool{
	"text/plain":       true,
	"text/markdown":    true,
	"text/csv":         true,
	"application/json": true,
}

func displayAsText(kind models.ResourceType, rec *models.ResourceRecord) bool {
	switch kind {
	case models.ResourceNote, models.ResourcePost:
		return true
	case models.ResourceDocument:
		if rec.ExtractedText != "" {
			return true
		}
		ct := rec.ContentType
		if i := strings.Index(ct, ";"); i >= 0 {
			ct = ct[:i]
		}
		return textContentTypes[strings.TrimSpace(strings.ToLower(ct))]
	default:
		return false
	}
}

// parseStoragePath derives (bucket, path) from either a fully-qualified
// storage URL or a legacy bucket-relative path.
func parseStoragePath(raw string) (bucket, objectPath string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", false
		}
		raw = strings.Trim(u.Path, "/")
		segs := strings.Split(raw, "/")
		// Fully-qualified form: .../object/{public|sign|authenticated}/{bucket}/{path}
		for i := 0; i+2 < len(segs); i++ {
			if segs[i] != "object" {
				continue
			}
			switch segs[i+1] {
			case "public", "sign", "authenticated":
				if len(segs) > i+3 {
					return segs[i+2], strings.Join(segs[i+3:], "/"), true
				}
			}
		}
		if len(segs) >= 2 {
			return segs[0], strings.Join(segs[1:], "/"), true
		}
		return "", "", false
	}

	// Legacy relative form: bucket/path/to/object
	parts := strings.SplitN(strings.Trim(raw, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
