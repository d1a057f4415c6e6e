package models

import "github.com/google/uuid"

// ResourceType enumerates the kinds of attachable platform resources.
type ResourceType string

const (
	ResourceNote      ResourceType = "note"
	ResourceDocument  ResourceType = "document"
	ResourceRecording ResourceType = "class_recording"
	ResourcePost      ResourceType = "post"
)

// ResourceRef is an unresolved pointer to a platform resource, stored
// alongside the message that shares it.
type ResourceRef struct {
	ResourceID   uuid.UUID    `json:"resource_id"`
	ResourceType ResourceType `json:"resource_type"`
}

// ResourceRecord is the raw referent row a backend returns for a ResourceRef.
type ResourceRecord struct {
	Title         string `json:"title"`
	Preview       string `json:"preview"`        // short content excerpt
	StoragePath   string `json:"storage_path"`   // full URL or legacy bucket-relative path
	ContentType   string `json:"content_type"`   // MIME type of the stored object, if any
	ExtractedText string `json:"extracted_text"` // pre-extracted text content, if any
}

// EnrichedResource is a ResourceRef hydrated into a displayable preview.
// Err is set instead of the payload when the referent is missing or
// inaccessible; a failed enrichment never fails the owning message.
type EnrichedResource struct {
	ResourceRef

	Title         string `json:"title,omitempty"`
	Preview       string `json:"preview,omitempty"`
	SignedURL     string `json:"signed_url,omitempty"`
	DisplayAsText bool   `json:"display_as_text,omitempty"`
	Err           string `json:"error,omitempty"`
}
