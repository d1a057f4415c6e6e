package models

// MediaRef points at an uploaded media object attached to a message.
// Upload mechanics are external; the engine only carries the reference.
type MediaRef struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name,omitempty"`
}
