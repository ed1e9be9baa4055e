package model

import "time"

// Media asset owners and kinds.
const (
	MediaOwnerPartner  = "partner"
	MediaOwnerProvider = "provider"

	MediaKindLogo = "logo"
)

// MediaAsset records an object stored in the media bucket.
type MediaAsset struct {
	ID          string    `json:"id" db:"id"`
	OwnerType   string    `json:"owner_type" db:"owner_type"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Kind        string    `json:"kind" db:"kind"`
	Bucket      string    `json:"bucket" db:"bucket"`
	ObjectKey   string    `json:"object_key" db:"object_key"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	URL         string    `json:"url" db:"url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
