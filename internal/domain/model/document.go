package model

import "time"

// Document is a registered blueprint. The raw bytes live behind SourceURL
// (object storage); this service only keeps the registry row.
type Document struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	SourceURL   string    `json:"source_url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
