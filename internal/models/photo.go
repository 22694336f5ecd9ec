package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo is one uploaded event photo. Descriptors is nil until extraction has
// run for the photo; it stays nil forever when extraction found no face.
// Once set it is never re-extracted.
type Photo struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	EventID     uuid.UUID   `json:"event_id" db:"event_id"`
	ObjectKey   string      `json:"object_key" db:"object_key"`
	ContentType string      `json:"content_type" db:"content_type"`
	SizeBytes   int64       `json:"size_bytes" db:"size_bytes"`
	Descriptors []Descriptor `json:"-" db:"-"`
	// DescriptorCount is NULL until an extraction attempt has completed;
	// 0 records the terminal no-face outcome.
	DescriptorCount *int      `json:"descriptor_count,omitempty" db:"descriptor_count"`
	UploadedAt      time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// HasDescriptors reports whether the photo carries at least one stored
// face descriptor and is therefore a matching candidate.
func (p *Photo) HasDescriptors() bool {
	return len(p.Descriptors) > 0
}

// ExtractTask is the message published to NATS when a photo needs
// descriptor extraction.
type ExtractTask struct {
	PhotoID   uuid.UUID `json:"photo_id"`
	EventID   uuid.UUID `json:"event_id"`
	ObjectKey string    `json:"object_key"`
	QueuedAt  time.Time `json:"queued_at"`
}

// PhotoProcessed is published by the worker after extraction completed,
// successfully or not.
type PhotoProcessed struct {
	PhotoID   uuid.UUID `json:"photo_id"`
	EventID   uuid.UUID `json:"event_id"`
	FaceCount int       `json:"face_count"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
