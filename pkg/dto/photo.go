package dto

import "github.com/google/uuid"

type PhotoResponse struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"event_id"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	// FaceCount is null until descriptor extraction has completed.
	FaceCount  *int   `json:"face_count,omitempty"`
	UploadedAt string `json:"uploaded_at"`
}

type PhotoListResponse struct {
	Photos []PhotoResponse `json:"photos"`
	Total  int             `json:"total"`
}

// WSMessage is a WebSocket notification for organizer dashboards.
type WSMessage struct {
	Type      string    `json:"type"` // photo_processed
	EventID   uuid.UUID `json:"event_id"`
	PhotoID   uuid.UUID `json:"photo_id"`
	FaceCount int       `json:"face_count"`
	Error     string    `json:"error,omitempty"`
}
