package models

import (
	"time"

	"github.com/google/uuid"
)

// PhotoHistory records that a user was matched to a photo during face
// recognition. Append-only; repeated recognition runs produce duplicate rows.
type PhotoHistory struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	PhotoID   uuid.UUID `json:"photo_id" db:"photo_id"`
	EventID   uuid.UUID `json:"event_id" db:"event_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
