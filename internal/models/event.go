package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a PIN-protected collection of photos for one occasion.
type Event struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	PINHash   string    `json:"-" db:"pin_hash"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
