package dto

import "github.com/google/uuid"

type CreateEventRequest struct {
	Name string `json:"name" binding:"required"`
	PIN  string `json:"pin" binding:"required,min=4"`
}

type EventResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PhotoCount int       `json:"photo_count"`
	CreatedAt  string    `json:"created_at"`
}
