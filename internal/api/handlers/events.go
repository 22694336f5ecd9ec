package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/eventpix/internal/auth"
	"github.com/your-org/eventpix/internal/models"
	"github.com/your-org/eventpix/pkg/dto"
)

// EventStore is the persistence surface the event handler needs.
type EventStore interface {
	CreateEvent(ctx context.Context, name, pinHash string) (*models.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetPhotosForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error)
}

type EventHandler struct {
	db EventStore
}

func NewEventHandler(db EventStore) *EventHandler {
	return &EventHandler{db: db}
}

// Create makes a new PIN-protected event. Admin only; the PIN is stored as
// a bcrypt hash.
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pinHash, err := auth.HashPIN(req.PIN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash pin failed"})
		return
	}

	ev, err := h.db.CreateEvent(c.Request.Context(), req.Name, pinHash)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.EventResponse{
		ID:        ev.ID,
		Name:      ev.Name,
		CreatedAt: ev.CreatedAt.Format(time.RFC3339),
	})
}

// Get returns event info for an attendee who passed the PIN gate.
func (h *EventHandler) Get(c *gin.Context) {
	ev, ok := auth.EventFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event missing from context"})
		return
	}

	photos, err := h.db.GetPhotosForEvent(c.Request.Context(), ev.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.EventResponse{
		ID:         ev.ID,
		Name:       ev.Name,
		PhotoCount: len(photos),
		CreatedAt:  ev.CreatedAt.Format(time.RFC3339),
	})
}

// List returns all events. Admin only.
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.db.ListEvents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, dto.EventResponse{
			ID:        ev.ID,
			Name:      ev.Name,
			CreatedAt: ev.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"events": resp, "total": len(resp)})
}
