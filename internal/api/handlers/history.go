package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/eventpix/internal/auth"
	"github.com/your-org/eventpix/internal/models"
	"github.com/your-org/eventpix/pkg/dto"
)

// HistoryStore reads back a user's recorded matches.
type HistoryStore interface {
	ListHistoryForUser(ctx context.Context, userID string, eventID uuid.UUID) ([]models.PhotoHistory, error)
	GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error)
}

type HistoryHandler struct {
	db HistoryStore
}

func NewHistoryHandler(db HistoryStore) *HistoryHandler {
	return &HistoryHandler{db: db}
}

// List returns the photos a user was previously matched to in this event,
// newest first. History rows are append-only and may repeat a photo across
// recognition runs; the response collapses them to one entry per photo.
func (h *HistoryHandler) List(c *gin.Context) {
	ev, ok := auth.EventFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event missing from context"})
		return
	}

	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-ID header is required"})
		return
	}

	records, err := h.db.ListHistoryForUser(c.Request.Context(), userID, ev.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(records))
	resp := dto.PhotoListResponse{Photos: make([]dto.PhotoResponse, 0, len(records))}
	for _, rec := range records {
		if _, dup := seen[rec.PhotoID]; dup {
			continue
		}
		seen[rec.PhotoID] = struct{}{}

		photo, err := h.db.GetPhoto(c.Request.Context(), rec.PhotoID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if photo == nil {
			// Photo deleted since the match was recorded.
			continue
		}

		resp.Photos = append(resp.Photos, photoToResponse(photo))
	}
	resp.Total = len(resp.Photos)

	c.JSON(http.StatusOK, resp)
}
