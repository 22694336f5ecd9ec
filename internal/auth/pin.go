package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/your-org/eventpix/internal/models"
)

const pinHeader = "X-Event-PIN"

// EventGetter loads an event so its PIN hash can be checked.
type EventGetter interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// HashPIN hashes an event PIN for storage.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPIN compares a submitted PIN against the stored hash.
func CheckPIN(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// EventPINMiddleware gates attendee routes on the event's PIN, read from the
// X-Event-PIN header. It parses the :id route param, loads the event, and on
// success stores it in the context under "event".
func EventPINMiddleware(events EventGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		ev, err := events.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if ev == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}

		pin := c.GetHeader(pinHeader)
		if pin == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing event PIN"})
			return
		}
		if !CheckPIN(ev.PINHash, pin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid event PIN"})
			return
		}

		c.Set("event", ev)
		c.Next()
	}
}

// EventFromContext returns the event stored by EventPINMiddleware.
func EventFromContext(c *gin.Context) (*models.Event, bool) {
	v, ok := c.Get("event")
	if !ok {
		return nil, false
	}
	ev, ok := v.(*models.Event)
	return ev, ok
}
