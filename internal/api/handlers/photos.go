package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/eventpix/internal/auth"
	"github.com/your-org/eventpix/internal/models"
	"github.com/your-org/eventpix/pkg/dto"
)

var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// PhotoStore is the persistence surface the photo handler needs.
type PhotoStore interface {
	CreatePhoto(ctx context.Context, photo *models.Photo) error
	GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	GetPhotosForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error)
	DeletePhoto(ctx context.Context, id uuid.UUID) error
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// ObjectStore is the blob surface the photo handler needs.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// TaskPublisher enqueues descriptor extraction work for the worker fleet.
type TaskPublisher interface {
	PublishExtractTask(ctx context.Context, eventID string, task interface{}) error
}

type PhotoHandler struct {
	db      PhotoStore
	objects ObjectStore
	tasks   TaskPublisher
	maxSize int64
}

func NewPhotoHandler(db PhotoStore, objects ObjectStore, tasks TaskPublisher, maxSize int64) *PhotoHandler {
	return &PhotoHandler{db: db, objects: objects, tasks: tasks, maxSize: maxSize}
}

// Upload accepts an event photo, stores the blob and queues descriptor
// extraction. Admin only. Extraction is asynchronous: the response carries
// a null face_count until the worker has processed the photo.
func (h *PhotoHandler) Upload(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	ev, err := h.db.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ev == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	data, contentType, err := h.readImageFile(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	photo := &models.Photo{
		ID:          uuid.New(),
		EventID:     eventID,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		UploadedAt:  time.Now().UTC(),
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	photo.ObjectKey = fmt.Sprintf("events/%s/photos/%s%s", eventID, photo.ID, ext)

	if err := h.objects.PutObject(c.Request.Context(), photo.ObjectKey, data, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store photo failed"})
		return
	}
	if err := h.db.CreatePhoto(c.Request.Context(), photo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	task := models.ExtractTask{
		PhotoID:   photo.ID,
		EventID:   eventID,
		ObjectKey: photo.ObjectKey,
		QueuedAt:  time.Now().UTC(),
	}
	if err := h.tasks.PublishExtractTask(c.Request.Context(), eventID.String(), task); err != nil {
		// Photo is stored; extraction just has to wait for a re-queue.
		slog.Error("queue extract task failed", "photo_id", photo.ID, "error", err)
	}

	c.JSON(http.StatusCreated, photoToResponse(photo))
}

// List returns the event's photos in upload order. PIN gated.
func (h *PhotoHandler) List(c *gin.Context) {
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

	resp := dto.PhotoListResponse{Photos: make([]dto.PhotoResponse, 0, len(photos)), Total: len(photos)}
	for i := range photos {
		resp.Photos = append(resp.Photos, photoToResponse(&photos[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns a photo's metadata. The caller must present the PIN of the
// event the photo belongs to.
func (h *PhotoHandler) Get(c *gin.Context) {
	photo, ok := h.loadAuthorizedPhoto(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, photoToResponse(photo))
}

// Content streams a photo's bytes, under the same PIN check as Get.
func (h *PhotoHandler) Content(c *gin.Context) {
	photo, ok := h.loadAuthorizedPhoto(c)
	if !ok {
		return
	}

	data, err := h.objects.GetObject(c.Request.Context(), photo.ObjectKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load photo failed"})
		return
	}
	c.Data(http.StatusOK, photo.ContentType, data)
}

// loadAuthorizedPhoto resolves the :id photo and verifies the event PIN,
// writing the error response itself when anything fails.
func (h *PhotoHandler) loadAuthorizedPhoto(c *gin.Context) (*models.Photo, bool) {
	photoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return nil, false
	}

	photo, err := h.db.GetPhoto(c.Request.Context(), photoID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if photo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return nil, false
	}

	ev, err := h.db.GetEvent(c.Request.Context(), photo.EventID)
	if err != nil || ev == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load event failed"})
		return nil, false
	}
	if !auth.CheckPIN(ev.PINHash, c.GetHeader("X-Event-PIN")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid event pin"})
		return nil, false
	}

	return photo, true
}

// Delete removes a photo, its descriptors (via FK cascade) and its blob.
// Admin only.
func (h *PhotoHandler) Delete(c *gin.Context) {
	photoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	photo, err := h.db.GetPhoto(c.Request.Context(), photoID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if photo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}

	if err := h.db.DeletePhoto(c.Request.Context(), photoID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.objects.DeleteObject(c.Request.Context(), photo.ObjectKey); err != nil {
		slog.Error("delete photo object failed", "photo_id", photoID, "key", photo.ObjectKey, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": photoID})
}

// readImageFile validates extension, declared type and size, then reads the
// multipart file into memory.
func (h *PhotoHandler) readImageFile(fh *multipart.FileHeader) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	contentType, ok := allowedImageTypes[ext]
	if !ok {
		return nil, "", fmt.Errorf("unsupported image type %q, want jpg or png", ext)
	}
	if fh.Size > h.maxSize {
		return nil, "", fmt.Errorf("image too large: %d bytes, limit %d", fh.Size, h.maxSize)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > h.maxSize {
		return nil, "", fmt.Errorf("image too large, limit %d bytes", h.maxSize)
	}
	return data, contentType, nil
}

func photoToResponse(p *models.Photo) dto.PhotoResponse {
	return dto.PhotoResponse{
		ID:          p.ID,
		EventID:     p.EventID,
		URL:         fmt.Sprintf("/v1/photos/%s/content", p.ID),
		ContentType: p.ContentType,
		SizeBytes:   p.SizeBytes,
		FaceCount:   p.DescriptorCount,
		UploadedAt:  p.UploadedAt.Format(time.RFC3339),
	}
}
