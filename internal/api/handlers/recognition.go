package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/eventpix/internal/auth"
	"github.com/your-org/eventpix/internal/match"
	"github.com/your-org/eventpix/internal/recognition"
	"github.com/your-org/eventpix/internal/vision"
	"github.com/your-org/eventpix/pkg/dto"
)

// Recognizer runs the selfie-against-gallery pipeline.
type Recognizer interface {
	Recognize(ctx context.Context, eventID uuid.UUID, userID string, selfie []byte) (*recognition.Result, error)
}

type RecognitionHandler struct {
	recognizer Recognizer
	maxSize    int64
}

func NewRecognitionHandler(recognizer Recognizer, maxSize int64) *RecognitionHandler {
	return &RecognitionHandler{recognizer: recognizer, maxSize: maxSize}
}

// Recognize accepts a selfie and returns the event photos the caller appears
// in. PIN gated; runs synchronously and records the matches as the user's
// photo history.
func (h *RecognitionHandler) Recognize(c *gin.Context) {
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

	fileHeader, err := c.FormFile("selfie")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "selfie file is required"})
		return
	}
	selfie, err := h.readSelfie(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.recognizer.Recognize(c.Request.Context(), ev.ID, userID, selfie)
	if err != nil {
		h.writeRecognizeError(c, err)
		return
	}

	resp := dto.RecognitionResponse{
		TotalPhotos:    result.TotalPhotos,
		MatchingPhotos: result.MatchingPhotos,
		FacesDetected:  result.FacesDetected,
		Photos:         make([]dto.PhotoResponse, 0, len(result.Photos)),
	}
	for i := range result.Photos {
		resp.Photos = append(resp.Photos, photoToResponse(&result.Photos[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecognitionHandler) writeRecognizeError(c *gin.Context, err error) {
	var decodeErr *vision.DecodeError
	var modelErr *vision.ModelLoadError
	var dimErr *match.DimensionMismatchError
	switch {
	case errors.Is(err, recognition.ErrNoFaceDetected):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no face detected in selfie"})
	case errors.As(err, &decodeErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not decode selfie image"})
	case errors.As(err, &modelErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "face recognition temporarily unavailable, retry later"})
	case errors.As(err, &dimErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// readSelfie validates and spools the selfie through a temp file so a large
// upload never pins the multipart buffer while inference runs.
func (h *RecognitionHandler) readSelfie(fh *multipart.FileHeader) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedImageTypes[ext]; !ok {
		return nil, fmt.Errorf("unsupported image type %q, want jpg or png", ext)
	}
	if fh.Size > h.maxSize {
		return nil, fmt.Errorf("selfie too large: %d bytes, limit %d", fh.Size, h.maxSize)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "selfie-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, io.LimitReader(src, h.maxSize+1)); err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return nil, fmt.Errorf("read temp file: %w", err)
	}
	if int64(len(data)) > h.maxSize {
		return nil, fmt.Errorf("selfie too large, limit %d bytes", h.maxSize)
	}
	return data, nil
}
