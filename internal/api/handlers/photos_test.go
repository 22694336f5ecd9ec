package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/eventpix/internal/auth"
	"github.com/your-org/eventpix/internal/models"
	"github.com/your-org/eventpix/pkg/dto"
)

type fakePhotoStore struct {
	events  map[uuid.UUID]*models.Event
	photos  map[uuid.UUID]*models.Photo
	deleted []uuid.UUID
}

func newFakePhotoStore() *fakePhotoStore {
	return &fakePhotoStore{
		events: map[uuid.UUID]*models.Event{},
		photos: map[uuid.UUID]*models.Photo{},
	}
}

func (f *fakePhotoStore) CreatePhoto(ctx context.Context, p *models.Photo) error {
	if p.UploadedAt.IsZero() {
		p.UploadedAt = time.Now()
	}
	f.photos[p.ID] = p
	return nil
}

func (f *fakePhotoStore) GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	return f.photos[id], nil
}

func (f *fakePhotoStore) GetPhotosForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error) {
	var out []models.Photo
	for _, p := range f.photos {
		if p.EventID == eventID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePhotoStore) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.photos[id]; !ok {
		return errors.New("photo not found")
	}
	delete(f.photos, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePhotoStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return f.events[id], nil
}

type fakeObjects struct {
	objects map[string][]byte
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) GetObject(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeObjects) DeleteObject(ctx context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeTasks struct {
	published []models.ExtractTask
	err       error
}

func (f *fakeTasks) PublishExtractTask(ctx context.Context, eventID string, task interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, task.(models.ExtractTask))
	return nil
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func uploadRouter(h *PhotoHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/events/:id/photos", h.Upload)
	r.DELETE("/photos/:id", h.Delete)
	return r
}

func TestUploadPhoto(t *testing.T) {
	db := newFakePhotoStore()
	eventID := uuid.New()
	db.events[eventID] = &models.Event{ID: eventID, Name: "gala"}
	objects := newFakeObjects()
	tasks := &fakeTasks{}
	h := NewPhotoHandler(db, objects, tasks, 1<<20)

	body, contentType := multipartBody(t, "image", "group.jpg", []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/events/"+eventID.String()+"/photos", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	uploadRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.PhotoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, eventID, resp.EventID)
	assert.Equal(t, "image/jpeg", resp.ContentType)
	assert.Nil(t, resp.FaceCount)

	// Blob stored, row created, extraction queued.
	assert.Len(t, objects.objects, 1)
	require.Len(t, db.photos, 1)
	require.Len(t, tasks.published, 1)
	assert.Equal(t, resp.ID, tasks.published[0].PhotoID)
}

func TestUploadPhotoRejectsBadExtension(t *testing.T) {
	db := newFakePhotoStore()
	eventID := uuid.New()
	db.events[eventID] = &models.Event{ID: eventID}
	h := NewPhotoHandler(db, newFakeObjects(), &fakeTasks{}, 1<<20)

	body, contentType := multipartBody(t, "image", "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/events/"+eventID.String()+"/photos", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	uploadRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, db.photos)
}

func TestUploadPhotoRejectsOversize(t *testing.T) {
	db := newFakePhotoStore()
	eventID := uuid.New()
	db.events[eventID] = &models.Event{ID: eventID}
	h := NewPhotoHandler(db, newFakeObjects(), &fakeTasks{}, 16)

	body, contentType := multipartBody(t, "image", "big.jpg", bytes.Repeat([]byte("x"), 64))
	req := httptest.NewRequest(http.MethodPost, "/events/"+eventID.String()+"/photos", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	uploadRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadPhotoUnknownEvent(t *testing.T) {
	h := NewPhotoHandler(newFakePhotoStore(), newFakeObjects(), &fakeTasks{}, 1<<20)

	body, contentType := multipartBody(t, "image", "pic.png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/events/"+uuid.NewString()+"/photos", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	uploadRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadPhotoSurvivesQueueFailure(t *testing.T) {
	db := newFakePhotoStore()
	eventID := uuid.New()
	db.events[eventID] = &models.Event{ID: eventID}
	h := NewPhotoHandler(db, newFakeObjects(), &fakeTasks{err: errors.New("nats down")}, 1<<20)

	body, contentType := multipartBody(t, "image", "pic.jpg", []byte("jpeg"))
	req := httptest.NewRequest(http.MethodPost, "/events/"+eventID.String()+"/photos", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	uploadRouter(h).ServeHTTP(w, req)

	// Upload still stands; extraction waits for a re-queue.
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, db.photos, 1)
}

func TestGetPhotoChecksPIN(t *testing.T) {
	db := newFakePhotoStore()
	hash, err := auth.HashPIN("2468")
	require.NoError(t, err)
	eventID := uuid.New()
	db.events[eventID] = &models.Event{ID: eventID, PINHash: hash}
	photoID := uuid.New()
	two := 2
	db.photos[photoID] = &models.Photo{ID: photoID, EventID: eventID, ContentType: "image/jpeg", DescriptorCount: &two}

	h := NewPhotoHandler(db, newFakeObjects(), &fakeTasks{}, 1<<20)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/photos/:id", h.Get)

	t.Run("valid pin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/photos/"+photoID.String(), nil)
		req.Header.Set("X-Event-PIN", "2468")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.PhotoResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, photoID, resp.ID)
		require.NotNil(t, resp.FaceCount)
		assert.Equal(t, 2, *resp.FaceCount)
	})

	t.Run("wrong pin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/photos/"+photoID.String(), nil)
		req.Header.Set("X-Event-PIN", "0000")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestDeletePhoto(t *testing.T) {
	db := newFakePhotoStore()
	objects := newFakeObjects()
	photoID := uuid.New()
	key := "events/e/photos/p.jpg"
	db.photos[photoID] = &models.Photo{ID: photoID, ObjectKey: key}
	objects.objects[key] = []byte("jpeg")

	h := NewPhotoHandler(db, objects, &fakeTasks{}, 1<<20)
	req := httptest.NewRequest(http.MethodDelete, "/photos/"+photoID.String(), nil)
	w := httptest.NewRecorder()
	uploadRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, db.deleted, photoID)
	assert.Contains(t, objects.deleted, key)
}

func TestDeletePhotoNotFound(t *testing.T) {
	h := NewPhotoHandler(newFakePhotoStore(), newFakeObjects(), &fakeTasks{}, 1<<20)
	req := httptest.NewRequest(http.MethodDelete, "/photos/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	uploadRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
