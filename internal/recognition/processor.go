package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/eventpix/internal/models"
	"github.com/your-org/eventpix/internal/observability"
	"github.com/your-org/eventpix/internal/storage"
	"github.com/your-org/eventpix/internal/vision"
)

// DescriptorStore persists the outcome of one extraction attempt.
type DescriptorStore interface {
	SavePhotoDescriptors(ctx context.Context, photoID uuid.UUID, descriptors []models.Descriptor) error
}

// ObjectStore fetches uploaded photo bytes.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// ProcessedPublisher announces completed extractions.
type ProcessedPublisher interface {
	PublishProcessed(ctx context.Context, eventID string, evt interface{}) error
}

// Processor handles queued extraction tasks for uploaded photos. Extraction
// failures degrade gracefully: the photo keeps its null descriptor list and
// the upload stands.
type Processor struct {
	extractor Extractor
	store     DescriptorStore
	objects   ObjectStore
	publisher ProcessedPublisher
}

func NewProcessor(extractor Extractor, store DescriptorStore, objects ObjectStore, publisher ProcessedPublisher) *Processor {
	return &Processor{
		extractor: extractor,
		store:     store,
		objects:   objects,
		publisher: publisher,
	}
}

// ProcessPhoto extracts and stores descriptors for one uploaded photo.
// A returned error means the task should be retried; terminal outcomes
// (bad image bytes, descriptors already set) return nil after logging.
func (p *Processor) ProcessPhoto(ctx context.Context, task models.ExtractTask) error {
	data, err := p.objects.GetObject(ctx, task.ObjectKey)
	if err != nil {
		return fmt.Errorf("load photo %s: %w", task.PhotoID, err)
	}

	descriptors, err := p.extractor.Extract(data)
	if err != nil {
		var decodeErr *vision.DecodeError
		if errors.As(err, &decodeErr) {
			// Bad bytes never get better on retry. The photo stays with a
			// null descriptor list.
			slog.Warn("photo undecodable, skipping extraction",
				"photo_id", task.PhotoID, "error", err)
			observability.PhotosProcessed.WithLabelValues("error").Inc()
			p.publishProcessed(ctx, task, 0, err)
			return nil
		}
		return fmt.Errorf("extract photo %s: %w", task.PhotoID, err)
	}

	if err := p.store.SavePhotoDescriptors(ctx, task.PhotoID, descriptors); err != nil {
		if errors.Is(err, storage.ErrDescriptorsAlreadySet) {
			slog.Info("descriptors already set, skipping", "photo_id", task.PhotoID)
			return nil
		}
		return fmt.Errorf("save descriptors for %s: %w", task.PhotoID, err)
	}

	if len(descriptors) == 0 {
		observability.PhotosProcessed.WithLabelValues("no_face").Inc()
	} else {
		observability.PhotosProcessed.WithLabelValues("faces").Inc()
		observability.FacesDetected.WithLabelValues(task.EventID.String()).Add(float64(len(descriptors)))
	}

	p.publishProcessed(ctx, task, len(descriptors), nil)
	return nil
}

func (p *Processor) publishProcessed(ctx context.Context, task models.ExtractTask, faceCount int, procErr error) {
	evt := models.PhotoProcessed{
		PhotoID:   task.PhotoID,
		EventID:   task.EventID,
		FaceCount: faceCount,
		Timestamp: time.Now(),
	}
	if procErr != nil {
		evt.Error = procErr.Error()
	}
	if err := p.publisher.PublishProcessed(ctx, task.EventID.String(), evt); err != nil {
		slog.Warn("publish processed event", "photo_id", task.PhotoID, "error", err)
	}
}
