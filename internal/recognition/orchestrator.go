// Package recognition coordinates the selfie-to-photos flow: extract the
// query descriptor, match it against an event's stored photo descriptors,
// and record match history.
package recognition

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/eventpix/internal/match"
	"github.com/your-org/eventpix/internal/models"
	"github.com/your-org/eventpix/internal/observability"
)

// ErrNoFaceDetected means the selfie contained no usable face. A client
// error, not a pipeline failure.
var ErrNoFaceDetected = errors.New("no face detected in selfie")

// Extractor converts image bytes into face descriptors.
type Extractor interface {
	Extract(imageData []byte) ([]models.Descriptor, error)
}

// PhotoStore loads an event's photos with their stored descriptors.
type PhotoStore interface {
	GetPhotosForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error)
}

// HistoryStore appends photo match history records.
type HistoryStore interface {
	CreateHistoryRecord(ctx context.Context, userID string, photoID, eventID uuid.UUID) error
}

// Result is the outcome of one recognition request. Photos preserves the
// event's gallery order.
type Result struct {
	TotalPhotos    int
	MatchingPhotos int
	FacesDetected  int
	Photos         []models.Photo
}

type Orchestrator struct {
	extractor Extractor
	photos    PhotoStore
	history   HistoryStore
	engine    match.Engine
	// historyConcurrency bounds parallel history inserts per request.
	historyConcurrency int
}

func NewOrchestrator(extractor Extractor, photos PhotoStore, history HistoryStore, engine match.Engine, historyConcurrency int) *Orchestrator {
	if historyConcurrency <= 0 {
		historyConcurrency = 8
	}
	return &Orchestrator{
		extractor:          extractor,
		photos:             photos,
		history:            history,
		engine:             engine,
		historyConcurrency: historyConcurrency,
	}
}

// Recognize runs the full flow for one selfie. The selfie bytes are used for
// this single request and discarded. When the selfie contains several faces
// the first detected one is the query identity.
//
// History writes are best-effort: an individual insert failure is logged and
// skipped, never failing the response — the match result is already computed
// and owed to the caller.
func (o *Orchestrator) Recognize(ctx context.Context, eventID uuid.UUID, userID string, selfie []byte) (*Result, error) {
	descriptors, err := o.extractor.Extract(selfie)
	if err != nil {
		observability.RecognitionRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(descriptors) == 0 {
		observability.RecognitionRequests.WithLabelValues("no_face").Inc()
		return nil, ErrNoFaceDetected
	}
	query := descriptors[0]

	photos, err := o.photos.GetPhotosForEvent(ctx, eventID)
	if err != nil {
		observability.RecognitionRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	candidates := make([]match.Candidate, 0, len(photos))
	for _, p := range photos {
		if !p.HasDescriptors() {
			continue
		}
		candidates = append(candidates, match.Candidate{
			PhotoID:     p.ID,
			Descriptors: p.Descriptors,
		})
	}

	start := time.Now()
	matchedIDs, err := o.engine.FindMatches(query, candidates)
	if err != nil {
		observability.RecognitionRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	observability.InferenceDuration.WithLabelValues("match").Observe(time.Since(start).Seconds())

	matchedSet := make(map[uuid.UUID]struct{}, len(matchedIDs))
	for _, id := range matchedIDs {
		matchedSet[id] = struct{}{}
	}

	matched := make([]models.Photo, 0, len(matchedIDs))
	for _, p := range photos {
		if _, ok := matchedSet[p.ID]; ok {
			matched = append(matched, p)
		}
	}

	o.recordHistory(ctx, userID, eventID, matchedIDs)

	outcome := "no_match"
	if len(matched) > 0 {
		outcome = "matched"
	}
	observability.RecognitionRequests.WithLabelValues(outcome).Inc()

	return &Result{
		TotalPhotos:    len(photos),
		MatchingPhotos: len(matched),
		FacesDetected:  len(descriptors),
		Photos:         matched,
	}, nil
}

// recordHistory appends one record per matched photo. Each insert is
// independent, so they run concurrently up to the configured bound.
func (o *Orchestrator) recordHistory(ctx context.Context, userID string, eventID uuid.UUID, photoIDs []uuid.UUID) {
	if len(photoIDs) == 0 {
		return
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.historyConcurrency)

	for _, photoID := range photoIDs {
		g.Go(func() error {
			if err := o.history.CreateHistoryRecord(gctx, userID, photoID, eventID); err != nil {
				observability.HistoryWriteFailures.Inc()
				slog.Warn("history write failed",
					"user_id", userID, "photo_id", photoID, "event_id", eventID, "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	observability.InferenceDuration.WithLabelValues("history").Observe(time.Since(start).Seconds())
}
