// Package match decides which photos contain the person behind a query
// descriptor. Engines are pure functions over in-memory candidates: no I/O,
// no retries, and output order follows candidate input order so gallery
// ordering survives matching.
package match

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/your-org/eventpix/internal/config"
	"github.com/your-org/eventpix/internal/models"
)

// Candidate pairs a photo with its stored face descriptors.
type Candidate struct {
	PhotoID     uuid.UUID
	Descriptors []models.Descriptor
}

// Engine reports the candidates similar enough to the query. A photo matches
// when any one of its descriptors matches (OR across faces in the photo).
type Engine interface {
	FindMatches(query models.Descriptor, candidates []Candidate) ([]uuid.UUID, error)
}

// DimensionMismatchError means a descriptor's length differs from the
// query's. Descriptors from the same model always agree on dimension, so
// this is a caller bug, not a data condition.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("descriptor dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// New builds the engine selected by config. "euclidean" is the primary
// backend; "legacy" is the provider-annotation heuristic kept for data
// written by the old cloud pipeline.
func New(cfg config.MatchConfig) (Engine, error) {
	switch cfg.Engine {
	case "", "euclidean":
		return NewEuclideanEngine(cfg.Threshold), nil
	case "legacy":
		return NewLegacyEngine(DefaultConfidenceTolerance, DefaultAngleTolerance), nil
	default:
		return nil, fmt.Errorf("unknown match engine %q", cfg.Engine)
	}
}
