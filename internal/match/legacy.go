package match

import (
	"math"

	"github.com/google/uuid"

	"github.com/your-org/eventpix/internal/models"
	"github.com/your-org/eventpix/internal/vision"
)

// The legacy pipeline stored cloud-provider face annotations instead of
// embeddings: detection confidence and head-pose angles. Those records are
// normalized into a short fixed-length descriptor at the provider boundary
// so the engine interface stays identical and nothing downstream ever sees
// provider-specific fields.

// AnnotationDim is the length of a normalized annotation descriptor:
// [confidence, yaw, pitch, roll].
const AnnotationDim = 4

const (
	DefaultConfidenceTolerance = 0.15
	DefaultAngleTolerance      = 12.0 // degrees
)

// NormalizeAnnotations maps provider detection output into the canonical
// descriptor layout the legacy engine compares.
func NormalizeAnnotations(confidence float32, pose vision.Pose) models.Descriptor {
	return models.Descriptor{confidence, pose.Yaw, pose.Pitch, pose.Roll}
}

// LegacyEngine compares annotation descriptors component-wise: a candidate
// face matches when its confidence is within confTol of the query's and each
// pose angle is within angleTol degrees. Kept only for data produced by the
// old cloud pipeline; considerably less accurate than embedding distance.
type LegacyEngine struct {
	confTol  float64
	angleTol float64
}

func NewLegacyEngine(confTol, angleTol float64) *LegacyEngine {
	return &LegacyEngine{confTol: confTol, angleTol: angleTol}
}

func (e *LegacyEngine) FindMatches(query models.Descriptor, candidates []Candidate) ([]uuid.UUID, error) {
	if len(query) != AnnotationDim {
		return nil, &DimensionMismatchError{Want: AnnotationDim, Got: len(query)}
	}

	matches := make([]uuid.UUID, 0)
	for _, cand := range candidates {
		for _, desc := range cand.Descriptors {
			if len(desc) != AnnotationDim {
				return nil, &DimensionMismatchError{Want: AnnotationDim, Got: len(desc)}
			}
			if e.annotationsMatch(query, desc) {
				matches = append(matches, cand.PhotoID)
				break
			}
		}
	}
	return matches, nil
}

func (e *LegacyEngine) annotationsMatch(a, b models.Descriptor) bool {
	if math.Abs(float64(a[0])-float64(b[0])) > e.confTol {
		return false
	}
	for i := 1; i < AnnotationDim; i++ {
		if math.Abs(float64(a[i])-float64(b[i])) > e.angleTol {
			return false
		}
	}
	return true
}
