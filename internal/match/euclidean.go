package match

import (
	"math"

	"github.com/google/uuid"

	"github.com/your-org/eventpix/internal/models"
)

// EuclideanEngine matches by Euclidean distance between descriptors.
// A candidate matches when the distance is strictly below the threshold;
// a distance exactly at the threshold does not match.
type EuclideanEngine struct {
	threshold float64
}

func NewEuclideanEngine(threshold float64) *EuclideanEngine {
	return &EuclideanEngine{threshold: threshold}
}

func (e *EuclideanEngine) FindMatches(query models.Descriptor, candidates []Candidate) ([]uuid.UUID, error) {
	matches := make([]uuid.UUID, 0)
	for _, cand := range candidates {
		for _, desc := range cand.Descriptors {
			if len(desc) != len(query) {
				return nil, &DimensionMismatchError{Want: len(query), Got: len(desc)}
			}
			if euclideanDistance(query, desc) < e.threshold {
				matches = append(matches, cand.PhotoID)
				break
			}
		}
	}
	return matches, nil
}

func euclideanDistance(a, b models.Descriptor) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
