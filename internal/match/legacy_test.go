package match

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/eventpix/internal/config"
	"github.com/your-org/eventpix/internal/models"
	"github.com/your-org/eventpix/internal/vision"
)

func configFor(engine string) config.MatchConfig {
	return config.MatchConfig{Engine: engine, Threshold: 0.6}
}

func TestNormalizeAnnotations(t *testing.T) {
	d := NormalizeAnnotations(0.92, vision.Pose{Yaw: -5, Pitch: 3, Roll: 1.5})
	require.Len(t, d, AnnotationDim)
	assert.Equal(t, models.Descriptor{0.92, -5, 3, 1.5}, d)
}

func TestLegacyFindMatches(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	engine := NewLegacyEngine(DefaultConfidenceTolerance, DefaultAngleTolerance)

	query := NormalizeAnnotations(0.9, vision.Pose{Yaw: 0, Pitch: 0, Roll: 0})

	tests := []struct {
		name       string
		candidates []Candidate
		want       []uuid.UUID
	}{
		{
			name: "within all tolerances",
			candidates: []Candidate{
				{PhotoID: a, Descriptors: []models.Descriptor{
					NormalizeAnnotations(0.85, vision.Pose{Yaw: 10, Pitch: -8, Roll: 4}),
				}},
			},
			want: []uuid.UUID{a},
		},
		{
			name: "confidence out of tolerance",
			candidates: []Candidate{
				{PhotoID: a, Descriptors: []models.Descriptor{
					NormalizeAnnotations(0.6, vision.Pose{}),
				}},
			},
			want: []uuid.UUID{},
		},
		{
			name: "single angle out of tolerance rejects",
			candidates: []Candidate{
				{PhotoID: a, Descriptors: []models.Descriptor{
					NormalizeAnnotations(0.9, vision.Pose{Yaw: 13}),
				}},
			},
			want: []uuid.UUID{},
		},
		{
			name: "order preserved across candidates",
			candidates: []Candidate{
				{PhotoID: a, Descriptors: []models.Descriptor{
					NormalizeAnnotations(0.88, vision.Pose{Yaw: 2, Pitch: 2, Roll: 2}),
				}},
				{PhotoID: b, Descriptors: []models.Descriptor{
					NormalizeAnnotations(0.95, vision.Pose{Yaw: -3, Pitch: 1, Roll: 0}),
				}},
			},
			want: []uuid.UUID{a, b},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.FindMatches(query, tt.candidates)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLegacyRejectsWrongDimension(t *testing.T) {
	engine := NewLegacyEngine(DefaultConfidenceTolerance, DefaultAngleTolerance)

	_, err := engine.FindMatches(models.Descriptor{0.9, 0, 0}, nil)
	var dimErr *DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, AnnotationDim, dimErr.Want)

	query := NormalizeAnnotations(0.9, vision.Pose{})
	_, err = engine.FindMatches(query, []Candidate{
		{PhotoID: uuid.New(), Descriptors: []models.Descriptor{make(models.Descriptor, 512)}},
	})
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 512, dimErr.Got)
}
