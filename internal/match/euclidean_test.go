package match

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/eventpix/internal/models"
)

func desc(values ...float32) models.Descriptor {
	return models.Descriptor(values)
}

func TestEuclideanFindMatches(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name       string
		threshold  float64
		query      models.Descriptor
		candidates []Candidate
		want       []uuid.UUID
	}{
		{
			name:      "preserves candidate order",
			threshold: 1.0,
			query:     desc(0, 0, 0),
			candidates: []Candidate{
				{PhotoID: a, Descriptors: []models.Descriptor{desc(5, 5, 5)}},
				{PhotoID: b, Descriptors: []models.Descriptor{desc(0.1, 0, 0)}},
				{PhotoID: c, Descriptors: []models.Descriptor{desc(0, 0.2, 0)}},
			},
			want: []uuid.UUID{b, c},
		},
		{
			name:      "distance exactly at threshold does not match",
			threshold: 1.0,
			query:     desc(0, 0),
			candidates: []Candidate{
				{PhotoID: a, Descriptors: []models.Descriptor{desc(1, 0)}},
			},
			want: []uuid.UUID{},
		},
		{
			name:      "distance just under threshold matches",
			threshold: 1.0,
			query:     desc(0, 0),
			candidates: []Candidate{
				{PhotoID: a, Descriptors: []models.Descriptor{desc(0.999, 0)}},
			},
			want: []uuid.UUID{a},
		},
		{
			name:      "any face in a photo is enough",
			threshold: 0.5,
			query:     desc(0, 0, 0),
			candidates: []Candidate{
				{PhotoID: a, Descriptors: []models.Descriptor{
					desc(3, 3, 3),
					desc(0.1, 0.1, 0),
				}},
			},
			want: []uuid.UUID{a},
		},
		{
			name:      "photo without descriptors never matches",
			threshold: 10,
			query:     desc(0, 0, 0),
			candidates: []Candidate{
				{PhotoID: a, Descriptors: nil},
			},
			want: []uuid.UUID{},
		},
		{
			name:       "no candidates",
			threshold:  0.6,
			query:      desc(0, 0, 0),
			candidates: nil,
			want:       []uuid.UUID{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEuclideanEngine(tt.threshold)
			got, err := engine.FindMatches(tt.query, tt.candidates)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEuclideanFindMatchesDeterministic(t *testing.T) {
	engine := NewEuclideanEngine(0.6)
	query := desc(0.1, 0.2, 0.3, 0.4)
	candidates := []Candidate{
		{PhotoID: uuid.New(), Descriptors: []models.Descriptor{desc(0.1, 0.2, 0.3, 0.5)}},
		{PhotoID: uuid.New(), Descriptors: []models.Descriptor{desc(0.9, 0.8, 0.7, 0.6)}},
	}

	first, err := engine.FindMatches(query, candidates)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := engine.FindMatches(query, candidates)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEuclideanDimensionMismatch(t *testing.T) {
	engine := NewEuclideanEngine(0.6)
	_, err := engine.FindMatches(desc(0, 0, 0), []Candidate{
		{PhotoID: uuid.New(), Descriptors: []models.Descriptor{desc(0, 0)}},
	})

	var dimErr *DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Want)
	assert.Equal(t, 2, dimErr.Got)
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 5.0, euclideanDistance(desc(0, 0), desc(3, 4)), 1e-9)
	assert.Zero(t, euclideanDistance(desc(1, 2, 3), desc(1, 2, 3)))
}

func TestNewEngineSelection(t *testing.T) {
	eng, err := New(configFor(""))
	require.NoError(t, err)
	assert.IsType(t, &EuclideanEngine{}, eng)

	eng, err = New(configFor("euclidean"))
	require.NoError(t, err)
	assert.IsType(t, &EuclideanEngine{}, eng)

	eng, err = New(configFor("legacy"))
	require.NoError(t, err)
	assert.IsType(t, &LegacyEngine{}, eng)

	_, err = New(configFor("cosine"))
	assert.Error(t, err)
}
