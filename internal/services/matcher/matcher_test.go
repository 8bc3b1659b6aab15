package matcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrusion-worker-go/internal/models"
)

func embedding(fill float64) []float64 {
	e := make([]float64, models.EmbeddingSize)
	for i := range e {
		e[i] = fill
	}
	return e
}

// shifted returns base with the first component moved by delta, i.e. at distance |delta|.
func shifted(base []float64, delta float64) []float64 {
	out := append([]float64(nil), base...)
	out[0] += delta
	return out
}

func TestBestMatch(t *testing.T) {
	t.Parallel()

	alice := embedding(0.1)
	bob := embedding(0.5)
	m := Build([]models.Identity{
		{Label: "alice", Embeddings: [][]float64{alice, shifted(alice, 0.3)}},
		{Label: "bob", Embeddings: [][]float64{bob}},
	}, DefaultThreshold)
	require.Equal(t, 2, m.Size())

	tests := []struct {
		name     string
		query    []float64
		label    string
		distance float64
	}{
		{name: "exact reference", query: alice, label: "alice", distance: 0},
		{name: "near second identity", query: shifted(bob, 0.2), label: "bob", distance: 0.2},
		{name: "just below threshold", query: shifted(bob, -0.549), label: "bob", distance: 0.549},
		{name: "above threshold is unknown", query: shifted(bob, 0.6), label: models.UnknownLabel, distance: 0.6},
		{name: "far from everything", query: embedding(-3), label: models.UnknownLabel, distance: math.Sqrt(128 * 3.1 * 3.1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.BestMatch(tt.query)
			assert.Equal(t, tt.label, got.Label)
			assert.InDelta(t, tt.distance, got.Distance, 1e-9)
		})
	}
}

func TestBestMatchUsesMinimumPerIdentity(t *testing.T) {
	t.Parallel()

	base := embedding(0)
	m := Build([]models.Identity{
		{Label: "carol", Embeddings: [][]float64{shifted(base, 2), shifted(base, 0.1)}},
	}, DefaultThreshold)

	got := m.BestMatch(base)
	assert.Equal(t, "carol", got.Label)
	assert.InDelta(t, 0.1, got.Distance, 1e-9)
}

func TestBestMatchEmptyGallery(t *testing.T) {
	t.Parallel()

	m := Build(nil, DefaultThreshold)
	got := m.BestMatch(embedding(0.2))

	assert.Equal(t, models.UnknownLabel, got.Label)
	assert.Equal(t, EmptyDistance, got.Distance)
	assert.False(t, got.Known())

	var nilMatcher *Matcher
	assert.Equal(t, models.UnknownLabel, nilMatcher.BestMatch(embedding(0.2)).Label)
}

func TestBuildSkipsMalformedEmbeddings(t *testing.T) {
	t.Parallel()

	bad := embedding(0.1)
	bad[3] = math.NaN()

	m := Build([]models.Identity{
		{Label: "short", Embeddings: [][]float64{make([]float64, 64)}},
		{Label: "nan", Embeddings: [][]float64{bad}},
		{Label: "mixed", Embeddings: [][]float64{make([]float64, 3), embedding(0.4)}},
		{Label: "empty"},
		{Label: "Unknown", Embeddings: [][]float64{embedding(0.4)}},
		{Label: "unclassified", Embeddings: [][]float64{embedding(0.4)}},
	}, 0)

	assert.Equal(t, []string{"mixed"}, m.Labels())
	assert.Equal(t, DefaultThreshold, m.Threshold())
	assert.Equal(t, "mixed", m.BestMatch(embedding(0.4)).Label)
}

func TestBestMatchMalformedQuery(t *testing.T) {
	t.Parallel()

	m := Build([]models.Identity{{Label: "alice", Embeddings: [][]float64{embedding(0.1)}}}, DefaultThreshold)

	got := m.BestMatch([]float64{0.1, 0.1})
	assert.Equal(t, models.UnknownLabel, got.Label)
	assert.Equal(t, EmptyDistance, got.Distance)
}

func TestBuildCopiesEmbeddings(t *testing.T) {
	t.Parallel()

	ref := embedding(0.1)
	m := Build([]models.Identity{{Label: "alice", Embeddings: [][]float64{ref}}}, DefaultThreshold)
	ref[0] = 42

	assert.Equal(t, "alice", m.BestMatch(embedding(0.1)).Label)
}
