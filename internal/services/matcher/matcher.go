package matcher

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"

	"intrusion-worker-go/internal/models"
)

// DefaultThreshold is the maximum Euclidean distance for an embedding to count as a match.
const DefaultThreshold = 0.55

// EmptyDistance is reported when there is nothing to compare against.
const EmptyDistance = 1.0

type reference struct {
	label      string
	embeddings [][]float64
}

// Matcher classifies embeddings against a fixed gallery snapshot. It is immutable once built
// and safe for concurrent use; gallery changes produce a new Matcher.
type Matcher struct {
	refs      []reference
	threshold float64
}

// Build creates a matcher from the given identities. Malformed reference embeddings are
// skipped with a warning, and identities left without any usable embedding are dropped.
func Build(identities []models.Identity, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	m := &Matcher{
		refs:      make([]reference, 0, len(identities)),
		threshold: threshold,
	}

	for _, identity := range identities {
		if models.ReservedLabel(identity.Label) {
			log.Warn().Str("label", identity.Label).Msg("Identity uses a reserved label, excluded from matching")
			continue
		}
		ref := reference{label: identity.Label}
		for i, emb := range identity.Embeddings {
			if !ValidEmbedding(emb) {
				log.Warn().
					Str("label", identity.Label).
					Int("embedding_index", i).
					Int("length", len(emb)).
					Msg("Skipping malformed reference embedding")
				continue
			}
			ref.embeddings = append(ref.embeddings, append([]float64(nil), emb...))
		}
		if len(ref.embeddings) == 0 {
			log.Warn().Str("label", identity.Label).Msg("Identity has no usable embeddings, excluded from matching")
			continue
		}
		m.refs = append(m.refs, ref)
	}

	log.Debug().
		Int("identities", len(m.refs)).
		Float64("threshold", threshold).
		Msg("Face matcher built")

	return m
}

// BestMatch returns the closest identity if its distance is below the threshold, otherwise
// the unknown label with the best distance seen.
func (m *Matcher) BestMatch(embedding []float64) models.MatchResult {
	unknown := models.MatchResult{Label: models.UnknownLabel, Distance: EmptyDistance}
	if m == nil || len(m.refs) == 0 || !ValidEmbedding(embedding) {
		return unknown
	}

	bestLabel := ""
	bestDistance := math.Inf(1)
	for _, ref := range m.refs {
		for _, emb := range ref.embeddings {
			if d := floats.Distance(embedding, emb, 2); d < bestDistance {
				bestDistance = d
				bestLabel = ref.label
			}
		}
	}

	if bestDistance < m.threshold {
		return models.MatchResult{Label: bestLabel, Distance: bestDistance}
	}
	unknown.Distance = bestDistance
	return unknown
}

func (m *Matcher) Size() int {
	if m == nil {
		return 0
	}
	return len(m.refs)
}

func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Labels returns the labels of all matchable identities, sorted.
func (m *Matcher) Labels() []string {
	if m == nil {
		return nil
	}
	labels := make([]string, 0, len(m.refs))
	for _, ref := range m.refs {
		labels = append(labels, ref.label)
	}
	sort.Strings(labels)
	return labels
}

func ValidEmbedding(emb []float64) bool {
	return models.ValidEmbedding(emb)
}
