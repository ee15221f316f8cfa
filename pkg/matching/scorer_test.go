package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func thc(v float64) *float64 { return &v }

func TestScore(t *testing.T) {
	scorer := NewProductScorer(DefaultConfig())

	t.Run("identical listing merges at full confidence", func(t *testing.T) {
		in := Input{Name: "Blue Dream", Brand: "House Exotics", THCPercent: thc(22.5)}
		cand := models.Candidate{Name: "Blue Dream", Brand: "House Exotics", THCPercent: thc(22.5)}

		score, decision := scorer.Score(in, cand)
		assert.InDelta(t, 1.0, score, 0.0001)
		assert.Equal(t, DecisionMerge, decision)
	})

	t.Run("single letter typo still merges", func(t *testing.T) {
		in := Input{Name: "Blue Dreem", Brand: "House Exotics"}
		cand := models.Candidate{Name: "Blue Dream", Brand: "House Exotics"}

		score, decision := scorer.Score(in, cand)
		assert.Greater(t, score, 0.90)
		assert.Equal(t, DecisionMerge, decision)
	})

	t.Run("token order does not matter", func(t *testing.T) {
		in := Input{Name: "Kush OG", Brand: "Tryke"}
		cand := models.Candidate{Name: "OG Kush", Brand: "Tryke"}

		score, decision := scorer.Score(in, cand)
		assert.InDelta(t, 1.0, score, 0.0001)
		assert.Equal(t, DecisionMerge, decision)
	})

	t.Run("different product is new", func(t *testing.T) {
		in := Input{Name: "Sour Diesel", Brand: "Tryke"}
		cand := models.Candidate{Name: "Blue Dream", Brand: "House Exotics"}

		score, decision := scorer.Score(in, cand)
		assert.Less(t, score, scorer.config.MergeThreshold)
		assert.Equal(t, DecisionNew, decision)
	})

	t.Run("weight token in candidate name is ignored", func(t *testing.T) {
		in := Input{Name: "Blue Dream", Brand: "House Exotics"}
		cand := models.Candidate{Name: "Blue Dream (3.5g)", Brand: "House Exotics"}

		score, decision := scorer.Score(in, cand)
		assert.InDelta(t, 1.0, score, 0.0001)
		assert.Equal(t, DecisionMerge, decision)
	})

	t.Run("zero cannabinoid weight ignores THC entirely", func(t *testing.T) {
		cfg := Config{NameWeight: 0.80, BrandWeight: 0.20, MergeThreshold: 0.90}
		s := NewProductScorer(cfg)

		in := Input{Name: "Blue Dream", Brand: "House Exotics", THCPercent: thc(5)}
		cand := models.Candidate{Name: "Blue Dream", Brand: "House Exotics", THCPercent: thc(35)}

		score, decision := s.Score(in, cand)
		assert.InDelta(t, 1.0, score, 0.0001)
		assert.Equal(t, DecisionMerge, decision)
	})
}

func TestFindBestCandidate(t *testing.T) {
	scorer := NewProductScorer(DefaultConfig())

	t.Run("keeps the highest scorer", func(t *testing.T) {
		in := Input{Name: "Blue Dream", Brand: "House Exotics"}
		cands := []models.Candidate{
			{ID: "a", Name: "Blue Dreamsicle", Brand: "House Exotics"},
			{ID: "b", Name: "Blue Dream", Brand: "House Exotics"},
		}

		best, score, decision := scorer.FindBestCandidate(in, cands, LegacyReviewThreshold)
		require.NotNil(t, best)
		assert.Equal(t, "b", best.ID)
		assert.InDelta(t, 1.0, score, 0.0001)
		assert.Equal(t, DecisionMerge, decision)
	})

	t.Run("ties keep the first candidate", func(t *testing.T) {
		in := Input{Name: "Blue Dream", Brand: "House Exotics"}
		cands := []models.Candidate{
			{ID: "first", Name: "Blue Dream", Brand: "House Exotics"},
			{ID: "second", Name: "Blue Dream", Brand: "House Exotics"},
		}

		best, _, _ := scorer.FindBestCandidate(in, cands, LegacyReviewThreshold)
		require.NotNil(t, best)
		assert.Equal(t, "first", best.ID)
	})

	t.Run("nothing above the floor returns nil", func(t *testing.T) {
		in := Input{Name: "Sour Diesel", Brand: "Tryke"}
		cands := []models.Candidate{
			{ID: "a", Name: "Blue Dream", Brand: "House Exotics"},
		}

		best, score, decision := scorer.FindBestCandidate(in, cands, scorer.config.MergeThreshold)
		assert.Nil(t, best)
		assert.Zero(t, score)
		assert.Equal(t, DecisionNew, decision)
	})

	t.Run("empty candidate list returns nil", func(t *testing.T) {
		best, _, decision := scorer.FindBestCandidate(Input{Name: "Blue Dream"}, nil, LegacyReviewThreshold)
		assert.Nil(t, best)
		assert.Equal(t, DecisionNew, decision)
	})
}

func TestCannabinoidSimilarity(t *testing.T) {
	t.Run("missing readings never penalize", func(t *testing.T) {
		assert.Equal(t, 1.0, cannabinoidSimilarity(nil, nil))
		assert.Equal(t, 1.0, cannabinoidSimilarity(thc(20), nil))
		assert.Equal(t, 1.0, cannabinoidSimilarity(nil, thc(20)))
	})

	t.Run("linear decay to zero at thirty points", func(t *testing.T) {
		assert.InDelta(t, 1.0, cannabinoidSimilarity(thc(20), thc(20)), 0.0001)
		assert.InDelta(t, 0.5, cannabinoidSimilarity(thc(15), thc(30)), 0.0001)
		assert.InDelta(t, 0.0, cannabinoidSimilarity(thc(10), thc(40)), 0.0001)
		assert.InDelta(t, 0.0, cannabinoidSimilarity(thc(0), thc(90)), 0.0001)
	})
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "blue dream", NormalizeName("Blue Dream® (3.5g)"))
	assert.Equal(t, "gg 4", NormalizeName("GG#4"))
	assert.Equal(t, "sour diesel", NormalizeName("  Sour   Diesel  "))
}

func TestNormalizeBrand(t *testing.T) {
	assert.Equal(t, "tryke", NormalizeBrand("Tryke Companies LLC"))
	assert.Equal(t, "tryke", NormalizeBrand("Tryke"))
	assert.Equal(t, "wyld", NormalizeBrand("Wyld, Inc."))
	assert.Equal(t, "house exotics", NormalizeBrand("House Exotics™"))
}
