package services

import (
	"errors"
	"testing"

	"cadenza/config"
	. "cadenza/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlender() *BlenderService {
	return NewBlenderService(config.Config{HybridContributionShare: 0.15})
}

func track(id string, playCount int) Track {
	t := Track{PlayCount: playCount}
	t.ID = uuid.MustParse(id)
	return t
}

const (
	trackA = "00000000-0000-0000-0000-00000000000a"
	trackB = "00000000-0000-0000-0000-00000000000b"
	trackC = "00000000-0000-0000-0000-00000000000c"
)

func TestBlendRenormalizesOverCoveringStrategies(t *testing.T) {
	blender := testBlender()

	results := []StrategyResult{
		{
			Strategy: RecommendationCollaborative,
			Err:      errors.New("strategy timed out"),
		},
		{
			Strategy: RecommendationContentBased,
			Scores:   []TrackScore{{Track: track(trackA, 10), Score: 0.8}},
		},
		{
			Strategy: RecommendationPopularity,
			Scores:   []TrackScore{{Track: track(trackA, 10), Score: 0.4}},
		},
	}

	weights := map[RecommendationType]float64{
		RecommendationCollaborative: 0.5,
		RecommendationContentBased:  0.3,
		RecommendationPopularity:    0.2,
	}

	ranked := blender.Blend(results, weights)
	require.Len(t, ranked, 1)

	// Collaborative failed so content and popularity share its weight:
	// 0.3/0.5 and 0.2/0.5. Blended = 0.6*0.8 + 0.4*0.4 = 0.64.
	assert.InDelta(t, 0.64, ranked[0].Score, 1e-9)
}

func TestBlendEmptyStrategyDropsOut(t *testing.T) {
	blender := testBlender()

	results := []StrategyResult{
		{Strategy: RecommendationCollaborative, Scores: []TrackScore{}},
		{
			Strategy: RecommendationPopularity,
			Scores:   []TrackScore{{Track: track(trackA, 1), Score: 0.5}},
		},
	}
	weights := map[RecommendationType]float64{
		RecommendationCollaborative: 0.7,
		RecommendationPopularity:    0.3,
	}

	ranked := blender.Blend(results, weights)
	require.Len(t, ranked, 1)
	assert.InDelta(t, 0.5, ranked[0].Score, 1e-9)
	assert.Equal(t, string(RecommendationPopularity), ranked[0].Strategy)
}

func TestBlendAllStrategiesEmpty(t *testing.T) {
	blender := testBlender()

	ranked := blender.Blend([]StrategyResult{
		{Strategy: RecommendationCollaborative, Err: errors.New("boom")},
		{Strategy: RecommendationContentBased, Scores: []TrackScore{}},
	}, DefaultWeights())

	assert.Empty(t, ranked)
}

func TestBlendDeduplicatesAcrossStrategies(t *testing.T) {
	blender := testBlender()

	results := []StrategyResult{
		{
			Strategy: RecommendationCollaborative,
			Scores: []TrackScore{
				{Track: track(trackA, 5), Score: 0.9},
				{Track: track(trackB, 3), Score: 0.2},
			},
		},
		{
			Strategy: RecommendationContentBased,
			Scores:   []TrackScore{{Track: track(trackA, 5), Score: 0.7}},
		},
	}
	weights := map[RecommendationType]float64{
		RecommendationCollaborative: 0.5,
		RecommendationContentBased:  0.5,
	}

	ranked := blender.Blend(results, weights)
	require.Len(t, ranked, 2)
	assert.Equal(t, trackA, ranked[0].Track.ID.String())
	assert.InDelta(t, 0.8, ranked[0].Score, 1e-9)
}

func TestBlendHybridLabel(t *testing.T) {
	blender := testBlender()

	t.Run("two strong contributors", func(t *testing.T) {
		results := []StrategyResult{
			{
				Strategy: RecommendationCollaborative,
				Scores:   []TrackScore{{Track: track(trackA, 1), Score: 0.6}},
			},
			{
				Strategy: RecommendationContentBased,
				Scores:   []TrackScore{{Track: track(trackA, 1), Score: 0.4}},
			},
		}
		weights := map[RecommendationType]float64{
			RecommendationCollaborative: 0.5,
			RecommendationContentBased:  0.5,
		}

		ranked := blender.Blend(results, weights)
		require.Len(t, ranked, 1)
		assert.Equal(t, "hybrid_collaborative_content_based", ranked[0].Strategy)
	})

	t.Run("one dominant contributor", func(t *testing.T) {
		results := []StrategyResult{
			{
				Strategy: RecommendationCollaborative,
				Scores:   []TrackScore{{Track: track(trackA, 1), Score: 0.9}},
			},
			{
				Strategy: RecommendationContentBased,
				Scores:   []TrackScore{{Track: track(trackA, 1), Score: 0.05}},
			},
		}
		weights := map[RecommendationType]float64{
			RecommendationCollaborative: 0.7,
			RecommendationContentBased:  0.3,
		}

		// Content contributes 0.015 of a 0.645 total, well under the
		// 15% floor, so the label stays single-strategy.
		ranked := blender.Blend(results, weights)
		require.Len(t, ranked, 1)
		assert.Equal(t, string(RecommendationCollaborative), ranked[0].Strategy)
	})
}

func TestBlendTieBreaks(t *testing.T) {
	blender := testBlender()

	results := []StrategyResult{
		{
			Strategy: RecommendationPopularity,
			Scores: []TrackScore{
				{Track: track(trackB, 10), Score: 0.5},
				{Track: track(trackC, 10), Score: 0.5},
				{Track: track(trackA, 20), Score: 0.5},
			},
		},
	}
	weights := map[RecommendationType]float64{RecommendationPopularity: 1}

	ranked := blender.Blend(results, weights)
	require.Len(t, ranked, 3)

	// Equal scores fall back to play count, then ascending track id.
	assert.Equal(t, trackA, ranked[0].Track.ID.String())
	assert.Equal(t, trackB, ranked[1].Track.ID.String())
	assert.Equal(t, trackC, ranked[2].Track.ID.String())
}

func TestPage(t *testing.T) {
	tracks := []ScoredTrack{
		{Score: 0.9}, {Score: 0.8}, {Score: 0.7}, {Score: 0.6},
	}

	t.Run("limit and offset", func(t *testing.T) {
		page := Page(tracks, 2, 1)
		require.Len(t, page, 2)
		assert.InDelta(t, 0.8, page[0].Score, 1e-9)
	})

	t.Run("offset past end", func(t *testing.T) {
		assert.Empty(t, Page(tracks, 10, 100))
	})

	t.Run("limit past end", func(t *testing.T) {
		assert.Len(t, Page(tracks, 50, 2), 2)
	})
}
