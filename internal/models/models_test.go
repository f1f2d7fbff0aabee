package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestCountsAsPlayThreshold(t *testing.T) {
	tests := []struct {
		name       string
		completion float64
		expected   bool
	}{
		{"full play", 1.0, true},
		{"just above threshold", 0.501, true},
		{"exactly at threshold", 0.5, false},
		{"below threshold", 0.3, false},
		{"zero completion", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := ListeningEvent{
				CompletionPercentage: decimal.NewFromFloat(tt.completion),
			}
			assert.Equal(t, tt.expected, event.CountsAsPlay())
		})
	}
}

func TestRecommendationActive(t *testing.T) {
	now := time.Now()
	rec := Recommendation{ExpiresAt: now.Add(time.Hour)}

	assert.True(t, rec.Active(now))
	assert.False(t, rec.Active(now.Add(time.Hour)), "expiry instant is inactive")
	assert.False(t, rec.Active(now.Add(2*time.Hour)))
}

func TestRecommendationScoreValidation(t *testing.T) {
	rec := Recommendation{Score: 0.5}
	require.NoError(t, rec.BeforeSave(nil))

	rec.Score = 1.2
	assert.ErrorIs(t, rec.BeforeSave(nil), gorm.ErrInvalidValue)

	rec.Score = -0.1
	assert.ErrorIs(t, rec.BeforeSave(nil), gorm.ErrInvalidValue)
}

func TestTrackGenresNeverNil(t *testing.T) {
	track := Track{}

	genres := track.Genres()
	require.NotNil(t, genres)
	assert.Empty(t, genres)
}

func TestTrackHasGenre(t *testing.T) {
	track := Track{
		GenreWeights: datatypes.NewJSONType(map[string]float64{
			"jazz": 0.8,
			"rock": 0,
		}),
	}

	assert.True(t, track.HasGenre("jazz"))
	assert.False(t, track.HasGenre("rock"), "zero weight does not count")
	assert.False(t, track.HasGenre("ambient"))
}

func TestTrackBeforeSave(t *testing.T) {
	track := Track{
		Duration: 240,
		GenreWeights: datatypes.NewJSONType(map[string]float64{
			"jazz":  1.4,
			"blues": -0.2,
			"soul":  0.6,
		}),
	}
	require.NoError(t, track.BeforeSave(nil))

	weights := track.Genres()
	assert.Equal(t, 1.0, weights["jazz"], "weights clamp to 1")
	assert.Equal(t, 0.0, weights["blues"], "weights clamp to 0")
	assert.Equal(t, 0.6, weights["soul"])

	track.Duration = 0
	assert.ErrorIs(t, track.BeforeSave(nil), gorm.ErrInvalidValue)
}

func TestRatingValidation(t *testing.T) {
	valid := 4
	rating := Rating{Rating: &valid}
	require.NoError(t, rating.BeforeSave(nil))

	rating.Rating = nil
	require.NoError(t, rating.BeforeSave(nil), "loved or banned only rows carry no star rating")

	tooHigh := 6
	rating.Rating = &tooHigh
	assert.ErrorIs(t, rating.BeforeSave(nil), gorm.ErrInvalidValue)

	tooLow := 0
	rating.Rating = &tooLow
	assert.ErrorIs(t, rating.BeforeSave(nil), gorm.ErrInvalidValue)
}

func TestArtistRelationshipStrengthClamped(t *testing.T) {
	rel := ArtistRelationship{Strength: 1.8}
	require.NoError(t, rel.BeforeSave(nil))
	assert.Equal(t, 1.0, rel.Strength)

	rel.Strength = -0.4
	require.NoError(t, rel.BeforeSave(nil))
	assert.Equal(t, 0.0, rel.Strength)
}

func TestArtistNameLower(t *testing.T) {
	artist := Artist{Name: "Kamasi Washington"}
	require.NoError(t, artist.BeforeSave(nil))
	assert.Equal(t, "kamasi washington", artist.NameLower)
}
