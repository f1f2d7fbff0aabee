package recommendationController

import (
	"context"
	"testing"

	"cadenza/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePageDefaults(t *testing.T) {
	limit, offset, err := validatePage(0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, limit)
	assert.Equal(t, 0, offset)
}

func TestValidatePageBounds(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		offset  int
		wantErr bool
	}{
		{"max limit allowed", MaxLimit, 0, false},
		{"limit over max", MaxLimit + 1, 0, true},
		{"negative limit", -1, 0, true},
		{"negative offset", 10, -1, true},
		{"offset past any result set", 10, 10000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset, err := validatePage(tt.limit, tt.offset)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.limit, limit)
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestGetRecommendationsRejectsUnknownMood(t *testing.T) {
	controller := &RecommendationController{}

	_, err := controller.GetRecommendations(
		context.Background(),
		uuid.New(),
		10,
		0,
		services.RecommendationFilter{Mood: "brooding"},
	)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetRecommendationsAllowsKnownMoodShapes(t *testing.T) {
	// Validation runs before the service call, so only the rejecting
	// paths are reachable without a wired service.
	assert.True(t, services.ValidMood("chill"))
	assert.True(t, services.ValidMood("energetic"))
	assert.False(t, services.ValidMood("Chill"), "moods are case sensitive")
}
