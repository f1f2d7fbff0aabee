package services

import (
	"testing"
	"time"

	"cadenza/config"
	"cadenza/internal/database"
	. "cadenza/internal/models"
	"cadenza/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func play(userID, trackID uuid.UUID, playedAt time.Time, completion float64) ListeningEvent {
	return ListeningEvent{
		UserID:               userID,
		TrackID:              trackID,
		PlayedAt:             playedAt,
		CompletionPercentage: decimal.NewFromFloat(completion),
	}
}

func loved(userID, trackID uuid.UUID) Rating {
	return Rating{UserID: userID, TrackID: trackID, IsLoved: true}
}

func genreTrack(weights map[string]float64) Track {
	t := Track{GenreWeights: genreWeights(weights)}
	t.ID = uuid.New()
	return t
}

func databaseStub() database.DB {
	return database.DB{}
}

func repositoriesStub() repositories.Repository {
	return repositories.Repository{}
}

func indexedSimilarityService(index *similarityIndex) *SimilarityService {
	service := NewSimilarityService(databaseStub(), repositoriesStub(), config.Config{SessionGapMinutes: 30})
	service.index.Store(index)
	return service
}

func TestGenreCosine(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		weights := map[string]float64{"rock": 0.8, "indie": 0.4}
		assert.InDelta(t, 1.0, genreCosine(weights, weights), 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		a := map[string]float64{"rock": 1.0}
		b := map[string]float64{"classical": 1.0}
		assert.Zero(t, genreCosine(a, b))
	})

	t.Run("empty vector", func(t *testing.T) {
		assert.Zero(t, genreCosine(nil, map[string]float64{"rock": 1.0}))
	})

	t.Run("partial overlap", func(t *testing.T) {
		a := map[string]float64{"rock": 1.0, "indie": 1.0}
		b := map[string]float64{"rock": 1.0}
		assert.InDelta(t, 0.7071, genreCosine(a, b), 1e-3)
	})
}

func TestSplitSessions(t *testing.T) {
	userID := uuid.New()
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	gap := 30 * time.Minute

	events := []ListeningEvent{
		play(userID, uuid.New(), base, 1),
		play(userID, uuid.New(), base.Add(5*time.Minute), 1),
		play(userID, uuid.New(), base.Add(2*time.Hour), 1),
	}

	sessions := splitSessions(events, gap)
	require.Len(t, sessions, 2)
	assert.Len(t, sessions[0], 2)
	assert.Len(t, sessions[1], 1)
}

func TestBuildSimilarityIndexCoListening(t *testing.T) {
	userA, userB := uuid.New(), uuid.New()
	track1, track2, track3 := uuid.New(), uuid.New(), uuid.New()
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	events := []ListeningEvent{
		// One session for each user containing track1 and track2.
		play(userA, track1, base, 1),
		play(userA, track2, base.Add(4*time.Minute), 0.9),
		play(userB, track1, base.Add(time.Hour), 1),
		play(userB, track2, base.Add(time.Hour+5*time.Minute), 0.8),
		// track3 only ever appears alone.
		play(userB, track3, base.Add(6*time.Hour), 1),
		// Skips never enter the index.
		play(userA, track3, base.Add(2*time.Minute), 0.3),
	}

	index := buildSimilarityIndex(events, nil, 30*time.Minute)

	assert.Equal(t, 2, index.coCounts[track1][track2])
	assert.Equal(t, 2, index.coCounts[track2][track1])
	assert.Zero(t, index.coCounts[track1][track3])

	service := indexedSimilarityService(index)
	assert.InDelta(t, 1.0, service.CoListenSimilarity(track1, track2), 1e-9)
	assert.Zero(t, service.CoListenSimilarity(track1, track3))
	assert.Equal(
		t,
		service.CoListenSimilarity(track1, track2),
		service.CoListenSimilarity(track2, track1),
	)
}

func TestUserSimilarity(t *testing.T) {
	userA, userB, userC := uuid.New(), uuid.New(), uuid.New()
	track1, track2 := uuid.New(), uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []ListeningEvent{
		play(userA, track1, base, 1),
		play(userB, track1, base.Add(time.Hour), 1),
		play(userC, track2, base.Add(2*time.Hour), 1),
	}
	ratings := []Rating{
		loved(userA, track1),
		loved(userB, track1),
		loved(userC, track2),
	}

	index := buildSimilarityIndex(events, ratings, 30*time.Minute)
	service := indexedSimilarityService(index)

	// Identical taste: full Jaccard and full cosine.
	assert.InDelta(t, 1.0, service.UserSimilarity(userA, userB), 1e-9)
	// Disjoint taste.
	assert.Zero(t, service.UserSimilarity(userA, userC))
}

func TestUserSimilarityBlendWeights(t *testing.T) {
	userA, userB := uuid.New(), uuid.New()
	track1, track2 := uuid.New(), uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Same plays, disjoint loved sets: cosine 1.0, Jaccard 0.
	events := []ListeningEvent{
		play(userA, track1, base, 1),
		play(userB, track1, base.Add(time.Hour), 1),
	}
	ratings := []Rating{
		loved(userA, track1),
		loved(userB, track2),
	}

	index := buildSimilarityIndex(events, ratings, 30*time.Minute)
	service := indexedSimilarityService(index)

	assert.InDelta(t, 0.4, service.UserSimilarity(userA, userB), 1e-9)
}

func TestNeighborsOrderingAndLimit(t *testing.T) {
	target := uuid.New()
	twin, acquaintance, stranger := uuid.New(), uuid.New(), uuid.New()
	shared, other := uuid.New(), uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []ListeningEvent{
		play(target, shared, base, 1),
		play(twin, shared, base.Add(time.Hour), 1),
		play(acquaintance, shared, base.Add(2*time.Hour), 1),
		play(acquaintance, other, base.Add(3*time.Hour), 1),
		play(stranger, other, base.Add(4*time.Hour), 1),
	}
	ratings := []Rating{
		loved(target, shared),
		loved(twin, shared),
	}

	index := buildSimilarityIndex(events, ratings, 30*time.Minute)
	service := indexedSimilarityService(index)

	neighbors := service.Neighbors(target, 10)
	require.Len(t, neighbors, 2)
	assert.Equal(t, twin, neighbors[0].UserID)
	assert.Equal(t, acquaintance, neighbors[1].UserID)
	assert.Greater(t, neighbors[0].Similarity, neighbors[1].Similarity)

	limited := service.Neighbors(target, 1)
	require.Len(t, limited, 1)
	assert.Equal(t, twin, limited[0].UserID)
}

func TestSimilarityNotReady(t *testing.T) {
	service := NewSimilarityService(databaseStub(), repositoriesStub(), config.Config{})

	assert.False(t, service.Ready())
	assert.Zero(t, service.CoListenSimilarity(uuid.New(), uuid.New()))
	assert.Zero(t, service.UserSimilarity(uuid.New(), uuid.New()))
	assert.Nil(t, service.Neighbors(uuid.New(), 5))
}
