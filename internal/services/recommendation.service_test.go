package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cadenza/config"
	. "cadenza/internal/models"
	"cadenza/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubScorer struct {
	name   RecommendationType
	scores []TrackScore
	err    error
	delay  time.Duration
	panics bool
}

func (s *stubScorer) Name() RecommendationType { return s.name }

func (s *stubScorer) Score(_ context.Context, _ *SignalSnapshot) ([]TrackScore, error) {
	if s.panics {
		panic("strategy blew up")
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.scores, s.err
}

func fanOutService(budgetMs int) *RecommendationService {
	return &RecommendationService{
		config: config.Config{RequestBudgetMs: budgetMs},
		log:    logger.New("RecommendationService"),
	}
}

func TestRunStrategiesCollectsAllWithinBudget(t *testing.T) {
	service := fanOutService(400)
	snapshot := &SignalSnapshot{}

	results := service.runStrategies(context.Background(), snapshot,
		&stubScorer{name: RecommendationPopularity, scores: []TrackScore{{Track: track(trackA, 10), Score: 0.9}}},
		&stubScorer{name: RecommendationDiscovery, scores: []TrackScore{{Track: track(trackB, 2), Score: 0.8}}},
	)

	require.Len(t, results, 2)
	for _, result := range results {
		assert.NoError(t, result.Err)
		assert.Len(t, result.Scores, 1)
	}
}

func TestRunStrategiesReturnsPartialsWhenBudgetExpires(t *testing.T) {
	service := fanOutService(50)
	snapshot := &SignalSnapshot{}

	results := service.runStrategies(context.Background(), snapshot,
		&stubScorer{name: RecommendationPopularity, scores: []TrackScore{{Track: track(trackA, 10), Score: 0.9}}},
		&stubScorer{name: RecommendationCollaborative, delay: 2 * time.Second},
	)

	require.Len(t, results, 1, "slow strategy forfeits its slot")
	assert.Equal(t, RecommendationPopularity, results[0].Strategy)
}

func TestRunStrategiesIsolatesPanics(t *testing.T) {
	service := fanOutService(400)
	snapshot := &SignalSnapshot{}

	results := service.runStrategies(context.Background(), snapshot,
		&stubScorer{name: RecommendationCollaborative, panics: true},
		&stubScorer{name: RecommendationPopularity, scores: []TrackScore{{Track: track(trackA, 10), Score: 0.9}}},
	)

	require.Len(t, results, 2)

	byStrategy := make(map[RecommendationType]StrategyResult, len(results))
	for _, result := range results {
		byStrategy[result.Strategy] = result
	}
	assert.Error(t, byStrategy[RecommendationCollaborative].Err)
	assert.NoError(t, byStrategy[RecommendationPopularity].Err)
	assert.Len(t, byStrategy[RecommendationPopularity].Scores, 1)
}

func TestPersistTypeUsesDominantContributor(t *testing.T) {
	scored := ScoredTrack{
		Strategy: "hybrid_collaborative_content_based",
		Contributions: map[RecommendationType]float64{
			RecommendationCollaborative: 0.6,
			RecommendationContentBased:  0.4,
		},
	}
	assert.Equal(t, RecommendationCollaborative, persistType(scored))
}

func TestPersistTypeDefaultsToPopularity(t *testing.T) {
	assert.Equal(t, RecommendationPopularity, persistType(ScoredTrack{}))
}

func TestContributionMetadataRoundTrips(t *testing.T) {
	scored := ScoredTrack{
		Strategy: "hybrid_popularity_discovery",
		Contributions: map[RecommendationType]float64{
			RecommendationPopularity: 0.7,
			RecommendationDiscovery:  0.3,
		},
	}

	payload := contributionMetadata(scored)
	require.NotNil(t, payload)

	var decoded struct {
		Strategy      string             `json:"strategy"`
		Contributions map[string]float64 `json:"contributions"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "hybrid_popularity_discovery", decoded.Strategy)
	assert.Equal(t, 0.7, decoded.Contributions["popularity"])
}

type stubTrackRepository struct {
	pool        []Track
	poolErr     error
	gotExcluded []uuid.UUID
}

func (s *stubTrackRepository) GetByID(
	_ context.Context, _ *gorm.DB, _ uuid.UUID,
) (*Track, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubTrackRepository) GetByIDs(
	_ context.Context, _ *gorm.DB, _ []uuid.UUID,
) ([]Track, error) {
	return nil, nil
}

func (s *stubTrackRepository) GetCandidatePool(
	_ context.Context, _ *gorm.DB, excludeTrackIDs []uuid.UUID,
) ([]Track, error) {
	s.gotExcluded = excludeTrackIDs
	if s.poolErr != nil {
		return nil, s.poolErr
	}

	excluded := make(map[uuid.UUID]bool, len(excludeTrackIDs))
	for _, id := range excludeTrackIDs {
		excluded[id] = true
	}
	pool := make([]Track, 0, len(s.pool))
	for _, candidate := range s.pool {
		if !excluded[candidate.ID] {
			pool = append(pool, candidate)
		}
	}
	return pool, nil
}

func (s *stubTrackRepository) RecordPlay(
	_ context.Context, _ *gorm.DB, _ uuid.UUID, _ time.Time,
) error {
	return nil
}

type stubRatingRepository struct {
	banned    []uuid.UUID
	bannedErr error
}

func (s *stubRatingRepository) GetByUser(
	_ context.Context, _ *gorm.DB, _ uuid.UUID,
) ([]Rating, error) {
	return nil, nil
}

func (s *stubRatingRepository) GetBannedTrackIDs(
	_ context.Context, _ *gorm.DB, _ uuid.UUID,
) ([]uuid.UUID, error) {
	return s.banned, s.bannedErr
}

func (s *stubRatingRepository) GetAllLoved(
	_ context.Context, _ *gorm.DB,
) ([]Rating, error) {
	return nil, nil
}

func (s *stubRatingRepository) GetTrackRatingSummaries(
	_ context.Context, _ *gorm.DB,
) ([]repositories.TrackRatingSummary, error) {
	return nil, nil
}

func fallbackService(tracks *stubTrackRepository, ratings *stubRatingRepository) *RecommendationService {
	cfg := config.Config{HybridContributionShare: 0.15}
	return &RecommendationService{
		repos:      repositories.Repository{Track: tracks, Rating: ratings},
		config:     cfg,
		popularity: NewPopularityService(databaseStub(), repositoriesStub()),
		blender:    NewBlenderService(cfg),
		log:        logger.New("RecommendationService"),
	}
}

func TestPopularityFallbackExcludesBannedTracks(t *testing.T) {
	banned := track(trackB, 500)
	tracks := &stubTrackRepository{
		pool: []Track{track(trackA, 100), banned, track(trackC, 50)},
	}
	ratings := &stubRatingRepository{banned: []uuid.UUID{banned.ID}}
	service := fallbackService(tracks, ratings)

	result, err := service.popularityFallback(
		context.Background(), nil, uuid.New(), 10, 0, RecommendationFilter{},
	)
	require.NoError(t, err)
	require.NotEmpty(t, result.Tracks)
	assert.False(t, result.Persisted)

	assert.Equal(t, []uuid.UUID{banned.ID}, tracks.gotExcluded,
		"bans must reach the candidate pool query")
	for _, scored := range result.Tracks {
		assert.NotEqual(t, banned.ID, scored.Track.ID, "banned track surfaced in degraded output")
	}
}

func TestPopularityFallbackFailsWhenBanReadFails(t *testing.T) {
	tracks := &stubTrackRepository{pool: []Track{track(trackA, 100)}}
	ratings := &stubRatingRepository{bannedErr: errors.New("ratings unreachable")}
	service := fallbackService(tracks, ratings)

	_, err := service.popularityFallback(
		context.Background(), nil, uuid.New(), 10, 0, RecommendationFilter{},
	)
	assert.ErrorIs(t, err, ErrSignalUnavailable)
}

func TestGenreKnown(t *testing.T) {
	candidates := []Track{
		genreTrack(map[string]float64{"jazz": 0.9}),
		genreTrack(map[string]float64{"rock": 0.6, "blues": 0.3}),
	}

	assert.True(t, genreKnown(candidates, "jazz"))
	assert.True(t, genreKnown(candidates, "blues"))
	assert.True(t, genreKnown(candidates, ""), "empty filter is always valid")
	assert.False(t, genreKnown(candidates, "synthwave"))
	assert.False(t, genreKnown(nil, "jazz"))
}
