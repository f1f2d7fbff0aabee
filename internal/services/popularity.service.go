package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"cadenza/internal/constants"
	"cadenza/internal/database"
	. "cadenza/internal/models"
	"cadenza/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

type TrendingPeriod string

const (
	TrendingDay   TrendingPeriod = "day"
	TrendingWeek  TrendingPeriod = "week"
	TrendingMonth TrendingPeriod = "month"
)

func (p TrendingPeriod) Valid() bool {
	switch p {
	case TrendingDay, TrendingWeek, TrendingMonth:
		return true
	}
	return false
}

func (p TrendingPeriod) window() time.Duration {
	switch p {
	case TrendingDay:
		return 24 * time.Hour
	case TrendingWeek:
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// PopularityService is both the popularity scoring strategy and the
// global trending feed. The strategy reads the denormalized play
// counters on the candidate pool, so it works even when every
// personalized signal is missing. That makes it the degradation target
// when the signal store is unavailable.
type PopularityService struct {
	db    database.DB
	repos repositories.Repository
	log   logger.Logger
}

func NewPopularityService(db database.DB, repos repositories.Repository) *PopularityService {
	return &PopularityService{
		db:    db,
		repos: repos,
		log:   logger.New("PopularityService"),
	}
}

func (s *PopularityService) Name() RecommendationType {
	return RecommendationPopularity
}

// Blend weights between the play signal and the average rating signal.
// The final scores are renormalized so the strongest candidate sits at 1.
const (
	playSignalWeight   = 0.7
	ratingSignalWeight = 0.3
)

func (s *PopularityService) Score(
	ctx context.Context,
	snapshot *SignalSnapshot,
) ([]TrackScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := excludeKnown(snapshot.Candidates, snapshot.Known)

	var maxPlayWeight float64
	playWeights := make([]float64, len(candidates))
	for i, track := range candidates {
		// Loves weigh in lightly on top of raw plays. Log damping keeps
		// one runaway hit from flattening everything else to zero.
		weight := math.Log1p(float64(track.PlayCount)) + 0.5*math.Log1p(float64(track.LoveCount))
		playWeights[i] = weight
		if weight > maxPlayWeight {
			maxPlayWeight = weight
		}
	}
	if maxPlayWeight == 0 {
		return []TrackScore{}, nil
	}

	var maxBlended float64
	blended := make([]float64, len(candidates))
	for i, track := range candidates {
		rating := snapshot.RatingSummaries[track.ID].AverageRating / 5
		blended[i] = playSignalWeight*(playWeights[i]/maxPlayWeight) + ratingSignalWeight*rating
		if blended[i] > maxBlended {
			maxBlended = blended[i]
		}
	}
	if maxBlended == 0 {
		return []TrackScore{}, nil
	}

	scores := make([]TrackScore, 0, len(candidates))
	for i, track := range candidates {
		if blended[i] == 0 {
			continue
		}
		scores = append(scores, TrackScore{
			Track:  track,
			Score:  clampScore(blended[i] / maxBlended),
			Reason: fmt.Sprintf("Popular right now with %d plays", track.PlayCount),
		})
	}

	return scores, nil
}

// GetTrending returns the most played tracks in the period, scored by
// qualified play share. Results are shared across users and cached.
func (s *PopularityService) GetTrending(
	ctx context.Context,
	period TrendingPeriod,
	limit int,
) ([]ScoredTrack, error) {
	log := s.log.Function("GetTrending")

	cacheKey := fmt.Sprintf("%s:%d", period, limit)
	var cached []ScoredTrack
	found, err := database.NewCacheBuilder(s.db.Cache.Trending, cacheKey).
		WithContext(ctx).
		WithHash(constants.TrendingCachePrefix).
		Get(&cached)
	if err != nil {
		log.Warn("failed to get trending from cache", "period", period, "error", err)
	}
	if found {
		return cached, nil
	}

	tx := s.db.SQLWithContext(ctx)
	since := time.Now().Add(-period.window())

	counts, err := s.repos.ListeningEvent.CountQualifiedPlaysSince(ctx, tx, since)
	if err != nil {
		return nil, log.Err("failed to count plays for trending", err, "period", period)
	}
	if len(counts) == 0 {
		return []ScoredTrack{}, nil
	}

	trackIDs := make([]uuid.UUID, len(counts))
	for i, count := range counts {
		trackIDs[i] = count.TrackID
	}
	tracks, err := s.repos.Track.GetByIDs(ctx, tx, trackIDs)
	if err != nil {
		return nil, log.Err("failed to load trending tracks", err, "period", period)
	}
	byID := make(map[uuid.UUID]Track, len(tracks))
	for _, track := range tracks {
		byID[track.ID] = track
	}

	summaries, err := s.repos.Rating.GetTrackRatingSummaries(ctx, tx)
	if err != nil {
		return nil, log.Err("failed to load rating summaries for trending", err, "period", period)
	}
	ratings := make(map[uuid.UUID]repositories.TrackRatingSummary, len(summaries))
	for _, summary := range summaries {
		ratings[summary.TrackID] = summary
	}

	trending := rankTrending(counts, ratings, byID, period, limit)

	err = database.NewCacheBuilder(s.db.Cache.Trending, cacheKey).
		WithContext(ctx).
		WithHash(constants.TrendingCachePrefix).
		WithStruct(trending).
		WithTTL(constants.TrendingCacheExpiry).
		Set()
	if err != nil {
		log.Warn("failed to cache trending", "period", period, "error", err)
	}

	return trending, nil
}

// rankTrending blends window play counts with average ratings and orders
// the feed. Counts without a track row are dropped before the limit is
// applied so a full page never comes up short over a stale aggregate.
func rankTrending(
	counts []repositories.TrackPlayCount,
	ratings map[uuid.UUID]repositories.TrackRatingSummary,
	byID map[uuid.UUID]Track,
	period TrendingPeriod,
	limit int,
) []ScoredTrack {
	var maxCount float64
	for _, count := range counts {
		if float64(count.PlayCount) > maxCount {
			maxCount = float64(count.PlayCount)
		}
	}
	if maxCount == 0 {
		return []ScoredTrack{}
	}

	trending := make([]ScoredTrack, 0, len(counts))
	for _, count := range counts {
		track, ok := byID[count.TrackID]
		if !ok {
			continue
		}
		rating := ratings[count.TrackID].AverageRating / 5
		playShare := float64(count.PlayCount) / maxCount
		trending = append(trending, ScoredTrack{
			Track:    track,
			Score:    clampScore(playSignalWeight*playShare + ratingSignalWeight*rating),
			Strategy: string(RecommendationPopularity),
			Reason:   fmt.Sprintf("Trending this %s with %d plays", period, count.PlayCount),
		})
	}

	sort.Slice(trending, func(i, j int) bool {
		if trending[i].Score != trending[j].Score {
			return trending[i].Score > trending[j].Score
		}
		return trending[i].Track.ID.String() < trending[j].Track.ID.String()
	})

	if len(trending) > limit {
		trending = trending[:limit]
	}

	return trending
}
