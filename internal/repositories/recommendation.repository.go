package repositories

import (
	"context"
	"time"

	"cadenza/internal/constants"
	"cadenza/internal/database"
	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecommendationRepository interface {
	CreateBatch(
		ctx context.Context,
		tx *gorm.DB,
		recommendations []Recommendation,
	) error
	GetActiveForUser(
		ctx context.Context,
		tx *gorm.DB,
		userID uuid.UUID,
		now time.Time,
	) ([]Recommendation, error)
	MarkConsumed(
		ctx context.Context,
		tx *gorm.DB,
		userID uuid.UUID,
		trackID uuid.UUID,
		consumedAt time.Time,
	) (bool, error)
	ClearUserCache(ctx context.Context, userID uuid.UUID) error
}

type recommendationRepository struct {
	cache database.CacheClient
	log   logger.Logger
}

func NewRecommendationRepository(cache database.CacheClient) RecommendationRepository {
	return &recommendationRepository{
		cache: cache,
		log:   logger.New("recommendationRepository"),
	}
}

// CreateBatch supersedes any live rows for the same (user, track, type)
// before inserting, so the partial unique index never rejects a refresh.
func (r *recommendationRepository) CreateBatch(
	ctx context.Context,
	tx *gorm.DB,
	recommendations []Recommendation,
) error {
	log := r.log.Function("CreateBatch")

	if len(recommendations) == 0 {
		return nil
	}

	userID := recommendations[0].UserID
	for _, rec := range recommendations {
		rows, err := gorm.G[Recommendation](tx).
			Where("user_id = ? AND track_id = ? AND type = ?", rec.UserID, rec.TrackID, rec.Type).
			Delete(ctx)
		if err != nil {
			return log.Err(
				"failed to supersede prior recommendation",
				err,
				"userID", rec.UserID,
				"trackID", rec.TrackID,
			)
		}
		if rows > 0 {
			log.Debug("superseded prior recommendation",
				"userID", rec.UserID,
				"trackID", rec.TrackID,
				"type", rec.Type,
			)
		}
	}

	err := gorm.G[Recommendation](tx).CreateInBatches(ctx, &recommendations, 100)
	if err != nil {
		return log.Err(
			"failed to create recommendations",
			err,
			"userID", userID,
			"count", len(recommendations),
		)
	}

	r.clearUserCache(ctx, userID)

	return nil
}

func (r *recommendationRepository) GetActiveForUser(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	now time.Time,
) ([]Recommendation, error) {
	log := r.log.Function("GetActiveForUser")

	var cached []Recommendation
	found, err := database.NewCacheBuilder(r.cache, userID.String()).
		WithContext(ctx).
		WithHash(constants.RecommendationsCachePrefix).
		Get(&cached)
	if err != nil {
		log.Warn("failed to get recommendations from cache", "userID", userID, "error", err)
	}

	if found {
		return filterActive(cached, now), nil
	}

	recommendations, err := gorm.G[Recommendation](tx).
		Preload("Track.Artist", nil).
		Where("user_id = ? AND is_consumed = ?", userID, false).
		Order("score DESC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get recommendations for user", err, "userID", userID)
	}

	err = database.NewCacheBuilder(r.cache, userID.String()).
		WithContext(ctx).
		WithHash(constants.RecommendationsCachePrefix).
		WithStruct(recommendations).
		WithTTL(constants.RecommendationsCacheExpiry).
		Set()
	if err != nil {
		log.Warn("failed to cache recommendations", "userID", userID, "error", err)
	}

	return filterActive(recommendations, now), nil
}

// Expiry is evaluated against the caller's clock rather than deleted by a
// sweeper, so stale cache entries and late reads agree on what is live.
func filterActive(recommendations []Recommendation, now time.Time) []Recommendation {
	active := make([]Recommendation, 0, len(recommendations))
	for _, rec := range recommendations {
		if rec.Active(now) && !rec.IsConsumed {
			active = append(active, rec)
		}
	}
	return active
}

// MarkConsumed flips the oldest live match and reports whether a row
// changed. Calling it again for the same pair is a no-op, not an error.
func (r *recommendationRepository) MarkConsumed(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	trackID uuid.UUID,
	consumedAt time.Time,
) (bool, error) {
	log := r.log.Function("MarkConsumed")

	target, err := gorm.G[*Recommendation](tx).
		Where(
			"user_id = ? AND track_id = ? AND is_consumed = ? AND expires_at > ?",
			userID, trackID, false, consumedAt,
		).
		Order("created_at ASC").
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, log.Err(
			"failed to find recommendation to consume",
			err,
			"userID", userID,
			"trackID", trackID,
		)
	}

	_, err = gorm.G[Recommendation](tx).
		Where("id = ?", target.ID).
		Updates(ctx, Recommendation{IsConsumed: true, ConsumedAt: &consumedAt})
	if err != nil {
		return false, log.Err(
			"failed to mark recommendation consumed",
			err,
			"recommendationID", target.ID,
			"userID", userID,
		)
	}

	r.clearUserCache(ctx, userID)

	return true, nil
}

func (r *recommendationRepository) clearUserCache(ctx context.Context, userID uuid.UUID) {
	err := database.NewCacheBuilder(r.cache, userID.String()).
		WithContext(ctx).
		WithHash(constants.RecommendationsCachePrefix).
		Delete()
	if err != nil {
		r.log.Warn("failed to clear recommendation cache", "userID", userID, "error", err)
	}

	// The discovery feed reads from the same signal, so regeneration and
	// consumption invalidate it too.
	err = database.NewCacheBuilder(r.cache, userID.String()).
		WithContext(ctx).
		WithHash(constants.DiscoveryCachePrefix).
		Delete()
	if err != nil {
		r.log.Warn("failed to clear discovery cache", "userID", userID, "error", err)
	}
}

func (r *recommendationRepository) ClearUserCache(
	ctx context.Context,
	userID uuid.UUID,
) error {
	log := r.log.Function("ClearUserCache")

	r.clearUserCache(ctx, userID)

	log.Debug("cleared recommendation cache", "userID", userID)
	return nil
}
