package repositories

import (
	"context"

	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrackRatingSummary struct {
	TrackID       uuid.UUID `gorm:"column:track_id"`
	AverageRating float64   `gorm:"column:average_rating"`
	RatingCount   int       `gorm:"column:rating_count"`
}

type RatingRepository interface {
	GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]Rating, error)
	GetBannedTrackIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)
	GetAllLoved(ctx context.Context, tx *gorm.DB) ([]Rating, error)
	GetTrackRatingSummaries(ctx context.Context, tx *gorm.DB) ([]TrackRatingSummary, error)
}

type ratingRepository struct {
	log logger.Logger
}

func NewRatingRepository() RatingRepository {
	return &ratingRepository{
		log: logger.New("ratingRepository"),
	}
}

func (r *ratingRepository) GetByUser(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) ([]Rating, error) {
	log := r.log.Function("GetByUser")

	ratings, err := gorm.G[Rating](tx).
		Where("user_id = ?", userID).
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get ratings for user", err, "userID", userID)
	}

	return ratings, nil
}

func (r *ratingRepository) GetBannedTrackIDs(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) ([]uuid.UUID, error) {
	log := r.log.Function("GetBannedTrackIDs")

	var trackIDs []uuid.UUID
	err := tx.WithContext(ctx).
		Model(&Rating{}).
		Where("user_id = ? AND is_banned = ?", userID, true).
		Pluck("track_id", &trackIDs).Error
	if err != nil {
		return nil, log.Err("failed to get banned track ids", err, "userID", userID)
	}

	return trackIDs, nil
}

func (r *ratingRepository) GetAllLoved(
	ctx context.Context,
	tx *gorm.DB,
) ([]Rating, error) {
	log := r.log.Function("GetAllLoved")

	ratings, err := gorm.G[Rating](tx).
		Where("is_loved = ?", true).
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get loved ratings", err)
	}

	return ratings, nil
}

// GetTrackRatingSummaries aggregates numeric ratings across all users.
// Rows without a numeric rating (love or ban only) are skipped.
func (r *ratingRepository) GetTrackRatingSummaries(
	ctx context.Context,
	tx *gorm.DB,
) ([]TrackRatingSummary, error) {
	log := r.log.Function("GetTrackRatingSummaries")

	var summaries []TrackRatingSummary
	err := tx.WithContext(ctx).
		Model(&Rating{}).
		Select("track_id, AVG(rating) AS average_rating, COUNT(rating) AS rating_count").
		Where("rating IS NOT NULL").
		Group("track_id").
		Scan(&summaries).Error
	if err != nil {
		return nil, log.Err("failed to get track rating summaries", err)
	}

	return summaries, nil
}
