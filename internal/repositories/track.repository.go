package repositories

import (
	"context"
	"time"

	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrackRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, trackID uuid.UUID) (*Track, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, trackIDs []uuid.UUID) ([]Track, error)
	GetCandidatePool(
		ctx context.Context,
		tx *gorm.DB,
		excludeTrackIDs []uuid.UUID,
	) ([]Track, error)
	RecordPlay(
		ctx context.Context,
		tx *gorm.DB,
		trackID uuid.UUID,
		playedAt time.Time,
	) error
}

type trackRepository struct {
	log logger.Logger
}

func NewTrackRepository() TrackRepository {
	return &trackRepository{
		log: logger.New("trackRepository"),
	}
}

func (r *trackRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	trackID uuid.UUID,
) (*Track, error) {
	log := r.log.Function("GetByID")

	track, err := gorm.G[*Track](tx).
		Preload("Artist", nil).
		Where("id = ?", trackID).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get track", err, "trackID", trackID)
	}

	return track, nil
}

func (r *trackRepository) GetByIDs(
	ctx context.Context,
	tx *gorm.DB,
	trackIDs []uuid.UUID,
) ([]Track, error) {
	log := r.log.Function("GetByIDs")

	if len(trackIDs) == 0 {
		return []Track{}, nil
	}

	tracks, err := gorm.G[Track](tx).
		Preload("Artist", nil).
		Where("id IN ?", trackIDs).
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get tracks by ids", err, "count", len(trackIDs))
	}

	return tracks, nil
}

// GetCandidatePool returns every scorable track minus the exclusion set.
// Banned tracks are excluded here so no strategy ever sees them.
func (r *trackRepository) GetCandidatePool(
	ctx context.Context,
	tx *gorm.DB,
	excludeTrackIDs []uuid.UUID,
) ([]Track, error) {
	log := r.log.Function("GetCandidatePool")

	query := gorm.G[Track](tx).Preload("Artist", nil)
	if len(excludeTrackIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeTrackIDs)
	}

	tracks, err := query.Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get candidate pool", err)
	}

	return tracks, nil
}

// RecordPlay bumps the denormalized play counter. Only qualified plays
// should reach this; the caller applies the completion threshold.
func (r *trackRepository) RecordPlay(
	ctx context.Context,
	tx *gorm.DB,
	trackID uuid.UUID,
	playedAt time.Time,
) error {
	log := r.log.Function("RecordPlay")

	err := tx.WithContext(ctx).
		Model(&Track{}).
		Where("id = ?", trackID).
		UpdateColumns(map[string]any{
			"play_count":     gorm.Expr("play_count + 1"),
			"last_played_at": playedAt,
		}).Error
	if err != nil {
		return log.Err("failed to record play", err, "trackID", trackID)
	}

	return nil
}
