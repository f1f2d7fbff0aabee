package repositories

import (
	"context"
	"time"

	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrackPlayCount struct {
	TrackID   uuid.UUID `gorm:"column:track_id"`
	PlayCount int       `gorm:"column:play_count"`
}

type ListeningEventRepository interface {
	Create(ctx context.Context, tx *gorm.DB, event *ListeningEvent) error
	GetRecentByUser(
		ctx context.Context,
		tx *gorm.DB,
		userID uuid.UUID,
		since time.Time,
		limit int,
	) ([]ListeningEvent, error)
	GetRecentAll(
		ctx context.Context,
		tx *gorm.DB,
		since time.Time,
		limit int,
	) ([]ListeningEvent, error)
	CountQualifiedPlaysSince(
		ctx context.Context,
		tx *gorm.DB,
		since time.Time,
	) ([]TrackPlayCount, error)
}

type listeningEventRepository struct {
	log logger.Logger
}

func NewListeningEventRepository() ListeningEventRepository {
	return &listeningEventRepository{
		log: logger.New("listeningEventRepository"),
	}
}

func (r *listeningEventRepository) Create(
	ctx context.Context,
	tx *gorm.DB,
	event *ListeningEvent,
) error {
	log := r.log.Function("Create")

	err := gorm.G[ListeningEvent](tx).Create(ctx, event)
	if err != nil {
		return log.Err(
			"failed to create listening event",
			err,
			"userID", event.UserID,
			"trackID", event.TrackID,
		)
	}

	return nil
}

func (r *listeningEventRepository) GetRecentByUser(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	since time.Time,
	limit int,
) ([]ListeningEvent, error) {
	log := r.log.Function("GetRecentByUser")

	events, err := gorm.G[ListeningEvent](tx).
		Where("user_id = ? AND played_at >= ?", userID, since).
		Order("played_at DESC").
		Limit(limit).
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get recent events for user", err, "userID", userID)
	}

	return events, nil
}

func (r *listeningEventRepository) GetRecentAll(
	ctx context.Context,
	tx *gorm.DB,
	since time.Time,
	limit int,
) ([]ListeningEvent, error) {
	log := r.log.Function("GetRecentAll")

	query := gorm.G[ListeningEvent](tx).
		Where("played_at >= ?", since).
		Order("played_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	events, err := query.Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get recent events", err)
	}

	return events, nil
}

// CountQualifiedPlaysSince only counts events past the completion threshold,
// so skips never inflate trending numbers.
func (r *listeningEventRepository) CountQualifiedPlaysSince(
	ctx context.Context,
	tx *gorm.DB,
	since time.Time,
) ([]TrackPlayCount, error) {
	log := r.log.Function("CountQualifiedPlaysSince")

	var counts []TrackPlayCount
	err := tx.WithContext(ctx).
		Model(&ListeningEvent{}).
		Select("track_id, COUNT(*) AS play_count").
		Where("played_at >= ? AND completion_percentage > ?", since, CompletionThreshold).
		Group("track_id").
		Order("play_count DESC, track_id ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, log.Err("failed to count qualified plays", err)
	}

	return counts, nil
}
