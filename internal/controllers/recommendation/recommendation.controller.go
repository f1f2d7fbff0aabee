package recommendationController

import (
	"context"
	"errors"
	"time"

	. "cadenza/internal/models"
	"cadenza/internal/services"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrValidation = errors.New("invalid request parameter")
	ErrNotFound   = errors.New("user not found")
)

const (
	DefaultLimit = 20
	MaxLimit     = 50

	minPlaylistMinutes = 5
	maxPlaylistMinutes = 480
)

type RecommendationController struct {
	recommendationService *services.RecommendationService
}

type RecommendationControllerInterface interface {
	GetRecommendations(
		ctx context.Context,
		userID uuid.UUID,
		limit, offset int,
		filter services.RecommendationFilter,
	) (*services.RecommendationResult, error)
	GetStored(
		ctx context.Context,
		userID uuid.UUID,
		limit, offset int,
	) ([]Recommendation, error)
	GetTrending(ctx context.Context, period string, limit int) ([]services.ScoredTrack, error)
	GetDiscovery(
		ctx context.Context,
		userID uuid.UUID,
		limit int,
	) ([]services.ScoredTrack, error)
	GeneratePlaylist(
		ctx context.Context,
		userID uuid.UUID,
		request services.PlaylistRequest,
	) (*services.Playlist, error)
	MarkConsumed(ctx context.Context, userID, trackID uuid.UUID) (bool, error)
}

func New(service services.Service) RecommendationControllerInterface {
	return &RecommendationController{
		recommendationService: service.Recommendation,
	}
}

func validatePage(limit, offset int) (int, int, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return 0, 0, ErrValidation
	}
	if offset < 0 {
		return 0, 0, ErrValidation
	}
	return limit, offset, nil
}

func (c *RecommendationController) GetRecommendations(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
	filter services.RecommendationFilter,
) (*services.RecommendationResult, error) {
	log := logger.New("recommendationController").TraceFromContext(ctx).Function("GetRecommendations")

	limit, offset, err := validatePage(limit, offset)
	if err != nil {
		return nil, err
	}
	if filter.Mood != "" && !services.ValidMood(filter.Mood) {
		return nil, ErrValidation
	}

	result, err := c.recommendationService.GetRecommendations(ctx, userID, limit, offset, filter)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		if errors.Is(err, services.ErrUnknownGenre) {
			return nil, ErrValidation
		}
		if errors.Is(err, services.ErrPersistenceWrite) {
			// Degraded but answerable: the scores are real, only the
			// write failed. The handler reports persisted=false.
			return result, err
		}
		return nil, log.Err("failed to get recommendations", err, "userID", userID)
	}

	return result, nil
}

func (c *RecommendationController) GetStored(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]Recommendation, error) {
	log := logger.New("recommendationController").TraceFromContext(ctx).Function("GetStored")

	limit, offset, err := validatePage(limit, offset)
	if err != nil {
		return nil, err
	}

	recommendations, err := c.recommendationService.GetStored(ctx, userID, limit, offset)
	if err != nil {
		return nil, log.Err("failed to get stored recommendations", err, "userID", userID)
	}

	return recommendations, nil
}

func (c *RecommendationController) GetTrending(
	ctx context.Context,
	period string,
	limit int,
) ([]services.ScoredTrack, error) {
	log := logger.New("recommendationController").TraceFromContext(ctx).Function("GetTrending")

	if period == "" {
		period = string(services.TrendingWeek)
	}
	trendingPeriod := services.TrendingPeriod(period)
	if !trendingPeriod.Valid() {
		return nil, ErrValidation
	}

	limit, _, err := validatePage(limit, 0)
	if err != nil {
		return nil, err
	}

	trending, err := c.recommendationService.GetTrending(ctx, trendingPeriod, limit)
	if err != nil {
		return nil, log.Err("failed to get trending", err, "period", period)
	}

	return trending, nil
}

func (c *RecommendationController) GetDiscovery(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]services.ScoredTrack, error) {
	log := logger.New("recommendationController").TraceFromContext(ctx).Function("GetDiscovery")

	limit, _, err := validatePage(limit, 0)
	if err != nil {
		return nil, err
	}

	discovery, err := c.recommendationService.GetDiscovery(ctx, userID, limit)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, log.Err("failed to get discovery feed", err, "userID", userID)
	}

	return discovery, nil
}

func (c *RecommendationController) GeneratePlaylist(
	ctx context.Context,
	userID uuid.UUID,
	request services.PlaylistRequest,
) (*services.Playlist, error) {
	log := logger.New("recommendationController").TraceFromContext(ctx).Function("GeneratePlaylist")

	if request.DurationMinutes < minPlaylistMinutes ||
		request.DurationMinutes > maxPlaylistMinutes {
		return nil, ErrValidation
	}
	if request.Mood != "" && !services.ValidMood(request.Mood) {
		return nil, ErrValidation
	}

	playlist, err := c.recommendationService.GeneratePlaylist(ctx, userID, request)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		if errors.Is(err, services.ErrPersistenceWrite) {
			return playlist, err
		}
		return nil, log.Err("failed to generate playlist", err, "userID", userID)
	}

	return playlist, nil
}

func (c *RecommendationController) MarkConsumed(
	ctx context.Context,
	userID, trackID uuid.UUID,
) (bool, error) {
	log := logger.New("recommendationController").TraceFromContext(ctx).Function("MarkConsumed")

	consumed, err := c.recommendationService.MarkConsumed(ctx, userID, trackID, time.Now())
	if err != nil {
		return false, log.Err("failed to mark recommendation consumed", err,
			"userID", userID,
			"trackID", trackID,
		)
	}

	return consumed, nil
}
