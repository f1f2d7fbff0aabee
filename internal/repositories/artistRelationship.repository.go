package repositories

import (
	"context"

	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ArtistRelationshipRepository interface {
	GetRelated(
		ctx context.Context,
		tx *gorm.DB,
		artistID uuid.UUID,
	) ([]ArtistRelationship, error)
	GetRelatedForArtists(
		ctx context.Context,
		tx *gorm.DB,
		artistIDs []uuid.UUID,
	) ([]ArtistRelationship, error)
}

type artistRelationshipRepository struct {
	log logger.Logger
}

func NewArtistRelationshipRepository() ArtistRelationshipRepository {
	return &artistRelationshipRepository{
		log: logger.New("artistRelationshipRepository"),
	}
}

func (r *artistRelationshipRepository) GetRelated(
	ctx context.Context,
	tx *gorm.DB,
	artistID uuid.UUID,
) ([]ArtistRelationship, error) {
	log := r.log.Function("GetRelated")

	relationships, err := gorm.G[ArtistRelationship](tx).
		Where("artist_id = ?", artistID).
		Order("strength DESC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get related artists", err, "artistID", artistID)
	}

	return relationships, nil
}

func (r *artistRelationshipRepository) GetRelatedForArtists(
	ctx context.Context,
	tx *gorm.DB,
	artistIDs []uuid.UUID,
) ([]ArtistRelationship, error) {
	log := r.log.Function("GetRelatedForArtists")

	if len(artistIDs) == 0 {
		return []ArtistRelationship{}, nil
	}

	relationships, err := gorm.G[ArtistRelationship](tx).
		Where("artist_id IN ?", artistIDs).
		Order("strength DESC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get related artists", err, "count", len(artistIDs))
	}

	return relationships, nil
}
