package repositories

import (
	"context"

	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*User, error)
	GetActiveUserIDs(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)
}

type userRepository struct {
	log logger.Logger
}

func NewUserRepository() UserRepository {
	return &userRepository{
		log: logger.New("userRepository"),
	}
}

func (r *userRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) (*User, error) {
	log := r.log.Function("GetByID")

	user, err := gorm.G[*User](tx).
		Where("id = ?", userID).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get user", err, "userID", userID)
	}

	return user, nil
}

func (r *userRepository) GetActiveUserIDs(
	ctx context.Context,
	tx *gorm.DB,
) ([]uuid.UUID, error) {
	log := r.log.Function("GetActiveUserIDs")

	var userIDs []uuid.UUID
	err := tx.WithContext(ctx).
		Model(&User{}).
		Where("is_active = ?", true).
		Pluck("id", &userIDs).Error
	if err != nil {
		return nil, log.Err("failed to get active user ids", err)
	}

	return userIDs, nil
}
