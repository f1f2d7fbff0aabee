package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Rating struct {
	BaseUUIDModel
	UserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ratings_user_track,priority:1" json:"userId"`
	User    User      `gorm:"foreignKey:UserID"                                                json:"user,omitempty"`
	TrackID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ratings_user_track,priority:2" json:"trackId"`
	Track   Track     `gorm:"foreignKey:TrackID"                                               json:"track,omitempty"`

	Rating   *int `gorm:"type:int"                 json:"rating,omitempty"` // 1..5
	IsLoved  bool `gorm:"type:bool;default:false"  json:"isLoved"`
	IsBanned bool `gorm:"type:bool;default:false"  json:"isBanned"`
}

func (r *Rating) BeforeSave(tx *gorm.DB) error {
	if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
		return gorm.ErrInvalidValue
	}
	return nil
}
