package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RecommendationType string

const (
	RecommendationCollaborative RecommendationType = "collaborative"
	RecommendationContentBased  RecommendationType = "content_based"
	RecommendationPopularity    RecommendationType = "popularity"
	RecommendationDiscovery     RecommendationType = "discovery"
	RecommendationPlaylist      RecommendationType = "playlist_generation"
)

type Recommendation struct {
	BaseUUIDModel
	UserID  uuid.UUID `gorm:"type:uuid;not null;index:idx_recommendations_user_track,priority:1" json:"userId"`
	User    User      `gorm:"foreignKey:UserID"                                                  json:"user,omitempty"`
	TrackID uuid.UUID `gorm:"type:uuid;not null;index:idx_recommendations_user_track,priority:2" json:"trackId"`
	Track   Track     `gorm:"foreignKey:TrackID"                                                 json:"track,omitempty"`

	Type     RecommendationType `gorm:"type:varchar(60);not null"   json:"recommendationType"`
	Score    float64            `gorm:"type:numeric(5,4);not null"  json:"score"` // [0,1]
	Reason   string             `gorm:"type:text"                   json:"reason"`
	Metadata datatypes.JSON     `gorm:"type:jsonb"                  json:"metadata,omitempty"`

	IsConsumed bool       `gorm:"type:bool;not null;default:false"        json:"isConsumed"`
	ConsumedAt *time.Time `gorm:"type:timestamp"                          json:"consumedAt,omitempty"`
	ExpiresAt  time.Time  `gorm:"not null;index:idx_recommendations_expires" json:"expiresAt"`
}

func (r *Recommendation) BeforeSave(tx *gorm.DB) error {
	if r.Score < 0 || r.Score > 1 {
		return gorm.ErrInvalidValue
	}
	return nil
}

// Active reports whether the recommendation is still eligible for result
// sets. Expiry is a filter predicate, expired rows are kept.
func (r *Recommendation) Active(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}
