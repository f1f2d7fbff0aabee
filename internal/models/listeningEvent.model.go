package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompletionThreshold is the minimum completion percentage for a listening
// event to count as a play. Shared with the external play-count accounting.
var CompletionThreshold = decimal.NewFromFloat(0.5)

type ListeningEvent struct {
	BaseUUIDModel
	UserID   uuid.UUID `gorm:"type:uuid;not null;index:idx_events_user_played,priority:1" json:"userId"`
	User     User      `gorm:"foreignKey:UserID"                                          json:"user,omitempty"`
	TrackID  uuid.UUID `gorm:"type:uuid;not null;index:idx_events_track"                  json:"trackId"`
	Track    Track     `gorm:"foreignKey:TrackID"                                         json:"track,omitempty"`
	PlayedAt time.Time `gorm:"not null;index:idx_events_user_played,priority:2"           json:"playedAt"`

	PlayDuration         int             `gorm:"type:int;not null;default:0"     json:"playDuration"` // seconds
	CompletionPercentage decimal.Decimal `gorm:"type:numeric(4,3);not null"      json:"completionPercentage"`
	Source               string          `gorm:"type:varchar(50)"                json:"source"`
}

// CountsAsPlay reports whether the event clears the completion threshold.
func (e *ListeningEvent) CountsAsPlay() bool {
	return e.CompletionPercentage.GreaterThan(CompletionThreshold)
}
