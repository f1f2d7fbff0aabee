package models

import (
	"github.com/shopspring/decimal"
)

type User struct {
	BaseUUIDModel
	DisplayName string  `gorm:"type:text"               json:"displayName"`
	Email       *string `gorm:"type:text;uniqueIndex"   json:"email"`
	IsActive    bool    `gorm:"type:bool;default:true"  json:"isActive"`

	// Listening totals are maintained by the external play-event pipeline.
	// The engine reads them as an eventually-consistent snapshot.
	TotalListeningTime decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"totalListeningTime"`
	TrackCountTotal    int             `gorm:"type:int;default:0"           json:"trackCountTotal"`
}
