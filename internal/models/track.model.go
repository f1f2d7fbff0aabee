package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Track struct {
	BaseUUIDModel
	Title    string     `gorm:"type:text;not null"                          json:"title"`
	ArtistID uuid.UUID  `gorm:"type:uuid;not null;index:idx_tracks_artist"  json:"artistId"`
	Artist   Artist     `gorm:"foreignKey:ArtistID"                         json:"artist,omitempty"`
	AlbumID  *uuid.UUID `gorm:"type:uuid;index:idx_tracks_album"            json:"albumId,omitempty"`
	Duration int        `gorm:"type:int;not null"                           json:"duration"` // seconds, > 0

	// GenreWeights maps genre name to a weight in [0,1].
	GenreWeights datatypes.JSONType[map[string]float64] `gorm:"type:jsonb" json:"genreWeights"`

	// Counters owned by the external play-event pipeline; never written here.
	PlayCount    int        `gorm:"type:int;not null;default:0" json:"playCount"`
	LoveCount    int        `gorm:"type:int;not null;default:0" json:"loveCount"`
	LastPlayedAt *time.Time `gorm:"type:timestamp"              json:"lastPlayedAt,omitempty"`
}

func (t *Track) BeforeSave(tx *gorm.DB) error {
	if t.Duration <= 0 {
		return gorm.ErrInvalidValue
	}

	weights := t.GenreWeights.Data()
	clamped := false
	for genre, weight := range weights {
		if weight < 0 {
			weights[genre] = 0
			clamped = true
		}
		if weight > 1 {
			weights[genre] = 1
			clamped = true
		}
	}
	if clamped {
		t.GenreWeights = datatypes.NewJSONType(weights)
	}

	return nil
}

// Genres returns the track's genre-weight map, never nil.
func (t *Track) Genres() map[string]float64 {
	weights := t.GenreWeights.Data()
	if weights == nil {
		return map[string]float64{}
	}
	return weights
}

// HasGenre reports whether the track carries genre with non-zero weight.
func (t *Track) HasGenre(genre string) bool {
	return t.Genres()[genre] > 0
}
