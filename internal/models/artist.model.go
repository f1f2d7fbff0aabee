package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Artist struct {
	BaseUUIDModel
	Name      string `gorm:"type:text;not null;index:idx_artists_name" json:"name"`
	NameLower string `gorm:"type:text;index:idx_artists_name_lower"    json:"nameLower"`

	Tracks []Track `gorm:"foreignKey:ArtistID" json:"tracks,omitempty"`
}

func (a *Artist) BeforeSave(tx *gorm.DB) error {
	a.NameLower = strings.ToLower(a.Name)
	return nil
}

// ArtistRelationship links an artist to a related artist with a strength in
// [0,1]. Relationships are directed; a reverse edge must be stored explicitly.
type ArtistRelationship struct {
	BaseUUIDModel
	ArtistID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_artist_rel,priority:1" json:"artistId"`
	Artist           Artist    `gorm:"foreignKey:ArtistID"                                      json:"artist,omitempty"`
	RelatedArtistID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_artist_rel,priority:2" json:"relatedArtistId"`
	RelatedArtist    Artist    `gorm:"foreignKey:RelatedArtistID"                               json:"relatedArtist,omitempty"`
	RelationshipType string    `gorm:"type:varchar(50);not null"                                json:"relationshipType"`
	Strength         float64   `gorm:"type:numeric(4,3);not null;default:0"                     json:"strength"`
}

func (ar *ArtistRelationship) BeforeSave(tx *gorm.DB) error {
	if ar.Strength < 0 {
		ar.Strength = 0
	}
	if ar.Strength > 1 {
		ar.Strength = 1
	}
	return nil
}
