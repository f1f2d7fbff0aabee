package repositories

import (
	"cadenza/internal/database"
)

type Repository struct {
	User               UserRepository
	Track              TrackRepository
	ListeningEvent     ListeningEventRepository
	Rating             RatingRepository
	ArtistRelationship ArtistRelationshipRepository
	Recommendation     RecommendationRepository
}

func New(db database.DB) Repository {
	return Repository{
		User:               NewUserRepository(),
		Track:              NewTrackRepository(),
		ListeningEvent:     NewListeningEventRepository(),
		Rating:             NewRatingRepository(),
		ArtistRelationship: NewArtistRelationshipRepository(),
		Recommendation:     NewRecommendationRepository(db.Cache.User),
	}
}
