package services

import (
	"context"
	"time"

	"cadenza/config"
	. "cadenza/internal/models"
	"cadenza/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignalSnapshot is one consistent read of everything the strategies need
// for a single user. Strategies never touch the database themselves.
type SignalSnapshot struct {
	UserID      uuid.UUID
	User        *User
	Events      []ListeningEvent
	Ratings     []Rating
	Loved       map[uuid.UUID]bool
	Banned      map[uuid.UUID]bool
	PlayCounts  map[uuid.UUID]int
	Known       map[uuid.UUID]bool
	KnownTracks []Track
	// RelatedArtists maps artists adjacent to the user's listening graph
	// to the strongest relationship edge reaching them.
	RelatedArtists map[uuid.UUID]float64
	// RatingSummaries holds community-wide average ratings per track.
	RatingSummaries map[uuid.UUID]repositories.TrackRatingSummary
	Candidates      []Track
	GeneratedAt     time.Time
}

// HasHistory reports whether the user carries enough signal for the
// personalized strategies. Without it only popularity and discovery run.
func (s *SignalSnapshot) HasHistory() bool {
	return len(s.PlayCounts) > 0 || len(s.Loved) > 0
}

type SignalService struct {
	repos  repositories.Repository
	config config.Config
	log    logger.Logger
}

func NewSignalService(repos repositories.Repository, config config.Config) *SignalService {
	return &SignalService{
		repos:  repos,
		config: config,
		log:    logger.New("SignalService"),
	}
}

// BuildSnapshot reads the user's recent history, ratings, and the candidate
// pool. Banned tracks are dropped from the pool here so no strategy ever
// scores one. Read failures surface as ErrSignalUnavailable.
func (s *SignalService) BuildSnapshot(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) (*SignalSnapshot, error) {
	log := s.log.Function("BuildSnapshot")

	user, err := s.repos.User.GetByID(ctx, tx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		log.Er("failed to read user", err, "userID", userID)
		return nil, ErrSignalUnavailable
	}

	since := time.Now().AddDate(0, 0, -s.config.HistoryWindowDays)
	events, err := s.repos.ListeningEvent.GetRecentByUser(
		ctx, tx, userID, since, s.config.HistoryRowLimit,
	)
	if err != nil {
		log.Er("failed to read listening history", err, "userID", userID)
		return nil, ErrSignalUnavailable
	}

	ratings, err := s.repos.Rating.GetByUser(ctx, tx, userID)
	if err != nil {
		log.Er("failed to read ratings", err, "userID", userID)
		return nil, ErrSignalUnavailable
	}

	loved := make(map[uuid.UUID]bool)
	banned := make(map[uuid.UUID]bool)
	for _, rating := range ratings {
		if rating.IsLoved {
			loved[rating.TrackID] = true
		}
		if rating.IsBanned {
			banned[rating.TrackID] = true
		}
	}

	playCounts := make(map[uuid.UUID]int)
	known := make(map[uuid.UUID]bool)
	for _, event := range events {
		known[event.TrackID] = true
		if event.CountsAsPlay() {
			playCounts[event.TrackID]++
		}
	}

	bannedIDs := make([]uuid.UUID, 0, len(banned))
	for trackID := range banned {
		bannedIDs = append(bannedIDs, trackID)
	}

	candidates, err := s.repos.Track.GetCandidatePool(ctx, tx, bannedIDs)
	if err != nil {
		log.Er("failed to read candidate pool", err, "userID", userID)
		return nil, ErrSignalUnavailable
	}

	knownIDs := make([]uuid.UUID, 0, len(known)+len(loved))
	for trackID := range known {
		knownIDs = append(knownIDs, trackID)
	}
	for trackID := range loved {
		if !known[trackID] {
			knownIDs = append(knownIDs, trackID)
		}
	}

	knownTracks, err := s.repos.Track.GetByIDs(ctx, tx, knownIDs)
	if err != nil {
		log.Er("failed to read known tracks", err, "userID", userID)
		return nil, ErrSignalUnavailable
	}

	artistIDs := make([]uuid.UUID, 0, len(knownTracks))
	seenArtists := make(map[uuid.UUID]bool)
	for _, track := range knownTracks {
		if !seenArtists[track.ArtistID] {
			seenArtists[track.ArtistID] = true
			artistIDs = append(artistIDs, track.ArtistID)
		}
	}

	relationships, err := s.repos.ArtistRelationship.GetRelatedForArtists(ctx, tx, artistIDs)
	if err != nil {
		log.Er("failed to read artist relationships", err, "userID", userID)
		return nil, ErrSignalUnavailable
	}

	relatedArtists := make(map[uuid.UUID]float64)
	for _, rel := range relationships {
		if rel.Strength > relatedArtists[rel.RelatedArtistID] {
			relatedArtists[rel.RelatedArtistID] = rel.Strength
		}
	}

	summaries, err := s.repos.Rating.GetTrackRatingSummaries(ctx, tx)
	if err != nil {
		log.Er("failed to read rating summaries", err, "userID", userID)
		return nil, ErrSignalUnavailable
	}
	ratingSummaries := make(map[uuid.UUID]repositories.TrackRatingSummary, len(summaries))
	for _, summary := range summaries {
		ratingSummaries[summary.TrackID] = summary
	}

	log.Debug("signal snapshot built",
		"userID", userID,
		"events", len(events),
		"ratings", len(ratings),
		"candidates", len(candidates),
	)

	return &SignalSnapshot{
		UserID:          userID,
		User:            user,
		Events:          events,
		Ratings:         ratings,
		Loved:           loved,
		Banned:          banned,
		PlayCounts:      playCounts,
		Known:           known,
		KnownTracks:     knownTracks,
		RelatedArtists:  relatedArtists,
		RatingSummaries: ratingSummaries,
		Candidates:      candidates,
		GeneratedAt:     time.Now(),
	}, nil
}
