package services

import (
	"context"
	"fmt"
	"sort"

	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

// ContentService scores candidates against a taste profile built from the
// genre weights of everything the user has played or loved. Artist
// affinity and the co-listening graph shade the genre match.
type ContentService struct {
	similarity *SimilarityService
	log        logger.Logger
}

func NewContentService(similarity *SimilarityService) *ContentService {
	return &ContentService{
		similarity: similarity,
		log:        logger.New("ContentService"),
	}
}

func (s *ContentService) Name() RecommendationType {
	return RecommendationContentBased
}

func (s *ContentService) Score(
	ctx context.Context,
	snapshot *SignalSnapshot,
) ([]TrackScore, error) {
	log := s.log.Function("Score")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	taste := buildTasteProfile(snapshot)
	if len(taste.genres) == 0 {
		log.Debug("no taste profile for user, returning empty", "userID", snapshot.UserID)
		return []TrackScore{}, nil
	}

	candidates := excludeKnown(snapshot.Candidates, snapshot.Known)
	scores := make([]TrackScore, 0, len(candidates))
	for _, track := range candidates {
		genreScore := genreCosine(taste.genres, track.Genres())
		if genreScore == 0 && taste.artistShare[track.ArtistID] == 0 &&
			snapshot.RelatedArtists[track.ArtistID] == 0 {
			continue
		}

		score := genreScore * 0.7
		reason := dominantGenreReason(taste.genres, track)

		if share := taste.artistShare[track.ArtistID]; share > 0 {
			score += 0.2 * share
			reason = fmt.Sprintf("More from %s", track.Artist.Name)
		} else if strength := snapshot.RelatedArtists[track.ArtistID]; strength > 0 {
			score += 0.1 * strength
		}

		if coListen := s.bestCoListen(snapshot, track.ID); coListen > 0 {
			score += 0.1 * coListen
		}

		scores = append(scores, TrackScore{
			Track:  track,
			Score:  clampScore(score),
			Reason: reason,
		})
	}

	return scores, nil
}

type tasteProfile struct {
	genres      map[string]float64
	artistShare map[uuid.UUID]float64
}

// buildTasteProfile averages genre weights across the user's known
// tracks. Loved tracks count double, so deliberate signal outweighs
// incidental plays.
func buildTasteProfile(snapshot *SignalSnapshot) tasteProfile {
	genres := make(map[string]float64)
	artistPlays := make(map[uuid.UUID]float64)
	var totalWeight float64

	for _, track := range snapshot.KnownTracks {
		weight := 1.0 + float64(snapshot.PlayCounts[track.ID])
		if snapshot.Loved[track.ID] {
			weight *= 2
		}

		for genre, genreWeight := range track.Genres() {
			genres[genre] += genreWeight * weight
		}
		artistPlays[track.ArtistID] += weight
		totalWeight += weight
	}

	if totalWeight > 0 {
		for genre := range genres {
			genres[genre] /= totalWeight
		}
	}

	var maxArtist float64
	for _, plays := range artistPlays {
		if plays > maxArtist {
			maxArtist = plays
		}
	}
	artistShare := make(map[uuid.UUID]float64, len(artistPlays))
	if maxArtist > 0 {
		for artistID, plays := range artistPlays {
			artistShare[artistID] = plays / maxArtist
		}
	}

	return tasteProfile{genres: genres, artistShare: artistShare}
}

func dominantGenreReason(taste map[string]float64, track Track) string {
	type genreWeight struct {
		genre  string
		weight float64
	}

	shared := make([]genreWeight, 0, len(taste))
	for genre, weight := range track.Genres() {
		if tasteWeight, ok := taste[genre]; ok {
			shared = append(shared, genreWeight{genre: genre, weight: weight * tasteWeight})
		}
	}
	if len(shared) == 0 {
		return "Close to your listening profile"
	}

	sort.Slice(shared, func(i, j int) bool {
		if shared[i].weight != shared[j].weight {
			return shared[i].weight > shared[j].weight
		}
		return shared[i].genre < shared[j].genre
	})

	return fmt.Sprintf("Matches your taste for %s", shared[0].genre)
}

// bestCoListen takes the strongest co-listening edge between the
// candidate and the user's most played tracks. Checking every known
// track would be quadratic across the pool for no ranking gain.
func (s *ContentService) bestCoListen(snapshot *SignalSnapshot, trackID uuid.UUID) float64 {
	const anchorLimit = 25

	anchors := topPlayedTracks(snapshot.PlayCounts, anchorLimit)
	var best float64
	for _, anchor := range anchors {
		if similarity := s.similarity.CoListenSimilarity(anchor, trackID); similarity > best {
			best = similarity
		}
	}
	return best
}

func topPlayedTracks(playCounts map[uuid.UUID]int, limit int) []uuid.UUID {
	type trackCount struct {
		trackID uuid.UUID
		count   int
	}

	counts := make([]trackCount, 0, len(playCounts))
	for trackID, count := range playCounts {
		counts = append(counts, trackCount{trackID: trackID, count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].trackID.String() < counts[j].trackID.String()
	})

	if len(counts) > limit {
		counts = counts[:limit]
	}
	tracks := make([]uuid.UUID, len(counts))
	for i, entry := range counts {
		tracks[i] = entry.trackID
	}
	return tracks
}
