package services

import (
	"context"
	"sort"

	"cadenza/config"
	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
)

const hiddenGemReason = "Hidden gem - high quality, underplayed track."

// DiscoveryService surfaces hidden gems: tracks the community rates
// highly but barely plays. A track qualifies when its average rating
// clears the floor and its play count sits in the bottom quartile of the
// candidate pool.
type DiscoveryService struct {
	config config.Config
	log    logger.Logger
}

func NewDiscoveryService(config config.Config) *DiscoveryService {
	return &DiscoveryService{
		config: config,
		log:    logger.New("DiscoveryService"),
	}
}

func (s *DiscoveryService) Name() RecommendationType {
	return RecommendationDiscovery
}

func (s *DiscoveryService) Score(
	ctx context.Context,
	snapshot *SignalSnapshot,
) ([]TrackScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := excludeKnown(snapshot.Candidates, snapshot.Known)
	if len(candidates) == 0 {
		return []TrackScore{}, nil
	}

	cutoff := playCountQuantile(candidates, s.config.DiscoveryPopularityCut)

	scores := make([]TrackScore, 0, len(candidates))
	for _, track := range candidates {
		summary, ok := snapshot.RatingSummaries[track.ID]
		if !ok || summary.AverageRating < s.config.DiscoveryMinRating {
			continue
		}
		if track.PlayCount > cutoff {
			continue
		}

		scores = append(scores, TrackScore{
			Track:  track,
			Score:  clampScore(summary.AverageRating / 5.0),
			Reason: hiddenGemReason,
		})
	}

	return scores, nil
}

// playCountQuantile finds the play count at the given quantile of the
// pool. Everything at or below it counts as underplayed.
func playCountQuantile(tracks []Track, quantile float64) int {
	counts := make([]int, len(tracks))
	for i, track := range tracks {
		counts[i] = track.PlayCount
	}
	sort.Ints(counts)

	position := int(float64(len(counts)) * quantile)
	if position >= len(counts) {
		position = len(counts) - 1
	}
	return counts[position]
}
