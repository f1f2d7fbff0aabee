package services

import (
	"fmt"
	"sort"

	"cadenza/config"
	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

// BlenderService merges per-strategy scores into one ranked list. A
// strategy that failed or produced nothing drops out and its weight is
// redistributed across the strategies that did deliver, so a single
// strategy outage degrades quality instead of shrinking the result set.
type BlenderService struct {
	config config.Config
	log    logger.Logger
}

func NewBlenderService(config config.Config) *BlenderService {
	return &BlenderService{
		config: config,
		log:    logger.New("BlenderService"),
	}
}

// DefaultWeights is the standing strategy mix for the blended feed.
func DefaultWeights() map[RecommendationType]float64 {
	return map[RecommendationType]float64{
		RecommendationCollaborative: 0.35,
		RecommendationContentBased:  0.35,
		RecommendationPopularity:    0.20,
		RecommendationDiscovery:     0.10,
	}
}

func (s *BlenderService) Blend(
	results []StrategyResult,
	weights map[RecommendationType]float64,
) []ScoredTrack {
	log := s.log.Function("Blend")

	effective := renormalizeWeights(results, weights)
	if len(effective) == 0 {
		log.Warn("no strategy produced scores")
		return []ScoredTrack{}
	}

	type accumulator struct {
		track         Track
		total         float64
		contributions map[RecommendationType]float64
		reasons       map[RecommendationType]string
	}

	merged := make(map[uuid.UUID]*accumulator)
	for _, result := range results {
		weight, ok := effective[result.Strategy]
		if !ok {
			continue
		}
		for _, score := range result.Scores {
			entry := merged[score.Track.ID]
			if entry == nil {
				entry = &accumulator{
					track:         score.Track,
					contributions: make(map[RecommendationType]float64),
					reasons:       make(map[RecommendationType]string),
				}
				merged[score.Track.ID] = entry
			}
			contribution := weight * score.Score
			entry.total += contribution
			entry.contributions[result.Strategy] += contribution
			entry.reasons[result.Strategy] = score.Reason
		}
	}

	blended := make([]ScoredTrack, 0, len(merged))
	for _, entry := range merged {
		if entry.total <= 0 {
			continue
		}

		shares := make(map[RecommendationType]float64, len(entry.contributions))
		for strategy, contribution := range entry.contributions {
			shares[strategy] = contribution / entry.total
		}

		label, top := s.label(shares)
		blended = append(blended, ScoredTrack{
			Track:         entry.track,
			Score:         clampScore(entry.total),
			Strategy:      label,
			Reason:        entry.reasons[top],
			Contributions: shares,
		})
	}

	sortRanked(blended)
	return blended
}

// renormalizeWeights keeps only strategies that succeeded with at least
// one score and rescales their weights to sum to one.
func renormalizeWeights(
	results []StrategyResult,
	weights map[RecommendationType]float64,
) map[RecommendationType]float64 {
	var total float64
	covered := make(map[RecommendationType]float64)
	for _, result := range results {
		if result.Err != nil || len(result.Scores) == 0 {
			continue
		}
		weight := weights[result.Strategy]
		if weight <= 0 {
			continue
		}
		covered[result.Strategy] = weight
		total += weight
	}

	if total == 0 {
		return nil
	}
	for strategy, weight := range covered {
		covered[strategy] = weight / total
	}
	return covered
}

// label names the result after its contributors. Two or more strategies
// past the contribution floor make it a hybrid of the top two.
func (s *BlenderService) label(
	shares map[RecommendationType]float64,
) (string, RecommendationType) {
	type contribution struct {
		strategy RecommendationType
		share    float64
	}

	ranked := make([]contribution, 0, len(shares))
	for strategy, share := range shares {
		ranked = append(ranked, contribution{strategy: strategy, share: share})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].share != ranked[j].share {
			return ranked[i].share > ranked[j].share
		}
		return ranked[i].strategy < ranked[j].strategy
	})

	top := ranked[0].strategy
	if len(ranked) > 1 && ranked[1].share >= s.config.HybridContributionShare {
		return fmt.Sprintf("hybrid_%s_%s", ranked[0].strategy, ranked[1].strategy), top
	}
	return string(top), top
}

// sortRanked orders by score, then play count, then track id so equal
// scores always page out in a stable order.
func sortRanked(tracks []ScoredTrack) {
	sort.Slice(tracks, func(i, j int) bool {
		if tracks[i].Score != tracks[j].Score {
			return tracks[i].Score > tracks[j].Score
		}
		if tracks[i].Track.PlayCount != tracks[j].Track.PlayCount {
			return tracks[i].Track.PlayCount > tracks[j].Track.PlayCount
		}
		return tracks[i].Track.ID.String() < tracks[j].Track.ID.String()
	})
}

// Page applies offset and limit to an already ranked list.
func Page(tracks []ScoredTrack, limit, offset int) []ScoredTrack {
	if offset >= len(tracks) {
		return []ScoredTrack{}
	}
	tracks = tracks[offset:]
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks
}
