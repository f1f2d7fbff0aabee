package services

import (
	"context"
	"fmt"
	"math"

	"cadenza/config"
	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

// CollaborativeService scores candidates by what the user's nearest
// neighbors play and love. Neighbors come from the shared similarity
// index; a user with no neighbors simply contributes nothing.
type CollaborativeService struct {
	similarity *SimilarityService
	config     config.Config
	log        logger.Logger
}

func NewCollaborativeService(
	similarity *SimilarityService,
	config config.Config,
) *CollaborativeService {
	return &CollaborativeService{
		similarity: similarity,
		config:     config,
		log:        logger.New("CollaborativeService"),
	}
}

func (s *CollaborativeService) Name() RecommendationType {
	return RecommendationCollaborative
}

func (s *CollaborativeService) Score(
	ctx context.Context,
	snapshot *SignalSnapshot,
) ([]TrackScore, error) {
	log := s.log.Function("Score")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	neighbors := s.similarity.Neighbors(snapshot.UserID, s.config.NeighborCount)
	if len(neighbors) == 0 {
		log.Debug("no neighbors for user, returning empty", "userID", snapshot.UserID)
		return []TrackScore{}, nil
	}

	// Raw score per track: similarity-weighted neighbor plays, loved
	// tracks counting double. Normalized by the max so output stays [0,1].
	raw := make(map[uuid.UUID]float64)
	support := make(map[uuid.UUID]int)
	for _, neighbor := range neighbors {
		plays := s.similarity.NeighborPlays(neighbor.UserID)
		loved := s.similarity.NeighborLoved(neighbor.UserID)

		for trackID, count := range plays {
			// Log dampens heavy repeat listeners so one superfan
			// cannot dominate the neighborhood.
			weight := math.Log1p(float64(count))
			if loved[trackID] {
				weight *= 2
			}
			raw[trackID] += neighbor.Similarity * weight
			support[trackID]++
		}
		for trackID := range loved {
			if _, played := plays[trackID]; !played {
				raw[trackID] += neighbor.Similarity
				support[trackID]++
			}
		}
	}

	var max float64
	for _, value := range raw {
		if value > max {
			max = value
		}
	}
	if max == 0 {
		return []TrackScore{}, nil
	}

	candidates := excludeKnown(snapshot.Candidates, snapshot.Known)
	scores := make([]TrackScore, 0, len(candidates))
	for _, track := range candidates {
		value, ok := raw[track.ID]
		if !ok {
			continue
		}
		scores = append(scores, TrackScore{
			Track: track,
			Score: clampScore(value / max),
			Reason: fmt.Sprintf(
				"Played by %d listeners with similar taste", support[track.ID],
			),
		})
	}

	return scores, nil
}
