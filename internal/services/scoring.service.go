package services

import (
	"context"
	"errors"

	. "cadenza/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrSignalUnavailable means the listening history or rating reads
	// failed. Callers degrade to popularity-only output.
	ErrSignalUnavailable = errors.New("listening signal unavailable")

	// ErrPersistenceWrite means scores were computed but could not be
	// stored. The computed results are still returned alongside it.
	ErrPersistenceWrite = errors.New("recommendation persistence write failed")

	// ErrUnknownGenre means a genre filter named a genre no catalog
	// track carries.
	ErrUnknownGenre = errors.New("unknown genre")
)

// TrackScore is a single strategy's opinion of one candidate.
type TrackScore struct {
	Track  Track
	Score  float64
	Reason string
}

// StrategyResult carries one strategy's full output through the fan-in.
// A failed strategy reports its error here instead of failing the request.
type StrategyResult struct {
	Strategy RecommendationType
	Scores   []TrackScore
	Err      error
}

// ScoredTrack is a blended, ranked recommendation ready for callers.
type ScoredTrack struct {
	Track         Track
	Score         float64
	Strategy      string
	Reason        string
	Contributions map[RecommendationType]float64
}

// Scorer is one recommendation strategy. Score never sees banned tracks;
// the candidate pool is filtered before any strategy runs.
type Scorer interface {
	Name() RecommendationType
	Score(ctx context.Context, snapshot *SignalSnapshot) ([]TrackScore, error)
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// genreKnown reports whether any candidate carries the genre at all,
// distinguishing a typo from a valid genre with no matches left.
func genreKnown(candidates []Track, genre string) bool {
	if genre == "" {
		return true
	}
	for _, track := range candidates {
		if track.HasGenre(genre) {
			return true
		}
	}
	return false
}

func excludeKnown(candidates []Track, known map[uuid.UUID]bool) []Track {
	if len(known) == 0 {
		return candidates
	}
	fresh := make([]Track, 0, len(candidates))
	for _, track := range candidates {
		if !known[track.ID] {
			fresh = append(fresh, track)
		}
	}
	return fresh
}
