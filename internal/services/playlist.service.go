package services

import (
	"context"
	"fmt"
	"time"

	"cadenza/config"
	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
)

// moodGenres maps playlist moods onto the genre vocabulary tracks are
// tagged with. A track fits a mood when it carries any mapped genre.
var moodGenres = map[string][]string{
	"energetic":  {"rock", "electronic", "dance", "punk"},
	"chill":      {"ambient", "lofi", "jazz", "acoustic"},
	"focus":      {"classical", "ambient", "instrumental"},
	"party":      {"dance", "pop", "hip-hop", "electronic"},
	"melancholy": {"folk", "blues", "indie", "singer-songwriter"},
	"workout":    {"electronic", "hip-hop", "rock", "dance"},
}

func ValidMood(mood string) bool {
	_, ok := moodGenres[mood]
	return ok
}

type PlaylistRequest struct {
	Name            string
	Description     string
	DurationMinutes int
	Mood            string
	Genre           string
}

type Playlist struct {
	Name             string
	Description      string
	Tracks           []ScoredTrack
	TargetDuration   time.Duration
	RealizedDuration time.Duration
}

// PlaylistService fills a duration target from a ranked candidate pool.
// Selection is greedy in rank order: a track that would overshoot the
// tolerance is skipped, not a stopping point, so a long track early in
// the ranking cannot starve the rest of the playlist.
type PlaylistService struct {
	blender *BlenderService
	config  config.Config
	log     logger.Logger
}

func NewPlaylistService(blender *BlenderService, config config.Config) *PlaylistService {
	return &PlaylistService{
		blender: blender,
		config:  config,
		log:     logger.New("PlaylistService"),
	}
}

// Generate builds a playlist from already computed strategy results.
// The orchestrator owns the snapshot and strategy fan-out; this stage
// owns filtering, pool sizing, and duration packing.
func (s *PlaylistService) Generate(
	ctx context.Context,
	results []StrategyResult,
	request PlaylistRequest,
) (*Playlist, error) {
	log := s.log.Function("Generate")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := s.blender.Blend(results, DefaultWeights())
	ranked = filterByTheme(ranked, request.Genre, request.Mood)

	target := time.Duration(request.DurationMinutes) * time.Minute
	playlist := s.pack(ranked, target)
	playlist.Name = request.Name
	playlist.Description = request.Description

	log.Info("playlist generated",
		"tracks", len(playlist.Tracks),
		"target", target,
		"realized", playlist.RealizedDuration,
		"mood", request.Mood,
		"genre", request.Genre,
	)
	return playlist, nil
}

// filterByTheme keeps tracks that carry the requested genre or any genre
// mapped to the requested mood. Shared by playlist generation and the
// filtered recommendations endpoint.
func filterByTheme(tracks []ScoredTrack, genre, mood string) []ScoredTrack {
	genres := make([]string, 0, 4)
	if genre != "" {
		genres = append(genres, genre)
	}
	if mood != "" {
		genres = append(genres, moodGenres[mood]...)
	}
	if len(genres) == 0 {
		return tracks
	}

	filtered := make([]ScoredTrack, 0, len(tracks))
	for _, scored := range tracks {
		for _, genre := range genres {
			if scored.Track.HasGenre(genre) {
				filtered = append(filtered, scored)
				break
			}
		}
	}
	return filtered
}

func (s *PlaylistService) pack(ranked []ScoredTrack, target time.Duration) *Playlist {
	pool := s.trimPool(ranked, target)

	ceiling := target + time.Duration(float64(target)*s.config.PlaylistOvershootTolerance)

	var realized time.Duration
	selected := make([]ScoredTrack, 0, len(pool))
	for _, scored := range pool {
		if realized >= target {
			break
		}
		duration := time.Duration(scored.Track.Duration) * time.Second
		if realized+duration > ceiling {
			continue
		}
		scored.Strategy = string(RecommendationPlaylist)
		scored.Reason = fmt.Sprintf("Fits your %d minute mix", int(target.Minutes()))
		selected = append(selected, scored)
		realized += duration
	}

	return &Playlist{
		Tracks:           selected,
		TargetDuration:   target,
		RealizedDuration: realized,
	}
}

// trimPool cuts the ranked list to a few times the expected track count.
// Packing over the full catalog would let deep, barely relevant tracks
// sneak in purely because their duration fits.
func (s *PlaylistService) trimPool(ranked []ScoredTrack, target time.Duration) []ScoredTrack {
	if len(ranked) == 0 {
		return ranked
	}

	var total time.Duration
	for _, scored := range ranked {
		total += time.Duration(scored.Track.Duration) * time.Second
	}
	average := total / time.Duration(len(ranked))
	if average <= 0 {
		return ranked
	}

	expected := int(target/average) + 1
	poolSize := expected * s.config.PlaylistPoolFactor
	if len(ranked) > poolSize {
		ranked = ranked[:poolSize]
	}
	return ranked
}
