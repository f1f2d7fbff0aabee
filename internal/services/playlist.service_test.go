package services

import (
	"context"
	"testing"
	"time"

	"cadenza/config"
	. "cadenza/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func genreWeights(weights map[string]float64) datatypes.JSONType[map[string]float64] {
	return datatypes.NewJSONType(weights)
}

func playlistConfig() config.Config {
	return config.Config{
		HybridContributionShare:    0.15,
		PlaylistPoolFactor:         3,
		PlaylistOvershootTolerance: 0.10,
	}
}

func testPlaylistService() *PlaylistService {
	cfg := playlistConfig()
	return NewPlaylistService(NewBlenderService(cfg), cfg)
}

func durationTrack(durationSeconds int, genres map[string]float64) Track {
	t := Track{Duration: durationSeconds}
	t.ID = uuid.New()
	if genres != nil {
		t.GenreWeights = genreWeights(genres)
	}
	return t
}

func popularityResult(tracks []Track) []StrategyResult {
	scores := make([]TrackScore, len(tracks))
	for i, track := range tracks {
		scores[i] = TrackScore{Track: track, Score: 1.0 - float64(i)*0.01}
	}
	return []StrategyResult{{Strategy: RecommendationPopularity, Scores: scores}}
}

func TestPlaylistHitsDurationTarget(t *testing.T) {
	playlist := testPlaylistService()

	tracks := make([]Track, 30)
	for i := range tracks {
		tracks[i] = durationTrack(200, nil)
	}

	result, err := playlist.Generate(
		context.Background(),
		popularityResult(tracks),
		PlaylistRequest{DurationMinutes: 60},
	)
	require.NoError(t, err)

	target := 60 * time.Minute
	ceiling := target + target/10

	assert.GreaterOrEqual(t, result.RealizedDuration, target)
	assert.LessOrEqual(t, result.RealizedDuration, ceiling)
	assert.Equal(t, result.TargetDuration, target)
}

func TestPlaylistSkipsOvershootingTrack(t *testing.T) {
	playlist := testPlaylistService()

	// The long track ranks first but would blow the 10% ceiling once
	// the playlist is nearly full. It must be skipped, not terminal.
	long := durationTrack(1200, nil)
	shorts := make([]Track, 20)
	for i := range shorts {
		shorts[i] = durationTrack(180, nil)
	}

	scores := []TrackScore{{Track: long, Score: 1.0}}
	for i, short := range shorts {
		scores = append(scores, TrackScore{Track: short, Score: 0.9 - float64(i)*0.01})
	}
	results := []StrategyResult{{Strategy: RecommendationPopularity, Scores: scores}}

	result, err := playlist.Generate(
		context.Background(),
		results,
		PlaylistRequest{DurationMinutes: 10},
	)
	require.NoError(t, err)

	target := 10 * time.Minute
	ceiling := target + target/10
	assert.LessOrEqual(t, result.RealizedDuration, ceiling)

	for _, scored := range result.Tracks {
		assert.NotEqual(t, long.ID, scored.Track.ID, "overlong track should be skipped")
	}
}

func TestPlaylistMoodFilter(t *testing.T) {
	playlist := testPlaylistService()

	rock := durationTrack(200, map[string]float64{"rock": 0.9})
	classical := durationTrack(200, map[string]float64{"classical": 0.8})

	result, err := playlist.Generate(
		context.Background(),
		popularityResult([]Track{rock, classical}),
		PlaylistRequest{DurationMinutes: 5, Mood: "energetic"},
	)
	require.NoError(t, err)

	require.Len(t, result.Tracks, 1)
	assert.Equal(t, rock.ID, result.Tracks[0].Track.ID)
	assert.Equal(t, string(RecommendationPlaylist), result.Tracks[0].Strategy)
}

func TestPlaylistGenreFilter(t *testing.T) {
	playlist := testPlaylistService()

	jazz := durationTrack(200, map[string]float64{"jazz": 0.9})
	punk := durationTrack(200, map[string]float64{"punk": 0.9})

	result, err := playlist.Generate(
		context.Background(),
		popularityResult([]Track{jazz, punk}),
		PlaylistRequest{DurationMinutes: 5, Genre: "jazz"},
	)
	require.NoError(t, err)

	require.Len(t, result.Tracks, 1)
	assert.Equal(t, jazz.ID, result.Tracks[0].Track.ID)
}

func TestPlaylistEmptyPool(t *testing.T) {
	playlist := testPlaylistService()

	result, err := playlist.Generate(
		context.Background(),
		[]StrategyResult{{Strategy: RecommendationPopularity, Scores: []TrackScore{}}},
		PlaylistRequest{DurationMinutes: 30},
	)
	require.NoError(t, err)

	assert.Empty(t, result.Tracks)
	assert.Zero(t, result.RealizedDuration)
}

func TestValidMood(t *testing.T) {
	assert.True(t, ValidMood("chill"))
	assert.True(t, ValidMood("energetic"))
	assert.False(t, ValidMood("grumpy"))
	assert.False(t, ValidMood(""))
}

func TestFilterByThemeMatchesGenreOrMood(t *testing.T) {
	jazz := genreTrack(map[string]float64{"jazz": 0.9})
	dance := genreTrack(map[string]float64{"dance": 0.8})
	folk := genreTrack(map[string]float64{"folk": 0.7})

	ranked := []ScoredTrack{
		{Track: jazz, Score: 0.9},
		{Track: dance, Score: 0.8},
		{Track: folk, Score: 0.7},
	}

	byGenre := filterByTheme(ranked, "jazz", "")
	require.Len(t, byGenre, 1)
	assert.Equal(t, jazz.ID, byGenre[0].Track.ID)

	byMood := filterByTheme(ranked, "", "party")
	require.Len(t, byMood, 1)
	assert.Equal(t, dance.ID, byMood[0].Track.ID)

	combined := filterByTheme(ranked, "folk", "party")
	require.Len(t, combined, 2, "genre and mood filters union their matches")

	unfiltered := filterByTheme(ranked, "", "")
	assert.Len(t, unfiltered, 3)
}

func TestGenerateCarriesNameAndDescription(t *testing.T) {
	service := testPlaylistService()

	results := popularityResult([]Track{
		durationTrack(240, nil),
		durationTrack(240, nil),
	})

	playlist, err := service.Generate(context.Background(), results, PlaylistRequest{
		Name:            "Morning Coffee",
		Description:     "Slow start for the day",
		DurationMinutes: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, "Morning Coffee", playlist.Name)
	assert.Equal(t, "Slow start for the day", playlist.Description)
}
