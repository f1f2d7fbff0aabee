package services

import (
	"context"
	"testing"
	"time"

	. "cadenza/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContentService() *ContentService {
	return NewContentService(indexedSimilarityService(
		buildSimilarityIndex(nil, nil, 30*time.Minute),
	))
}

func artistTrack(artistID uuid.UUID, artistName string, weights map[string]float64) Track {
	t := Track{
		ArtistID:     artistID,
		Artist:       Artist{Name: artistName},
		GenreWeights: genreWeights(weights),
	}
	t.ID = uuid.New()
	return t
}

func TestContentMatchesTasteProfile(t *testing.T) {
	content := testContentService()

	rockArtist, classicalArtist := uuid.New(), uuid.New()
	played := artistTrack(rockArtist, "Static Bloom", map[string]float64{"rock": 0.9})
	rockCandidate := artistTrack(uuid.New(), "The Riffs", map[string]float64{"rock": 0.8})
	classicalCandidate := artistTrack(classicalArtist, "Vera Quartet", map[string]float64{"classical": 0.9})

	snapshot := &SignalSnapshot{
		UserID:      uuid.New(),
		Known:       map[uuid.UUID]bool{played.ID: true},
		PlayCounts:  map[uuid.UUID]int{played.ID: 3},
		KnownTracks: []Track{played},
		Candidates:  []Track{played, rockCandidate, classicalCandidate},
	}

	scores, err := content.Score(context.Background(), snapshot)
	require.NoError(t, err)

	require.Len(t, scores, 1, "classical candidate shares nothing with the profile")
	assert.Equal(t, rockCandidate.ID, scores[0].Track.ID)
	assert.Equal(t, "Matches your taste for rock", scores[0].Reason)
}

func TestContentSameArtistBoostAndReason(t *testing.T) {
	content := testContentService()

	artistID := uuid.New()
	played := artistTrack(artistID, "Glass Harbor", map[string]float64{"electronic": 0.8})
	sameArtist := artistTrack(artistID, "Glass Harbor", map[string]float64{"electronic": 0.7})
	otherArtist := artistTrack(uuid.New(), "The Midnight Loop", map[string]float64{"electronic": 0.7})

	snapshot := &SignalSnapshot{
		UserID:      uuid.New(),
		Known:       map[uuid.UUID]bool{played.ID: true},
		PlayCounts:  map[uuid.UUID]int{played.ID: 2},
		KnownTracks: []Track{played},
		Candidates:  []Track{sameArtist, otherArtist},
	}

	scores, err := content.Score(context.Background(), snapshot)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	byID := map[uuid.UUID]TrackScore{}
	for _, score := range scores {
		byID[score.Track.ID] = score
	}

	assert.Greater(t, byID[sameArtist.ID].Score, byID[otherArtist.ID].Score)
	assert.Equal(t, "More from Glass Harbor", byID[sameArtist.ID].Reason)
}

func TestContentLovedTracksWeighDouble(t *testing.T) {
	rock := artistTrack(uuid.New(), "A", map[string]float64{"rock": 1.0})
	jazz := artistTrack(uuid.New(), "B", map[string]float64{"jazz": 1.0})

	snapshot := &SignalSnapshot{
		UserID:      uuid.New(),
		Known:       map[uuid.UUID]bool{rock.ID: true, jazz.ID: true},
		Loved:       map[uuid.UUID]bool{jazz.ID: true},
		PlayCounts:  map[uuid.UUID]int{rock.ID: 1, jazz.ID: 1},
		KnownTracks: []Track{rock, jazz},
	}

	taste := buildTasteProfile(snapshot)
	assert.Greater(t, taste.genres["jazz"], taste.genres["rock"])
}

func TestContentEmptyProfile(t *testing.T) {
	content := testContentService()

	snapshot := &SignalSnapshot{
		UserID:     uuid.New(),
		Known:      map[uuid.UUID]bool{},
		Candidates: []Track{track(trackA, 1)},
	}

	scores, err := content.Score(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
