package seed

import (
	"time"

	"cadenza/config"
	. "cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func stringPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func genres(weights map[string]float64) datatypes.JSONType[map[string]float64] {
	return datatypes.NewJSONType(weights)
}

// Seed loads a small development catalog: three listeners, four artists
// with relationship edges, a dozen tracks, and enough listening history
// and ratings for every strategy to produce output.
func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	users := []User{
		{DisplayName: "Ada", Email: stringPtr("ada@example.com"), IsActive: true},
		{DisplayName: "Miles", Email: stringPtr("miles.d@example.com"), IsActive: true},
		{DisplayName: "Nina", Email: stringPtr("nina@example.com"), IsActive: true},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			return log.Err("failed to seed user", err, "user", users[i].DisplayName)
		}
	}

	artists := []Artist{
		{Name: "Glass Harbor"},
		{Name: "The Midnight Loop"},
		{Name: "Vera Quartet"},
		{Name: "Static Bloom"},
	}
	for i := range artists {
		if err := db.Create(&artists[i]).Error; err != nil {
			return log.Err("failed to seed artist", err, "artist", artists[i].Name)
		}
	}

	relationships := []ArtistRelationship{
		{ArtistID: artists[0].ID, RelatedArtistID: artists[1].ID, RelationshipType: "similar", Strength: 0.8},
		{ArtistID: artists[1].ID, RelatedArtistID: artists[0].ID, RelationshipType: "similar", Strength: 0.8},
		{ArtistID: artists[1].ID, RelatedArtistID: artists[3].ID, RelationshipType: "influenced", Strength: 0.5},
		{ArtistID: artists[2].ID, RelatedArtistID: artists[0].ID, RelationshipType: "collaborator", Strength: 0.6},
	}
	for i := range relationships {
		if err := db.Create(&relationships[i]).Error; err != nil {
			return log.Err("failed to seed artist relationship", err)
		}
	}

	tracks := []Track{
		{Title: "Harbor Lights", ArtistID: artists[0].ID, Duration: 214, GenreWeights: genres(map[string]float64{"electronic": 0.7, "ambient": 0.5})},
		{Title: "Undertow", ArtistID: artists[0].ID, Duration: 187, GenreWeights: genres(map[string]float64{"electronic": 0.8, "dance": 0.3})},
		{Title: "Night Drive", ArtistID: artists[1].ID, Duration: 243, GenreWeights: genres(map[string]float64{"electronic": 0.6, "pop": 0.4})},
		{Title: "Looper", ArtistID: artists[1].ID, Duration: 198, GenreWeights: genres(map[string]float64{"electronic": 0.9})},
		{Title: "Aubade", ArtistID: artists[2].ID, Duration: 321, GenreWeights: genres(map[string]float64{"classical": 0.9, "instrumental": 0.6})},
		{Title: "String Figures", ArtistID: artists[2].ID, Duration: 402, GenreWeights: genres(map[string]float64{"classical": 0.8, "ambient": 0.3})},
		{Title: "Petrichor", ArtistID: artists[2].ID, Duration: 275, GenreWeights: genres(map[string]float64{"classical": 0.7, "instrumental": 0.8})},
		{Title: "Bloom", ArtistID: artists[3].ID, Duration: 176, GenreWeights: genres(map[string]float64{"rock": 0.8, "indie": 0.6})},
		{Title: "Static", ArtistID: artists[3].ID, Duration: 162, GenreWeights: genres(map[string]float64{"rock": 0.9, "punk": 0.4})},
		{Title: "Greenhouse", ArtistID: artists[3].ID, Duration: 205, GenreWeights: genres(map[string]float64{"indie": 0.7, "folk": 0.5})},
		{Title: "Low Tide", ArtistID: artists[0].ID, Duration: 233, GenreWeights: genres(map[string]float64{"ambient": 0.9, "lofi": 0.4})},
		{Title: "Coda", ArtistID: artists[2].ID, Duration: 151, GenreWeights: genres(map[string]float64{"classical": 0.6, "folk": 0.3})},
	}
	for i := range tracks {
		if err := db.Create(&tracks[i]).Error; err != nil {
			return log.Err("failed to seed track", err, "track", tracks[i].Title)
		}
	}

	// Ada and Miles share an electronic session history so they become
	// collaborative neighbors. Nina stays classical.
	now := time.Now()
	events := []ListeningEvent{
		{UserID: users[0].ID, TrackID: tracks[0].ID, PlayedAt: now.Add(-48 * time.Hour), PlayDuration: 214, CompletionPercentage: decimal.NewFromFloat(1.0), Source: "seed"},
		{UserID: users[0].ID, TrackID: tracks[1].ID, PlayedAt: now.Add(-48*time.Hour + 4*time.Minute), PlayDuration: 187, CompletionPercentage: decimal.NewFromFloat(0.9), Source: "seed"},
		{UserID: users[0].ID, TrackID: tracks[2].ID, PlayedAt: now.Add(-48*time.Hour + 8*time.Minute), PlayDuration: 243, CompletionPercentage: decimal.NewFromFloat(0.8), Source: "seed"},
		{UserID: users[0].ID, TrackID: tracks[10].ID, PlayedAt: now.Add(-24 * time.Hour), PlayDuration: 100, CompletionPercentage: decimal.NewFromFloat(0.4), Source: "seed"},
		{UserID: users[1].ID, TrackID: tracks[0].ID, PlayedAt: now.Add(-30 * time.Hour), PlayDuration: 214, CompletionPercentage: decimal.NewFromFloat(1.0), Source: "seed"},
		{UserID: users[1].ID, TrackID: tracks[2].ID, PlayedAt: now.Add(-30*time.Hour + 5*time.Minute), PlayDuration: 243, CompletionPercentage: decimal.NewFromFloat(0.95), Source: "seed"},
		{UserID: users[1].ID, TrackID: tracks[3].ID, PlayedAt: now.Add(-30*time.Hour + 10*time.Minute), PlayDuration: 198, CompletionPercentage: decimal.NewFromFloat(0.85), Source: "seed"},
		{UserID: users[2].ID, TrackID: tracks[4].ID, PlayedAt: now.Add(-20 * time.Hour), PlayDuration: 321, CompletionPercentage: decimal.NewFromFloat(1.0), Source: "seed"},
		{UserID: users[2].ID, TrackID: tracks[5].ID, PlayedAt: now.Add(-20*time.Hour + 7*time.Minute), PlayDuration: 402, CompletionPercentage: decimal.NewFromFloat(0.9), Source: "seed"},
	}
	for i := range events {
		if err := db.Create(&events[i]).Error; err != nil {
			return log.Err("failed to seed listening event", err)
		}
		if events[i].CountsAsPlay() {
			err := db.Model(&Track{}).
				Where("id = ?", events[i].TrackID).
				UpdateColumn("play_count", gorm.Expr("play_count + 1")).Error
			if err != nil {
				return log.Err("failed to bump seed play count", err)
			}
		}
	}

	ratings := []Rating{
		{UserID: users[0].ID, TrackID: tracks[0].ID, Rating: intPtr(5), IsLoved: true},
		{UserID: users[0].ID, TrackID: tracks[8].ID, IsBanned: true},
		{UserID: users[1].ID, TrackID: tracks[0].ID, Rating: intPtr(5), IsLoved: true},
		{UserID: users[1].ID, TrackID: tracks[3].ID, Rating: intPtr(4)},
		{UserID: users[2].ID, TrackID: tracks[4].ID, Rating: intPtr(5), IsLoved: true},
		// Coda barely gets played but everyone who hears it rates it
		// high, which is exactly what the discovery feed looks for.
		{UserID: users[0].ID, TrackID: tracks[11].ID, Rating: intPtr(5)},
		{UserID: users[2].ID, TrackID: tracks[11].ID, Rating: intPtr(5)},
	}
	for i := range ratings {
		if err := db.Create(&ratings[i]).Error; err != nil {
			return log.Err("failed to seed rating", err)
		}
	}

	log.Info("Seed complete",
		"users", len(users),
		"artists", len(artists),
		"tracks", len(tracks),
		"events", len(events),
		"ratings", len(ratings),
	)
	return nil
}
