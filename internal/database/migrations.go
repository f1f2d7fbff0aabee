package database

import (
	"cadenza/internal/models"

	logger "github.com/Bparsons0904/goLogger"
)

// MigrateModels runs GORM AutoMigrate for all models
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	modelsToMigrate := []interface{}{
		&models.User{},
		&models.Artist{},
		&models.ArtistRelationship{},
		&models.Track{},
		&models.ListeningEvent{},
		&models.Rating{},
		&models.Recommendation{},
	}

	for _, model := range modelsToMigrate {
		if err := db.SQL.AutoMigrate(model); err != nil {
			log.Er("Failed to migrate model", err, "model", model)
			return err
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes creates additional indexes that GORM doesn't create automatically
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	indexes := []string{
		// Active-recommendation lookups: one active row per (user, track, type)
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_recommendations_active ON recommendations(user_id, track_id, type) WHERE deleted_at IS NULL",
		// Windowed history reads order by played_at descending
		"CREATE INDEX IF NOT EXISTS idx_listening_events_user_recent ON listening_events(user_id, played_at DESC)",
		// Banned-track exclusion scans
		"CREATE INDEX IF NOT EXISTS idx_ratings_banned ON ratings(user_id) WHERE is_banned",
		// Trending window aggregation
		"CREATE INDEX IF NOT EXISTS idx_listening_events_played_at ON listening_events(played_at DESC)",
	}

	for _, indexSQL := range indexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
			// Continue with other indexes even if one fails
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
