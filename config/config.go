package config

import (
	logger "github.com/Bparsons0904/goLogger"
	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`
	SchedulerEnabled     bool   `mapstructure:"SCHEDULER_ENABLED"`

	// Recommendation engine tuning
	RecommendationTTLHours     int     `mapstructure:"REC_TTL_HOURS"`
	NeighborCount              int     `mapstructure:"REC_NEIGHBOR_COUNT"`
	SessionGapMinutes          int     `mapstructure:"REC_SESSION_GAP_MINUTES"`
	RequestBudgetMs            int     `mapstructure:"REC_REQUEST_BUDGET_MS"`
	DiscoveryMinRating         float64 `mapstructure:"REC_DISCOVERY_MIN_RATING"`
	DiscoveryPopularityCut     float64 `mapstructure:"REC_DISCOVERY_POPULARITY_CUT"`
	HybridContributionShare    float64 `mapstructure:"REC_HYBRID_SHARE"`
	HistoryWindowDays          int     `mapstructure:"REC_HISTORY_WINDOW_DAYS"`
	HistoryRowLimit            int     `mapstructure:"REC_HISTORY_ROW_LIMIT"`
	PlaylistPoolFactor         int     `mapstructure:"REC_PLAYLIST_POOL_FACTOR"`
	PlaylistOvershootTolerance float64 `mapstructure:"REC_PLAYLIST_OVERSHOOT_TOLERANCE"`
}

var ConfigInstance Config

func New() (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config")

	viper.AutomaticEnv()

	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT",
		"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
		"DB_CACHE_ADDRESS", "DB_CACHE_PORT",
		"CORS_ALLOW_ORIGINS", "SCHEDULER_ENABLED",
		"REC_TTL_HOURS", "REC_NEIGHBOR_COUNT", "REC_SESSION_GAP_MINUTES",
		"REC_REQUEST_BUDGET_MS", "REC_DISCOVERY_MIN_RATING",
		"REC_DISCOVERY_POPULARITY_CUT", "REC_HYBRID_SHARE",
		"REC_HISTORY_WINDOW_DAYS", "REC_HISTORY_ROW_LIMIT",
		"REC_PLAYLIST_POOL_FACTOR", "REC_PLAYLIST_OVERSHOOT_TOLERANCE",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	envVarsSet := viper.IsSet("SERVER_PORT") && viper.IsSet("DB_HOST")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	applyRecommendationDefaults(&config)

	if err := validateConfig(config, log); err != nil {
		return Config{}, err
	}

	log.Info("Successfully initialized config")
	return ConfigInstance, nil
}

func GetConfig() Config {
	return ConfigInstance
}

func applyRecommendationDefaults(config *Config) {
	if config.RecommendationTTLHours <= 0 {
		config.RecommendationTTLHours = 24
	}
	if config.NeighborCount <= 0 {
		config.NeighborCount = 20
	}
	if config.SessionGapMinutes <= 0 {
		config.SessionGapMinutes = 30
	}
	if config.RequestBudgetMs <= 0 {
		config.RequestBudgetMs = 400
	}
	if config.DiscoveryMinRating <= 0 {
		config.DiscoveryMinRating = 4.5
	}
	if config.DiscoveryPopularityCut <= 0 {
		config.DiscoveryPopularityCut = 0.25
	}
	if config.HybridContributionShare <= 0 {
		config.HybridContributionShare = 0.15
	}
	if config.HistoryWindowDays <= 0 {
		config.HistoryWindowDays = 180
	}
	if config.HistoryRowLimit <= 0 {
		config.HistoryRowLimit = 1000
	}
	if config.PlaylistPoolFactor <= 0 {
		config.PlaylistPoolFactor = 3
	}
	if config.PlaylistOvershootTolerance <= 0 {
		config.PlaylistOvershootTolerance = 0.10
	}
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Error(
			"Fatal error: invalid server port",
			"port", config.ServerPort,
		)
	}

	if config.DiscoveryMinRating > 5 {
		return log.Error(
			"Fatal error: discovery rating threshold above rating scale",
			"threshold", config.DiscoveryMinRating,
		)
	}

	if config.DiscoveryPopularityCut > 1 {
		return log.Error(
			"Fatal error: discovery popularity cut must be a percentile in (0,1]",
			"cut", config.DiscoveryPopularityCut,
		)
	}

	if config.PlaylistOvershootTolerance >= 1 {
		return log.Error(
			"Fatal error: playlist overshoot tolerance must be below 1",
			"tolerance", config.PlaylistOvershootTolerance,
		)
	}

	ConfigInstance = config
	return nil
}
