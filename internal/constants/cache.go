package constants

import "time"

const (
	RecommendationsCachePrefix = "recommendations" // per-user ranked result sets (CacheBuilder adds colon)
	TrendingCachePrefix        = "trending"        // global feed keyed by period
	DiscoveryCachePrefix       = "discovery"       // global hidden-gems feed

	RecommendationsCacheExpiry = 1 * time.Hour
	TrendingCacheExpiry        = 15 * time.Minute
	DiscoveryCacheExpiry       = 1 * time.Hour
)
