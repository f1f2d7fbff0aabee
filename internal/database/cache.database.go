package database

import (
	"fmt"

	"cadenza/config"

	"github.com/valkey-io/valkey-go"
)

// Valkey database index organization. Each index provides logical separation
// for one cache category.
const (
	// GENERAL_CACHE_INDEX (DB 0) - miscellaneous cache operations
	GENERAL_CACHE_INDEX = iota

	// USER_CACHE_INDEX (DB 1) - per-user recommendation result sets,
	// discovery feeds, and playlist pools
	USER_CACHE_INDEX

	// TRENDING_CACHE_INDEX (DB 2) - global trending feeds keyed by period;
	// shared across users so kept apart from per-user invalidation
	TRENDING_CACHE_INDEX

	// EVENTS_CACHE_INDEX (DB 3) - pub/sub backing for the play-event stream
	EVENTS_CACHE_INDEX
)

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")
	log.Info("initializing cache database")

	address := config.DatabaseCacheAddress
	port := config.DatabaseCachePort
	if address == "" || port == 0 {
		return log.Error("failed to initialize cache database", "reason", "address or port is empty")
	}

	var cacheDB Cache

	var err error
	cacheDB.General, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    GENERAL_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create general valkey client", err)
	}

	cacheDB.User, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    USER_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create user valkey client", err)
	}

	cacheDB.Trending, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    TRENDING_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create trending valkey client", err)
	}

	cacheDB.Events, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    EVENTS_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create events valkey client", err)
	}

	s.Cache = cacheDB

	return nil
}
