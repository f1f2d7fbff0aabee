package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cadenza/config"
	"cadenza/internal/constants"
	"cadenza/internal/database"
	"cadenza/internal/events"
	. "cadenza/internal/models"
	"cadenza/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecommendationService orchestrates one request end to end: snapshot,
// strategy fan-out under a wall clock budget, blending, and persistence.
type RecommendationService struct {
	db            database.DB
	repos         repositories.Repository
	config        config.Config
	transaction   *TransactionService
	signal        *SignalService
	similarity    *SimilarityService
	collaborative *CollaborativeService
	content       *ContentService
	popularity    *PopularityService
	discovery     *DiscoveryService
	blender       *BlenderService
	playlist      *PlaylistService
	log           logger.Logger
}

func NewRecommendationService(
	db database.DB,
	repos repositories.Repository,
	config config.Config,
	transaction *TransactionService,
	similarity *SimilarityService,
) *RecommendationService {
	blender := NewBlenderService(config)
	return &RecommendationService{
		db:            db,
		repos:         repos,
		config:        config,
		transaction:   transaction,
		signal:        NewSignalService(repos, config),
		similarity:    similarity,
		collaborative: NewCollaborativeService(similarity, config),
		content:       NewContentService(similarity),
		popularity:    NewPopularityService(db, repos),
		discovery:     NewDiscoveryService(config),
		blender:       blender,
		playlist:      NewPlaylistService(blender, config),
		log:           logger.New("RecommendationService"),
	}
}

// RecommendationResult is a ranked page plus whether it was stored.
// Persisted is false when the write failed; the scores are still good.
type RecommendationResult struct {
	Tracks    []ScoredTrack
	Persisted bool
}

// RecommendationFilter narrows the blended output to a genre, a mood,
// or both. Zero value means no filtering.
type RecommendationFilter struct {
	Genre string
	Mood  string
}

// GetRecommendations runs the full pipeline for one user. When the
// signal store is unreadable it degrades to popularity-only output
// rather than failing the request.
func (s *RecommendationService) GetRecommendations(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
	filter RecommendationFilter,
) (*RecommendationResult, error) {
	log := s.log.Function("GetRecommendations")
	defer log.Timer("blended recommendations")()

	tx := s.db.SQLWithContext(ctx)

	snapshot, err := s.signal.BuildSnapshot(ctx, tx, userID)
	if err == ErrSignalUnavailable {
		log.Warn("signal unavailable, degrading to popularity", "userID", userID)
		return s.popularityFallback(ctx, tx, userID, limit, offset, filter)
	}
	if err != nil {
		return nil, err
	}

	if !genreKnown(snapshot.Candidates, filter.Genre) {
		return nil, ErrUnknownGenre
	}

	results := s.runStrategies(ctx, snapshot, s.scorers(snapshot)...)
	ranked := s.blender.Blend(results, DefaultWeights())
	ranked = filterByTheme(ranked, filter.Genre, filter.Mood)
	page := Page(ranked, limit, offset)

	persistErr := s.persist(ctx, userID, page)
	if persistErr != nil {
		log.Warn("returning unpersisted recommendations", "userID", userID, "error", persistErr)
		return &RecommendationResult{Tracks: page, Persisted: false}, persistErr
	}

	return &RecommendationResult{Tracks: page, Persisted: true}, nil
}

// scorers picks the strategies worth running. Cold users skip the
// personalized strategies entirely instead of burning budget on empty
// neighbor lookups.
func (s *RecommendationService) scorers(snapshot *SignalSnapshot) []Scorer {
	if !snapshot.HasHistory() {
		return []Scorer{s.popularity, s.discovery}
	}
	return []Scorer{s.collaborative, s.content, s.popularity, s.discovery}
}

// runStrategies fans the scorers out and collects whatever finished
// inside the budget. A slow or panicking strategy costs its own slot,
// never the request.
func (s *RecommendationService) runStrategies(
	ctx context.Context,
	snapshot *SignalSnapshot,
	scorers ...Scorer,
) []StrategyResult {
	log := s.log.Function("runStrategies")

	budget := time.Duration(s.config.RequestBudgetMs) * time.Millisecond
	budgetCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	resultCh := make(chan StrategyResult, len(scorers))
	for _, scorer := range scorers {
		go func(scorer Scorer) {
			defer func() {
				if r := recover(); r != nil {
					resultCh <- StrategyResult{
						Strategy: scorer.Name(),
						Err:      log.ErrMsg(fmt.Sprintf("strategy panic: %v", r)),
					}
				}
			}()

			scores, err := scorer.Score(budgetCtx, snapshot)
			resultCh <- StrategyResult{Strategy: scorer.Name(), Scores: scores, Err: err}
		}(scorer)
	}

	results := make([]StrategyResult, 0, len(scorers))
	for range scorers {
		select {
		case result := <-resultCh:
			if result.Err != nil {
				log.Warn("strategy failed", "strategy", result.Strategy, "error", result.Err)
			}
			results = append(results, result)
		case <-budgetCtx.Done():
			log.Warn("strategy budget exhausted",
				"budget", budget,
				"finished", len(results),
				"total", len(scorers),
			)
			return results
		}
	}

	return results
}

func (s *RecommendationService) popularityFallback(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	limit, offset int,
	filter RecommendationFilter,
) (*RecommendationResult, error) {
	// Bans hold even in degraded mode. The ratings table is usually
	// still readable when the event reads are what failed; if it is
	// not, the request fails rather than risk surfacing a banned track.
	banned, err := s.repos.Rating.GetBannedTrackIDs(ctx, tx, userID)
	if err != nil {
		return nil, ErrSignalUnavailable
	}

	candidates, err := s.repos.Track.GetCandidatePool(ctx, tx, banned)
	if err != nil {
		return nil, ErrSignalUnavailable
	}

	snapshot := &SignalSnapshot{
		UserID:      userID,
		Candidates:  candidates,
		GeneratedAt: time.Now(),
	}
	scores, err := s.popularity.Score(ctx, snapshot)
	if err != nil {
		return nil, ErrSignalUnavailable
	}

	results := []StrategyResult{{Strategy: RecommendationPopularity, Scores: scores}}
	ranked := s.blender.Blend(results, map[RecommendationType]float64{
		RecommendationPopularity: 1,
	})
	ranked = filterByTheme(ranked, filter.Genre, filter.Mood)

	return &RecommendationResult{Tracks: Page(ranked, limit, offset), Persisted: false}, nil
}

// persist stores the page with a TTL. Failures come back as
// ErrPersistenceWrite so callers know a retry is worthwhile.
func (s *RecommendationService) persist(
	ctx context.Context,
	userID uuid.UUID,
	tracks []ScoredTrack,
) error {
	log := s.log.Function("persist")

	if len(tracks) == 0 {
		return nil
	}

	expiresAt := time.Now().Add(time.Duration(s.config.RecommendationTTLHours) * time.Hour)
	recommendations := make([]Recommendation, 0, len(tracks))
	for _, scored := range tracks {
		recommendations = append(recommendations, Recommendation{
			UserID:    userID,
			TrackID:   scored.Track.ID,
			Type:      persistType(scored),
			Score:     scored.Score,
			Reason:    scored.Reason,
			Metadata:  contributionMetadata(scored),
			ExpiresAt: expiresAt,
		})
	}

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return s.repos.Recommendation.CreateBatch(ctx, tx, recommendations)
	})
	if err != nil {
		log.Er("failed to persist recommendations", err, "userID", userID)
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}

	return nil
}

// persistType maps blended labels back onto the stored enum. Hybrid
// rows are stored under the dominant contributor with the full label
// kept in metadata.
func persistType(scored ScoredTrack) RecommendationType {
	var top RecommendationType
	var topShare float64
	for strategy, share := range scored.Contributions {
		if share > topShare || (share == topShare && strategy < top) {
			top, topShare = strategy, share
		}
	}
	if top == "" {
		return RecommendationPopularity
	}
	return top
}

func contributionMetadata(scored ScoredTrack) datatypes.JSON {
	payload, err := json.Marshal(map[string]any{
		"strategy":      scored.Strategy,
		"contributions": scored.Contributions,
	})
	if err != nil {
		return nil
	}
	return payload
}

// GetStored returns the user's live persisted recommendations. Expired
// and consumed rows are filtered at read time.
func (s *RecommendationService) GetStored(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]Recommendation, error) {
	tx := s.db.SQLWithContext(ctx)

	recommendations, err := s.repos.Recommendation.GetActiveForUser(ctx, tx, userID, time.Now())
	if err != nil {
		return nil, err
	}

	if offset >= len(recommendations) {
		return []Recommendation{}, nil
	}
	recommendations = recommendations[offset:]
	if limit > 0 && len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	return recommendations, nil
}

// GetTrending proxies the shared trending feed.
func (s *RecommendationService) GetTrending(
	ctx context.Context,
	period TrendingPeriod,
	limit int,
) ([]ScoredTrack, error) {
	return s.popularity.GetTrending(ctx, period, limit)
}

// GetDiscovery returns the user's hidden-gems feed, cached per user.
func (s *RecommendationService) GetDiscovery(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]ScoredTrack, error) {
	log := s.log.Function("GetDiscovery")

	var cached []ScoredTrack
	found, err := database.NewCacheBuilder(s.db.Cache.User, userID.String()).
		WithContext(ctx).
		WithHash(constants.DiscoveryCachePrefix).
		Get(&cached)
	if err != nil {
		log.Warn("failed to get discovery feed from cache", "userID", userID, "error", err)
	}
	if found {
		return Page(cached, limit, 0), nil
	}

	tx := s.db.SQLWithContext(ctx)
	snapshot, err := s.signal.BuildSnapshot(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	scores, err := s.discovery.Score(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	results := []StrategyResult{{Strategy: RecommendationDiscovery, Scores: scores}}
	ranked := s.blender.Blend(results, map[RecommendationType]float64{
		RecommendationDiscovery: 1,
	})

	err = database.NewCacheBuilder(s.db.Cache.User, userID.String()).
		WithContext(ctx).
		WithHash(constants.DiscoveryCachePrefix).
		WithStruct(ranked).
		WithTTL(constants.DiscoveryCacheExpiry).
		Set()
	if err != nil {
		log.Warn("failed to cache discovery feed", "userID", userID, "error", err)
	}

	return Page(ranked, limit, 0), nil
}

// GeneratePlaylist runs the strategy fan-out and packs the result to the
// requested duration.
func (s *RecommendationService) GeneratePlaylist(
	ctx context.Context,
	userID uuid.UUID,
	request PlaylistRequest,
) (*Playlist, error) {
	log := s.log.Function("GeneratePlaylist")

	tx := s.db.SQLWithContext(ctx)
	snapshot, err := s.signal.BuildSnapshot(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	results := s.runStrategies(ctx, snapshot, s.scorers(snapshot)...)
	playlist, err := s.playlist.Generate(ctx, results, request)
	if err != nil {
		return nil, err
	}

	if persistErr := s.persist(ctx, userID, playlistAsScored(playlist)); persistErr != nil {
		log.Warn("playlist generated but not persisted", "userID", userID, "error", persistErr)
		return playlist, persistErr
	}

	return playlist, nil
}

func playlistAsScored(playlist *Playlist) []ScoredTrack {
	scored := make([]ScoredTrack, len(playlist.Tracks))
	copy(scored, playlist.Tracks)
	for i := range scored {
		scored[i].Contributions = map[RecommendationType]float64{
			RecommendationPlaylist: 1,
		}
	}
	return scored
}

// MarkConsumed flips the stored recommendation for a played track.
// Unknown pairs are a quiet no-op so replayed events stay harmless.
func (s *RecommendationService) MarkConsumed(
	ctx context.Context,
	userID uuid.UUID,
	trackID uuid.UUID,
	consumedAt time.Time,
) (bool, error) {
	var consumed bool
	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var txErr error
		consumed, txErr = s.repos.Recommendation.MarkConsumed(ctx, tx, userID, trackID, consumedAt)
		return txErr
	})
	return consumed, err
}

// HandlePlayEvent ingests one play from the event bus: the listening
// event row, the track counters past the completion threshold, and the
// consumed flag on any matching recommendation.
func (s *RecommendationService) HandlePlayEvent(
	ctx context.Context,
	payload events.PlayEventData,
) error {
	log := s.log.Function("HandlePlayEvent")

	event := &ListeningEvent{
		UserID:               payload.UserID,
		TrackID:              payload.TrackID,
		PlayedAt:             payload.PlayedAt,
		PlayDuration:         payload.PlayDuration,
		CompletionPercentage: decimal.NewFromFloat(payload.CompletionPercentage),
		Source:               payload.Source,
	}

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := s.repos.ListeningEvent.Create(ctx, tx, event); err != nil {
			return err
		}

		if event.CountsAsPlay() {
			if err := s.repos.Track.RecordPlay(ctx, tx, payload.TrackID, payload.PlayedAt); err != nil {
				return err
			}
			if _, err := s.repos.Recommendation.MarkConsumed(
				ctx, tx, payload.UserID, payload.TrackID, payload.PlayedAt,
			); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return log.Err("failed to ingest play event", err,
			"userID", payload.UserID,
			"trackID", payload.TrackID,
		)
	}

	return nil
}

// GenerateForAllUsers refreshes the similarity index once, then runs the
// pipeline for every active user. Used by the nightly batch job.
func (s *RecommendationService) GenerateForAllUsers(ctx context.Context) error {
	log := s.log.Function("GenerateForAllUsers")
	defer log.Timer("batch recommendation generation")()

	if err := s.similarity.Rebuild(ctx); err != nil {
		return err
	}

	tx := s.db.SQLWithContext(ctx)
	userIDs, err := s.repos.User.GetActiveUserIDs(ctx, tx)
	if err != nil {
		return err
	}

	var failures int
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.GetRecommendations(ctx, userID, 50, 0, RecommendationFilter{}); err != nil {
			failures++
			log.Warn("batch generation failed for user", "userID", userID, "error", err)
		}
	}

	log.Info("batch generation complete", "users", len(userIDs), "failures", failures)
	if failures > 0 {
		return fmt.Errorf("batch generation failed for %d of %d users", failures, len(userIDs))
	}
	return nil
}
