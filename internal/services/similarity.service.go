package services

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"cadenza/config"
	"cadenza/internal/database"
	. "cadenza/internal/models"
	"cadenza/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

// similarityIndex is an immutable snapshot of the co-listening and
// per-user play data. Readers grab the pointer once and never see a
// partially rebuilt index; rebuilds swap in a fresh copy.
type similarityIndex struct {
	builtAt       time.Time
	coCounts      map[uuid.UUID]map[uuid.UUID]int
	trackSessions map[uuid.UUID]int
	userPlays     map[uuid.UUID]map[uuid.UUID]int
	userLoved     map[uuid.UUID]map[uuid.UUID]bool
}

type UserSimilarity struct {
	UserID     uuid.UUID
	Similarity float64
}

type SimilarityService struct {
	db     database.DB
	repos  repositories.Repository
	config config.Config
	index  atomic.Pointer[similarityIndex]
	log    logger.Logger
}

func NewSimilarityService(
	db database.DB,
	repos repositories.Repository,
	config config.Config,
) *SimilarityService {
	return &SimilarityService{
		db:     db,
		repos:  repos,
		config: config,
		log:    logger.New("SimilarityService"),
	}
}

// Rebuild recomputes the co-listening index from recent events and loved
// ratings and atomically publishes it. Safe to call concurrently with reads.
func (s *SimilarityService) Rebuild(ctx context.Context) error {
	log := s.log.Function("Rebuild")
	defer log.Timer("rebuild similarity index")()

	tx := s.db.SQLWithContext(ctx)

	since := time.Now().AddDate(0, 0, -s.config.HistoryWindowDays)
	events, err := s.repos.ListeningEvent.GetRecentAll(ctx, tx, since, 0)
	if err != nil {
		return log.Err("failed to load events for similarity index", err)
	}

	loved, err := s.repos.Rating.GetAllLoved(ctx, tx)
	if err != nil {
		return log.Err("failed to load loved ratings for similarity index", err)
	}

	index := buildSimilarityIndex(events, loved, s.sessionGap())
	s.index.Store(index)

	log.Info("similarity index rebuilt",
		"events", len(events),
		"tracks", len(index.trackSessions),
		"users", len(index.userPlays),
	)
	return nil
}

func (s *SimilarityService) sessionGap() time.Duration {
	return time.Duration(s.config.SessionGapMinutes) * time.Minute
}

func buildSimilarityIndex(
	events []ListeningEvent,
	loved []Rating,
	sessionGap time.Duration,
) *similarityIndex {
	index := &similarityIndex{
		builtAt:       time.Now(),
		coCounts:      make(map[uuid.UUID]map[uuid.UUID]int),
		trackSessions: make(map[uuid.UUID]int),
		userPlays:     make(map[uuid.UUID]map[uuid.UUID]int),
		userLoved:     make(map[uuid.UUID]map[uuid.UUID]bool),
	}

	byUser := make(map[uuid.UUID][]ListeningEvent)
	for _, event := range events {
		if !event.CountsAsPlay() {
			continue
		}
		byUser[event.UserID] = append(byUser[event.UserID], event)

		plays := index.userPlays[event.UserID]
		if plays == nil {
			plays = make(map[uuid.UUID]int)
			index.userPlays[event.UserID] = plays
		}
		plays[event.TrackID]++
	}

	for _, rating := range loved {
		lovedSet := index.userLoved[rating.UserID]
		if lovedSet == nil {
			lovedSet = make(map[uuid.UUID]bool)
			index.userLoved[rating.UserID] = lovedSet
		}
		lovedSet[rating.TrackID] = true
	}

	for _, userEvents := range byUser {
		sort.Slice(userEvents, func(i, j int) bool {
			return userEvents[i].PlayedAt.Before(userEvents[j].PlayedAt)
		})

		for _, session := range splitSessions(userEvents, sessionGap) {
			for trackID := range session {
				index.trackSessions[trackID]++
			}
			addCoOccurrences(index.coCounts, session)
		}
	}

	return index
}

// splitSessions groups a user's chronologically ordered plays into
// listening sessions. A gap longer than sessionGap starts a new session.
func splitSessions(events []ListeningEvent, sessionGap time.Duration) []map[uuid.UUID]bool {
	var sessions []map[uuid.UUID]bool
	var current map[uuid.UUID]bool
	var lastPlayed time.Time

	for _, event := range events {
		if current == nil || event.PlayedAt.Sub(lastPlayed) > sessionGap {
			current = make(map[uuid.UUID]bool)
			sessions = append(sessions, current)
		}
		current[event.TrackID] = true
		lastPlayed = event.PlayedAt
	}

	return sessions
}

func addCoOccurrences(coCounts map[uuid.UUID]map[uuid.UUID]int, session map[uuid.UUID]bool) {
	tracks := make([]uuid.UUID, 0, len(session))
	for trackID := range session {
		tracks = append(tracks, trackID)
	}

	for i := 0; i < len(tracks); i++ {
		for j := i + 1; j < len(tracks); j++ {
			a, b := tracks[i], tracks[j]
			if coCounts[a] == nil {
				coCounts[a] = make(map[uuid.UUID]int)
			}
			if coCounts[b] == nil {
				coCounts[b] = make(map[uuid.UUID]int)
			}
			coCounts[a][b]++
			coCounts[b][a]++
		}
	}
}

// GenreSimilarity is the cosine similarity of two tracks' genre weight
// vectors. Tracks with no genre overlap score zero.
func (s *SimilarityService) GenreSimilarity(a, b Track) float64 {
	return genreCosine(a.Genres(), b.Genres())
}

func genreCosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for genre, weightA := range a {
		normA += weightA * weightA
		if weightB, ok := b[genre]; ok {
			dot += weightA * weightB
		}
	}
	for _, weightB := range b {
		normB += weightB * weightB
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CoListenSimilarity normalizes session co-occurrence by each track's
// session reach. Zero until the index has been built.
func (s *SimilarityService) CoListenSimilarity(a, b uuid.UUID) float64 {
	index := s.index.Load()
	if index == nil {
		return 0
	}

	co := index.coCounts[a][b]
	if co == 0 {
		return 0
	}

	sessionsA := index.trackSessions[a]
	sessionsB := index.trackSessions[b]
	if sessionsA == 0 || sessionsB == 0 {
		return 0
	}

	return float64(co) / math.Sqrt(float64(sessionsA)*float64(sessionsB))
}

// UserSimilarity blends loved-set Jaccard overlap with play count cosine,
// weighted 0.6 and 0.4. Both parts degrade to zero without data.
func (s *SimilarityService) UserSimilarity(a, b uuid.UUID) float64 {
	index := s.index.Load()
	if index == nil {
		return 0
	}
	return userSimilarityFromIndex(index, a, b)
}

func userSimilarityFromIndex(index *similarityIndex, a, b uuid.UUID) float64 {
	lovedA, lovedB := index.userLoved[a], index.userLoved[b]

	var intersection, union float64
	for trackID := range lovedA {
		union++
		if lovedB[trackID] {
			intersection++
		}
	}
	for trackID := range lovedB {
		if !lovedA[trackID] {
			union++
		}
	}

	jaccard := 0.0
	if union > 0 {
		jaccard = intersection / union
	}

	playsA, playsB := index.userPlays[a], index.userPlays[b]
	var dot, normA, normB float64
	for trackID, countA := range playsA {
		fa := float64(countA)
		normA += fa * fa
		if countB, ok := playsB[trackID]; ok {
			dot += fa * float64(countB)
		}
	}
	for _, countB := range playsB {
		fb := float64(countB)
		normB += fb * fb
	}

	cosine := 0.0
	if normA > 0 && normB > 0 {
		cosine = dot / (math.Sqrt(normA) * math.Sqrt(normB))
	}

	return jaccard*0.6 + cosine*0.4
}

// Neighbors returns the k most similar users to userID, strongest first.
func (s *SimilarityService) Neighbors(userID uuid.UUID, k int) []UserSimilarity {
	index := s.index.Load()
	if index == nil || k <= 0 {
		return nil
	}

	candidates := make(map[uuid.UUID]bool)
	for otherID := range index.userPlays {
		candidates[otherID] = true
	}
	for otherID := range index.userLoved {
		candidates[otherID] = true
	}
	delete(candidates, userID)

	neighbors := make([]UserSimilarity, 0, len(candidates))
	for otherID := range candidates {
		similarity := userSimilarityFromIndex(index, userID, otherID)
		if similarity > 0 {
			neighbors = append(neighbors, UserSimilarity{UserID: otherID, Similarity: similarity})
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].UserID.String() < neighbors[j].UserID.String()
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

// NeighborPlays exposes a neighbor's qualified play counts for the
// collaborative strategy. The returned map is shared, do not mutate it.
func (s *SimilarityService) NeighborPlays(userID uuid.UUID) map[uuid.UUID]int {
	index := s.index.Load()
	if index == nil {
		return nil
	}
	return index.userPlays[userID]
}

// NeighborLoved exposes a neighbor's loved set. Shared, do not mutate.
func (s *SimilarityService) NeighborLoved(userID uuid.UUID) map[uuid.UUID]bool {
	index := s.index.Load()
	if index == nil {
		return nil
	}
	return index.userLoved[userID]
}

// Ready reports whether an index snapshot has been published.
func (s *SimilarityService) Ready() bool {
	return s.index.Load() != nil
}
