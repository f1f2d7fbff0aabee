package services

import (
	"cadenza/config"
	"cadenza/internal/database"
	"cadenza/internal/events"
	"cadenza/internal/repositories"
)

type Service struct {
	Transaction    *TransactionService
	Scheduler      *SchedulerService
	Similarity     *SimilarityService
	Recommendation *RecommendationService
}

func New(db database.DB, config config.Config, eventBus *events.EventBus) (Service, error) {
	transactionService := NewTransactionService(db)
	repos := repositories.New(db)

	schedulerService := NewSchedulerService()
	similarityService := NewSimilarityService(db, repos, config)
	recommendationService := NewRecommendationService(
		db,
		repos,
		config,
		transactionService,
		similarityService,
	)

	return Service{
		Transaction:    transactionService,
		Scheduler:      schedulerService,
		Similarity:     similarityService,
		Recommendation: recommendationService,
	}, nil
}
