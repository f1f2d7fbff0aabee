package jobs

import (
	"context"

	"cadenza/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

// RecommendationRefreshJob regenerates the stored recommendation sets
// for every active user so the morning feeds are precomputed.
type RecommendationRefreshJob struct {
	recommendation *services.RecommendationService
	log            logger.Logger
	schedule       services.Schedule
}

func NewRecommendationRefreshJob(
	recommendation *services.RecommendationService,
	schedule services.Schedule,
) *RecommendationRefreshJob {
	return &RecommendationRefreshJob{
		recommendation: recommendation,
		log:            logger.New("recommendationRefreshJob"),
		schedule:       schedule,
	}
}

func (j *RecommendationRefreshJob) Name() string {
	return "RecommendationRefresh"
}

func (j *RecommendationRefreshJob) Schedule() services.Schedule {
	return j.schedule
}

func (j *RecommendationRefreshJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")
	log.Info("Starting nightly recommendation refresh")

	if err := j.recommendation.GenerateForAllUsers(ctx); err != nil {
		return log.Err("nightly recommendation refresh failed", err)
	}

	log.Info("Nightly recommendation refresh complete")
	return nil
}
