package jobs

import (
	"context"

	"cadenza/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

// SimilarityRebuildJob refreshes the co-listening index on a fixed
// cadence. Requests keep reading the previous snapshot while it runs.
type SimilarityRebuildJob struct {
	similarity *services.SimilarityService
	log        logger.Logger
	schedule   services.Schedule
}

func NewSimilarityRebuildJob(
	similarity *services.SimilarityService,
	schedule services.Schedule,
) *SimilarityRebuildJob {
	return &SimilarityRebuildJob{
		similarity: similarity,
		log:        logger.New("similarityRebuildJob"),
		schedule:   schedule,
	}
}

func (j *SimilarityRebuildJob) Name() string {
	return "SimilarityIndexRebuild"
}

func (j *SimilarityRebuildJob) Schedule() services.Schedule {
	return j.schedule
}

func (j *SimilarityRebuildJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	if err := j.similarity.Rebuild(ctx); err != nil {
		return log.Err("similarity index rebuild failed", err)
	}

	return nil
}
