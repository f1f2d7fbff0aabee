package app

import (
	"context"

	"cadenza/config"
	"cadenza/internal/database"
	"cadenza/internal/events"
	"cadenza/internal/jobs"
	"cadenza/internal/services"

	recommendationController "cadenza/internal/controllers/recommendation"

	logger "github.com/Bparsons0904/goLogger"
)

type Controllers struct {
	Recommendation recommendationController.RecommendationControllerInterface
}

type App struct {
	Database    database.DB
	EventBus    *events.EventBus
	Config      config.Config
	Services    services.Service
	Controllers Controllers
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.New()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events, config)

	service, err := services.New(db, config, eventBus)
	if err != nil {
		return &App{}, log.Err("failed to create services", err)
	}

	controllers := Controllers{
		Recommendation: recommendationController.New(service),
	}

	app := &App{
		Database:    db,
		EventBus:    eventBus,
		Config:      config,
		Services:    service,
		Controllers: controllers,
	}

	if err := app.subscribePlayEvents(); err != nil {
		return &App{}, err
	}

	if config.SchedulerEnabled {
		if err := app.registerJobs(); err != nil {
			return &App{}, err
		}
		if err := service.Scheduler.Start(context.Background()); err != nil {
			return &App{}, log.Err("failed to start scheduler", err)
		}
	}

	// Warm the co-listening index so the first requests are not all
	// cold. Failure is tolerable, the hourly rebuild will catch up.
	go func() {
		if err := service.Similarity.Rebuild(context.Background()); err != nil {
			log.Warn("initial similarity index build failed", "error", err)
		}
	}()

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

// subscribePlayEvents routes completed plays from the bus into the
// recommendation pipeline: history row, play counters, consumption.
func (a *App) subscribePlayEvents() error {
	log := logger.New("app").Function("subscribePlayEvents")

	err := a.EventBus.Subscribe(events.PLAY_EVENTS_CHANNEL, func(event events.Event) error {
		if event.Type != events.PLAY_COMPLETED {
			return nil
		}

		payload, err := events.PlayEventFromEvent(event)
		if err != nil {
			return log.Err("failed to decode play event", err)
		}

		return a.Services.Recommendation.HandlePlayEvent(context.Background(), payload)
	})
	if err != nil {
		return log.Err("failed to subscribe to play events", err)
	}

	return nil
}

func (a *App) registerJobs() error {
	log := logger.New("app").Function("registerJobs")

	batchJob := jobs.NewRecommendationRefreshJob(a.Services.Recommendation, services.Daily)
	if err := a.Services.Scheduler.AddJob(batchJob); err != nil {
		return log.Err("failed to register recommendation refresh job", err)
	}

	similarityJob := jobs.NewSimilarityRebuildJob(a.Services.Similarity, services.Hourly)
	if err := a.Services.Scheduler.AddJob(similarityJob); err != nil {
		return log.Err("failed to register similarity rebuild job", err)
	}

	return nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")

	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}
	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.EventBus,
		a.Services.Transaction,
		a.Services.Scheduler,
		a.Services.Similarity,
		a.Services.Recommendation,
		a.Controllers.Recommendation,
	}
	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.Services.Scheduler != nil {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
