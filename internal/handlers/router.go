package handlers

import (
	"cadenza/internal/app"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	log    logger.Logger
	router fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	api := router.Group("/api")
	HealthHandler(api, app.Config)
	NewRecommendationHandler(*app, api).Register()
	NewPlayHandler(*app, api).Register()

	return nil
}
