package handlers

import (
	"time"

	"cadenza/internal/app"
	"cadenza/internal/events"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// PlayHandler accepts play reports from clients and puts them on the
// event bus. Ingestion is decoupled from scoring: the subscriber updates
// counters and consumption flags asynchronously.
type PlayHandler struct {
	Handler
	eventBus *events.EventBus
}

func NewPlayHandler(app app.App, router fiber.Router) *PlayHandler {
	log := logger.New("handlers").File("play_handler")
	return &PlayHandler{
		eventBus: app.EventBus,
		Handler: Handler{
			log:    log,
			router: router,
		},
	}
}

func (h *PlayHandler) Register() {
	h.router.Post("/plays", h.reportPlay)
}

type playReport struct {
	UserID               uuid.UUID `json:"userId"`
	TrackID              uuid.UUID `json:"trackId"`
	PlayedAt             time.Time `json:"playedAt"`
	PlayDuration         int       `json:"playDuration"` // seconds
	CompletionPercentage float64   `json:"completionPercentage"`
	Source               string    `json:"source"`
}

func (h *PlayHandler) reportPlay(c *fiber.Ctx) error {
	log := h.log.Function("reportPlay")

	var body playReport
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if body.UserID == uuid.Nil || body.TrackID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId and trackId are required",
		})
	}
	if body.CompletionPercentage < 0 || body.CompletionPercentage > 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "completionPercentage must be between 0 and 1",
		})
	}
	if body.PlayDuration < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "playDuration must not be negative",
		})
	}
	if body.PlayedAt.IsZero() {
		body.PlayedAt = time.Now()
	}

	err := h.eventBus.PublishPlayEvent(events.PlayEventData{
		UserID:               body.UserID,
		TrackID:              body.TrackID,
		PlayedAt:             body.PlayedAt,
		PlayDuration:         body.PlayDuration,
		CompletionPercentage: body.CompletionPercentage,
		Source:               body.Source,
	})
	if err != nil {
		log.Er("failed to publish play event", err, "userID", body.UserID)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record play",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"accepted": true,
	})
}
