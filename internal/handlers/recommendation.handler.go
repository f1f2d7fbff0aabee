package handlers

import (
	"errors"

	"cadenza/internal/app"
	recommendationController "cadenza/internal/controllers/recommendation"
	"cadenza/internal/services"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RecommendationHandler struct {
	Handler
	recommendationController recommendationController.RecommendationControllerInterface
}

func NewRecommendationHandler(app app.App, router fiber.Router) *RecommendationHandler {
	log := logger.New("handlers").File("recommendation_handler")
	return &RecommendationHandler{
		recommendationController: app.Controllers.Recommendation,
		Handler: Handler{
			log:    log,
			router: router,
		},
	}
}

func (h *RecommendationHandler) Register() {
	users := h.router.Group("/users/:userId")
	users.Get("/recommendations", h.getRecommendations)
	users.Get("/recommendations/stored", h.getStored)
	users.Get("/discovery", h.getDiscovery)
	users.Post("/playlists", h.generatePlaylist)
	users.Post("/recommendations/:trackId/consume", h.markConsumed)

	h.router.Get("/trending", h.getTrending)
}

func parseUserID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("userId"))
}

func (h *RecommendationHandler) getRecommendations(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	limit := c.QueryInt("limit")
	offset := c.QueryInt("offset")
	filter := services.RecommendationFilter{
		Genre: c.Query("genre"),
		Mood:  c.Query("mood"),
	}

	result, err := h.recommendationController.GetRecommendations(c.Context(), userID, limit, offset, filter)
	if err != nil && !errors.Is(err, services.ErrPersistenceWrite) {
		return h.mapError(c, err, "Failed to get recommendations")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"recommendations": result.Tracks,
		"persisted":       result.Persisted,
	})
}

func (h *RecommendationHandler) getStored(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	recommendations, err := h.recommendationController.GetStored(
		c.Context(),
		userID,
		c.QueryInt("limit"),
		c.QueryInt("offset"),
	)
	if err != nil {
		return h.mapError(c, err, "Failed to get stored recommendations")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"recommendations": recommendations,
	})
}

func (h *RecommendationHandler) getTrending(c *fiber.Ctx) error {
	trending, err := h.recommendationController.GetTrending(
		c.Context(),
		c.Query("period"),
		c.QueryInt("limit"),
	)
	if err != nil {
		return h.mapError(c, err, "Failed to get trending tracks")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"trending": trending,
	})
}

func (h *RecommendationHandler) getDiscovery(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	discovery, err := h.recommendationController.GetDiscovery(
		c.Context(),
		userID,
		c.QueryInt("limit"),
	)
	if err != nil {
		return h.mapError(c, err, "Failed to get discovery feed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"discovery": discovery,
	})
}

type playlistRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"durationMinutes"`
	Mood            string `json:"mood"`
	Genre           string `json:"genre"`
}

func (h *RecommendationHandler) generatePlaylist(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var body playlistRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	playlist, err := h.recommendationController.GeneratePlaylist(
		c.Context(),
		userID,
		services.PlaylistRequest{
			Name:            body.Name,
			Description:     body.Description,
			DurationMinutes: body.DurationMinutes,
			Mood:            body.Mood,
			Genre:           body.Genre,
		},
	)
	if err != nil && !errors.Is(err, services.ErrPersistenceWrite) {
		return h.mapError(c, err, "Failed to generate playlist")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"name":            playlist.Name,
		"description":     playlist.Description,
		"playlist":        playlist.Tracks,
		"targetSeconds":   int(playlist.TargetDuration.Seconds()),
		"realizedSeconds": int(playlist.RealizedDuration.Seconds()),
		"persisted":       err == nil,
	})
}

func (h *RecommendationHandler) markConsumed(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	trackID, err := uuid.Parse(c.Params("trackId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid track ID",
		})
	}

	consumed, err := h.recommendationController.MarkConsumed(c.Context(), userID, trackID)
	if err != nil {
		return h.mapError(c, err, "Failed to mark recommendation consumed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"consumed": consumed,
	})
}

func (h *RecommendationHandler) mapError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, recommendationController.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request parameter",
		})
	case errors.Is(err, recommendationController.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	case errors.Is(err, services.ErrSignalUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Listening signal unavailable",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": message,
		})
	}
}
