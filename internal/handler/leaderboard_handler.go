package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/cirkle/internal/service"
)

// LeaderboardHandler serves the group leaderboards.
type LeaderboardHandler struct {
	board  *service.LeaderboardService
	groups *service.GroupService
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(board *service.LeaderboardService, groups *service.GroupService) *LeaderboardHandler {
	return &LeaderboardHandler{board: board, groups: groups}
}

// Register sets up leaderboard routes.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("/groups/:id/leaderboard", h.Get)
}

// Get returns the group's scores, highest first.
func (h *LeaderboardHandler) Get(c fiber.Ctx) error {
	groupID := c.Params("id")
	if _, err := h.groups.RequireMember(c.Context(), groupID, currentUser(c).UserID); err != nil {
		return err
	}
	scores, err := h.board.Get(c.Context(), groupID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"group_id": groupID, "scores": scores})
}
