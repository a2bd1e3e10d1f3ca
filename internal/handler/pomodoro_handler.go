package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/service"
)

// PomodoroHandler exposes the caller's pomodoro timer in a group.
type PomodoroHandler struct {
	sessions *service.SessionService
}

// NewPomodoroHandler creates a new pomodoro handler.
func NewPomodoroHandler(sessions *service.SessionService) *PomodoroHandler {
	return &PomodoroHandler{sessions: sessions}
}

// Register sets up pomodoro routes.
func (h *PomodoroHandler) Register(router fiber.Router) {
	p := router.Group("/groups/:id/pomodoro")
	p.Get("/", h.transition(h.sessions.State))
	p.Post("/start", h.transition(h.sessions.Start))
	p.Post("/pause", h.transition(h.sessions.Pause))
	p.Post("/toggle", h.transition(h.sessions.Toggle))
	p.Post("/reset", h.transition(h.sessions.Reset))
	p.Put("/duration", h.SetDuration)
	p.Delete("/", h.End)
}

type setDurationRequest struct {
	Seconds *int `json:"seconds" validate:"required"`
}

type sessionOp func(ctx context.Context, groupID string, user domain.UserContext) (domain.TimerState, error)

func (h *PomodoroHandler) transition(op sessionOp) fiber.Handler {
	return func(c fiber.Ctx) error {
		state, err := op(c.Context(), c.Params("id"), currentUser(c))
		if err != nil {
			return err
		}
		return c.JSON(state)
	}
}

// SetDuration changes the session length of an idle timer.
func (h *PomodoroHandler) SetDuration(c fiber.Ctx) error {
	var req setDurationRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	state, err := h.sessions.SetDuration(c.Context(), c.Params("id"), currentUser(c), *req.Seconds)
	if err != nil {
		return err
	}
	return c.JSON(state)
}

// End discards the caller's timer without awarding points.
func (h *PomodoroHandler) End(c fiber.Ctx) error {
	if !h.sessions.End(c.Params("id"), currentUser(c).UserID) {
		return fiber.NewError(fiber.StatusNotFound, "no active session")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
