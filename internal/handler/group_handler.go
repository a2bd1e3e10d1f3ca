package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/middleware"
	"github.com/arturoeanton/cirkle/internal/port"
	"github.com/arturoeanton/cirkle/internal/service"
)

// GroupHandler handles group and membership endpoints.
type GroupHandler struct {
	groups   *service.GroupService
	sessions *service.SessionService
	audit    port.AuditStore
}

// NewGroupHandler creates a new group handler.
func NewGroupHandler(groups *service.GroupService, sessions *service.SessionService, audit port.AuditStore) *GroupHandler {
	return &GroupHandler{groups: groups, sessions: sessions, audit: audit}
}

// Register sets up group routes.
func (h *GroupHandler) Register(router fiber.Router) {
	groups := router.Group("/groups")
	groups.Get("/", h.List)
	groups.Post("/", h.Create)
	groups.Get("/:id", h.Get)
	groups.Post("/:id/join", h.Join)
	groups.Post("/:id/leave", h.Leave)
	groups.Get("/:id/invite", h.Invite)
}

type createGroupRequest struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

// List returns the groups the caller belongs to.
func (h *GroupHandler) List(c fiber.Ctx) error {
	groups, err := h.groups.ListForUser(c.Context(), currentUser(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"groups": groups, "count": len(groups)})
}

// Create creates a group with the caller as its first member.
func (h *GroupHandler) Create(c fiber.Ctx) error {
	var req createGroupRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user := currentUser(c)
	g, err := h.groups.Create(c.Context(), req.Name, user.UserID)
	if err != nil {
		return err
	}
	h.record(c, user.UserID, domain.AuditActionGroupCreate, g.ID)
	return c.Status(fiber.StatusCreated).JSON(g)
}

// Get returns a group the caller belongs to.
func (h *GroupHandler) Get(c fiber.Ctx) error {
	g, err := h.groups.RequireMember(c.Context(), c.Params("id"), currentUser(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(g)
}

// Join adds the caller to the group named by its invite code.
func (h *GroupHandler) Join(c fiber.Ctx) error {
	user := currentUser(c)
	g, err := h.groups.Join(c.Context(), c.Params("id"), user.UserID)
	if err != nil {
		return err
	}
	h.record(c, user.UserID, domain.AuditActionGroupJoin, g.ID)
	return c.JSON(g)
}

// Leave removes the caller from the group and ends their pomodoro session.
func (h *GroupHandler) Leave(c fiber.Ctx) error {
	user := currentUser(c)
	groupID := c.Params("id")
	if err := h.sessions.Leave(c.Context(), groupID, user.UserID); err != nil {
		return err
	}
	h.record(c, user.UserID, domain.AuditActionGroupLeave, groupID)
	return c.SendStatus(fiber.StatusNoContent)
}

// Invite returns the code other users join the group with.
func (h *GroupHandler) Invite(c fiber.Ctx) error {
	g, err := h.groups.RequireMember(c.Context(), c.Params("id"), currentUser(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"group_id": g.ID, "name": g.Name, "code": h.groups.InviteCode(g.ID)})
}

func (h *GroupHandler) record(c fiber.Ctx, userID, action, groupID string) {
	if err := h.audit.WriteAudit(userID, action, "group", groupID, "", c.IP(), c.Get("User-Agent")); err != nil {
		slog.Error("failed to write audit log", "action", action, "group_id", groupID, "error", err)
	}
}

func currentUser(c fiber.Ctx) domain.UserContext {
	if u := middleware.GetUserContext(c); u != nil {
		return *u
	}
	return domain.UserContext{}
}
