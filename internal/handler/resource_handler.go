package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/cirkle/internal/service"
)

// ResourceHandler handles the Drive-backed documents and files of a group.
type ResourceHandler struct {
	drive  *service.DriveService
	groups *service.GroupService
}

// NewResourceHandler creates a new resource handler.
func NewResourceHandler(drive *service.DriveService, groups *service.GroupService) *ResourceHandler {
	return &ResourceHandler{drive: drive, groups: groups}
}

// Register sets up resource routes. The generic /:kind/:rid routes must be
// registered after every other two-segment group route.
func (h *ResourceHandler) Register(router fiber.Router) {
	groups := router.Group("/groups")
	groups.Post("/:id/documents", h.CreateDocument)
	groups.Post("/:id/files", h.UploadFile)
	groups.Post("/:id/resources/sync", h.Sync)
	groups.Put("/:id/:kind/:rid", h.Rename)
	groups.Delete("/:id/:kind/:rid", h.Delete)
}

type createDocumentRequest struct {
	Title string `json:"title" validate:"required,notblank,max=200"`
}

type renameResourceRequest struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

// CreateDocument creates a shared Google Doc and attaches it to the group.
func (h *ResourceHandler) CreateDocument(c fiber.Ctx) error {
	var req createDocumentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.drive.CreateDocument(c.Context(), currentUser(c), c.Params("id"), req.Title)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// UploadFile stores the multipart "file" field in Drive and attaches it to the group.
func (h *ResourceHandler) UploadFile(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable file")
	}
	defer f.Close()

	res, err := h.drive.UploadFile(c.Context(), currentUser(c), c.Params("id"),
		fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Rename changes a resource's display name.
func (h *ResourceHandler) Rename(c fiber.Ctx) error {
	var req renameResourceRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	err := h.groups.RenameResource(c.Context(), c.Params("id"), currentUser(c).UserID,
		c.Params("kind"), c.Params("rid"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": c.Params("rid"), "name": req.Name})
}

// Delete detaches a resource from the group and removes it from Drive.
func (h *ResourceHandler) Delete(c fiber.Ctx) error {
	err := h.drive.DeleteResource(c.Context(), currentUser(c), c.Params("id"), c.Params("kind"), c.Params("rid"))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Sync refreshes resource names from Drive.
func (h *ResourceHandler) Sync(c fiber.Ctx) error {
	n, err := h.drive.SyncNames(c.Context(), currentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"renamed": n})
}
