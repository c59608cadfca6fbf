package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/KattaManasa0402/Marine-life/internal/middleware"
	"github.com/KattaManasa0402/Marine-life/internal/service"
)

type MediaHandler struct {
	svc *service.MediaService
}

func NewMediaHandler(svc *service.MediaService) *MediaHandler {
	return &MediaHandler{svc: svc}
}

// Upload handles POST /api/media/upload (multipart form).
func (h *MediaHandler) Upload(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MISSING_FIELD", "file is required")
	}

	lat, errMsg := middleware.ParseOptionalFloat(c.FormValue("latitude"), "latitude")
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	lng, errMsg := middleware.ParseOptionalFloat(c.FormValue("longitude"), "longitude")
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	capturedAt, errMsg := middleware.ParseOptionalTime(c.FormValue("sighting_timestamp"), "sighting_timestamp")
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	var desc *string
	if raw := c.FormValue("description"); raw != "" {
		var ok bool
		if desc, ok = middleware.ValidateText(&raw, middleware.MaxDescriptionLen); !ok {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "description is too long")
		}
	}

	f, err := fh.Open()
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "file could not be read")
	}
	defer f.Close()

	item, err := h.svc.Upload(c.Context(), service.UploadRequest{
		UserID:      middleware.CurrentUser(c).ID,
		Filename:    fh.Filename,
		Body:        f,
		Description: desc,
		Latitude:    lat,
		Longitude:   lng,
		CapturedAt:  capturedAt,
	})
	if err != nil {
		return serviceError(c, err, "Failed to upload media")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// List handles GET /api/media
func (h *MediaHandler) List(c fiber.Ctx) error {
	skip, limit := middleware.ParsePage(c, 100)
	items, err := h.svc.List(c.Context(), c.Query("species"), skip, limit)
	if err != nil {
		return serviceError(c, err, "Failed to list media")
	}
	return c.JSON(items)
}

// ListMine handles GET /api/media/user/me
func (h *MediaHandler) ListMine(c fiber.Ctx) error {
	skip, limit := middleware.ParsePage(c, 100)
	items, err := h.svc.ListMine(c.Context(), middleware.CurrentUser(c).ID, skip, limit)
	if err != nil {
		return serviceError(c, err, "Failed to list media")
	}
	return c.JSON(items)
}

// Get handles GET /api/media/:id
func (h *MediaHandler) Get(c fiber.Ctx) error {
	id, ok, err := idParam(c, "id")
	if !ok {
		return err
	}

	item, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to fetch media item")
	}
	return c.JSON(item)
}
