package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/KattaManasa0402/Marine-life/internal/middleware"
	"github.com/KattaManasa0402/Marine-life/internal/model"
	"github.com/KattaManasa0402/Marine-life/internal/service"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Register handles POST /api/users/register
func (h *UserHandler) Register(c fiber.Ctx) error {
	var req model.RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	u, err := h.svc.Register(c.Context(), req)
	if err != nil {
		return serviceError(c, err, "Failed to register user")
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

// Login handles POST /api/users/login
func (h *UserHandler) Login(c fiber.Ctx) error {
	var req model.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	tok, err := h.svc.Login(c.Context(), req)
	if err != nil {
		return serviceError(c, err, "Failed to log in")
	}
	return c.JSON(tok)
}

// Me handles GET /api/users/me
func (h *UserHandler) Me(c fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}

// UpdateMe handles PUT /api/users/me
func (h *UserHandler) UpdateMe(c fiber.Ctx) error {
	var upd model.UserUpdate
	if err := c.Bind().JSON(&upd); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	u, err := h.svc.UpdateMe(c.Context(), middleware.CurrentUser(c).ID, upd)
	if err != nil {
		return serviceError(c, err, "Failed to update user")
	}
	return c.JSON(u)
}

// GetByUserID handles GET /api/users/:userId
func (h *UserHandler) GetByUserID(c fiber.Ctx) error {
	userID, ok, err := idParam(c, "userId")
	if !ok {
		return err
	}

	resp, err := h.svc.Lookup(c.Context(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to lookup user")
	}
	return c.JSON(resp)
}
