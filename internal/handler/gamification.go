package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/KattaManasa0402/Marine-life/internal/middleware"
	"github.com/KattaManasa0402/Marine-life/internal/service"
)

type GamificationHandler struct {
	ledger *service.RewardLedger
}

func NewGamificationHandler(ledger *service.RewardLedger) *GamificationHandler {
	return &GamificationHandler{ledger: ledger}
}

// Me handles GET /api/gamification/me
func (h *GamificationHandler) Me(c fiber.Ctx) error {
	resp, err := h.ledger.Summary(c.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		return serviceError(c, err, "Failed to fetch rewards")
	}
	return c.JSON(resp)
}
