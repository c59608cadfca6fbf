package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/KattaManasa0402/Marine-life/internal/metrics"
	"github.com/KattaManasa0402/Marine-life/internal/middleware"
	"github.com/KattaManasa0402/Marine-life/internal/model"
	"github.com/KattaManasa0402/Marine-life/internal/service"
)

type ValidationHandler struct {
	svc *service.ValidationService
}

func NewValidationHandler(svc *service.ValidationService) *ValidationHandler {
	return &ValidationHandler{svc: svc}
}

// Submit handles POST /api/media/:id/validate
func (h *ValidationHandler) Submit(c fiber.Ctx) error {
	mediaID, ok, err := idParam(c, "id")
	if !ok {
		return err
	}

	var p model.VotePayload
	if err := c.Bind().JSON(&p); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	if msg := checkVoteLengths(&p); msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", msg)
	}

	user := middleware.CurrentUser(c)
	resp, err := h.svc.SubmitVote(c.Context(), mediaID, user.ID, p)
	if err != nil {
		return serviceError(c, err, "Failed to submit vote")
	}

	metrics.VotesTotal.WithLabelValues(string(resp.Vote.SpeciesVerdict), strconv.FormatBool(resp.Created)).Inc()
	return c.Status(fiber.StatusCreated).JSON(resp.Vote)
}

// List handles GET /api/media/:id/validations
func (h *ValidationHandler) List(c fiber.Ctx) error {
	mediaID, ok, err := idParam(c, "id")
	if !ok {
		return err
	}

	votes, err := h.svc.ListVotes(c.Context(), mediaID)
	if err != nil {
		return serviceError(c, err, "Failed to list votes")
	}
	return c.JSON(votes)
}

// Mine handles GET /api/media/:id/validate/me. It answers null when the
// caller has not voted on the item.
func (h *ValidationHandler) Mine(c fiber.Ctx) error {
	mediaID, ok, err := idParam(c, "id")
	if !ok {
		return err
	}

	vote, err := h.svc.GetVote(c.Context(), mediaID, middleware.CurrentUser(c).ID)
	if errors.Is(err, service.ErrVoteNotFound) {
		return c.JSON(nil)
	}
	if err != nil {
		return serviceError(c, err, "Failed to fetch vote")
	}
	return c.JSON(vote)
}

// Delete handles DELETE /api/validations/:voteId. Only the vote's author
// or a superuser may delete it.
func (h *ValidationHandler) Delete(c fiber.Ctx) error {
	voteID, ok, err := idParam(c, "voteId")
	if !ok {
		return err
	}

	vote, err := h.svc.GetVoteByID(c.Context(), voteID)
	if err != nil {
		return serviceError(c, err, "Failed to delete vote")
	}
	user := middleware.CurrentUser(c)
	if vote.UserID != user.ID && !user.IsSuperuser {
		return serviceError(c, service.ErrForbidden, "Failed to delete vote")
	}

	if err := h.svc.DeleteVote(c.Context(), voteID); err != nil {
		return serviceError(c, err, "Failed to delete vote")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReEvaluate handles POST /api/media/:id/re-evaluate
func (h *ValidationHandler) ReEvaluate(c fiber.Ctx) error {
	mediaID, ok, err := idParam(c, "id")
	if !ok {
		return err
	}

	res, err := h.svc.ReEvaluate(c.Context(), mediaID)
	if err != nil {
		return serviceError(c, err, "Failed to re-evaluate media item")
	}
	return c.JSON(res)
}

func checkVoteLengths(p *model.VotePayload) string {
	var ok bool
	if p.CorrectedSpecies, ok = middleware.ValidateText(p.CorrectedSpecies, middleware.MaxSpeciesLen); !ok {
		return "correctedSpecies is too long"
	}
	if p.CorrectedHealth, ok = middleware.ValidateText(p.CorrectedHealth, middleware.MaxHealthLen); !ok {
		return "correctedHealth is too long"
	}
	if p.Comment, ok = middleware.ValidateText(p.Comment, middleware.MaxCommentLen); !ok {
		return "comment is too long"
	}
	return ""
}
