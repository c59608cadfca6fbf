package handler

import (
	"context"
	"errors"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/middleware"
	"github.com/KattaManasa0402/Marine-life/internal/service"
)

// serviceError renders a service error in the standard envelope. Caller
// errors map to 4xx; anything else is logged, reported and becomes a 500
// with fallback as the message.
func serviceError(c fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrMediaNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Media item not found")
	case errors.Is(err, service.ErrVoteNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Vote not found")
	case errors.Is(err, service.ErrUserNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrEmptyVote):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "EMPTY_VOTE", err.Error())
	case errors.Is(err, service.ErrInvalidVerdict):
		return middleware.ErrorResponse(c, fiber.StatusUnprocessableEntity, "INVALID_VERDICT", err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", err.Error())
	case errors.Is(err, service.ErrUnsupportedMedia):
		return middleware.ErrorResponse(c, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA", err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "ALREADY_REGISTERED", "Email or username already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return middleware.ErrorResponse(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email or password")
	case errors.Is(err, service.ErrInactiveUser):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INACTIVE_USER", "Inactive user")
	case errors.Is(err, service.ErrForbidden):
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "FORBIDDEN", "Not allowed")
	case errors.Is(err, context.DeadlineExceeded):
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "TIMEOUT", "Request timed out")
	}

	log.Error().Err(err).Str("method", c.Method()).Str("route", c.Route().Path).Msg(fallback)
	sentry.CaptureException(err)
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}

// idParam parses a positive integer route parameter and renders a 400 on
// failure. ok is false when a response has already been written.
func idParam(c fiber.Ctx, name string) (int64, bool, error) {
	id, errMsg := middleware.ParseID(c.Params(name), name)
	if errMsg != "" {
		return 0, false, middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	return id, true, nil
}
