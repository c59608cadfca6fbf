package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Field length limits matching database schema constraints.
const (
	MaxSpeciesLen     = 255  // validation_votes.corrected_species
	MaxHealthLen      = 100  // validation_votes.corrected_health
	MaxCommentLen     = 2000 // validation_votes.comment
	MaxDescriptionLen = 2000 // media_items.description
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ParseID parses a positive integer path or query value.
func ParseID(raw, name string) (int64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, name + " is required"
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, name + " must be a positive integer"
	}
	return id, ""
}

// ParseOptionalFloat parses a float query value; empty yields nil.
func ParseOptionalFloat(raw, name string) (*float64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, name + " must be a number"
	}
	return &v, ""
}

// ParseOptionalTime accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func ParseOptionalTime(raw, name string) (*time.Time, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, ""
		}
	}
	return nil, name + " must be an RFC 3339 timestamp or YYYY-MM-DD date"
}

// ParsePage reads skip and limit query values. Missing or malformed values
// fall back to 0 and defaultLimit.
func ParsePage(c fiber.Ctx, defaultLimit int) (skip, limit int) {
	skip, _ = strconv.Atoi(c.Query("skip"))
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = defaultLimit
	}
	return max(skip, 0), limit
}

// ValidateText trims s and enforces a maximum length. The bool is false
// when s is too long.
func ValidateText(s *string, maxLen int) (*string, bool) {
	if s == nil {
		return nil, true
	}
	v := strings.TrimSpace(*s)
	if len(v) > maxLen {
		return nil, false
	}
	return &v, true
}
