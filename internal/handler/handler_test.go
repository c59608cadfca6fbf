package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/KattaManasa0402/Marine-life/internal/service"
)

func TestSanitizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/media/42", "/api/media/:id"},
		{"/api/media/42/validations", "/api/media/:id/validations"},
		{"/api/validations/7", "/api/validations/:voteId"},
		{"/api/users/3", "/api/users/:userId"},
		{"/api/users/me", "/api/users/me"},
		{"/api/stats", "/api/stats"},
	}
	for _, tt := range tests {
		if got := sanitizeEndpoint(tt.path); got != tt.want {
			t.Errorf("sanitizeEndpoint(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestServiceError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{service.ErrMediaNotFound, 404, "NOT_FOUND"},
		{fmt.Errorf("wrapped: %w", service.ErrVoteNotFound), 404, "NOT_FOUND"},
		{service.ErrEmptyVote, 400, "EMPTY_VOTE"},
		{service.ErrInvalidVerdict, 422, "INVALID_VERDICT"},
		{service.ErrUnsupportedMedia, 415, "UNSUPPORTED_MEDIA"},
		{service.ErrEmailTaken, 400, "ALREADY_REGISTERED"},
		{service.ErrInvalidCredentials, 401, "INVALID_CREDENTIALS"},
		{service.ErrInactiveUser, 400, "INACTIVE_USER"},
		{service.ErrForbidden, 403, "FORBIDDEN"},
		{errors.New("boom"), 500, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		app := fiber.New()
		app.Get("/", func(c fiber.Ctx) error {
			return serviceError(c, tt.err, "Failed")
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != tt.wantStatus {
			t.Errorf("%v: status = %d, want %d", tt.err, resp.StatusCode, tt.wantStatus)
		}

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if body.Error.Code != tt.wantCode {
			t.Errorf("%v: code = %q, want %q", tt.err, body.Error.Code, tt.wantCode)
		}
	}
}

func TestIDParam(t *testing.T) {
	app := fiber.New()
	app.Get("/media/:id", func(c fiber.Ctx) error {
		id, ok, err := idParam(c, "id")
		if !ok {
			return err
		}
		return c.SendString(fmt.Sprint(id))
	})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/media/12", 200},
		{"/media/abc", 400},
		{"/media/0", 400},
		{"/media/-4", 400},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != tt.wantStatus {
			t.Errorf("GET %s: status = %d, want %d", tt.path, resp.StatusCode, tt.wantStatus)
		}
	}
}

func TestHealthReady_NoDependencies(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)
	app := fiber.New()
	app.Get("/health/ready", h.Ready)
	app.Get("/health/live", h.Live)

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != 200 {
			t.Errorf("GET %s: status = %d, want 200", path, resp.StatusCode)
		}
	}
}
