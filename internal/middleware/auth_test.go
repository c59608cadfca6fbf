package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/KattaManasa0402/Marine-life/internal/model"
)

type tokenTable map[string]*model.User

func (t tokenTable) Authenticate(_ context.Context, token string) (*model.User, error) {
	if u, ok := t[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid token")
}

func newAuthApp() *fiber.App {
	auth := tokenTable{
		"diver": {ID: 1, Username: "diver", IsActive: true},
		"admin": {ID: 2, Username: "admin", IsActive: true, IsSuperuser: true},
	}
	app := fiber.New()
	app.Get("/me", RequireAuth(auth), func(c fiber.Ctx) error {
		return c.SendString(CurrentUser(c).Username)
	})
	app.Post("/admin", RequireAuth(auth), RequireSuperuser(), func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestRequireAuth(t *testing.T) {
	app := newAuthApp()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic diver", fiber.StatusUnauthorized},
		{"empty token", "Bearer ", fiber.StatusUnauthorized},
		{"unknown token", "Bearer nope", fiber.StatusUnauthorized},
		{"valid", "Bearer diver", fiber.StatusOK},
		{"scheme is case-insensitive", "bearer diver", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == fiber.StatusUnauthorized && resp.Header.Get("WWW-Authenticate") != "Bearer" {
				t.Errorf("missing WWW-Authenticate header")
			}
		})
	}
}

func TestRequireSuperuser(t *testing.T) {
	app := newAuthApp()

	for token, want := range map[string]int{"diver": fiber.StatusForbidden, "admin": fiber.StatusNoContent} {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != want {
			t.Errorf("%s: status = %d, want %d", token, resp.StatusCode, want)
		}
	}
}
