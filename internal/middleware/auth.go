package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/KattaManasa0402/Marine-life/internal/model"
)

const userLocalsKey = "user"

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved user for CurrentUser.
func RequireAuth(auth Authenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
		}

		u, err := auth.Authenticate(c.Context(), token)
		if err != nil {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			if errors.Is(err, context.Canceled) {
				return err
			}
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")
		}

		c.Locals(userLocalsKey, u)
		return c.Next()
	}
}

// RequireSuperuser must run after RequireAuth.
func RequireSuperuser() fiber.Handler {
	return func(c fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil || !u.IsSuperuser {
			return ErrorResponse(c, fiber.StatusForbidden, "FORBIDDEN", "Superuser privileges required")
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil on public routes.
func CurrentUser(c fiber.Ctx) *model.User {
	u, _ := c.Locals(userLocalsKey).(*model.User)
	return u
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
