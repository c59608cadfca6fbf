package router

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/handler"
	"github.com/KattaManasa0402/Marine-life/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Health       *handler.HealthHandler
	User         *handler.UserHandler
	Media        *handler.MediaHandler
	Validation   *handler.ValidationHandler
	Gamification *handler.GamificationHandler
	Projection   *handler.ProjectionHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, auth middleware.Authenticator, corsOrigins string) {
	// Order matters: recover wraps everything, metrics sees final status codes.
	app.Use(recoverer.New(recoverer.Config{
		EnableStackTrace:  true,
		StackTraceHandler: reportPanic,
	}))
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(corsOrigins))
	app.Use(handler.MetricsMiddleware())

	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	requireAuth := middleware.RequireAuth(auth)
	read := middleware.NewReadRateLimiter().Handler()

	api := app.Group("/api")

	// Users
	authLimit := middleware.NewAuthRateLimiter().Handler()
	api.Post("/users/register", authLimit, h.User.Register)
	api.Post("/users/login", authLimit, h.User.Login)
	api.Get("/users/me", requireAuth, h.User.Me)
	api.Put("/users/me", requireAuth, h.User.UpdateMe)
	api.Get("/users/:userId", read, h.User.GetByUserID)

	// Media. /media/user/me is registered before /media/:id.
	api.Post("/media/upload", requireAuth, middleware.NewUploadRateLimiter().Handler(), h.Media.Upload)
	api.Get("/media/user/me", requireAuth, h.Media.ListMine)
	api.Get("/media", read, h.Media.List)
	api.Get("/media/:id", read, h.Media.Get)

	// Validation
	api.Post("/media/:id/validate", requireAuth,
		middleware.NewVoteSubmitRateLimiter().Handler(),
		middleware.NewItemRevoteRateLimiter().Handler(),
		h.Validation.Submit)
	api.Get("/media/:id/validate/me", requireAuth, h.Validation.Mine)
	api.Get("/media/:id/validations", read, h.Validation.List)
	api.Delete("/validations/:voteId", requireAuth, middleware.NewVoteDeleteRateLimiter().Handler(), h.Validation.Delete)
	api.Post("/media/:id/re-evaluate", requireAuth, middleware.RequireSuperuser(), h.Validation.ReEvaluate)

	// Gamification
	api.Get("/gamification/me", requireAuth, h.Gamification.Me)

	// Projections
	api.Get("/stats", middleware.NewStatsRateLimiter().Handler(), h.Projection.GetStats)
	api.Get("/map/data", read, h.Projection.MapData)
	api.Get("/research/data", read, h.Projection.ResearchData)
	api.Get("/research/export.xlsx", middleware.NewExportRateLimiter().Handler(), h.Projection.Export)
}

func reportPanic(c fiber.Ctx, e any) {
	err, ok := e.(error)
	if !ok {
		err = fmt.Errorf("%v", e)
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("panic recovered")
	sentry.CaptureException(err)
}
