package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	objects Pinger
	startAt time.Time
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client, objects Pinger) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		rdb:     rdb,
		objects: objects,
		startAt: time.Now(),
	}
}

// Live handles GET /health/live
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. The database is required; Redis and
// object storage only degrade the status.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	var db fiber.Map
	if h.pool == nil {
		db = fiber.Map{"status": "disabled"}
	} else {
		db = probe(ctx, h.pool.Ping)
	}

	var cache fiber.Map
	if h.rdb == nil {
		cache = fiber.Map{"status": "disabled"}
	} else {
		cache = probe(ctx, func(ctx context.Context) error { return h.rdb.Ping(ctx).Err() })
	}

	var storage fiber.Map
	if h.objects == nil {
		storage = fiber.Map{"status": "disabled"}
	} else {
		storage = probe(ctx, h.objects.Ping)
	}

	checks := fiber.Map{"database": db, "redis": cache, "storage": storage}
	overall := "healthy"
	for _, v := range checks {
		if v.(fiber.Map)["status"] == "down" {
			overall = "degraded"
		}
	}

	status := fiber.StatusOK
	if overall != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"status":         overall,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        "1.0.0",
	})
}

func probe(ctx context.Context, ping func(context.Context) error) fiber.Map {
	start := time.Now()
	err := ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}
