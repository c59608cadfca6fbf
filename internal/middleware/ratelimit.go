package middleware

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
)

// RateLimitConfig is one limit: at most Max hits per Window for each key
// KeyFn derives from the request.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	KeyFn  func(c fiber.Ctx) string
}

type window struct {
	hits    int
	resetAt time.Time
}

// RateLimiter counts hits per key in fixed windows held in memory. Expired
// windows are swept every sweepInterval.
type RateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	windows map[string]*window
}

const sweepInterval = 5 * time.Minute

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{cfg: cfg, windows: make(map[string]*window)}
	go rl.sweep()
	return rl
}

// take records a hit for key and reports how many remain in the current
// window, when it resets and whether the hit is within the limit.
func (rl *RateLimiter) take(key string) (remaining int, resetAt time.Time, ok bool) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w := rl.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rl.cfg.Window)}
		rl.windows[key] = w
	}
	w.hits++
	return rl.cfg.Max - w.hits, w.resetAt, w.hits <= rl.cfg.Max
}

// Allow records a hit for key outside of an HTTP request.
func (rl *RateLimiter) Allow(key string) bool {
	_, _, ok := rl.take(key)
	return ok
}

// Handler enforces the limit and sets the X-RateLimit-* headers. Rejected
// requests get 429 with Retry-After.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		remaining, resetAt, ok := rl.take(rl.cfg.KeyFn(c))

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if ok {
			return c.Next()
		}

		wait := int(time.Until(resetAt).Seconds()) + 1
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(wait))
		return ErrorResponse(c, fiber.StatusTooManyRequests, "RATE_LIMITED",
			fmt.Sprintf("Too many requests. Try again in %d seconds.", wait))
	}
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for now := range ticker.C {
		rl.mu.Lock()
		for key, w := range rl.windows {
			if !now.Before(w.resetAt) {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}

func KeyByIP(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

// KeyByUserID keys on the authenticated user, or the IP when the route runs
// before authentication.
func KeyByUserID(c fiber.Ctx) string {
	if u := CurrentUser(c); u != nil {
		return "user:" + strconv.FormatInt(u.ID, 10)
	}
	return KeyByIP(c)
}

// KeyByUserAndParam keys on the user and one route parameter, so each
// (user, item) pair gets its own budget.
func KeyByUserAndParam(param string) func(c fiber.Ctx) string {
	return func(c fiber.Ctx) string {
		return KeyByUserID(c) + ":" + param + ":" + c.Params(param)
	}
}

// Limits on the public API.
var (
	readLimit       = RateLimitConfig{Max: 100, Window: time.Minute, KeyFn: KeyByIP}
	authLimit       = RateLimitConfig{Max: 10, Window: time.Minute, KeyFn: KeyByIP}
	voteSubmitLimit = RateLimitConfig{Max: 10, Window: time.Minute, KeyFn: KeyByUserID}
	itemRevoteLimit = RateLimitConfig{Max: 3, Window: time.Minute, KeyFn: KeyByUserAndParam("id")}
	voteDeleteLimit = RateLimitConfig{Max: 5, Window: time.Minute, KeyFn: KeyByUserID}
	uploadLimit     = RateLimitConfig{Max: 20, Window: time.Hour, KeyFn: KeyByUserID}
	statsLimit      = RateLimitConfig{Max: 10, Window: time.Minute, KeyFn: KeyByIP}
	researchExport  = RateLimitConfig{Max: 1, Window: time.Minute, KeyFn: KeyByIP}
)

func NewReadRateLimiter() *RateLimiter { return NewRateLimiter(readLimit) }

// NewAuthRateLimiter guards login and registration.
func NewAuthRateLimiter() *RateLimiter { return NewRateLimiter(authLimit) }

// NewVoteSubmitRateLimiter caps all of a user's vote submissions.
func NewVoteSubmitRateLimiter() *RateLimiter { return NewRateLimiter(voteSubmitLimit) }

// NewItemRevoteRateLimiter caps how often one user resubmits a vote on the
// same media item.
func NewItemRevoteRateLimiter() *RateLimiter { return NewRateLimiter(itemRevoteLimit) }

func NewVoteDeleteRateLimiter() *RateLimiter { return NewRateLimiter(voteDeleteLimit) }

func NewUploadRateLimiter() *RateLimiter { return NewRateLimiter(uploadLimit) }

func NewStatsRateLimiter() *RateLimiter { return NewRateLimiter(statsLimit) }

func NewExportRateLimiter() *RateLimiter { return NewRateLimiter(researchExport) }
