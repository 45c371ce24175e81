package middleware

import (
	"errors"
	"strings"
	"time"

	"onam_fest/constants"
	"onam_fest/database"
	"onam_fest/helper"
	"onam_fest/model"
	"onam_fest/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func tokenFromRequest(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.Cookies("access_token")
}

// Protected requires a valid token for an existing, active user. The user is
// stored in c.Locals("user").
func Protected(users database.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFromRequest(c)
		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.MISSING_TOKEN, errors.New("no token"))
		}

		jwtToken, err := helper.ParseToken(token)
		if err != nil || !jwtToken.Valid {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.INVALID_TOKEN, err)
		}
		claim, err := helper.ClaimFromToken(jwtToken)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.INVALID_TOKEN, err)
		}

		user, err := users.FindByID(c.UserContext(), claim.UserId)
		if errors.Is(err, database.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ACCOUNT_NOT_FOUND, err)
		}
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_STORAGE_UNAVAILABLE, err)
		}
		if !user.IsActive {
			return utils.ErrorResponse(c, fiber.StatusForbidden, constants.ACCOUNT_NOT_ACTIVE, errors.New("active false"))
		}

		c.Locals("claims", claim)
		c.Locals("user", user)
		return c.Next()
	}
}

// OptionalJWT attaches the user when a valid token is present and lets
// anonymous requests through untouched.
func OptionalJWT(users database.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFromRequest(c)
		if token == "" {
			return c.Next()
		}
		jwtToken, err := helper.ParseToken(token)
		if err != nil || !jwtToken.Valid {
			return c.Next()
		}
		claim, err := helper.ClaimFromToken(jwtToken)
		if err != nil {
			return c.Next()
		}
		if user, err := users.FindByID(c.UserContext(), claim.UserId); err == nil && user.IsActive {
			c.Locals("claims", claim)
			c.Locals("user", user)
		}
		return c.Next()
	}
}

// RequireRole must run after Protected.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(*model.User)
		if !ok || user == nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.MISSING_TOKEN, nil)
		}
		if !utils.IsValidValueOfConstant(user.Role, roles) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_PERMISSION, errors.New("role "+user.Role))
		}
		return c.Next()
	}
}

func CurrentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals("user").(*model.User)
	return user
}

// RateLimit limits requests per client IP. storage may be nil (in-memory).
func RateLimit(name string, limit int, window time.Duration, storage fiber.Storage) fiber.Handler {
	cfg := limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return name + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, fiber.StatusTooManyRequests, constants.TOO_MANY_REQUESTS, nil)
		},
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return limiter.New(cfg)
}

// CSRF issues a token on safe requests (cookie csrf_ plus c.Locals("csrf"))
// and checks the X-Csrf-Token header against it on unsafe ones.
func CSRF(enabled bool, secure bool, storage fiber.Storage) fiber.Handler {
	if !enabled {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	cfg := csrf.Config{
		KeyLookup:      "header:" + csrf.HeaderName,
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   secure,
		Expiration:     time.Hour,
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Invalid CSRF token", err)
		},
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return csrf.New(cfg)
}
