package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ClaimsContextKey is where validated access claims live in the fiber
// request locals.
const ClaimsContextKey = "auth_claims"

// RequireAuth validates the bearer token and stores its claims in the
// request locals for downstream handlers.
func RequireAuth(tokens TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return renderError(c, ErrUnauthorized)
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			return renderError(c, err)
		}

		c.Locals(ClaimsContextKey, claims)
		return c.Next()
	}
}

// RequireRole gates a route on the role hierarchy. Must run after
// RequireAuth.
func RequireRole(min Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromContext(c)
		if claims == nil {
			return renderError(c, ErrUnauthorized)
		}
		if !claims.IsAtLeast(min) {
			return renderError(c, errors.New("insufficient role", errors.CategoryAuthz).
				WithCode(errors.CodeForbidden))
		}
		return c.Next()
	}
}

// ClaimsFromContext returns the validated claims set by RequireAuth,
// or nil when the request is unauthenticated.
func ClaimsFromContext(c *fiber.Ctx) AuthClaims {
	claims, _ := c.Locals(ClaimsContextKey).(AuthClaims)
	return claims
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func requestMeta(c *fiber.Ctx) RequestMeta {
	return RequestMeta{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

// setRefreshCookie mirrors the refresh token into a same-site,
// HTTP-only cookie so browser clients do not have to store it.
func setRefreshCookie(c *fiber.Ctx, cfg Config, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    value,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}

func clearRefreshCookie(c *fiber.Ctx, cfg Config) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}

// renderError maps rich errors to HTTP responses without leaking
// internals: internal failures always render as a generic message.
func renderError(c *fiber.Ctx, err error) error {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{"message": "internal error"},
		})
	}

	status := int(rich.Code)
	if status < 400 || status > 599 {
		status = fiber.StatusInternalServerError
	}

	if rich.Category == errors.CategoryInternal {
		return c.Status(status).JSON(fiber.Map{
			"error": fiber.Map{"message": "internal error"},
		})
	}

	body := fiber.Map{"message": rich.Message}
	if rich.TextCode != "" {
		body["code"] = rich.TextCode
	}
	if len(rich.Metadata) > 0 {
		body["metadata"] = rich.Metadata
	}

	return c.Status(status).JSON(fiber.Map{"error": body})
}

func renderValidationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"message": "validation failed",
			"code":    "validation_error",
			"fields":  err.Error(),
		},
	})
}

func actorIDFromContext(c *fiber.Ctx) *uuid.UUID {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return nil
	}
	id, err := claims.AccountID()
	if err != nil {
		return nil
	}
	return &id
}
