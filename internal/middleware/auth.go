package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/config"
	"github.com/localnerve/lxnotes/internal/logger"
	"github.com/localnerve/lxnotes/internal/services"
	"github.com/localnerve/lxnotes/internal/types"
	"go.uber.org/zap"
)

// UserLocal is the fiber.Ctx local holding the *services.SessionUser of a request
const UserLocal = "user"

// AuthAdmin validates that the request has admin role authorization
func AuthAdmin(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, cfg, []string{"admin"}, "data.authorization.admin")
	}
}

// AuthUser validates that the request has user role authorization
func AuthUser(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, cfg, []string{"user"}, "data.authorization.user")
	}
}

// authorize performs the authorization check, a no-op when no authorizer is configured
func authorize(c *fiber.Ctx, cfg *config.Config, roles []string, errorType string) error {
	if !cfg.AuthEnabled() {
		return c.Next()
	}

	if !services.IsAuthorizerInitialized() {
		if err := services.InitAuthorizer(cfg, c.Protocol(), c.Hostname()); err != nil {
			logger.FromContext(c.UserContext()).Error("Authorizer initialization failed", zap.Error(err))
			return &types.CustomError{
				Code:    fiber.StatusServiceUnavailable,
				Message: "Authorizer unavailable",
				Type:    errorType,
			}
		}
	}

	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	user, err := services.ValidateSession(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	c.Locals(UserLocal, user)
	return c.Next()
}

// CurrentUser returns the display name of the authenticated user, or fallback
func CurrentUser(c *fiber.Ctx, fallback string) string {
	if user, ok := c.Locals(UserLocal).(*services.SessionUser); ok && user != nil {
		if user.Name != "" {
			return user.Name
		}
		if user.Email != "" {
			return user.Email
		}
	}
	return fallback
}
