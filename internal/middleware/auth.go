package middleware

import (
	"net/http"
	"strings"

	"listing-service/internal/auth"
	"listing-service/pkg/logger"
	"listing-service/prometheus"

	"github.com/labstack/echo/v4"
)

const authUserIDKey = "auth_user_id"

// AuthMiddleware resolves the Bearer token to a user id and rejects the
// request when it cannot
func AuthMiddleware(resolver auth.IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing Authorization header")
				prometheus.RecordAuthAttempt(false)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn("Invalid Authorization header format")
				prometheus.RecordAuthAttempt(false)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			userID, ok := resolver.ResolveAuthUserID(c.Request().Context(), parts[1])
			if !ok {
				log.Warn("Access token rejected")
				prometheus.RecordAuthAttempt(false)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			prometheus.RecordAuthAttempt(true)
			c.Set(authUserIDKey, userID)
			return next(c)
		}
	}
}

// GetAuthUserID retrieves the authenticated user id set by AuthMiddleware
func GetAuthUserID(c echo.Context) (string, bool) {
	id, ok := c.Get(authUserIDKey).(string)
	return id, ok && id != ""
}
