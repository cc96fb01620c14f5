package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/session"
)

// SessionKey is the echo context key holding the caller's *domain.Session.
const SessionKey = "session"

// Auth validates the bearer JWT and injects the derived session into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return authenticate([]byte(jwtSecret), time.Now, true)
}

// OptionalAuth is Auth for public routes: a request without an
// Authorization header proceeds anonymously, a bad one is still rejected.
func OptionalAuth(jwtSecret string) echo.MiddlewareFunc {
	return authenticate([]byte(jwtSecret), time.Now, false)
}

func authenticate(secret []byte, now func() time.Time, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if !required {
					return next(c)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			sess, err := session.DeriveVerified(parts[1], secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if sess.Expired(now()) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
			}

			c.Set(SessionKey, sess)
			return next(c)
		}
	}
}

// SessionFrom returns the session injected by Auth, or nil.
func SessionFrom(c echo.Context) *domain.Session {
	sess, _ := c.Get(SessionKey).(*domain.Session)
	return sess
}
