package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"userauth/internal/model"
	"userauth/internal/service"
)

// ContextUserKey is the echo context key holding the session's *model.User.
const ContextUserKey = "user"

// RequireSession resolves the session cookie to a user and rejects the
// request with 403 when it cannot be resolved.
func RequireSession(authService service.AuthService, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID := sessionFromRequest(c, cookieName)
			if sessionID == "" {
				return echo.NewHTTPError(http.StatusForbidden)
			}
			user, err := authService.GetUserBySession(c.Request().Context(), sessionID)
			if err != nil {
				return respondError(err)
			}
			if user == nil {
				return echo.NewHTTPError(http.StatusForbidden)
			}
			c.Set(ContextUserKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by RequireSession, or nil.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(ContextUserKey).(*model.User)
	return user
}

func sessionFromRequest(c echo.Context, cookieName string) string {
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
