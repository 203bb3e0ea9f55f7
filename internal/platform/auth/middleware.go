package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/convenio/convenio/internal/platform/apperr"
)

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	UserRolesKey   contextKey = "user_roles"
	CurrentRoleKey contextKey = "current_role"
)

// TokenCookieName is the cookie checked when no Authorization header is sent.
const TokenCookieName = "token"

// Middleware returns echo middleware that authenticates every request. The
// token is read from the Authorization header (Bearer scheme) or, as a
// fallback, from the session cookie. On success the user ID, role set and
// selected role are stored on the request context.
func Middleware(signer *TokenSigner) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := extractToken(c)
			if tokenStr == "" {
				return apperr.New(apperr.Unauthenticated, "token de autenticação ausente")
			}

			claims, err := signer.Parse(tokenStr)
			if err != nil {
				return apperr.Wrap(apperr.Unauthenticated, "token inválido ou expirado", err)
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRolesKey, claims.Roles)
			ctx = context.WithValue(ctx, CurrentRoleKey, claims.CurrentRole)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	cookie, err := c.Cookie(TokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetTokenCookie writes the session cookie on the response so browser
// clients stay authenticated without managing the Authorization header.
func SetTokenCookie(c echo.Context, token string, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie expires the session cookie.
func ClearTokenCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// UserIDFromContext returns the authenticated user's ID.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// RolesFromContext returns every role assigned to the authenticated user.
func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

// CurrentRoleFromContext returns the role the user selected at login.
func CurrentRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(CurrentRoleKey).(string)
	return role
}

// IsAdmin reports whether the session is operating under the admin role.
func IsAdmin(ctx context.Context) bool {
	return CurrentRoleFromContext(ctx) == "admin"
}
