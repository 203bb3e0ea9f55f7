package auth

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/convenio/convenio/internal/platform/apperr"
)

// Role names as stored in users.roles and carried in token claims.
const (
	RoleAdmin        = "admin"
	RoleProfessional = "professional"
	RoleClient       = "client"
	RoleVendedor     = "vendedor"
)

// ValidRole reports whether the given name is a known role.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleProfessional, RoleClient, RoleVendedor:
		return true
	}
	return false
}

// RequireRole returns middleware that checks the session's selected role
// against the given set. Admin sessions pass every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			current := CurrentRoleFromContext(c.Request().Context())
			if current == RoleAdmin {
				return next(c)
			}
			for _, required := range roles {
				if current == required {
					return next(c)
				}
			}
			return apperr.New(apperr.Forbidden,
				fmt.Sprintf("acesso restrito ao perfil: %s", strings.Join(roles, " ou ")))
		}
	}
}
