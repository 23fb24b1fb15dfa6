package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	// RoleViewer may read session, news and profile views.
	RoleViewer = "viewer"
	// RoleOperator may also trigger refreshes and mutating actions.
	RoleOperator = "operator"
)

// RBAC enforces role-based access control.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
