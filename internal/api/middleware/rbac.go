package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RBAC gates a route on the role claim set by Auth. Requests whose role is
// not in the allow list get a 403; a missing role means Auth never ran and is
// rejected the same way.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
