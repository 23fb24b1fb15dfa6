package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxActor returns the subject and role injected by the Auth middleware. An
// empty role means the middleware did not run; reject with 401.
func ctxActor(c echo.Context) (subject, role string, err error) {
	role, _ = c.Get("role").(string)
	if role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	subject, _ = c.Get("subject").(string)
	return subject, role, nil
}
