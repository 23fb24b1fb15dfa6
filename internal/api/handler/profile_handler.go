package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/amy/portal-client/internal/core/ports"
)

type ProfileHandler struct {
	profiles ports.ProfileReader
}

func NewProfileHandler(profiles ports.ProfileReader) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get returns a public profile.
//
// @Summary      Public profile
// @Tags         profiles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  profileResponse
// @Failure      404  {object}  map[string]string
// @Router       /v1/profiles/{id} [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	p, ok, err := h.profiles.Profile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return c.JSON(http.StatusOK, profileResponse{Profile: p})
}
