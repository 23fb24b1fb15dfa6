package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/amy/portal-client/internal/core/domain"
	"github.com/amy/portal-client/internal/core/ports"
)

type SessionHandler struct {
	views   ports.SessionViews
	actions ports.SessionActions
	log     zerolog.Logger
}

func NewSessionHandler(views ports.SessionViews, actions ports.SessionActions, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{views: views, actions: actions, log: log}
}

// Get returns the current session views.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Failure      401  {object}  map[string]string
// @Router       /v1/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.render())
}

// Refresh re-reads the session from the API and returns the new views.
//
// @Summary      Refresh session
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Failure      502  {object}  map[string]string
// @Router       /v1/session/refresh [post]
func (h *SessionHandler) Refresh(c echo.Context) error {
	if err := h.views.Refresh(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.render())
}

// Link links a Minecraft nickname to the signed-in account.
//
// @Summary      Link Minecraft account
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      linkRequest  true  "Nickname to link"
// @Success      200   {object}  sessionResponse
// @Failure      422   {object}  map[string]string
// @Router       /v1/session/link [post]
func (h *SessionHandler) Link(c echo.Context) error {
	var req linkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return h.run(c, "link", func() error {
		return h.actions.LinkExternalAccount(c.Request().Context(), req.Nickname)
	})
}

// Verify confirms the link with the in-game code.
//
// @Summary      Verify Minecraft code
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      verifyRequest  true  "Verification code"
// @Success      200   {object}  sessionResponse
// @Failure      422   {object}  map[string]string
// @Router       /v1/session/verify [post]
func (h *SessionHandler) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return h.run(c, "verify", func() error {
		return h.actions.VerifyCode(c.Request().Context(), req.Code)
	})
}

// Logout ends the API session.
//
// @Summary      Logout
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Router       /v1/session/logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	return h.run(c, "logout", func() error {
		return h.actions.Logout(c.Request().Context())
	})
}

// SubmitApplication files a roleplay application.
//
// @Summary      Submit application
// @Tags         applications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      domain.ApplicationPayload  true  "Application"
// @Success      200   {object}  sessionResponse
// @Failure      422   {object}  map[string]string
// @Router       /v1/applications [post]
func (h *SessionHandler) SubmitApplication(c echo.Context) error {
	var req domain.ApplicationPayload
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return h.run(c, "submit_application", func() error {
		return h.actions.SubmitApplication(c.Request().Context(), req)
	})
}

// DeleteApplication withdraws an application.
//
// @Summary      Delete application
// @Tags         applications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Application id"
// @Success      200  {object}  sessionResponse
// @Failure      404  {object}  map[string]string
// @Router       /v1/applications/{id} [delete]
func (h *SessionHandler) DeleteApplication(c echo.Context) error {
	id := c.Param("id")
	return h.run(c, "delete_application", func() error {
		return h.actions.DeleteApplication(c.Request().Context(), id)
	})
}

// run executes an action and answers with the refreshed views.
func (h *SessionHandler) run(c echo.Context, action string, fn func() error) error {
	subject, role, err := ctxActor(c)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	h.log.Info().
		Str("action", action).
		Str("subject", subject).
		Str("role", role).
		Msg("action performed through inspection api")
	return c.JSON(http.StatusOK, h.render())
}

func (h *SessionHandler) render() sessionResponse {
	st := h.views.State()
	resp := sessionResponse{
		Authenticated: st.Authenticated,
		LoginURL:      st.LoginURL,
		ProfilePath:   st.ProfilePath,
		Loading:       st.Loading,
		Error:         errString(st.Err),
	}
	if u, ok := st.User.Get(); ok {
		resp.User = &u
	}
	if app, ok := st.Application.Get(); ok {
		resp.Application = &app
	}
	return resp
}
