package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/amy/portal-client/docs"
	"github.com/amy/portal-client/internal/api/handler"
	"github.com/amy/portal-client/internal/api/middleware"
	"github.com/amy/portal-client/internal/core/ports"
)

// Deps are the collaborators the inspection API serves.
type Deps struct {
	Session  ports.SessionViews
	Actions  ports.SessionActions
	News     ports.NewsReader
	Profiles ports.ProfileReader
	// Checks feed GET /health/ready.
	Checks map[string]handler.Check
	// Secret signs the bearer tokens of /v1. Empty leaves /v1 unmounted.
	Secret string
	// Registry backs the request metrics and GET /metrics. Nil means the
	// prometheus default registry.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "portal_inspect",
		Registerer: registerer,
	}))

	// --- Health probes and tooling (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(d.Checks).Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	if d.Secret == "" {
		d.Log.Warn().Msg("INSPECT_SECRET empty, /v1 routes disabled")
		return e
	}

	sessionHandler := handler.NewSessionHandler(d.Session, d.Actions, d.Log)
	newsHandler := handler.NewNewsHandler(d.News)
	profileHandler := handler.NewProfileHandler(d.Profiles)

	v1 := e.Group("/v1", middleware.Auth(d.Secret))

	read := v1.Group("", middleware.RBAC(middleware.RoleViewer, middleware.RoleOperator))
	read.GET("/session", sessionHandler.Get)
	read.GET("/news", newsHandler.List)
	read.GET("/profiles/:id", profileHandler.Get)

	write := v1.Group("", middleware.RBAC(middleware.RoleOperator))
	write.POST("/session/refresh", sessionHandler.Refresh)
	write.POST("/session/link", sessionHandler.Link)
	write.POST("/session/verify", sessionHandler.Verify)
	write.POST("/session/logout", sessionHandler.Logout)
	write.POST("/applications", sessionHandler.SubmitApplication)
	write.DELETE("/applications/:id", sessionHandler.DeleteApplication)

	return e
}

// requestLogger logs every request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("inspection request")
			return nil
		},
	})
}
