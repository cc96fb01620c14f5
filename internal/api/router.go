package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/ibtissamelhani/induspress/internal/api/handler"
	"github.com/ibtissamelhani/induspress/internal/api/middleware"
	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"

	_ "github.com/ibtissamelhani/induspress/docs"
)

// BasePath prefixes every API route.
const BasePath = "/api/v1"

// Deps are the services the router exposes.
type Deps struct {
	Auth      ports.AuthService
	Articles  ports.ArticleService
	Readiness map[string]handler.Check
	JWTSecret string
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	// HTTP metrics live in a per-router registry so routers can be built repeatedly.
	httpMetrics := prometheus.NewRegistry()
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "press",
		Subsystem:  "http",
		Registerer: httpMetrics,
	}))

	authHandler := handler.NewAuthHandler(deps.Auth)
	articleHandler := handler.NewArticleHandler(deps.Articles)
	eventHandler := handler.NewEventHandler(deps.Articles)
	requireAuth := middleware.Auth(deps.JWTSecret)
	optionalAuth := middleware.OptionalAuth(deps.JWTSecret)
	editorOnly := middleware.RBAC(domain.RoleEditor)

	v1 := e.Group(BasePath)

	// --- Auth routes ---
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/authenticate", authHandler.Authenticate)
	v1.GET("/auth/me", authHandler.Me, requireAuth)

	// --- Article routes ---
	v1.GET("/articles", articleHandler.ListPublished)
	v1.GET("/articles/all", articleHandler.ListAll, requireAuth, editorOnly)
	v1.GET("/articles/All", articleHandler.ListAll, requireAuth, editorOnly)
	v1.GET("/articles/my-articles", articleHandler.ListMine, requireAuth)
	v1.GET("/articles/stats", articleHandler.Stats, requireAuth, editorOnly)
	v1.POST("/articles", articleHandler.Create, requireAuth)
	v1.GET("/articles/:id", articleHandler.Get, optionalAuth)
	v1.PUT("/articles/:id", articleHandler.Update, requireAuth)
	v1.DELETE("/articles/:id", articleHandler.Delete, requireAuth)
	v1.PATCH("/articles/:id/publish", articleHandler.Publish, requireAuth)
	v1.PATCH("/articles/:id/reject", articleHandler.Reject, requireAuth)
	v1.GET("/articles/:id/history", eventHandler.History, requireAuth)
	v1.GET("/categories", articleHandler.Categories)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, httpMetrics},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
