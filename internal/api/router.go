package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/b2bwholesale/ordering-sync/internal/api/handler"
	"github.com/b2bwholesale/ordering-sync/internal/api/middleware"
	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
	"github.com/b2bwholesale/ordering-sync/internal/core/ports"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Auth             ports.AuthService
	Tokens           ports.TokenVerifier
	AllowAdminSignup bool
	Intake           handler.EventDispatcher
	Sync             handler.SyncCore
	WS               echo.HandlerFunc
	Checks           map[string]handler.Check
	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer
	Log        zerolog.Logger
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
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "wholesale",
		Subsystem:  "http",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			// Upgraded sockets would be recorded as one very long request.
			return c.Path() == "/metrics" || c.Path() == "/ws"
		},
	}))

	authHandler := handler.NewAuthHandler(d.Auth, d.AllowAdminSignup)
	syncEventHandler := handler.NewSyncEventHandler(d.Intake, d.Log.With().Str("component", "intake").Logger())
	syncHandler := handler.NewSyncHandler(d.Sync)
	authMiddleware := middleware.Auth(d.Tokens)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Sync routes (admin only) ---
	v1 := e.Group("/v1/sync", authMiddleware, adminOnly)
	v1.POST("/events", syncEventHandler.Receive)
	v1.POST("/events/batch", syncEventHandler.ReceiveBatch)
	v1.GET("/stats", syncHandler.Stats)
	v1.POST("/retry/flush", syncHandler.FlushRetries)

	// --- WebSocket (authenticates in-band) ---
	if d.WS != nil {
		e.GET("/ws", d.WS)
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Checks, d.Sync)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/health") || c.Path() == "/metrics"
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
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
