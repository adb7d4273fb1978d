package router

import (
	"github.com/cashflow/backend/internal/infrastructure/config"
	"github.com/cashflow/backend/internal/infrastructure/logger"
	"github.com/cashflow/backend/internal/interfaces/http/handler"
	"github.com/cashflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the endpoint groups served by the engine
type Handlers struct {
	System   *handler.SystemHandler
	Auth     *handler.AuthHandler
	Cashflow *handler.CashflowHandler
}

// EngineConfig wires the middleware stack
type EngineConfig struct {
	HTTP      config.HTTPConfig
	Tracing   middleware.TracingConfig
	Meter     metric.Meter // nil disables HTTP metrics
	Validator middleware.TokenValidator
	// LoginLimiter throttles the login endpoint. nil disables it.
	LoginLimiter *middleware.RateLimiter
	Logger       *zap.Logger
}

// publicPaths skip JWT authentication
var publicPaths = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/refresh",
	"/api/v1/system/info",
}

// NewEngine builds the gin engine with the full middleware stack and routes:
//
//	GET  /health
//	GET  /swagger/*any (when enabled)
//	GET  /api/v1/system/info
//	POST /api/v1/auth/login | refresh | logout
//	GET  /api/v1/auth/me
//	GET  /api/v1/cashflow/dashboard | records | weekly
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request id must exist before anything logs, and
	// the span must exist before SpanAttributes runs.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(cfg.Tracing))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.HTTPMetrics(cfg.Meter, log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure(middleware.DefaultSecurityConfig()))
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", h.System.Health)

	if cfg.HTTP.SwaggerEnabled {
		docsAuth := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Validator: cfg.Validator,
			Logger:    log,
		})
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				Enabled:     true,
				RequireAuth: cfg.HTTP.SwaggerRequireAuth,
				AllowedIPs:  cfg.HTTP.SwaggerAllowedIPs,
			}, docsAuth),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		Validator: cfg.Validator,
		SkipPaths: publicPaths,
		Logger:    log,
	}))

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", h.System.GetSystemInfo)

	authRoutes := NewDomainGroup("auth", "/auth")
	login := []gin.HandlerFunc{h.Auth.Login}
	if cfg.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{middleware.RateLimit(cfg.LoginLimiter)}, login...)
	}
	authRoutes.POST("/login", login...)
	authRoutes.POST("/refresh", h.Auth.RefreshToken)
	authRoutes.POST("/logout", h.Auth.Logout)
	authRoutes.GET("/me", h.Auth.GetCurrentUser)

	cashflowRoutes := NewDomainGroup("cashflow", "/cashflow")
	cashflowRoutes.GET("/dashboard", h.Cashflow.Dashboard)
	cashflowRoutes.GET("/records", h.Cashflow.Records)
	cashflowRoutes.GET("/weekly", h.Cashflow.Weekly)

	r.Register(systemRoutes).
		Register(authRoutes).
		Register(cashflowRoutes).
		Setup()

	return engine
}
