// Command server runs the cash-flow dashboard API.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/cashflow/backend/docs"
	cashflowapp "github.com/cashflow/backend/internal/application/cashflow"
	identityapp "github.com/cashflow/backend/internal/application/identity"
	"github.com/cashflow/backend/internal/domain/cashflow"
	"github.com/cashflow/backend/internal/infrastructure/auth"
	"github.com/cashflow/backend/internal/infrastructure/config"
	"github.com/cashflow/backend/internal/infrastructure/credentials"
	"github.com/cashflow/backend/internal/infrastructure/fixture"
	"github.com/cashflow/backend/internal/infrastructure/logger"
	"github.com/cashflow/backend/internal/infrastructure/persistence"
	"github.com/cashflow/backend/internal/infrastructure/telemetry"
	"github.com/cashflow/backend/internal/interfaces/http/handler"
	"github.com/cashflow/backend/internal/interfaces/http/middleware"
	"github.com/cashflow/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Cashflow Dashboard API
//	@version		1.0
//	@description	Receivables and payables dashboard over the ERP export

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting cashflow dashboard",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("source", cfg.Dashboard.Source),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = logProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
		if err := logProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	cashflowMetrics, err := telemetry.NewCashflowMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create cashflow metrics", zap.Error(err))
	}

	// Record source
	var (
		loader cashflow.RecordLoader
		pinger handler.Pinger
	)
	switch cfg.Dashboard.Source {
	case config.SourceFixture:
		log.Warn("Serving the built-in fixture instead of the warehouse")
		loader = fixture.NewLoader()
	default:
		gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
		db, err := persistence.NewDatabase(&cfg.Database, gormLog)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		if err := telemetry.InstrumentDB(db.DB, telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled,
			DBSystem:        dbSystem(cfg.Database.Driver),
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log); err != nil {
			log.Fatal("Failed to instrument database", zap.Error(err))
		}
		if cfg.Database.Driver == config.DriverSQLite {
			if err := db.AutoMigrate(); err != nil {
				log.Fatal("Failed to create sqlite tables", zap.Error(err))
			}
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			reg, err := telemetry.RegisterDBPoolMetrics(meter, sqlDB)
			if err != nil {
				log.Fatal("Failed to register pool metrics", zap.Error(err))
			}
			defer func() { _ = reg.Unregister() }()
		}
		log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))
		loader = persistence.NewGormRecordLoader(db)
		pinger = db
	}

	defaultRange, err := cashflow.ParseDateRange(cfg.Dashboard.DefaultStartDate, cfg.Dashboard.DefaultEndDate)
	if err != nil {
		log.Fatal("Invalid default date range", zap.Error(err))
	}
	dashboardService := cashflowapp.NewDashboardService(loader, defaultRange, cashflowMetrics, log)

	// Accounts and sessions
	store, err := credentials.Load(cfg.Auth.CredentialsFile, log)
	if err != nil {
		log.Fatal("Failed to load credentials", zap.String("file", cfg.Auth.CredentialsFile), zap.Error(err))
	}
	store.Watch()
	log.Info("Credentials loaded", zap.Strings("users", store.Usernames()))

	// The credentials file may carry its own cookie section.
	if c := store.Cookie(); c.Name != "" {
		cfg.Auth.CookieName = c.Name
		if c.ExpiryDays > 0 {
			cfg.Auth.CookieExpiryDays = c.ExpiryDays
		}
	}

	if cfg.JWT.Secret == "" {
		log.Warn("jwt.secret is not set, using a random secret; sessions end on restart")
		cfg.JWT.Secret = uuid.NewString() + uuid.NewString()
	}
	blacklist := auth.NewTokenBlacklist(ctx, cfg.Redis, log)
	if closer, ok := blacklist.(io.Closer); ok {
		defer closer.Close()
	}
	authService := identityapp.NewAuthService(store, auth.NewJWTService(cfg.JWT), blacklist,
		identityapp.DefaultAuthServiceConfig(), log)

	var loginLimiter *middleware.RateLimiter
	if cfg.HTTP.LoginRateLimit > 0 {
		loginLimiter = middleware.NewRateLimiter(cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow)
		defer loginLimiter.Close()
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := router.NewEngine(router.EngineConfig{
		HTTP: cfg.HTTP,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Meter:        meter,
		Validator:    authService,
		LoginLimiter: loginLimiter,
		Logger:       log,
	}, router.Handlers{
		System: handler.NewSystemHandler(version, loader.Name(), pinger),
		Auth: handler.NewAuthHandler(authService, handler.CookieConfig{
			Name:   cfg.Auth.CookieName,
			MaxAge: cfg.Auth.CookieMaxAge(),
			Secure: cfg.Auth.CookieSecure,
		}),
		Cashflow: handler.NewCashflowHandler(dashboardService),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// dbSystem names the database the way otel semantic conventions do
func dbSystem(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite"
	}
	return "postgresql"
}
