package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/erp/stockledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

//	@title			Stock Ledger API
//	@version		1.0
//	@description	Multi-tenant inventory ledger with stockout forecasting
//	@BasePath		/api/v1

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stock ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	// Telemetry first so the database and HTTP layers pick up the global providers
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	defer shutdown(log, "tracer provider", tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	defer shutdown(log, "meter provider", mp.Shutdown)

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	defer shutdown(log, "logger provider", lp.Shutdown)
	log = lp.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:            cfg.Profiling.Enabled,
		ServerAddress:      cfg.Profiling.ServerAddress,
		ApplicationName:    cfg.Telemetry.ServiceName,
		ProfileAllocations: cfg.Profiling.ProfileAllocations,
		ProfileMutexes:     cfg.Profiling.ProfileMutexes,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		tp.EnableSpanProfiles()
	}

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:        log,
		LogLevel:      cfg.Log.Level,
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.DBTraceEnabled,
		DBSystem:   dbSystem,
		LogFullSQL: cfg.Telemetry.DBTraceFullSQL,
	}, log); err != nil {
		return err
	}

	app, err := buildApp(ctx, cfg, db, mp, log)
	if err != nil {
		return err
	}
	defer app.stop(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tp.IsEnabled(),
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(meterOrNil(mp)))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	engine.Use(middleware.UserContext())

	systemHandler := handler.NewSystemHandler(db, version)
	if app.reorderScan != nil {
		systemHandler.AddJob(app.reorderScan)
	}
	engine.GET("/health", systemHandler.Health)
	engine.GET("/system/info", systemHandler.GetSystemInfo)

	// Everything under the item and forecast groups runs for exactly one tenant
	tenantScope := []gin.HandlerFunc{
		middleware.TenantMiddleware(middleware.TenantMiddlewareConfig{
			Resolver:   app.registry,
			HeaderName: cfg.Tenant.HeaderName,
			Logger:     log,
		}),
		middleware.TracingAttributeInjector(),
		middleware.Profiling(profiler.IsEnabled()),
	}

	itemHandler := handler.NewItemHandler(app.items, app.ledger)
	forecastHandler := handler.NewForecastHandler(app.forecasts)
	tenantHandler := handler.NewTenantHandler(app.tenants)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(
		router.ItemRoutes(itemHandler, forecastHandler, tenantScope...),
		router.ForecastRoutes(forecastHandler, tenantScope...),
		router.AdminRoutes(tenantHandler, middleware.TracingAttributeInjector()),
	)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func meterOrNil(mp *telemetry.MeterProvider) metric.Meter {
	if !mp.IsEnabled() {
		return nil
	}
	return mp.Meter("stockledger/http")
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("Error shutting down "+name, zap.Error(err))
	}
}
