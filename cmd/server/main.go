package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/contaflow/backend/internal/application/billing"
	reconapp "github.com/contaflow/backend/internal/application/reconciliation"
	"github.com/contaflow/backend/internal/infrastructure/cache"
	"github.com/contaflow/backend/internal/infrastructure/config"
	"github.com/contaflow/backend/internal/infrastructure/logger"
	"github.com/contaflow/backend/internal/infrastructure/persistence"
	"github.com/contaflow/backend/internal/infrastructure/scheduler"
	"github.com/contaflow/backend/internal/infrastructure/telemetry"
	"github.com/contaflow/backend/internal/interfaces/http/handler"
	"github.com/contaflow/backend/internal/interfaces/http/middleware"
	"github.com/contaflow/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
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
		_ = logger.Sync(log)
	}()

	log.Info("Starting ContaFlow Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry providers. Disabled configuration yields no-op providers,
	// so the rest of the wiring never branches on it.
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
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize OTEL logger provider", zap.Error(err))
	}
	defer func() {
		if err := loggerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down OTEL logger provider", zap.Error(err))
		}
	}()

	// Ship zap output to the collector alongside stdout
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingEndpoint,
		ApplicationName:   cfg.Telemetry.ServiceName,
		ProfileCPU:        true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database query tracing
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:          cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:         "postgresql",
		WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Initialize repositories
	clientRepo := persistence.NewGormClientRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	groupRepo := persistence.NewGormEconomicGroupRepository(db.DB)
	accountRepo := persistence.NewGormChartOfAccountRepository(db.DB)
	txRepo := persistence.NewGormBankTransactionRepository(db.DB)
	matchRuleRepo := persistence.NewGormMatchRuleRepository(db.DB)

	// Learned rules sit behind a cache so lookups during matching do not
	// hit the database on every transaction
	ruleCache := cache.NewRuleCacheFactory(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Reconciliation.RuleCacheTTL, log).CreateRuleCache()
	cachedRuleRepo := cache.NewCachedMatchRuleRepository(matchRuleRepo, ruleCache,
		cache.WithCacheTTL(cfg.Reconciliation.RuleCacheTTL),
		cache.WithCacheLogger(log))

	uow := persistence.NewGormUnitOfWork(db.DB)
	entryService := persistence.NewGormSettlementEntryService(db.DB, log)
	tenantStats := persistence.NewGormTenantStats(db.DB)

	options := reconapp.Options{
		SimilarityThreshold:      cfg.Reconciliation.SimilarityThreshold,
		AutoApplyThreshold:       cfg.Reconciliation.AutoApplyThreshold,
		MaxCombinationCandidates: cfg.Reconciliation.MaxCombinationCandidates,
		DateFallbackDays:         cfg.Reconciliation.DateFallbackDays,
		BatchWindowMonths:        cfg.Batch.WindowMonths,
	}

	// Initialize application services
	clientService := billingapp.NewClientService(clientRepo, accountRepo, uow, log)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, clientRepo, log)
	groupService := billingapp.NewGroupService(groupRepo, clientRepo, uow, log)

	resolutionService := reconapp.NewAccountResolutionService(accountRepo, cachedRuleRepo, options, log)
	candidateSelector := reconapp.NewCandidateSelector(invoiceRepo, options)
	cascadeService := reconapp.NewGroupSettlementService(clientRepo, groupRepo, invoiceRepo, entryService, log)
	auditService := reconapp.NewGroupAuditService(groupRepo, clientRepo, log)
	reconcileService := reconapp.NewReconcileService(
		txRepo, invoiceRepo, clientRepo,
		candidateSelector, resolutionService, cascadeService,
		entryService, nil, uow, options, log,
	)
	transactionService := reconapp.NewTransactionService(txRepo, log)
	batchService := reconapp.NewBatchReconcileService(txRepo, reconcileService, options, log)

	// Reconciliation metrics, recorded inline and collected periodically
	if meterProvider.IsEnabled() {
		reconMetrics, err := telemetry.NewReconciliationMetrics(telemetry.ReconciliationMetricsConfig{
			Meter:         meterProvider.Meter("contaflow/reconciliation"),
			Logger:        log,
			QueueProvider: tenantStats,
		})
		if err != nil {
			log.Fatal("Failed to initialize reconciliation metrics", zap.Error(err))
		}
		reconcileService.SetMetrics(reconMetrics)
		reconMetrics.StartPeriodicCollection(ctx, tenantStats, 5*time.Minute)
		defer reconMetrics.Stop()
	}

	// Nightly batch scheduler
	if cfg.Batch.Enabled {
		hour, minute, err := scheduler.ParseDailySchedule(cfg.Batch.CronSchedule)
		if err != nil {
			log.Fatal("Invalid batch schedule", zap.String("schedule", cfg.Batch.CronSchedule), zap.Error(err))
		}
		schedulerConfig := scheduler.BatchSchedulerConfig{
			Hour:              hour,
			Minute:            minute,
			CheckInterval:     time.Minute,
			MaxConcurrentRuns: cfg.Batch.MaxConcurrentRuns,
			RunTimeout:        cfg.Batch.RunTimeout,
		}
		batchScheduler := scheduler.NewBatchScheduler(schedulerConfig, batchService, tenantStats, log)
		if err := batchScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start batch scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := batchScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping batch scheduler", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	clientHandler := handler.NewClientHandler(clientService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	groupHandler := handler.NewEconomicGroupHandler(groupService, auditService)
	transactionHandler := handler.NewTransactionHandler(transactionService)
	reconciliationHandler := handler.NewReconciliationHandler(reconcileService, batchService)
	matchRuleHandler := handler.NewMatchRuleHandler(resolutionService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	// Apply middleware stack in order
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: cfg.HTTP.CORSAllowMethods,
		AllowHeaders: cfg.HTTP.CORSAllowHeaders,
	}))
	engine.Use(middleware.BodySizeLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
		engine.Use(middleware.RateLimit(limiter))
	}

	engine.GET("/health", healthHandler(db))

	// API routes require tenant identification
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Use(middleware.TenantMiddleware()).
		Register(
			clientHandler,
			invoiceHandler,
			groupHandler,
			transactionHandler,
			reconciliationHandler,
			matchRuleHandler,
		).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
