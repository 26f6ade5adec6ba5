package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"tabletop/internal/caching"
	"tabletop/internal/common"
	"tabletop/internal/config"
	"tabletop/internal/handlers"
	"tabletop/internal/identity"
	"tabletop/internal/jobs"
	"tabletop/internal/jobs/background"
	"tabletop/internal/logger"
	"tabletop/internal/metrics"
	"tabletop/internal/middleware"
	"tabletop/internal/realtime"
	"tabletop/internal/repositories"
	"tabletop/internal/services"
	"tabletop/pkg/database"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(os.Stdout, cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		return err
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	}, common.GetTenantIDFromContext, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, log); err != nil {
			return err
		}
	}

	redisClient, err := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	cache := caching.NewRedisCacheService(redisClient, log)

	verifier, err := identity.NewTokenVerifier(cfg.Identity.JWKSURL, cfg.Identity.JWTSecret, log)
	if err != nil {
		return err
	}
	defer verifier.Close()
	provider := identity.NewGoTrueClient(identity.Config{
		URL:            cfg.Identity.URL,
		APIKey:         cfg.Identity.APIKey,
		ServiceRoleKey: cfg.Identity.ServiceRoleKey,
		JWKSURL:        cfg.Identity.JWKSURL,
		JWTSecret:      cfg.Identity.JWTSecret,
		Timeout:        cfg.Identity.Timeout,
	}, verifier, log.Named("identity"))

	m := metrics.New()

	// Change events go out through redis so every instance's dashboards see
	// them; the bridge feeds them back into this instance's hub.
	hub := realtime.NewHub(m, log.Named("realtime"))
	defer hub.Close()
	publisher := realtime.NewRedisPublisher(redisClient)
	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()
	go func() {
		if err := realtime.NewBridge(redisClient, hub, log.Named("realtime")).Run(bridgeCtx); err != nil {
			log.Error("realtime bridge stopped", zap.Error(err))
		}
	}()

	tenantRepo := repositories.NewTenantRepo(pool)
	staffRepo := repositories.NewStaffRepo(pool)
	tableRepo := repositories.NewTableRepo(pool)
	productRepo := repositories.NewProductRepo(pool)
	orderRepo := repositories.NewOrderRepo(pool)
	itemRepo := repositories.NewOrderItemRepo(pool)
	reportRepo := repositories.NewReportRepo(pool)
	auditRepo := repositories.NewAuditLogsRepo(pool)
	tx := repositories.NewTransactor(pool)

	auditSvc := services.NewAuditLogsService(auditRepo)
	tenantSvc := services.NewTenantService(tenantRepo, cache, cfg.Auth.TenantCacheTTL, log.Named("tenants"))
	staffSvc := services.NewStaffService(staffRepo, provider, auditSvc, log.Named("staff"))
	registrationSvc := services.NewRegistrationService(tenantRepo, staffRepo, provider, auditSvc, log.Named("registration"))
	authSvc := services.NewAuthService(tenantSvc, staffRepo, provider, cache, auditSvc, services.AuthConfig{
		SessionSecret:         cfg.Auth.SessionSecret,
		SessionTTL:            cfg.Auth.SessionTTL,
		AutoProvisionProfiles: cfg.Auth.AutoProvisionProfiles,
		LoginRateLimit:        cfg.Auth.LoginRateLimit,
		LoginRateWindow:       cfg.Auth.LoginRateWindow,
	}, log.Named("auth"))
	tableSvc := services.NewTableService(tableRepo, publisher, log.Named("tables"))
	productSvc := services.NewProductService(tx, productRepo, auditSvc, publisher, log.Named("products"))
	orderSvc := services.NewOrderService(tx, orderRepo, itemRepo, productRepo, tableRepo, cache, auditSvc, publisher, m,
		services.OrderConfig{AllowItemsAfterSent: cfg.Orders.AllowItemsAfterSent}, log.Named("orders"))
	dashboardSvc := services.NewDashboardService(tableRepo, orderRepo, itemRepo, hub, services.DashboardConfig{
		Heartbeat: cfg.Realtime.Heartbeat,
		Debounce:  cfg.Realtime.Debounce,
	}, log.Named("dashboard"))
	reportSvc := services.NewReportService(reportRepo, cache, cfg.Jobs.ReportCacheTTL, log.Named("reports"))

	var (
		storage    services.ObjectStorage
		archiveSvc services.ReportArchiveService
	)
	if cfg.Storage.Endpoint != "" {
		storage, err = services.NewMinioStorage(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
		if err != nil {
			return fmt.Errorf("create object storage client: %w", err)
		}
		if err := storage.EnsureBucketExists(ctx); err != nil {
			return fmt.Errorf("prepare report bucket: %w", err)
		}
		archiveSvc = services.NewReportArchiveService(reportSvc, storage, log.Named("archive"))
	} else {
		log.Info("object storage not configured, report archiving disabled")
	}

	sessions := middleware.NewSessionMiddleware(authSvc, middleware.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.HTTP.SecureCookies,
	}, log.Named("session"))
	guard := middleware.NewGuard(sessions, staffSvc, log.Named("guard"))

	var storagePing handlers.Pinger
	if storage != nil {
		storagePing = storage
	}
	h := &routeHandlers{
		auth:      handlers.NewAuthHandlers(authSvc, registrationSvc, sessions, guard, cfg.Auth.SessionTTL, log.Named("http")),
		tenants:   handlers.NewTenantHandlers(tenantSvc, log.Named("http")),
		staff:     handlers.NewStaffHandlers(staffSvc, log.Named("http")),
		tables:    handlers.NewTableHandlers(tableSvc, log.Named("http")),
		products:  handlers.NewProductHandlers(productSvc, log.Named("http")),
		orders:    handlers.NewOrderHandlers(orderSvc, log.Named("http")),
		dashboard: handlers.NewDashboardHandlers(dashboardSvc, log.Named("http")),
		reports:   handlers.NewReportHandlers(reportSvc, archiveSvc, log.Named("http")),
		audit:     handlers.NewAuditLogsHandlers(auditSvc, log.Named("http")),
		health:    handlers.NewHealthHandlers(handlers.PingFunc(pool.Ping), cache, storagePing, version),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(log.Named("http")))
	e.Use(echoMiddleware.Recover())
	e.Use(m.Middleware())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.AllowedOrigins,
		AllowCredentials: true,
	}))
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	registerRoutes(e, h, sessions, guard, middleware.NewVersionMiddleware(), m)

	if cfg.Jobs.Enabled {
		scheduler, err := background.NewJobScheduler(m, 10*time.Minute, log.Named("jobs"))
		if err != nil {
			return err
		}
		if err := scheduleJobs(scheduler, cfg, productRepo, tableRepo, tenantRepo, archiveSvc, log.Named("jobs")); err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				log.Warn("scheduler shutdown", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open dashboard streams end when the hub closes, which lets Shutdown finish.
	srv.RegisterOnShutdown(hub.Close)

	errCh := make(chan error, 1)
	go func() {
		log.Info("tabletop listening", zap.String("addr", cfg.HTTP.Addr), zap.String("version", version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func scheduleJobs(
	scheduler *background.JobScheduler,
	cfg *config.Config,
	productRepo repositories.ProductRepository,
	tableRepo repositories.TableRepository,
	tenantRepo repositories.TenantRepository,
	archiveSvc services.ReportArchiveService,
	log *zap.Logger,
) error {
	if err := scheduler.AddJob("low-stock-alerts", cfg.Jobs.LowStockInterval,
		jobs.NewStockAlertService(productRepo, 0, log)); err != nil {
		return err
	}
	if err := scheduler.AddJob("occupancy-reconcile", cfg.Jobs.OccupancyInterval,
		jobs.NewOccupancyReconciler(tableRepo, log)); err != nil {
		return err
	}
	if archiveSvc != nil {
		if err := scheduler.AddJob("report-archive", cfg.Jobs.ReportArchiveInterval,
			jobs.NewReportArchiver(tenantRepo, archiveSvc, log)); err != nil {
			return err
		}
	}
	return nil
}

func migrate(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(os.Stdout, cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	pool, err := database.NewPool(ctx, database.Config{URL: cfg.Database.URL, MaxConns: 2}, nil, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return database.Migrate(ctx, pool, log)
}
