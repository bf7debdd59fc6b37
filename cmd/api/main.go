package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/reportdesk/report-desk-api/api/swagger"
	"github.com/reportdesk/report-desk-api/internal/handler"
	"github.com/reportdesk/report-desk-api/internal/middleware"
	"github.com/reportdesk/report-desk-api/internal/repository"
	"github.com/reportdesk/report-desk-api/internal/service"
	"github.com/reportdesk/report-desk-api/pkg/cache"
	"github.com/reportdesk/report-desk-api/pkg/config"
	"github.com/reportdesk/report-desk-api/pkg/database"
	"github.com/reportdesk/report-desk-api/pkg/jobs"
	"github.com/reportdesk/report-desk-api/pkg/logger"
	"github.com/reportdesk/report-desk-api/pkg/mailer"
	corsmiddleware "github.com/reportdesk/report-desk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/reportdesk/report-desk-api/pkg/middleware/requestid"
	"github.com/reportdesk/report-desk-api/pkg/storage"
)

// @title Report Desk API
// @version 1.0.0
// @description Report intake and moderation workflow service
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			cfg.Cache.Enabled = false
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.ListTTL, logr, cfg.Cache.Enabled)

	blobs, err := storage.NewLocalBlobStore(cfg.Storage.BaseDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob store", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	var sender mailer.Sender = mailer.NopSender{}
	if cfg.Mailer.Enabled {
		sender = mailer.NewSMTPSender(cfg.Mailer)
	}
	mailQueue := jobs.NewQueue("completion-mail", service.MailHandler(sender, logr), jobs.QueueConfig{
		Workers: 2,
		Logger:  logr,
	})
	mailQueue.Start(ctx)
	defer mailQueue.Stop()

	reportRepo := repository.NewReportRepository(db)
	moderatorRepo := repository.NewModeratorRepository(db)

	directory := service.NewModeratorDirectory(moderatorRepo, logr)
	identity := service.NewIdentityService(cfg.Auth.TokenSecret)
	notifier := service.NewNotifyService(mailQueue, logr)
	workflow := service.NewReportWorkflow(reportRepo, directory, blobs, signer, notifier, cacheSvc, metrics, logr, cfg.Storage.Bucket)

	limits := handler.UploadLimits{
		MaxBytes:     cfg.Storage.MaxUploadBytes,
		AllowedMIMEs: cfg.Storage.AllowedMIMEs,
	}
	var reports *handler.ReportHandler
	if cfg.Exports.Enabled {
		reports = handler.NewReportHandler(workflow, service.NewExportService(workflow, logr), limits)
	} else {
		reports = handler.NewReportHandler(workflow, nil, limits)
	}
	observability := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.MaxMultipartMemory = cfg.Storage.MaxUploadBytes

	r.GET("/health", observability.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", observability.Prometheus)
	r.GET("/files/download", reports.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/reports", middleware.OptionalIdentity(identity), reports.Create)
		api.GET("/reports/available", reports.ListAvailable)

		secured := api.Group("", middleware.RequireIdentity(identity))
		{
			secured.GET("/reports", reports.List)
			secured.GET("/reports/assigned", reports.ListAssigned)
			secured.GET("/reports/completed", reports.ListCompleted)
			secured.GET("/reports/export", reports.Export)
			secured.POST("/reports/:id/assign", reports.Assign)
			secured.POST("/reports/:id/unassign", reports.Unassign)
			secured.POST("/reports/:id/review", reports.Review)
			secured.GET("/reports/:id/pdf-url", reports.PDFLink)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
