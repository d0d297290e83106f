package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aulacode/tareas-api/internal/config"
	"github.com/aulacode/tareas-api/internal/database"
	"github.com/aulacode/tareas-api/internal/handler"
	"github.com/aulacode/tareas-api/internal/middleware"
	"github.com/aulacode/tareas-api/internal/recordstore"
	"github.com/aulacode/tareas-api/internal/repository"
	"github.com/aulacode/tareas-api/internal/router"
	"github.com/aulacode/tareas-api/internal/service"
	cloud "github.com/aulacode/tareas-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	store, err := recordstore.New(recordstore.Config{
		BaseURL: cfg.RecordStoreBaseURL,
		APIKey:  cfg.RecordStoreAPIKey,
		Timeout: cfg.RecordStoreTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create record store client: %v", err)
	}

	// The attachment host is a capability, not a requirement: without
	// credentials, attachments fall back to inline-or-drop.
	var uploader service.AttachmentUploader
	if cfg.AttachmentHostConfigured() {
		cloudService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudService
	} else {
		logger.Warn().Msg("attachment host not configured, large attachments will be dropped")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer cache.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(store, cfg.SubmissionsTable, logger)
	gradeRepo := repository.NewGradeRepository(store, cfg.GradesTable, logger)

	resolver := service.NewAttachmentResolver(uploader, cfg.MaxInlineAttachmentChars, cfg.MaxDrawingChars, logger)
	gradeSync := service.NewGradeSyncService(submissionRepo, gradeRepo, logger)
	submissionService := service.NewSubmissionService(submissionRepo, resolver, gradeSync, validate, cache, cfg.ListCacheTTL, logger)

	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})

	var jwtMiddleware fiber.Handler
	if cfg.JWTSecret != "" {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		JWTMiddleware:     jwtMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
