package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fileapp/backend/internal/config"
	"github.com/fileapp/backend/internal/database"
	"github.com/fileapp/backend/internal/handlers"
	"github.com/fileapp/backend/internal/middleware"
	"github.com/fileapp/backend/internal/services"
	"github.com/fileapp/backend/internal/storage"
	"github.com/fileapp/backend/pkg/logger"
	"github.com/fileapp/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	var storageClient storage.Storage
	switch cfg.Storage.Backend {
	case "minio":
		minioClient, err := storage.NewMinIOStorage(cfg.MinIO)
		if err != nil {
			log.Fatalf("minio initialization failed: %v", err)
		}
		if err := minioClient.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("failed ensuring minio bucket: %v", err)
		}
		storageClient = minioClient
	default:
		localClient, err := storage.NewLocalStorage(cfg.Storage.UploadDir)
		if err != nil {
			log.Fatalf("upload directory initialization failed: %v", err)
		}
		storageClient = localClient
	}

	mailer := services.NewSMTPMailer(cfg.Mail)

	authHandler := handlers.NewAuthHandler(db, mailer, cfg.Server.FrontendURL)
	contactsHandler := handlers.NewContactsHandler(db)
	filesHandler := handlers.NewFilesHandler(db, storageClient)
	sharesHandler := handlers.NewSharesHandler(db, storageClient, mailer, cfg.Server.FrontendURL)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: cfg.Storage.MaxContentLength})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.AllowedOrigin))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	health := func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	}
	app.Get("/health", health)

	api := app.Group("/api")
	api.Get("/health", health)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Post("/forgot-password", authHandler.ForgotPassword)
	authRoutes.Post("/reset-password", authHandler.ResetPassword)

	contactRoutes := api.Group("/contacts", authMiddleware.RequireAuth)
	contactRoutes.Get("/", contactsHandler.List)
	contactRoutes.Post("/", contactsHandler.Create)
	contactRoutes.Get("/:id", contactsHandler.Get)
	contactRoutes.Put("/:id", contactsHandler.Update)
	contactRoutes.Delete("/:id", contactsHandler.Delete)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth)
	fileRoutes.Post("/upload", filesHandler.Upload)
	fileRoutes.Get("/", filesHandler.List)
	fileRoutes.Get("/:id/download", filesHandler.Download)
	fileRoutes.Post("/:id/share", sharesHandler.Create)
	fileRoutes.Get("/:id", filesHandler.Get)
	fileRoutes.Delete("/:id", filesHandler.Delete)

	shareRoutes := api.Group("/shares", authMiddleware.RequireAuth)
	shareRoutes.Get("/", sharesHandler.List)
	shareRoutes.Delete("/:id", sharesHandler.Delete)

	// Recipient access: the token is the only credential.
	api.Get("/share/:token", sharesHandler.Resolve)
	api.Get("/share/:token/download", sharesHandler.DownloadShared)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":            cfg.Server.Port,
		"storage_backend": cfg.Storage.Backend,
		"body_limit":      cfg.Storage.MaxContentLength,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
