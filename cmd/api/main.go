package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/timevault/timevault-go/internal/config"
	"github.com/timevault/timevault-go/internal/handler"
	"github.com/timevault/timevault-go/internal/lifecycle"
	"github.com/timevault/timevault-go/internal/middleware"
	"github.com/timevault/timevault-go/internal/notify"
	"github.com/timevault/timevault-go/internal/repository"
	"github.com/timevault/timevault-go/internal/service"
	"github.com/timevault/timevault-go/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := repository.NewDB(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	capsuleRepo := repository.NewCapsuleRepository(db)
	reportRepo := repository.NewReportRepository(db)
	userRepo := repository.NewUserRepository(db)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SMTPHost != "" {
		notifier = notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, userRepo)
	}

	var media service.MediaStore
	s3media, err := storage.NewS3Media(context.Background(), cfg.MediaBucket, cfg.MediaRegion, cfg.MediaLocal)
	if err != nil {
		slog.Warn("media storage unavailable, capsules with media disabled", "error", err)
	} else {
		media = s3media
	}

	engine := lifecycle.NewEngine(capsuleRepo, notifier, cfg.CapsuleKey)

	capsuleService := service.NewCapsuleService(capsuleRepo, media, engine, cfg.CapsuleKey)
	moderationService := service.NewModerationService(capsuleRepo, reportRepo, userRepo, engine, notifier)
	access := service.NewAccess(capsuleRepo, userRepo, capsuleService, moderationService)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry)
	authHandler := handler.NewAuthHandler(authService)
	capsuleHandler := handler.NewCapsuleHandler(access)
	adminHandler := handler.NewAdminHandler(access, authService)

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// The public gallery needs no token; unlock state is recomputed per call.
	r.Get("/api/capsules/public", capsuleHandler.HandleListPublic)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(5, 10))
		r.Post("/api/auth/register", authHandler.HandleRegister)
		r.Post("/api/auth/login", authHandler.HandleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret))
		r.Get("/api/auth/me", authHandler.HandleMe)

		r.Get("/api/capsules", capsuleHandler.HandleListCapsules)
		r.Post("/api/capsules", capsuleHandler.HandleCreateCapsule)
		r.Get("/api/capsules/{capsule_id}", capsuleHandler.HandleGetCapsule)
		r.Delete("/api/capsules/{capsule_id}", capsuleHandler.HandleDeleteCapsule)
		r.With(middleware.RateLimit(2, 5)).
			Post("/api/capsules/{capsule_id}/report", capsuleHandler.HandleReportCapsule)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret))
		r.Use(middleware.RequireAdmin)

		r.Get("/api/admin/stats", adminHandler.HandleStats)
		r.Get("/api/admin/users", adminHandler.HandleListUsers)
		r.Get("/api/admin/users/{user_id}", adminHandler.HandleGetUser)
		r.Put("/api/admin/users/{user_id}", adminHandler.HandleUpdateUser)
		r.Delete("/api/admin/users/{user_id}", adminHandler.HandleDeleteUser)
		r.Get("/api/admin/capsules", adminHandler.HandleListCapsules)
		r.Delete("/api/admin/capsules/{capsule_id}", adminHandler.HandleDeleteCapsule)
		r.Put("/api/admin/capsules/{capsule_id}/review", adminHandler.HandleReviewCapsule)
		r.Post("/api/admin/create-admin", adminHandler.HandleCreateAdmin)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
