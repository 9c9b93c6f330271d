package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/trailhead-tours/trailhead/internal/http/handlers"
	mw "github.com/trailhead-tours/trailhead/internal/http/middleware"
	"github.com/trailhead-tours/trailhead/internal/platform/mailer"
	"github.com/trailhead-tours/trailhead/internal/platform/password"
	"github.com/trailhead-tours/trailhead/internal/platform/token"
	"github.com/trailhead-tours/trailhead/internal/repo/postgres"
	"github.com/trailhead-tours/trailhead/internal/repo/redisrepo"
	"github.com/trailhead-tours/trailhead/internal/service"
	"github.com/trailhead-tours/trailhead/pkg/config"
	"github.com/trailhead-tours/trailhead/pkg/database"
	"github.com/trailhead-tours/trailhead/pkg/events"
	"github.com/trailhead-tours/trailhead/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := redisrepo.NewClient(cfg.Redis.URL)
	if err != nil {
		logger.Error("Failed to configure redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	var mail mailer.Service
	if cfg.Email.DevMode {
		mail = mailer.NewDevMailer()
	} else {
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	hasher := password.NewHasher(password.Params{
		MemoryKiB:     cfg.Auth.HashMemory,
		Iterations:    cfg.Auth.HashIterations,
		Parallelism:   cfg.Auth.HashParallelism,
		MaxConcurrent: cfg.Auth.MaxConcurrentHash,
	})
	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	userRepo := postgres.NewUserRepository(pool)
	limiter := redisrepo.NewRateLimiter(redisClient)

	authService := service.NewAuthService(userRepo, hasher, tokens, mail, eventBus, cfg)
	userService := service.NewUserService(userRepo, eventBus)

	authMW := mw.NewAuth(tokens, userRepo)
	authHandler := handlers.NewAuthHandler(authService, limiter, cfg)
	userHandler := handlers.NewUserHandler(userService)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Mount("/api/v1/users", handlers.UserRoutes(authHandler, userHandler, authMW))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API server", "port", cfg.Server.Port, "env", cfg.App.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
