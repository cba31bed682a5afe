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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/background"
	"github.com/palisadehq/palisade/internal/config"
	"github.com/palisadehq/palisade/internal/database"
	"github.com/palisadehq/palisade/internal/fingerprint"
	"github.com/palisadehq/palisade/internal/handlers"
	middlewareCustom "github.com/palisadehq/palisade/internal/middleware"
	"github.com/palisadehq/palisade/internal/repositories"
	"github.com/palisadehq/palisade/internal/routes"
	"github.com/palisadehq/palisade/internal/services"
	pkghttp "github.com/palisadehq/palisade/pkg/http"
	pkglogger "github.com/palisadehq/palisade/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	attemptRepo := repositories.NewAttemptRepository(db)
	submissionRepo := repositories.NewSubmissionRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// Device fingerprint codec
	codec := fingerprint.NewCodec()

	// Ban status cache: constructed once here and injected everywhere
	banCache := services.NewBanStatusCache(cfg.Cache.BanStatusTTL, cfg.Cache.MaxEntries)
	cacheSweeper := background.NewCacheSweeper(banCache, logger, cfg.Cache.SweepInterval)

	// Two escalation policies over one state machine: form abuse gets a
	// short ban, authentication abuse a long one.
	formEscalator := services.NewEscalator(attemptRepo, banCache, services.Policy{
		Threshold:   cfg.Abuse.FormThreshold,
		Window:      cfg.Abuse.FormWindow,
		BanDuration: cfg.Abuse.FormBanDuration,
	}, logger)
	authEscalator := services.NewEscalator(attemptRepo, banCache, services.Policy{
		Threshold:   cfg.Abuse.AuthThreshold,
		Window:      cfg.Abuse.AuthWindow,
		BanDuration: cfg.Abuse.AuthBanDuration,
	}, logger)

	guard := services.NewGuard(attemptRepo, banCache, logger)

	// Token manager for login sessions
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)

	// Audit logger for security events
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	formService := services.NewFormService(submissionRepo, guard, formEscalator, logger)
	authService := services.NewAuthService(userRepo, guard, authEscalator, tokenManager, logger, auditLogger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	deviceHandler := handlers.NewDeviceHandler(guard, formEscalator, codec, auditLogger)
	formHandler := handlers.NewFormHandler(formService, codec, ipConfig)
	authHandler := handlers.NewAuthHandler(authService, codec)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, deviceHandler, formHandler, authHandler, tokenManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cache sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go cacheSweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	cacheSweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
