package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"check-review-gateway/internal/checkapi"
	"check-review-gateway/internal/config"
	"check-review-gateway/internal/routes"
	"check-review-gateway/internal/services/review"
)

func main() {
	// Load .env
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := config.NewLogger(cfg.Logging)
	if envErr != nil {
		logger.Debug().Msg("no .env file found, relying on system env")
	}

	var db *gorm.DB
	if cfg.Database.URL != "" {
		db, err = config.InitDB(cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open audit database")
		}
		logger.Info().Msg("submission audit stored in database")
	} else {
		logger.Info().Msg("AUDIT_DATABASE_URL not set, submission audit goes to the log only")
	}

	upstream := checkapi.NewClient(cfg.Upstream.BaseURL, checkapi.WithTimeout(cfg.Upstream.Timeout))
	sessions := review.NewRegistry(review.WithIdleTTL(cfg.Review.SessionTTL))
	stopSweeper := sessions.StartSweeper(cfg.Review.SweepInterval(), logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Dependencies{
		Upstream: upstream,
		Sessions: sessions,
		DB:       db,
		Review:   cfg.Review,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
		// No WriteTimeout: status streams stay open until processing ends and
		// submissions wait on the upstream timeout.
	}

	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("upstream", cfg.Upstream.BaseURL).
			Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	if err := gracefulShutdown(server, sessions, stopSweeper, logger); err != nil {
		os.Exit(1)
	}
}

func gracefulShutdown(server *http.Server, sessions *review.Registry, stopSweeper func(), logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	// Let in-flight autosaves reach the processing service.
	sessions.Flush()
	logger.Info().Int("open_sessions", sessions.Len()).Msg("server stopped")
	return nil
}
