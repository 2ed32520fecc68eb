package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"campuschat/internal/api"
	"campuschat/internal/chat"
	"campuschat/internal/config"
	"campuschat/internal/db"
	"campuschat/internal/middleware"
	"campuschat/internal/observ"
	"campuschat/internal/presence"
	"campuschat/internal/repository/postgres"
	"campuschat/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development reads .env; in real deployments the variables are
	// already in the environment and the missing file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent deadline — Background is the right root here.
	// Every request after this carries its own context.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	rdb, err := db.NewRedis(context.Background(), cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	pool := database.Pool()
	messageRepo := postgres.NewMessageStore(pool)
	enrollmentRepo := postgres.NewEnrollmentStore(pool)
	userRepo := postgres.NewUserStore(pool)

	registry := chat.NewRegistry()
	broadcaster := chat.NewBroadcaster(registry, logger)
	tracker := presence.NewTracker(rdb, cfg.PresenceWindow)
	gateway := chat.NewGateway(messageRepo, enrollmentRepo, registry, broadcaster, tracker, cfg.AuthzTimeout, logger)

	authHandler := api.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.TokenTTL, logger)
	chatHandler := api.NewChatHandler(gateway, logger)
	wsHandler := ws.NewHandler(gateway, cfg.JWTSecret, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Public: health for load balancers, login to obtain a token.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	srv.POST("/v1/auth/login", authHandler.Login)

	// The live transport does its own token verification before the upgrade
	// (browser WebSocket clients cannot send an Authorization header).
	srv.GET("/v1/ws", wsHandler.Serve)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	v1.GET("/courses/:id/messages", chatHandler.History)
	v1.POST("/courses/:id/messages", chatHandler.Send)
	v1.GET("/courses/:id/presence", chatHandler.Presence)
	v1.DELETE("/messages/:id", chatHandler.Delete)

	logger.Info("starting campuschat",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	return srv.Run(":" + cfg.Port)
}
