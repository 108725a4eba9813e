package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/chat-gateway/internal/api/http"
	"github.com/spec-kit/chat-gateway/internal/api/http/handlers"
	"github.com/spec-kit/chat-gateway/internal/auth"
	"github.com/spec-kit/chat-gateway/internal/config"
	"github.com/spec-kit/chat-gateway/internal/mcp"
	"github.com/spec-kit/chat-gateway/internal/observability"
	"github.com/spec-kit/chat-gateway/internal/persistence"
	"github.com/spec-kit/chat-gateway/internal/repository"
	"github.com/spec-kit/chat-gateway/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.JWTSecret == config.InsecureDevSecret {
		if cfg.App.IsProduction() {
			logger.Fatal("JWT_SECRET is unset in production; refusing to start with the insecure development key")
		}
		logger.Warn("JWT_SECRET is unset; using the insecure development key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	authService := service.NewAuthService(cfg.Auth, userRepo)
	cookies := auth.NewCookieWriter(cfg.App.IsProduction(), cfg.Auth.TokenTTL())
	authMiddleware := auth.NewMiddleware(authService.TokenManager(), cookies)

	mcpServer := mcp.NewServer(cfg.App.Version)
	registry := mcp.NewRegistry(ctx, mcpServer, logger)
	sseHandler := mcp.NewHandler(registry, logger)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.IsProduction())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService, cookies),
		SSE:            sseHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
