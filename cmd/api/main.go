package main

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"homelink/internal/adapter/api"
	"homelink/internal/adapter/api/handler"
	apimiddleware "homelink/internal/adapter/api/middleware"
	"homelink/internal/adapter/api/router"
	"homelink/internal/infrastructure/ratelimit"
	"homelink/internal/infrastructure/websocket"
	"homelink/internal/usecase"
	"homelink/pkg/config"
	"homelink/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := run(cfg); err != nil {
		logger.Error("Server exited: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	defer b.Close()
	if err != nil {
		return err
	}

	rateLimiter := ratelimit.NewRateLimiter(ratelimit.DefaultRules)
	rateLimiter.StartCleanupRoutine(10*time.Minute, ctx.Done())

	messagingUseCase := usecase.NewMessaging(b.stores, rateLimiter, usecase.SendPolicy{
		WeeklyCap: cfg.WeeklyMessageCap,
	})

	wsManager := websocket.NewManager(messagingUseCase)
	wsManager.Start(ctx)

	handler.Setup(messagingUseCase)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     allowedOrigins(cfg.AllowedOrigins),
		AllowCredentials: len(cfg.AllowedOrigins) > 0,
	}))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(b.verifier, b.sessions)
	adminMiddleware := apimiddleware.NewAdminMiddleware(b.stores.Users)

	handlers := router.Handlers{
		Conversations: handler.GetConversationHandler(),
		WebSocket:     handler.NewWebSocketHandler(wsManager, cfg.AllowedOrigins),
		Health:        handler.NewHealthHandler(b.checks),
		Users:         handler.NewUserHandler(b.stores.Users),
	}
	if b.files != nil {
		handlers.Attachments = handler.NewAttachmentHandler(b.files, b.fileMetadata)
	}
	if b.sessions != nil || b.tokens != nil {
		handlers.DevTokens = handler.NewDevTokenHandler(b.sessions, b.tokens, b.stores.Users)
	}

	router.Setup(e, cfg.Environment, handlers, authMiddleware, adminMiddleware, rateLimiter)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server on port %s (documents=%s realtime=%s auth=%s)",
			cfg.ServerPort, cfg.DocumentBackend, cfg.RealtimeBackend, cfg.AuthMode)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func allowedOrigins(configured []string) []string {
	if len(configured) == 0 {
		return []string{"*"}
	}
	return configured
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if uid, ok := c.Get(apimiddleware.ContextUserID).(string); ok && uid != "" {
				fields = append(fields, zap.String("uid", uid))
			}
			if v.Error != nil {
				logger.L().Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.L().Info("request", fields...)
			return nil
		},
	})
}
