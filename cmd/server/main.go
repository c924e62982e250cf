package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "userauth/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"userauth/internal/auth"
	"userauth/internal/cache"
	"userauth/internal/config"
	"userauth/internal/db"
	"userauth/internal/handler"
	"userauth/internal/logging"
	"userauth/internal/repository"
	"userauth/internal/router"
	"userauth/internal/service"
)

// @title User Authentication API
// @version 1.0
// @description Registration, cookie sessions and password reset.
// @host localhost:5000
// @BasePath /
// @schemes http
func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Error(ctx, "database init", "error", err)
		os.Exit(1)
	}

	if cfg.ResetDB {
		logger.Warn(ctx, "RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			logger.Warn(ctx, "failed to drop tables (may not exist)", "error", err)
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		logger.Error(ctx, "migrate", "error", err)
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn(ctx, "redis unavailable, login throttling disabled until it recovers", "error", err)
	}

	userRepo := repository.NewUserRepository(gormDB)

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	limiter := auth.NewLoginLimiter(cacheClient, cfg.LoginMaxFailures, cfg.LoginFailureWindow)

	authService := service.NewAuthService(userRepo, hasher, auth.UUIDGenerator{}, logger, service.Options{
		RevokeSessionOnReset: cfg.ResetRevokesSession,
	})
	authHandler := handler.NewAuthHandler(authService, limiter, cfg.SessionCookieName)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, authService, authHandler)

	addr := ":" + cfg.ServerPort
	go func() {
		logger.Info(ctx, "server starting", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server start", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown", "error", err)
	}
}
