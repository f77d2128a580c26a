// analytics/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"spaceclouds/analytics/config"
	"spaceclouds/analytics/database"
	"spaceclouds/analytics/handlers"
	"spaceclouds/analytics/logging"
	"spaceclouds/analytics/store"
	"spaceclouds/analytics/tracking"
	"spaceclouds/analytics/utils"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of a dashboard password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := handlers.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure logging: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	storage, closeStorage, err := openStorage(cfg.Storage)
	if err != nil {
		logger.Error("Failed to initialize analytics storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	eventLog := store.NewEventLog(storage, store.Options{
		Key:       cfg.Storage.Key,
		MaxEvents: cfg.Tracking.MaxEvents,
		Logger:    logger,
	})

	pagesCtx, stopPages := context.WithCancel(context.Background())
	defer stopPages()
	pages := tracking.NewRegistry(pagesCtx, func(path string) tracking.EventLogger {
		return eventLog.ForLocation(path)
	}, cfg.Tracking.HeartbeatInterval)

	jwtSecret := []byte(cfg.Dashboard.JWTSecret)
	router := handlers.NewRouter(
		handlers.RouterConfig{Origin: cfg.Dashboard.Origin, APIKey: cfg.Dashboard.APIKey, JWTSecret: jwtSecret},
		handlers.NewAnalyticsHandlers(eventLog, pages, logger),
		handlers.NewAuthHandlers(cfg.Dashboard.PasswordHash, jwtSecret, cfg.Dashboard.TokenTTL),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Analytics agent starting", "addr", srv.Addr, "backend", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Analytics agent failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down analytics agent...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// open pages are torn down before storage closes
	pages.Shutdown()
	logger.Info("Analytics agent exiting.")
}

func openStorage(cfg config.StorageConfig) (store.Storage, func(), error) {
	switch cfg.Backend {
	case utils.BackendMemory:
		return store.NewMemoryStorage(cfg.QuotaBytes), func() {}, nil
	case utils.BackendFile:
		s, err := store.NewFileStorage(cfg.Path, cfg.QuotaBytes)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case utils.BackendSQLite:
		client, err := database.NewSQLiteDB(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQLStorage(client.DB, store.DialectSQLite, cfg.QuotaBytes)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return s, client.Close, nil
	case utils.BackendPostgres:
		client, err := database.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQLStorage(client.DB, store.DialectPostgres, cfg.QuotaBytes)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return s, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
