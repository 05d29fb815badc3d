package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	appLogger "github.com/FACorreiaa/bytebite/app/logger"
	"github.com/FACorreiaa/bytebite/app/observability/metrics"
	"github.com/FACorreiaa/bytebite/app/tracer"
	"github.com/FACorreiaa/bytebite/config"
	_ "github.com/FACorreiaa/bytebite/docs"
	"github.com/FACorreiaa/bytebite/internal/container"
	"github.com/FACorreiaa/bytebite/internal/router"
)

const shutdownTimeout = 10 * time.Second

// @title        ByteBite API
// @version      1.0
// @description  Accounts, food preferences, orders, weight tracking and a chat assistant.
// @BasePath     /
// @securityDefinitions.apikey SessionCookie
// @in           cookie
// @name         BBAIsession
func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = cfg.Mode
	}
	logger := appLogger.New(env, os.Stdout)
	slog.SetDefault(logger)

	if err := run(&cfg, logger); err != nil {
		logger.Error("Application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metricsHandler, shutdownTelemetry, err := tracer.InitTracingAndMetrics("bytebite")
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.Any("error", err))
		}
	}()
	metrics.InitAppMetrics()

	chatLogger, chatLogFile, err := appLogger.NewChatLogger(cfg.LLM.LogDir, time.Now(), logger)
	if err != nil {
		return err
	}
	defer chatLogFile.Close()

	c, err := container.NewContainer(ctx, cfg, logger, chatLogger)
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer c.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      router.SetupRouter(c.RouterConfig()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.Timeout + time.Duration(cfg.LLM.Retries)*(cfg.LLM.AttemptTimeout+cfg.LLM.RetryDelay),
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	servers := []*http.Server{srv}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		servers = append(servers, &http.Server{
			Addr:              ":" + cfg.Metrics.Port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", s.Addr))
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", s.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		var errs []error
		for _, s := range servers {
			if err := s.Shutdown(sctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", s.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
