package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dunamismax/imagetools/internal/api"
	"github.com/dunamismax/imagetools/internal/config"
	"github.com/dunamismax/imagetools/internal/document"
	"github.com/dunamismax/imagetools/internal/pipeline"
	"github.com/dunamismax/imagetools/internal/ratelimit"
	"github.com/dunamismax/imagetools/internal/store"
	"github.com/dunamismax/imagetools/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const (
	serviceName = "imagetools"
	version     = "0.1.0"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("could not read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Exporter:       cfg.Tracing.Exporter,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		OTLPInsecure:   cfg.Tracing.OTLPInsecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("setup tracing")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.WithError(err).Warn("tracing shutdown failed")
		}
	}()
	tracer := otel.Tracer(serviceName)

	if err := pipeline.Startup(); err != nil {
		logger.WithError(err).Warn("primary image runtime unavailable; continuing with fallbacks")
	}
	defer pipeline.Shutdown()

	engine := pipeline.NewEngine(pipeline.Config{
		DisablePrimary:   cfg.Pipeline.DisablePrimary,
		DisableSecondary: cfg.Pipeline.DisableSecondary,
	}, logger, tracer)

	limiter, closeLimiter, err := newRateLimiter(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("setup rate limiter")
	}
	defer closeLimiter()

	opts := api.Options{
		Logger:         logger,
		Engine:         engine,
		Converter:      document.NewOfficeConverter(cfg.Office.Binary, cfg.Office.Timeout, logger),
		RateLimiter:    limiter,
		Tracer:         tracer,
		MaxUploadBytes: cfg.API.MaxUploadBytes(),
		Version:        version,
	}
	if cfg.Usage.DSN != "" {
		usage, err := store.NewPostgresUsageStore(ctx, cfg.Usage.DSN)
		if err != nil {
			logger.WithError(err).Fatal("connect usage store")
		}
		defer func() {
			if err := usage.Close(); err != nil {
				logger.WithError(err).Warn("usage store close failed")
			}
		}()
		opts.Usage = usage
	}

	app := api.NewServer(opts)
	httpServer := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.Office.Timeout*time.Duration(document.MaxBatch) + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":  cfg.API.Addr,
			"codec": engine.CodecName(),
		}).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.WithError(err).Error("server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// newRateLimiter picks the shared Redis bucket when REDIS_ADDR is set and a
// per-process limiter otherwise. A nil limiter disables limiting.
func newRateLimiter(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (api.RateLimiter, func(), error) {
	noop := func() {}
	if !cfg.RateLimit.Enabled() {
		logger.Info("rate limiting disabled")
		return nil, noop, nil
	}

	if cfg.Redis.Addr == "" {
		limiter, err := ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			return nil, noop, err
		}
		logger.WithFields(logrus.Fields{
			"requests": cfg.RateLimit.Requests,
			"window":   cfg.RateLimit.Window.String(),
		}).Info("in-memory rate limiter enabled")
		return limiter, noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("redis client close failed")
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).WithField("redis", cfg.Redis.Addr).Warn("redis unreachable; requests pass until it recovers")
	}

	limiter, err := ratelimit.NewRedisTokenBucket(client, cfg.RateLimit.Requests, cfg.RateLimit.Window, "")
	if err != nil {
		closeClient()
		return nil, noop, err
	}
	logger.WithFields(logrus.Fields{
		"requests": cfg.RateLimit.Requests,
		"window":   cfg.RateLimit.Window.String(),
		"redis":    cfg.Redis.Addr,
	}).Info("redis rate limiter enabled")
	return limiter, closeClient, nil
}
