package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/felipepmaragno/bigboost-gateway/internal/api"
	"github.com/felipepmaragno/bigboost-gateway/internal/auth"
	"github.com/felipepmaragno/bigboost-gateway/internal/bigboost"
	"github.com/felipepmaragno/bigboost-gateway/internal/config"
	"github.com/felipepmaragno/bigboost-gateway/internal/httputil"
	"github.com/felipepmaragno/bigboost-gateway/internal/lookup"
	"github.com/felipepmaragno/bigboost-gateway/internal/metrics"
	"github.com/felipepmaragno/bigboost-gateway/internal/ratelimit"
	"github.com/felipepmaragno/bigboost-gateway/internal/secrets"
	"github.com/felipepmaragno/bigboost-gateway/internal/telemetry"
	"github.com/felipepmaragno/bigboost-gateway/internal/tools"
)

const (
	serviceName = "bigboost-gateway"
	version     = "1.0.0"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bigboost gateway stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.SecretID != "" {
		store, err := secrets.NewAWSSecretsManager(ctx, cfg.AWSRegion)
		if err != nil {
			return err
		}
		creds, err := secrets.LoadCredentials(ctx, store, cfg.SecretID)
		if err != nil {
			return fmt.Errorf("load credentials: %w", err)
		}
		cfg.AccessToken = creds.AccessToken
		cfg.TokenID = creds.TokenID
		logger.Info("credentials loaded from secrets manager", "secret_id", cfg.SecretID)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	shutdownTracer, err := telemetry.Init(ctx, serviceName, version, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	limiterCfg := ratelimit.Config{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
	}

	var (
		limiter     ratelimit.RateLimiter
		checkers    []api.HealthChecker
		limiterKind = "memory"
	)
	if cfg.RedisURL != "" {
		redisLimiter, err := ratelimit.NewRedisTokenBucket(cfg.RedisURL, limiterCfg)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisLimiter.Close()

		limiter = redisLimiter
		checkers = append(checkers, api.NewRedisHealthChecker(redisLimiter.Client()))
		limiterKind = "redis"
	} else {
		limiter = ratelimit.NewTokenBucket(limiterCfg)
	}
	logger.Info("rate limiter configured",
		"backend", limiterKind,
		"max_requests", limiterCfg.MaxRequests,
		"window", limiterCfg.Window.String(),
	)
	metrics.InitInstanceMetrics(version, limiterKind)

	client := bigboost.New(bigboost.Config{
		BaseURL:     cfg.BaseURL,
		AccessToken: cfg.AccessToken,
		TokenID:     cfg.TokenID,
		HTTPClient:  httputil.NewClient(httputil.ProviderConfig(cfg.Timeout)),
	}, limiter, logger)

	registry := tools.NewRegistry(logger)
	if err := lookup.Register(registry, client); err != nil {
		return err
	}

	server := mcp.NewServer(&mcp.Implementation{Name: serviceName, Version: version}, nil)
	registry.Install(server)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("mcp server listening on stdio", "tools", lookup.Names(), "version", version)
		if err := server.Run(gctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		logger.Info("mcp session ended")
		return nil
	})

	if cfg.APIAddr != "" {
		var authenticator *auth.APIKeyAuthenticator
		if cfg.APIKeyHash != "" {
			authenticator, err = auth.NewAPIKeyAuthenticator(cfg.APIKeyHash)
			if err != nil {
				return err
			}
		}

		srv := &http.Server{
			Addr: cfg.APIAddr,
			Handler: api.NewHandler(api.HandlerConfig{
				Registry: registry,
				Auth:     authenticator,
				Checkers: checkers,
				Version:  version,
				Logger:   logger,
			}),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2*cfg.Timeout + 10*time.Second,
			IdleTimeout:  120 * time.Second,
		}

		g.Go(func() error {
			logger.Info("http api listening", "addr", cfg.APIAddr, "auth", authenticator != nil)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http api: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down http api...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// setupLogger writes JSON to stderr; stdout belongs to the MCP transport.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler).With("service", serviceName)
	slog.SetDefault(logger)
	return logger
}
