package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todolist/internal/api"
	"todolist/internal/config"
	"todolist/internal/database"
	"todolist/internal/domain"
	"todolist/internal/limiter"
	"todolist/internal/logging"
	"todolist/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultConfigPath = "configs/config.yaml"
	bootstrapTimeout  = 30 * time.Second
)

// app owns every long-lived resource of the API process.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	db      *database.DB
	redis   *redis.Client
	http    *api.HTTPServer
	grpc    *api.GRPCServer
	metrics *http.Server
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	base, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, base)
	if err != nil {
		// Nothing is listening yet; a failed bootstrap ends the process.
		base.Error().Err(err).Msg("startup failed")
		return 1
	}
	defer a.close()

	if err := a.serve(ctx); err != nil {
		a.log.Error().Err(err).Msg("server stopped unexpectedly")
		return 1
	}
	return 0
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func newApp(ctx context.Context, cfg *config.Config, base *zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: logging.Component(base, "api-main")}

	bootCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	db, err := database.Open(bootCtx, cfg.Database, base)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	a.db = db

	a.redis = a.connectRedis(ctx)
	a.http = api.NewHTTPServer(&cfg.API, db, a.rateLimiter(base), base)

	if cfg.API.GRPC.Enabled {
		a.grpc, err = api.NewGRPCServer(&cfg.API, db, base)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metrics = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return a, nil
}

// connectRedis returns nil when Redis is not configured or not reachable;
// rate limiting then stays in process.
func (a *app) connectRedis(ctx context.Context) *redis.Client {
	if a.cfg.Redis.Address == "" || a.cfg.API.RateLimit.RPS <= 0 {
		return nil
	}

	client := limiter.NewRedisClient(a.cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := limiter.Ping(pingCtx, client); err != nil {
		a.log.Warn().Err(err).Msg("redis unavailable, using in-memory rate limiting")
		_ = client.Close()
		return nil
	}

	a.log.Info().Str("addr", a.cfg.Redis.Address).Msg("redis connected")
	return client
}

func (a *app) rateLimiter(base *zerolog.Logger) domain.RateLimiter {
	rl := a.cfg.API.RateLimit
	if rl.RPS <= 0 {
		return nil
	}

	memory := limiter.NewMemoryLimiter(rl.RPS, rl.Burst)
	if a.redis == nil {
		return memory
	}
	limiterLog := logging.Component(base, "limiter")
	return limiter.NewFailoverLimiter(limiter.NewRedisLimiter(a.redis, rl.RPS, rl.Burst), memory, &limiterLog)
}

// serve blocks until ctx is cancelled or a listener fails, then drains all
// servers within the configured shutdown timeout.
func (a *app) serve(ctx context.Context) error {
	errCh := make(chan error, 3)

	go func() {
		if err := a.http.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if a.grpc != nil {
		go func() {
			if err := a.grpc.Serve(); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}
	if a.metrics != nil {
		go func() {
			a.log.Info().Str("addr", a.metrics.Addr).Msg("metrics listening")
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.API.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("http shutdown")
	}
	if a.grpc != nil {
		a.grpc.Shutdown(shutdownCtx)
	}
	if a.metrics != nil {
		_ = a.metrics.Shutdown(shutdownCtx)
	}

	a.log.Info().Msg("API server stopped")
	return serveErr
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
