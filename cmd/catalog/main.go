package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ProductCatalog/internal/catalog"
	"ProductCatalog/internal/config"
	"ProductCatalog/pkg/kit"
)

const service = "catalog"

func main() {
	cfg, err := config.LoadCatalog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	s := &catalog.Server{
		Store: catalog.NewStore(),
		Log:   log,
	}

	if cfg.RateLimitEnabled {
		backend, closeFn, err := rateLimitBackend(cfg, log)
		if err != nil {
			log.Fatal("init rate limiter failed", zap.Error(err))
		}
		defer closeFn()
		s.RateLimit = &kit.RateLimiter{Backend: backend, Log: log}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		CORSOrigin:     cfg.CORSOrigin,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	srv := kit.NewHTTPServer(cfg.Addr(), h)
	if err := kit.RunHTTPServer(context.Background(), srv, log, cfg.ShutdownTimeout); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func rateLimitBackend(cfg config.Catalog, log *zap.Logger) (kit.WindowLimiter, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("rate limiting with in-memory window",
			zap.Int("limit", cfg.RateLimitReqs), zap.Duration("window", cfg.RateLimitWindow))
		return kit.NewMemoryWindow(cfg.RateLimitReqs, cfg.RateLimitWindow), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}

	log.Info("rate limiting with redis window",
		zap.String("redis_addr", cfg.RedisAddr),
		zap.Int("limit", cfg.RateLimitReqs), zap.Duration("window", cfg.RateLimitWindow))
	return kit.NewRedisWindow(client, cfg.RateLimitReqs, cfg.RateLimitWindow), func() { _ = client.Close() }, nil
}
