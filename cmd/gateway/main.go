package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ProductCatalog/internal/config"
	"ProductCatalog/internal/gateway"
	"ProductCatalog/pkg/kit"
)

const service = "gateway"

func main() {
	cfg, err := config.LoadGateway()
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h, err := gateway.NewHandler(gateway.Deps{CatalogURL: cfg.CatalogURL}, gateway.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})
	if err != nil {
		log.Fatal("init gateway handler failed", zap.Error(err))
	}

	log.Info("proxying /api", zap.String("catalog_url", cfg.CatalogURL))

	srv := kit.NewHTTPServer(cfg.Addr(), h)
	if err := kit.RunHTTPServer(context.Background(), srv, log, cfg.ShutdownTimeout); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
