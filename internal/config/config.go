// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Common struct {
	Port            string        `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	MetricsEnabled  bool          `mapstructure:"metrics_enabled"`
	MetricsToken    string        `mapstructure:"metrics_token"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Catalog struct {
	Common `mapstructure:",squash"`

	CORSOrigin       string        `mapstructure:"cors_origin"`
	RateLimitEnabled bool          `mapstructure:"rate_limit_enabled"`
	RateLimitReqs    int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window"`
	RedisAddr        string        `mapstructure:"redis_addr"`
}

type Gateway struct {
	Common `mapstructure:",squash"`

	CatalogURL string `mapstructure:"catalog_url"`
}

// Addr binds to all interfaces.
func (c Common) Addr() string {
	return "0.0.0.0:" + c.Port
}

func commonDefaults(port string) map[string]any {
	return map[string]any{
		"port":             port,
		"log_level":        "info",
		"metrics_enabled":  true,
		"metrics_token":    "",
		"shutdown_timeout": 10 * time.Second,
	}
}

func LoadCatalog(envFiles ...string) (Catalog, error) {
	defaults := commonDefaults("8080")
	defaults["cors_origin"] = "http://localhost:4200"
	defaults["rate_limit_enabled"] = false
	defaults["rate_limit_requests"] = 60
	defaults["rate_limit_window"] = time.Minute
	defaults["redis_addr"] = ""

	var cfg Catalog
	if err := load(defaults, &cfg, envFiles); err != nil {
		return Catalog{}, err
	}
	if cfg.RateLimitEnabled && cfg.RateLimitReqs <= 0 {
		return Catalog{}, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", cfg.RateLimitReqs)
	}
	if cfg.RateLimitEnabled && cfg.RateLimitWindow <= 0 {
		return Catalog{}, fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", cfg.RateLimitWindow)
	}
	return cfg, nil
}

func LoadGateway(envFiles ...string) (Gateway, error) {
	defaults := commonDefaults("4200")
	defaults["catalog_url"] = "http://localhost:8080"

	var cfg Gateway
	if err := load(defaults, &cfg, envFiles); err != nil {
		return Gateway{}, err
	}
	if cfg.CatalogURL == "" {
		return Gateway{}, fmt.Errorf("CATALOG_URL is required")
	}
	return cfg, nil
}

func load(defaults map[string]any, out any, envFiles []string) error {
	// Missing .env files are fine; real environment variables always win.
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
