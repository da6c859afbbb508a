package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (GATE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string        `usage:"PostgreSQL connection URL (GATE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL     string        `usage:"Redis connection URL for cart sessions (GATE_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	CartTTL      time.Duration `default:"72h" usage:"Cart session lifetime" flag:"cart-ttl"`
	Locale       string        `default:"en" usage:"Locale for shopper-facing restriction messages"`
	CouponReload time.Duration `default:"1m" usage:"Coupon code filter rebuild interval (0 disables)" flag:"coupon-reload"`
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "GATE",
		Files:     []string{"config.yaml", "/etc/coupon-gate/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set GATE_DATABASE_URL or DATABASE_URL")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("redis URL is required: set GATE_REDIS_URL or REDIS_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps standard platform environment variables
// (DATABASE_URL, REDIS_URL, PORT) onto the GATE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
