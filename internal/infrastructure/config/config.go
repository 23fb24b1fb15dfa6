package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	APIBase        string        `env:"PORTAL_API_BASE,        default=http://localhost:8080/api"`
	NewsLimit      int           `env:"PORTAL_NEWS_LIMIT,      default=3"`
	ProfileCache   int           `env:"PORTAL_PROFILE_CACHE,   default=64"`
	RequestTimeout time.Duration `env:"PORTAL_REQUEST_TIMEOUT, default=10s"`
	LogLevel       string        `env:"LOG_LEVEL,              default=info"`
	LogPretty      bool          `env:"LOG_PRETTY,             default=false"`

	// SessionCookie seeds the cookie jar, as "name=value; name2=value2".
	SessionCookie string `env:"PORTAL_SESSION_COOKIE"`

	Redis   RedisConfig
	Inspect InspectConfig
}

type RedisConfig struct {
	// Addr empty disables the snapshot mirror.
	Addr        string        `env:"REDIS_ADDR"`
	DB          int           `env:"REDIS_DB,     default=0"`
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL, default=10m"`
}

type InspectConfig struct {
	Addr   string `env:"INSPECT_ADDR,   default=127.0.0.1:9090"`
	Secret string `env:"INSPECT_SECRET"`
}

// BaseURL is the API root every endpoint path is joined to.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.APIBase, "/")
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.NewsLimit <= 0 {
		return nil, fmt.Errorf("load config: PORTAL_NEWS_LIMIT must be positive, got %d", cfg.NewsLimit)
	}
	return &cfg, nil
}
