package app

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the gateway, worker and CLI.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	FieldAPIBaseURL string        `envconfig:"FIELD_API_BASE_URL" required:"true"`
	FieldAPIToken   string        `envconfig:"FIELD_API_TOKEN"`
	FieldAPITimeout time.Duration `envconfig:"FIELD_API_TIMEOUT" default:"15s"`

	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"10m"`
	IdempotencyTTL  time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	// PGDSN enables the action journal when set.
	PGDSN string `envconfig:"PG_DSN"`

	CatalogWarmupProjects []string `envconfig:"CATALOG_WARMUP_PROJECTS"`
	CatalogWarmupCron     string   `envconfig:"CATALOG_WARMUP_CRON" default:"@every 30m"`

	RateLimitPerMin int `envconfig:"RATE_LIMIT_PER_MIN" default:"120"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.FieldAPIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.FieldAPIBaseURL), "/")
	if cfg.FieldAPIBaseURL == "" {
		return nil, errors.New("field api base url must be provided")
	}
	if cfg.RateLimitPerMin <= 0 {
		return nil, errors.New("rate limit must be positive")
	}
	projects := cfg.CatalogWarmupProjects[:0]
	for _, id := range cfg.CatalogWarmupProjects {
		if id = strings.TrimSpace(id); id != "" {
			projects = append(projects, id)
		}
	}
	cfg.CatalogWarmupProjects = projects
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// JournalEnabled reports whether a Postgres DSN was configured.
func (c *Config) JournalEnabled() bool {
	return c != nil && strings.TrimSpace(c.PGDSN) != ""
}
