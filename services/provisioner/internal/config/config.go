package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"provisionr/pkg/db"
	gos3 "provisionr/pkg/s3"
)

// Config holds runtime configuration for the provisionr service and CLI.
type Config struct {
	Addr           string        `env:"PROVISIONR_ADDR,default=:8000"`
	DBDriver       string        `env:"PROVISIONR_DB_DRIVER,default=sqlite"`
	DBDSN          string        `env:"PROVISIONR_DB_DSN,default=provisionr.db"`
	RequestTimeout time.Duration `env:"PROVISIONR_REQUEST_TIMEOUT,default=60s"`
	RateLimit      int           `env:"PROVISIONR_RATE_LIMIT,default=100"`
	StaticDir      string        `env:"PROVISIONR_STATIC_DIR"`

	TemplatesDir    string `env:"PROVISIONR_TEMPLATES_DIR,default=templates"`
	TemplatesBucket string `env:"PROVISIONR_TEMPLATES_BUCKET"`
	TemplatesPrefix string `env:"PROVISIONR_TEMPLATES_PREFIX,default=templates/"`
	TemplateStrict  bool   `env:"PROVISIONR_TEMPLATE_STRICT,default=false"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
	NATSURL        string   `env:"NATS_URL"`
	OTLPEndpoint   string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel       string   `env:"LOG_LEVEL,default=info"`
	LogFormat      string   `env:"PROVISIONR_LOG_FORMAT,default=json"`

	ExportBucket string `env:"S3_BUCKET"`
	S3           gos3.Config
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		return fmt.Errorf("invalid PROVISIONR_DB_DRIVER: %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("PROVISIONR_DB_DSN is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid PROVISIONR_REQUEST_TIMEOUT: %s", c.RequestTimeout)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("invalid PROVISIONR_RATE_LIMIT: %d", c.RateLimit)
	}
	if c.TemplatesBucket != "" && !c.S3.Enabled() {
		return fmt.Errorf("PROVISIONR_TEMPLATES_BUCKET requires S3_ENDPOINT")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid PROVISIONR_LOG_FORMAT: %q", c.LogFormat)
	}
	return nil
}

// DB returns the database settings.
func (c Config) DB() db.Config {
	return db.Config{Driver: c.DBDriver, DSN: c.DBDSN}
}
