package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"provisionr/services/provisioner"
)

// Renderer produces installer configuration for a machine.
type Renderer interface {
	Render(ctx context.Context, id provisioner.Identity, templateName string, vars map[string]string) (string, error)
}

// ConfigService reads and replaces the global configuration.
type ConfigService interface {
	Read(ctx context.Context) (provisioner.GlobalConfig, error)
	Write(ctx context.Context, cfg provisioner.GlobalConfig) (provisioner.GlobalConfig, error)
}

// Exporter writes the credential ledger as CSV.
type Exporter interface {
	WriteCSV(ctx context.Context, w io.Writer) (int, error)
}

// Templates manages stored template bodies.
type Templates interface {
	Names(ctx context.Context) ([]string, error)
	Lookup(ctx context.Context, name string) (string, error)
	Save(ctx context.Context, name, body string) error
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the collaborators the handlers delegate to.
type Deps struct {
	Renderer  Renderer
	Config    ConfigService
	Exporter  Exporter
	Templates Templates
	DB        Pinger
	Logger    zerolog.Logger
	// Middleware wraps the whole router, typically telemetry.Middleware.
	Middleware func(http.Handler) http.Handler
}

// Config controls runtime behaviour for the API handlers.
type Config struct {
	ServiceName    string
	RequestTimeout time.Duration
	RateLimit      int
	AllowedOrigins []string
	StaticDir      string
	MaxUploadBytes int64
}

const (
	defaultRequestTimeout = 60 * time.Second
	defaultRateLimit      = 100
	defaultMaxUpload      = 1 << 20
	defaultServiceName    = "provisionr"
)

// API wires dependencies and configuration for HTTP handlers.
type API struct {
	deps   Deps
	config Config
	log    zerolog.Logger
}

// New initialises the API layer with sane defaults applied to the provided configuration.
func New(deps Deps, cfg Config) (*API, error) {
	if deps.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if deps.Config == nil {
		return nil, errors.New("config service is required")
	}
	if deps.Exporter == nil {
		return nil, errors.New("exporter is required")
	}
	if deps.Templates == nil {
		return nil, errors.New("templates are required")
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}

	return &API{
		deps:   deps,
		config: cfg,
		log:    deps.Logger.With().Str("component", "api").Logger(),
	}, nil
}
