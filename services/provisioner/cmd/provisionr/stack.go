package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"provisionr/pkg/bus"
	"provisionr/pkg/db"
	"provisionr/pkg/passphrase"
	"provisionr/pkg/render"
	gos3 "provisionr/pkg/s3"
	"provisionr/pkg/shacrypt"
	"provisionr/pkg/telemetry"
	"provisionr/services/provisioner"
	"provisionr/services/provisioner/internal/config"
)

// stack holds every component a command may need, built from one Config.
type stack struct {
	cfg config.Config
	log zerolog.Logger

	store     *db.Store
	bus       *bus.Bus
	s3        *gos3.Client
	templates *render.Engine
	hasher    *shacrypt.Hasher
	config    *provisioner.ConfigStore
	ledger    *provisioner.Ledger
	pipeline  *provisioner.Pipeline
	exporter  *provisioner.Exporter
}

type stackOptions struct {
	// connectBus dials NATS when NATS_URL is set.
	connectBus bool
}

// commandLogger writes console output to stderr so stdout stays usable for
// command results.
func commandLogger(cfg config.Config, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	return telemetry.NewLogger(telemetry.Config{
		ServiceName: serviceName,
		LogLevel:    cfg.LogLevel,
		LogFormat:   "console",
		Out:         w,
	})
}

func openStack(ctx context.Context, cfg config.Config, log zerolog.Logger, opts stackOptions) (_ *stack, err error) {
	s := &stack{
		cfg:    cfg,
		log:    log,
		hasher: shacrypt.New(),
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	dbCfg := cfg.DB()
	dbCfg.Logger = log
	s.store, err = db.Open(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.S3.Enabled() {
		s.s3, err = gos3.NewClient(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
	}

	if opts.connectBus && cfg.NATSURL != "" {
		s.bus, err = bus.New(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		if err := s.bus.EnsureStream(ctx); err != nil {
			return nil, err
		}
	}

	var src render.Source = render.NewDirSource(cfg.TemplatesDir)
	if cfg.TemplatesBucket != "" {
		src = &render.S3Source{Store: s.s3, Bucket: cfg.TemplatesBucket, Prefix: cfg.TemplatesPrefix}
	}
	s.templates, err = render.New(src, render.WithStrict(cfg.TemplateStrict))
	if err != nil {
		return nil, fmt.Errorf("template engine: %w", err)
	}

	configOpts := []provisioner.ConfigStoreOption{provisioner.WithConfigLogger(log)}
	ledgerOpts := []provisioner.LedgerOption{provisioner.WithLedgerLogger(log)}
	if s.bus != nil {
		configOpts = append(configOpts, provisioner.WithConfigPublisher(s.bus))
		ledgerOpts = append(ledgerOpts, provisioner.WithLedgerPublisher(s.bus))
	}

	s.config = provisioner.NewConfigStore(s.store.ORM, configOpts...)
	s.ledger = provisioner.NewLedger(s.store.ORM, passphrase.New(), ledgerOpts...)
	s.pipeline = provisioner.NewPipeline(s.config, s.ledger, s.hasher, s.templates, log)
	s.exporter = provisioner.NewExporter(s.ledger)
	return s, nil
}

func (s *stack) Close() {
	if s == nil {
		return
	}
	if s.bus != nil {
		s.bus.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close database")
		}
	}
}

// withStack loads configuration, opens the stack for one command and closes it afterwards.
func withStack(ctx context.Context, errOut io.Writer, opts stackOptions, fn func(context.Context, *stack) error) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := commandLogger(cfg, errOut)
	if err != nil {
		return err
	}
	s, err := openStack(ctx, cfg, log, opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}
