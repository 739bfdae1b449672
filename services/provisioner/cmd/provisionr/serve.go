package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"provisionr/pkg/telemetry"
	"provisionr/services/api"
	"provisionr/services/provisioner/internal/config"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and admin UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides PROVISIONR_ADDR)")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		LogLevel:     cfg.LogLevel,
		LogFormat:    cfg.LogFormat,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	log := tel.Logger

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "%s: telemetry shutdown error: %v\n", serviceName, err)
		}
	}()

	s, err := openStack(ctx, cfg, log, stackOptions{connectBus: true})
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := api.New(api.Deps{
		Renderer:   s.pipeline,
		Config:     s.config,
		Exporter:   s.exporter,
		Templates:  s.templates,
		DB:         s.store,
		Logger:     log,
		Middleware: tel.Middleware,
	}, api.Config{
		ServiceName:    serviceName,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      cfg.RateLimit,
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
	})
	if err != nil {
		return fmt.Errorf("init api: %w", err)
	}
	handler, err := a.Routes()
	if err != nil {
		return fmt.Errorf("build routes: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().
		Str("addr", server.Addr).
		Str("db_driver", cfg.DBDriver).
		Bool("nats", s.bus != nil).
		Bool("s3", s.s3 != nil).
		Msg("listening")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server failed")
		return err
	}
	return nil
}
