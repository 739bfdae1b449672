package config

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Addr != ":8000" || cfg.DBDriver != "sqlite" || cfg.DBDSN != "provisionr.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RequestTimeout != 60*time.Second || cfg.RateLimit != 100 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TemplatesDir != "templates" || cfg.TemplatesPrefix != "templates/" || cfg.TemplateStrict {
		t.Fatalf("unexpected template defaults: %+v", cfg)
	}
	if cfg.S3.Region != "us-east-1" || !cfg.S3.ForcePathStyle || cfg.S3.Enabled() {
		t.Fatalf("unexpected s3 defaults: %+v", cfg.S3)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, cfg Config)
		wantErr bool
	}{
		{
			name: "postgres with origins",
			env: map[string]string{
				"PROVISIONR_DB_DRIVER":       "Postgres",
				"PROVISIONR_DB_DSN":          "postgres://provisionr@db/provisionr",
				"CORS_ALLOWED_ORIGINS":       "http://a.example,http://b.example",
				"PROVISIONR_REQUEST_TIMEOUT": "15s",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.DBDriver != "postgres" {
					t.Fatalf("DBDriver = %q", cfg.DBDriver)
				}
				if want := []string{"http://a.example", "http://b.example"}; !reflect.DeepEqual(cfg.AllowedOrigins, want) {
					t.Fatalf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
				}
				if cfg.RequestTimeout != 15*time.Second {
					t.Fatalf("RequestTimeout = %s", cfg.RequestTimeout)
				}
				if got := cfg.DB(); got.Driver != "postgres" || got.DSN != "postgres://provisionr@db/provisionr" {
					t.Fatalf("DB() = %+v", got)
				}
			},
		},
		{
			name: "s3 templates",
			env: map[string]string{
				"PROVISIONR_TEMPLATES_BUCKET": "ks",
				"S3_ENDPOINT":                 "seaweed:8333",
				"S3_ACCESS_KEY":               "a",
				"S3_SECRET_KEY":               "b",
			},
			check: func(t *testing.T, cfg Config) {
				if !cfg.S3.Enabled() || cfg.S3.Endpoint != "seaweed:8333" {
					t.Fatalf("S3 = %+v", cfg.S3)
				}
			},
		},
		{name: "unknown driver", env: map[string]string{"PROVISIONR_DB_DRIVER": "mysql"}, wantErr: true},
		{name: "bucket without endpoint", env: map[string]string{"PROVISIONR_TEMPLATES_BUCKET": "ks"}, wantErr: true},
		{name: "zero rate", env: map[string]string{"PROVISIONR_RATE_LIMIT": "0"}, wantErr: true},
		{name: "bad duration", env: map[string]string{"PROVISIONR_REQUEST_TIMEOUT": "soon"}, wantErr: true},
		{name: "bad log format", env: map[string]string{"PROVISIONR_LOG_FORMAT": "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load(context.Background(), envconfig.MapLookuper(tt.env))
			if (err != nil) != tt.wantErr {
				t.Fatalf("load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
