package s3

import (
	"context"
	"testing"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		endpoint   string
		disableTLS bool
		want       string
	}{
		{name: "bare host", endpoint: "seaweed:8333", want: "https://seaweed:8333"},
		{name: "bare host without tls", endpoint: "seaweed:8333", disableTLS: true, want: "http://seaweed:8333"},
		{name: "full url kept", endpoint: "http://minio:9000", want: "http://minio:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeEndpoint(tt.endpoint, tt.disableTLS); got != tt.want {
				t.Fatalf("normalizeEndpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeSHA256(t *testing.T) {
	got, err := encodeSHA256("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")
	if err != nil {
		t.Fatalf("encodeSHA256() error = %v", err)
	}
	if want := "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU="; got != want {
		t.Fatalf("encodeSHA256() = %q, want %q", got, want)
	}
	if _, err := encodeSHA256(""); err == nil {
		t.Fatalf("encodeSHA256(\"\") error = nil")
	}
	if _, err := encodeSHA256("zz"); err == nil {
		t.Fatalf("encodeSHA256(\"zz\") error = nil")
	}
}

func TestNewClientRequiresSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "no endpoint", cfg: Config{AccessKey: "a", SecretKey: "b"}},
		{name: "no credentials", cfg: Config{Endpoint: "localhost:8333"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(context.Background(), tt.cfg); err == nil {
				t.Fatalf("NewClient() error = nil")
			}
		})
	}
	if (Config{}).Enabled() {
		t.Fatalf("empty config reported enabled")
	}
}
