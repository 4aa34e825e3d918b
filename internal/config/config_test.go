package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "time/tzdata"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "timezone: Europe/London\nredis:\n  address: localhost:6379\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Timezone != "Europe/London" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.RefreshInterval != 60*time.Second || cfg.ElapsedInterval != 10*time.Second {
		t.Errorf("intervals = %s/%s", cfg.RefreshInterval, cfg.ElapsedInterval)
	}
	if cfg.Redis.Address != "localhost:6379" || cfg.Redis.RouteTTL != 24*time.Hour {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Listen != "127.0.0.1:8088" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
timezone: America/Chicago
refresh_interval: 30s
elapsed_interval: 5s
routes_interval: 12h
favorites_file: /tmp/favorites.toml
listen: ""
train:
  base_url: http://localhost:9001
bus:
  base_url: http://localhost:9002
bike:
  base_url: http://localhost:9003/gbfs/en
redis:
  address: redis:6379
  db: 2
  route_ttl: 1h
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.RefreshInterval != 30*time.Second || cfg.RoutesInterval != 12*time.Hour {
		t.Errorf("intervals = %s/%s", cfg.RefreshInterval, cfg.RoutesInterval)
	}
	if cfg.Listen != "" {
		t.Errorf("Listen = %q, want disabled", cfg.Listen)
	}
	if cfg.Bike.BaseURL != "http://localhost:9003/gbfs/en" {
		t.Errorf("Bike.BaseURL = %q", cfg.Bike.BaseURL)
	}
	if cfg.Redis.DB != 2 || cfg.Redis.RouteTTL != time.Hour {
		t.Errorf("redis = %+v", cfg.Redis)
	}

	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/Chicago" {
		t.Errorf("Location = %v, %v", loc, err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"timezone", "timezone: Mars/Olympus\n", "invalid timezone"},
		{"interval", "refresh_interval: 0s\n", "refresh_interval"},
		{"base url", "train:\n  base_url: ftp://example.com\n", "train: invalid base_url"},
		{"listen", "listen: nowhere\n", "listen"},
		{"yaml", "timezone: [\n", "parsing config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("TRAIN_API_KEY", "train-key")
	t.Setenv("BUS_API_KEY", "")
	t.Setenv("PUSHOVER_TOKEN", "")
	t.Setenv("PUSHOVER_USER", "")

	if _, err := CredentialsFromEnv(); err == nil {
		t.Fatal("expected error without BUS_API_KEY")
	}

	t.Setenv("BUS_API_KEY", "bus-key")
	creds, err := CredentialsFromEnv()
	if err != nil {
		t.Fatalf("CredentialsFromEnv: %v", err)
	}
	if creds.TrainAPIKey != "train-key" || creds.BusAPIKey != "bus-key" {
		t.Fatalf("creds = %+v", creds)
	}
	if creds.AlertsEnabled() {
		t.Fatal("alerts enabled without pushover credentials")
	}

	t.Setenv("PUSHOVER_TOKEN", "token")
	t.Setenv("PUSHOVER_USER", "user")
	creds, _ = CredentialsFromEnv()
	if !creds.AlertsEnabled() {
		t.Fatal("alerts disabled with pushover credentials")
	}
}
