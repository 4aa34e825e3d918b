package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type SourceConfig struct {
	BaseURL string `yaml:"base_url"` // empty uses the public endpoint
}

type RedisConfig struct {
	Address  string        `yaml:"address"` // empty disables the route cache
	DB       int           `yaml:"db"`
	RouteTTL time.Duration `yaml:"route_ttl"`
}

type Config struct {
	Timezone        string        `yaml:"timezone"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	ElapsedInterval time.Duration `yaml:"elapsed_interval"`
	RoutesInterval  time.Duration `yaml:"routes_interval"`
	FavoritesFile   string        `yaml:"favorites_file"`
	Listen          string        `yaml:"listen"` // empty disables the HTTP server

	Train SourceConfig `yaml:"train"`
	Bus   SourceConfig `yaml:"bus"`
	Bike  SourceConfig `yaml:"bike"`

	Redis RedisConfig `yaml:"redis"`
}

func Default() *Config {
	return &Config{
		Timezone:        "America/Chicago",
		RefreshInterval: 60 * time.Second,
		ElapsedInterval: 10 * time.Second,
		RoutesInterval:  24 * time.Hour,
		FavoritesFile:   "~/.config/transitpal/favorites.toml",
		Listen:          "127.0.0.1:8088",
		Redis: RedisConfig{
			RouteTTL: 24 * time.Hour,
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}

	for name, d := range map[string]time.Duration{
		"refresh_interval": c.RefreshInterval,
		"elapsed_interval": c.ElapsedInterval,
		"routes_interval":  c.RoutesInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	for name, src := range map[string]SourceConfig{"train": c.Train, "bus": c.Bus, "bike": c.Bike} {
		if src.BaseURL == "" {
			continue
		}
		u, err := url.Parse(src.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s: invalid base_url %q", name, src.BaseURL)
		}
	}

	if c.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Listen); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	if c.Redis.Address != "" && c.Redis.RouteTTL <= 0 {
		return fmt.Errorf("redis: route_ttl must be positive, got %s", c.Redis.RouteTTL)
	}

	return nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Credentials are read from the environment, never from the config file.
type Credentials struct {
	TrainAPIKey   string
	BusAPIKey     string
	PushoverToken string
	PushoverUser  string
	SentryDSN     string
	RedisPassword string
}

func CredentialsFromEnv() (Credentials, error) {
	c := Credentials{
		TrainAPIKey:   os.Getenv("TRAIN_API_KEY"),
		BusAPIKey:     os.Getenv("BUS_API_KEY"),
		PushoverToken: os.Getenv("PUSHOVER_TOKEN"),
		PushoverUser:  os.Getenv("PUSHOVER_USER"),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}

	if c.TrainAPIKey == "" || c.BusAPIKey == "" {
		return c, errors.New("TRAIN_API_KEY and BUS_API_KEY environment variables are required")
	}

	return c, nil
}

// AlertsEnabled reports whether both Pushover credentials are set.
func (c Credentials) AlertsEnabled() bool {
	return c.PushoverToken != "" && c.PushoverUser != ""
}
