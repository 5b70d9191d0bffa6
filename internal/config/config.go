package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jengzang/location-tracker/internal/models"
	"github.com/jengzang/location-tracker/internal/notification"
)

// Provider kinds
const (
	ProviderSimulated = "simulated"
	ProviderReplay    = "replay"
	ProviderPush      = "push"
)

// GeocodeConfig configures the reverse geocoder and its cache
type GeocodeConfig struct {
	APIKey     string  `yaml:"apiKey"`
	BaseURL    string  `yaml:"baseUrl" validate:"required,url"`
	TimeoutMS  int     `yaml:"timeoutMs" validate:"gt=0"`
	CacheCellM float64 `yaml:"cacheCellMeters" validate:"gte=0"`
	CacheSize  int     `yaml:"cacheSize" validate:"gte=0"`
	CacheTTL   string  `yaml:"cacheTtl"`
}

// Timeout returns the request timeout as a duration
func (g GeocodeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutMS) * time.Millisecond
}

// TTL returns the cache entry lifetime, 0 if unset
func (g GeocodeConfig) TTL() time.Duration {
	d, _ := time.ParseDuration(g.CacheTTL)
	return d
}

// SimulationConfig configures the simulated provider
type SimulationConfig struct {
	OriginLat  float64 `yaml:"originLat" validate:"gte=-90,lte=90"`
	OriginLng  float64 `yaml:"originLng" validate:"gte=-180,lte=180"`
	StepMeters float64 `yaml:"stepMeters" validate:"gt=0"`
	Seed       int64   `yaml:"seed"`
}

// RateLimitConfig bounds control requests per client IP
type RateLimitConfig struct {
	Requests int `yaml:"requests" validate:"gte=0"`
	WindowS  int `yaml:"windowSeconds" validate:"gte=0"`
}

// Config 应用配置
type Config struct {
	Port         string                `yaml:"port" validate:"required"`
	DBPath       string                `yaml:"dbPath"`
	JWTSecret    string                `yaml:"jwtSecret"`
	Provider     string                `yaml:"provider" validate:"oneof=simulated replay push"`
	ReplayLoop   bool                  `yaml:"replayLoop"`
	HistorySize  int                   `yaml:"historySize" validate:"gte=1"`
	Geocode      GeocodeConfig         `yaml:"geocode"`
	Simulation   SimulationConfig      `yaml:"simulation"`
	Tracking     models.TrackingConfig `yaml:"tracking"`
	RateLimit    RateLimitConfig       `yaml:"rateLimit"`
	Notification notification.Settings `yaml:"notification"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:        ":8080",
		DBPath:      "./data/tracks/tracks.db",
		Provider:    ProviderSimulated,
		HistorySize: 10,
		Geocode: GeocodeConfig{
			BaseURL:    "https://maps.googleapis.com",
			TimeoutMS:  10000,
			CacheCellM: 20,
			CacheSize:  1024,
			CacheTTL:   "10m",
		},
		Simulation: SimulationConfig{
			OriginLat:  37.7749,
			OriginLng:  -122.4194,
			StepMeters: 15,
			Seed:       1,
		},
		Tracking:     models.DefaultTrackingConfig(),
		RateLimit:    RateLimitConfig{Requests: 30, WindowS: 60},
		Notification: notification.DefaultSettings(),
	}
}

// Load 加载配置: defaults, then the YAML file at CONFIG_PATH (or ./config.yml), then environment
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yml"
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path; a missing file is not an error
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Geocode.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Geocode.CacheTTL); err != nil {
			return fmt.Errorf("invalid configuration: geocode.cacheTtl: %w", err)
		}
	}
	return nil
}

// RateWindow returns the rate-limit window as a duration
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowS) * time.Second
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.Provider, "LOCATION_PROVIDER")
	setString(&c.Geocode.APIKey, "GOOGLE_MAPS_API_KEY")
	setString(&c.Geocode.BaseURL, "GEOCODE_BASE_URL")

	if v := os.Getenv("GEOCODE_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GEOCODE_TIMEOUT_MS: %w", err)
		}
		c.Geocode.TimeoutMS = ms
	}
	if v := os.Getenv("REPLAY_LOOP"); v != "" {
		loop, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid REPLAY_LOOP: %w", err)
		}
		c.ReplayLoop = loop
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
