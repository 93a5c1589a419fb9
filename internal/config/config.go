package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // DISPLAY_TIMEZONE must resolve in minimal containers
)

type Config struct {
	Server    ServerConfig
	NWS       NWSConfig
	Dashboard DashboardConfig
	Worker    WorkerConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	RateLimitRPS  int
	ShutdownGrace time.Duration
}

type NWSConfig struct {
	URL             string
	UserAgent       string
	CacheTTL        time.Duration
	ZoneFallback    bool
	ZoneConcurrency int
}

type DashboardConfig struct {
	Enabled          bool
	AlertsURL        string // empty reads the in-process alert cache
	PollInterval     time.Duration
	HeadlineInterval time.Duration
	AllowOverlap     bool
	ClockInterval    time.Duration
	Timezone         string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "localhost"),
			Port:          getEnvInt("SERVER_PORT", 5000),
			RateLimitRPS:  getEnvInt("RATE_LIMIT_RPS", 20),
			ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 10*time.Second),
		},
		NWS: NWSConfig{
			URL:             getEnv("NWS_URL", "https://api.weather.gov/alerts/active"),
			UserAgent:       getEnv("NWS_USER_AGENT", "go-weather-dashboard (contact@example.com)"),
			CacheTTL:        getEnvDuration("CACHE_TTL", 60*time.Second),
			ZoneFallback:    getEnvBool("ZONE_FALLBACK", true),
			ZoneConcurrency: getEnvInt("ZONE_CONCURRENCY", 8),
		},
		Dashboard: DashboardConfig{
			Enabled:          getEnvBool("DASHBOARD_ENABLED", true),
			AlertsURL:        getEnv("DASHBOARD_ALERTS_URL", ""),
			PollInterval:     getEnvDuration("POLL_INTERVAL", 60*time.Second),
			HeadlineInterval: getEnvDuration("HEADLINE_INTERVAL", 7*time.Second),
			AllowOverlap:     getEnvBool("POLL_ALLOW_OVERLAP", false),
			ClockInterval:    getEnvDuration("CLOCK_INTERVAL", time.Second),
			Timezone:         getEnv("DISPLAY_TIMEZONE", "Local"),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 100),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/weather-dashboard.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location resolves DISPLAY_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Dashboard.Timezone)
	if err != nil {
		return nil, fmt.Errorf("error loading timezone %q: %w", c.Dashboard.Timezone, err)
	}
	return loc, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 req/s")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if _, err := url.ParseRequestURI(c.NWS.URL); err != nil {
		return fmt.Errorf("invalid NWS url: %w", err)
	}
	if c.NWS.UserAgent == "" {
		return fmt.Errorf("NWS user agent must not be empty")
	}
	if c.NWS.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must not be negative")
	}
	if c.NWS.ZoneConcurrency < 1 {
		return fmt.Errorf("zone concurrency must be at least 1")
	}

	if c.Dashboard.AlertsURL != "" {
		if _, err := url.ParseRequestURI(c.Dashboard.AlertsURL); err != nil {
			return fmt.Errorf("invalid dashboard alerts url: %w", err)
		}
	}
	if c.Dashboard.PollInterval < time.Second {
		return fmt.Errorf("poll interval must be at least 1 second")
	}
	if c.Dashboard.HeadlineInterval < 500*time.Millisecond {
		return fmt.Errorf("headline interval must be at least 500ms")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("worker buffer size must not be negative")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
