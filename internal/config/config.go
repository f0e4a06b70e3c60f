package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Provider ProviderConfig `yaml:"provider"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Audit    AuditConfig    `yaml:"audit"`
}

// AppConfig holds HTTP server and admin settings
type AppConfig struct {
	Name          string `yaml:"name"`
	Addr          string `yaml:"addr"`
	AdminToken    string `yaml:"admin_token"`
	PublicBaseURL string `yaml:"public_base_url"`
	LogLevel      string `yaml:"log_level"`
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ProviderConfig holds the Africa's Talking SMS gateway settings.
// An empty APIKey yields a gateway that deterministically fails every
// send; DryRun short-circuits the provider entirely and fabricates
// references (useful for local runs and demos).
type ProviderConfig struct {
	Username       string `yaml:"username"`
	APIKey         string `yaml:"api_key"`
	SenderID       string `yaml:"sender_id"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	DryRun         bool   `yaml:"dry_run"`
}

// Timeout returns the configured timeout as a duration
func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DispatchConfig holds the queue-draining settings. RatePerTick and
// DailyCapPerContact are clamped to sane ranges on load.
type DispatchConfig struct {
	RatePerTick        int    `yaml:"rate_per_tick"`
	DailyCapPerContact int    `yaml:"daily_cap_per_contact"`
	TickPeriodSeconds  int    `yaml:"tick_period_seconds"`
	Timezone           string `yaml:"timezone"`
}

// TickPeriod returns the dispatch period as a duration
func (c DispatchConfig) TickPeriod() time.Duration {
	return time.Duration(c.TickPeriodSeconds) * time.Second
}

// Location returns the reference time zone for the daily cap. Falls back
// to UTC when the configured name is empty or unknown.
func (c DispatchConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AuditConfig holds the audit sink transport. An empty AMQPURL keeps the
// in-process queue.
type AuditConfig struct {
	AMQPURL string `yaml:"amqp_url"`
}

// Load reads and parses the configuration file. A missing file is not an
// error; defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.App.Name == "" {
		cfg.App.Name = "SMS Dashboard"
	}
	if cfg.App.Addr == "" {
		cfg.App.Addr = ":8080"
	}
	if cfg.App.AdminToken == "" {
		cfg.App.AdminToken = "change_me_now"
	}
	if cfg.App.PublicBaseURL == "" {
		cfg.App.PublicBaseURL = "http://127.0.0.1:8080"
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Provider.Username == "" {
		cfg.Provider.Username = "sandbox"
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.africastalking.com"
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 15
	}
	if cfg.Dispatch.RatePerTick == 0 {
		cfg.Dispatch.RatePerTick = 2
	}
	if cfg.Dispatch.DailyCapPerContact == 0 {
		cfg.Dispatch.DailyCapPerContact = 3
	}
	if cfg.Dispatch.TickPeriodSeconds == 0 {
		cfg.Dispatch.TickPeriodSeconds = 1
	}

	cfg.clampDispatch()

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if v := os.Getenv("APP_NAME"); v != "" {
		cfg.App.Name = v
	}
	if v := os.Getenv("APP_ADDR"); v != "" {
		cfg.App.Addr = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.App.AdminToken = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.App.PublicBaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("AT_USERNAME"); v != "" {
		cfg.Provider.Username = v
	}
	if v := os.Getenv("AT_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("AT_SENDER_ID"); v != "" {
		cfg.Provider.SenderID = v
	}
	if v := os.Getenv("AT_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("SMS_DRY_RUN"); v != "" {
		cfg.Provider.DryRun = v == "1" || v == "true"
	}
	if n, ok := intEnv("SEND_PER_TICK"); ok {
		cfg.Dispatch.RatePerTick = n
	}
	if n, ok := intEnv("MAX_DAILY_PER_CONTACT"); ok {
		cfg.Dispatch.DailyCapPerContact = n
	}
	if n, ok := intEnv("TICK_PERIOD_SECONDS"); ok {
		cfg.Dispatch.TickPeriodSeconds = n
	}
	if v := os.Getenv("DISPATCH_TIMEZONE"); v != "" {
		cfg.Dispatch.Timezone = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.Audit.AMQPURL = v
	}

	cfg.clampDispatch()

	return cfg, nil
}

func (c *Config) clampDispatch() {
	c.Dispatch.RatePerTick = clamp(c.Dispatch.RatePerTick, 1, 30)
	c.Dispatch.DailyCapPerContact = clamp(c.Dispatch.DailyCapPerContact, 1, 20)
	if c.Dispatch.TickPeriodSeconds < 1 {
		c.Dispatch.TickPeriodSeconds = 1
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func intEnv(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
