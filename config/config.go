package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
	Matchmaking   MatchmakingConfig   `yaml:"matchmaking"`
	Dispatch      DispatchConfig      `yaml:"dispatch"`
	Logs          LogsConfig          `yaml:"logs"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL      string `yaml:"url"`
	NKeySeed string `yaml:"nkey_seed"`
	Stream   string `yaml:"stream"`
}

// HTTPConfig holds the public API settings.
type HTTPConfig struct {
	Address   string  `yaml:"address"`
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
	MetricsAddress string `yaml:"metrics_address"`
}

// MatchmakingConfig controls the queue matchmaker.
type MatchmakingConfig struct {
	Interval time.Duration `yaml:"interval"`
	LockID   int64         `yaml:"lock_id"`
	// Driver is "river" or "ticker".
	Driver string `yaml:"driver"`
	// Lock is "advisory" (Postgres, shared by every instance) or "local"
	// (in-process, single instance only).
	Lock string `yaml:"lock"`
	// Seed makes matchmaking reproducible. 0 seeds from the clock.
	Seed uint64 `yaml:"seed"`
}

// DispatchConfig controls how started matches reach the game runner.
type DispatchConfig struct {
	// Mode is "live" or "synthetic".
	Mode        string        `yaml:"mode"`
	GameImage   string        `yaml:"game_image"`
	BotImage    string        `yaml:"bot_image"`
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

// LogsConfig points at the service storing game container logs.
type LogsConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

const (
	DriverRiver  = "river"
	DriverTicker = "ticker"

	LockAdvisory = "advisory"
	LockLocal    = "local"

	DispatchLive      = "live"
	DispatchSynthetic = "synthetic"
)

// LoadConfig loads the configuration from a YAML file. Environment variables
// override file values. Without a readable file the configuration comes from
// the environment alone.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	cfg.NATS.URL = os.Getenv("NATS_URL")
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_NKEY_SEED"); v != "" {
		cfg.NATS.NKeySeed = v
	}
	if v := os.Getenv("NATS_STREAM"); v != "" {
		cfg.NATS.Stream = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid HTTP_RATE_LIMIT value: %w", err)
		}
		cfg.HTTP.RateLimit = f
	}
	if v := os.Getenv("HTTP_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_RATE_BURST value: %w", err)
		}
		cfg.HTTP.RateBurst = n
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("MATCHMAKING_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MATCHMAKING_INTERVAL value: %w", err)
		}
		cfg.Matchmaking.Interval = d
	}
	if v := os.Getenv("MATCHMAKING_LOCK_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MATCHMAKING_LOCK_ID value: %w", err)
		}
		cfg.Matchmaking.LockID = n
	}
	if v := os.Getenv("MATCHMAKING_DRIVER"); v != "" {
		cfg.Matchmaking.Driver = v
	}
	if v := os.Getenv("MATCHMAKING_LOCK"); v != "" {
		cfg.Matchmaking.Lock = v
	}
	if v := os.Getenv("MATCHMAKING_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MATCHMAKING_SEED value: %w", err)
		}
		cfg.Matchmaking.Seed = n
	}
	if v := os.Getenv("DISPATCH_MODE"); v != "" {
		cfg.Dispatch.Mode = v
	}
	if v := os.Getenv("DISPATCH_GAME_IMAGE"); v != "" {
		cfg.Dispatch.GameImage = v
	}
	if v := os.Getenv("DISPATCH_BOT_IMAGE"); v != "" {
		cfg.Dispatch.BotImage = v
	}
	if v := os.Getenv("DISPATCH_TOKEN_SECRET"); v != "" {
		cfg.Dispatch.TokenSecret = v
	}
	if v := os.Getenv("DISPATCH_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DISPATCH_TOKEN_TTL value: %w", err)
		}
		cfg.Dispatch.TokenTTL = d
	}
	if v := os.Getenv("LOG_SERVICE_URL"); v != "" {
		cfg.Logs.BaseURL = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.NATS.Stream == "" {
		cfg.NATS.Stream = "arena"
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.HTTP.RateLimit == 0 {
		cfg.HTTP.RateLimit = 20
	}
	if cfg.HTTP.RateBurst == 0 {
		cfg.HTTP.RateBurst = 40
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Matchmaking.Interval == 0 {
		cfg.Matchmaking.Interval = 5 * time.Second
	}
	if cfg.Matchmaking.LockID == 0 {
		cfg.Matchmaking.LockID = 4242
	}
	if cfg.Matchmaking.Driver == "" {
		cfg.Matchmaking.Driver = DriverRiver
	}
	cfg.Matchmaking.Driver = strings.ToLower(cfg.Matchmaking.Driver)
	if cfg.Matchmaking.Lock == "" {
		cfg.Matchmaking.Lock = LockAdvisory
	}
	cfg.Matchmaking.Lock = strings.ToLower(cfg.Matchmaking.Lock)
	if cfg.Dispatch.Mode == "" {
		cfg.Dispatch.Mode = DispatchLive
	}
	cfg.Dispatch.Mode = strings.ToLower(cfg.Dispatch.Mode)
	if cfg.Dispatch.TokenTTL == 0 {
		cfg.Dispatch.TokenTTL = 2 * time.Hour
	}
	if cfg.Logs.Timeout == 0 {
		cfg.Logs.Timeout = 5 * time.Second
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	switch c.Matchmaking.Driver {
	case DriverRiver, DriverTicker:
	default:
		return fmt.Errorf("unknown matchmaking driver %q", c.Matchmaking.Driver)
	}
	switch c.Matchmaking.Lock {
	case LockAdvisory, LockLocal:
	default:
		return fmt.Errorf("unknown matchmaking lock %q", c.Matchmaking.Lock)
	}
	if c.Matchmaking.Interval < time.Second {
		return fmt.Errorf("matchmaking interval %s is below one second", c.Matchmaking.Interval)
	}
	switch c.Dispatch.Mode {
	case DispatchSynthetic:
	case DispatchLive:
		if c.Dispatch.TokenSecret == "" {
			return fmt.Errorf("dispatch.token_secret is required in live mode")
		}
	default:
		return fmt.Errorf("unknown dispatch mode %q", c.Dispatch.Mode)
	}
	return nil
}
