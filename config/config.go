package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Mail       MailConfig       `yaml:"mail"`
	Push       PushConfig       `yaml:"push"`
	Thresholds ThresholdConfig  `yaml:"thresholds"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	Logging    LoggingConfig    `yaml:"logging"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration. A DSN ending in
// .db or .sqlite (or ":memory:") selects the sqlite driver, anything else is
// treated as a postgres URL.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AuthConfig holds JWT signing configuration.
type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"`
	AccessTokenHours int           `yaml:"access_token_hours"`
	RefreshTokenDays int           `yaml:"refresh_token_days"`
	AccessTokenTTL   time.Duration `yaml:"-"`
	RefreshTokenTTL  time.Duration `yaml:"-"`
}

// MailConfig holds the SMTP settings for alert emails.
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ThresholdConfig holds the alert thresholds (ppm, Celsius, percent).
type ThresholdConfig struct {
	CO2PPM              float64       `yaml:"co2_ppm"`
	TempMinC            float64       `yaml:"temp_min_c"`
	TempMaxC            float64       `yaml:"temp_max_c"`
	HumidityPct         float64       `yaml:"humidity_pct"`
	SendIntervalSeconds int           `yaml:"send_interval_seconds"`
	SendInterval        time.Duration `yaml:"-"`
}

// SimulatorConfig controls the background tick for simulation sensors.
type SimulatorConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
}

// LoggingConfig holds log file rotation settings.
type LoggingConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path, applies defaults and
// environment overrides for secrets.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file is present and by tests.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "aerium.db"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "jwt-secret-key-change-in-production"
	}
	if cfg.Auth.AccessTokenHours <= 0 {
		cfg.Auth.AccessTokenHours = 24
	}
	if cfg.Auth.RefreshTokenDays <= 0 {
		cfg.Auth.RefreshTokenDays = 30
	}
	cfg.Auth.AccessTokenTTL = time.Duration(cfg.Auth.AccessTokenHours) * time.Hour
	cfg.Auth.RefreshTokenTTL = time.Duration(cfg.Auth.RefreshTokenDays) * 24 * time.Hour

	if cfg.Mail.Host == "" {
		cfg.Mail.Host = "localhost"
	}
	if cfg.Mail.Port <= 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "noreply@aerium.app"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Thresholds.CO2PPM <= 0 {
		cfg.Thresholds.CO2PPM = 1200
	}
	if cfg.Thresholds.TempMinC == 0 {
		cfg.Thresholds.TempMinC = 15
	}
	if cfg.Thresholds.TempMaxC <= 0 {
		cfg.Thresholds.TempMaxC = 28
	}
	if cfg.Thresholds.HumidityPct <= 0 {
		cfg.Thresholds.HumidityPct = 80
	}
	if cfg.Thresholds.SendIntervalSeconds <= 0 {
		cfg.Thresholds.SendIntervalSeconds = 300
	}
	cfg.Thresholds.SendInterval = time.Duration(cfg.Thresholds.SendIntervalSeconds) * time.Second

	if cfg.Simulator.IntervalSeconds <= 0 {
		cfg.Simulator.IntervalSeconds = 10
	}
	cfg.Simulator.Interval = time.Duration(cfg.Simulator.IntervalSeconds) * time.Second

	if cfg.Logging.File == "" {
		cfg.Logging.File = "logs/aerium.log"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 10
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 28
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 2
	}
}

// applyEnvOverrides lets deployment secrets override file values.
func (cfg *Config) applyEnvOverrides() {
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("MAIL_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("MAIL_USERNAME"); v != "" {
		cfg.Mail.Username = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}
