package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIToken       string        `mapstructure:"taxjar_api_token"`
	APIURL         string        `mapstructure:"taxjar_api_url"`
	TimeoutSeconds int64         `mapstructure:"taxjar_timeout_seconds"`
	Timeout        time.Duration `mapstructure:"-"`
	TraceEnabled   bool          `mapstructure:"trace_enabled"`

	PublishersFile      string        `mapstructure:"publishers_file"`
	SyncIntervalSeconds int64         `mapstructure:"sync_interval"`
	SyncInterval        time.Duration `mapstructure:"-"`
	MetricsAddr         string        `mapstructure:"metrics_addr"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from configs/.env, defaults and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "taxjar-go")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("taxjar_api_token", "")
	v.SetDefault("taxjar_api_url", "https://api.taxjar.com/v2")
	v.SetDefault("taxjar_timeout_seconds", 10)
	v.SetDefault("trace_enabled", false)
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("sync_interval", 3600) // seconds
	v.SetDefault("metrics_addr", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/rates.db")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.APIToken = strings.TrimSpace(cfg.APIToken)
	cfg.APIURL = strings.TrimSpace(cfg.APIURL)
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("invalid taxjar_api_url (must not be empty)")
	}

	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid taxjar_timeout_seconds (must be positive seconds)")
	}
	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	if cfg.SyncIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid sync_interval (must be positive seconds)")
	}
	cfg.SyncInterval = time.Duration(cfg.SyncIntervalSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.APIToken != "" {
		c.APIToken = "***"
	}
	return c
}
