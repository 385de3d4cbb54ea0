package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PRISM_STORAGE_DSN.
const EnvPrefix = "PRISM"

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Export  ExportConfig  `mapstructure:"export"`
	Log     LogConfig     `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type StorageConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig is optional: with an empty URL the service runs without
// cache, idempotency keys or cross-instance board updates.
type RedisConfig struct {
	URL            string        `mapstructure:"url"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	DedupeTTL      time.Duration `mapstructure:"dedupe_ttl"`
	UpdatesChannel string        `mapstructure:"updates_channel"`
}

type AuthConfig struct {
	// Mode is "jwks" (RS256 against the issuer's key set) or "hs256"
	// (shared secret, for local development and tests).
	Mode         string        `mapstructure:"mode"`
	Domain       string        `mapstructure:"domain"`
	Audience     string        `mapstructure:"audience"`
	Secret       string        `mapstructure:"secret"`
	JWKSCacheTTL time.Duration `mapstructure:"jwks_cache_ttl"`
}

type ExportConfig struct {
	QueueConnectionString string `mapstructure:"queue_connection_string"`
	QueueName             string `mapstructure:"queue_name"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("storage.dsn", "prism-board.db")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.cache_ttl", "30s")
	v.SetDefault("redis.dedupe_ttl", "24h")
	v.SetDefault("redis.updates_channel", "board-updates")
	v.SetDefault("auth.mode", "jwks")
	v.SetDefault("auth.domain", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.jwks_cache_ttl", "15m")
	v.SetDefault("export.queue_connection_string", "")
	v.SetDefault("export.queue_name", "task-activity")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from the optional YAML file at path and from
// PRISM_* environment variables, which take precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks combinations the service cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Auth.Mode) {
	case "hs256":
		if c.Auth.Secret == "" {
			return errors.New("auth.secret must be set when auth.mode=hs256")
		}
	case "jwks":
		if c.Auth.Domain == "" || c.Auth.Audience == "" {
			return errors.New("auth.domain and auth.audience must be set when auth.mode=jwks")
		}
	default:
		return fmt.Errorf("unsupported auth.mode %q", c.Auth.Mode)
	}
	if c.Storage.DSN == "" {
		return errors.New("storage.dsn must not be empty")
	}
	if c.Redis.CacheTTL < 0 || c.Redis.DedupeTTL < 0 || c.Auth.JWKSCacheTTL < 0 {
		return errors.New("ttl values must not be negative")
	}
	return nil
}
