// Package config loads service configuration from a YAML file, a .env
// file and MEMEDESK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MEMEDESK_POSTGRES_DSN.
const EnvPrefix = "MEMEDESK"

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	Storage     StorageConfig     `mapstructure:"storage"`
	ClickHouse  ClickHouseConfig  `mapstructure:"clickhouse"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Dexscreener DexscreenerConfig `mapstructure:"dexscreener"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Stream      StreamConfig      `mapstructure:"stream"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

// IsDev reports whether the service runs in the dev environment.
func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, "dev")
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type PostgresConfig struct {
	DSN           string `mapstructure:"dsn"`
	RunMigrations bool   `mapstructure:"run_migrations"`
}

type StorageConfig struct {
	// UseMemory keeps everything in process; nothing survives a restart.
	UseMemory bool `mapstructure:"use_memory"`
}

type ClickHouseConfig struct {
	// DSN enables outcome analytics in ClickHouse. Empty keeps outcomes in memory.
	DSN        string `mapstructure:"dsn"`
	BufferSize int    `mapstructure:"buffer_size"`
}

type CacheConfig struct {
	Driver        string `mapstructure:"driver"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	Prefix        string `mapstructure:"prefix"`
}

type DexscreenerConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

type AuthConfig struct {
	AdminPassword string        `mapstructure:"admin_password"`
	AdminSecret   string        `mapstructure:"admin_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

type StreamConfig struct {
	PingInterval time.Duration `mapstructure:"ping_interval"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SendBuffer   int           `mapstructure:"send_buffer"`
}

// Load reads path (YAML) unless envOnly is set. A .env file in the
// working directory is loaded first when present; variables already set
// in the environment win over it.
func Load(path string, envOnly bool) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")

	v.SetDefault("server.http_addr", ":8000")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)

	// Bound so MEMEDESK_POSTGRES_DSN etc. reach Unmarshal without a file.
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.run_migrations", true)
	v.SetDefault("storage.use_memory", false)
	v.SetDefault("clickhouse.dsn", "")
	v.SetDefault("clickhouse.buffer_size", 256)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.prefix", "memedesk:")

	v.SetDefault("dexscreener.base_url", "https://api.dexscreener.com")
	v.SetDefault("dexscreener.timeout", "10s")
	v.SetDefault("dexscreener.cache_ttl", "300s")
	v.SetDefault("dexscreener.max_attempts", 3)
	v.SetDefault("dexscreener.retry_delay", "300ms")

	v.SetDefault("auth.admin_password", "")
	v.SetDefault("auth.admin_secret", "")
	v.SetDefault("auth.token_ttl", "10800s")

	v.SetDefault("stream.ping_interval", "30s")
	v.SetDefault("stream.write_timeout", "10s")
	v.SetDefault("stream.send_buffer", 64)
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	if !c.Storage.UseMemory && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required unless storage.use_memory is set")
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.driver must be memory or redis, got %q", c.Cache.Driver)
	}
	if c.Auth.AdminPassword != "" && c.Auth.AdminSecret == "" {
		return errors.New("auth.admin_secret is required when auth.admin_password is set")
	}
	return nil
}
