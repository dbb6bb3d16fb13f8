package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/tanmvo/skate-ai-2-sub002/internal/db"
	"github.com/tanmvo/skate-ai-2-sub002/internal/documents"
	"github.com/tanmvo/skate-ai-2-sub002/internal/replay"
	"github.com/tanmvo/skate-ai-2-sub002/internal/search"
)

type ServerConfig struct {
	Port        int `mapstructure:"port"`
	MetricsPort int `mapstructure:"metrics_port"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int           `mapstructure:"max_connections"`
	IdleConnections int           `mapstructure:"idle_connections"`
	MaxLifetime     time.Duration `mapstructure:"max_lifetime"`
}

// ToDB converts the file form into the database client's config.
func (c DatabaseConfig) ToDB() *db.Config {
	return &db.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		SSLMode:         c.SSLMode,
		MaxConnections:  c.MaxConnections,
		IdleConnections: c.IdleConnections,
		MaxLifetime:     c.MaxLifetime,
	}
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StreamingConfig struct {
	RingCapacity int `mapstructure:"ring_capacity"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Search    search.Config    `mapstructure:"search"`
	Documents documents.Config `mapstructure:"documents"`
	Replay    replay.Config    `mapstructure:"replay"`
	Streaming StreamingConfig  `mapstructure:"streaming"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Tracing   TracingConfig    `mapstructure:"tracing"`
}

// Path returns the config file location: CONFIG_PATH or the default
// /app/config/skate-studyd.yaml. The hot-reload manager watches its directory.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "/app/config/skate-studyd.yaml"
}

// Load reads the config file from Path() and applies environment overrides.
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile reads a specific config file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	return &c, nil
}

// Default returns the configuration used when no config file is present,
// driven entirely by environment overrides.
func Default() *Config {
	c := &Config{}
	c.applyEnvOverrides()
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 2112
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Database == "" {
		c.Database.Database = "skateai"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Streaming.RingCapacity == 0 {
		c.Streaming.RingCapacity = 256
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			c.Server.Port = x
		}
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			c.Server.MetricsPort = x
		}
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			c.Database.Port = x
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("SEARCH_HOST"); v != "" {
		c.Search.Host = v
		c.Search.Enabled = true
	}
	if v := os.Getenv("SEARCH_PORT"); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			c.Search.Port = x
		}
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
		c.Tracing.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
