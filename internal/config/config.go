package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "ERRAND_"

const (
	defaultRunTimeout        = 10 * time.Minute
	defaultMaxBackgroundJobs = 4
	defaultDotEnvFile        = ".env"
)

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Engine kinds.
const (
	EngineCommand  = "command"
	EngineScripted = "scripted"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr        string        `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevelName      string        `env:"LOG_LEVEL" envDefault:"info"`
	RunTimeout        time.Duration `env:"RUN_TIMEOUT" envDefault:"10m"`
	WorkerBin         string        `env:"WORKER_BIN"`
	MaxBackgroundJobs int           `env:"MAX_BACKGROUND_JOBS" envDefault:"4"`

	Store  StoreConfig  `envPrefix:"STORE_"`
	Engine EngineConfig `envPrefix:"ENGINE_"`
}

// StoreConfig selects and configures the durable result backend.
type StoreConfig struct {
	Driver        string `env:"DRIVER" envDefault:"file"`
	Dir           string `env:"DIR" envDefault:"search_results"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"errand.db"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// EngineConfig configures the automation engine.
type EngineConfig struct {
	Kind    string   `env:"KIND" envDefault:"command"`
	Command string   `env:"COMMAND" envDefault:"browser-agent"`
	Args    []string `env:"ARGS" envSeparator:","`
}

// Load reads optional dotenv files (".env" when none are given) into the
// process environment without overriding variables that are already set, then
// parses the ERRAND_* variables.
func Load(dotEnvFiles ...string) (Config, error) {
	if len(dotEnvFiles) == 0 {
		dotEnvFiles = []string{defaultDotEnvFile}
	}
	for _, f := range dotEnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Sanitize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Sanitize replaces out-of-range values with defaults.
func (c *Config) Sanitize() {
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaultRunTimeout
	}
	if c.MaxBackgroundJobs <= 0 {
		c.MaxBackgroundJobs = defaultMaxBackgroundJobs
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Engine.Kind = strings.ToLower(strings.TrimSpace(c.Engine.Kind))
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile, DriverSQLite, DriverRedis:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Engine.Kind {
	case EngineCommand, EngineScripted:
	default:
		return fmt.Errorf("unknown engine kind %q", c.Engine.Kind)
	}
	return nil
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	return ParseLogLevel(c.LogLevelName)
}

// ParseLogLevel maps debug, info, warn and error to slog levels; anything else is info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
