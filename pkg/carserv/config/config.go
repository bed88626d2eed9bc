// Package config holds the carstore settings and loads them through viper.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Log level constants
const (
	LogLevelDebug   = "debug"
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

// Log output constants
const (
	LogOutputConsole = "console"
	LogOutputFile    = "file"
)

// Defaults
const (
	DefaultAddress         = ":3001"
	DefaultStoragePath     = "cars.json"
	DefaultAllowedOrigin   = "*"
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// EnvPrefix is prepended to every environment variable read by viper.
const EnvPrefix = "CARSERV"

// Config is the full service configuration
type Config struct {
	Server  ServerSettings  `mapstructure:"server"`
	Storage StorageSettings `mapstructure:"storage"`
	Log     LoggerSettings  `mapstructure:"log"`
}

// ServerSettings configures the HTTP listener
type ServerSettings struct {
	Address         string        `mapstructure:"address" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
}

// StorageSettings points at the JSON data file
type StorageSettings struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LoggerSettings selects the log level and where records go. The rotation
// limits only apply to file output.
type LoggerSettings struct {
	Level      string `mapstructure:"level" validate:"required,oneof=debug info warning error"`
	Output     string `mapstructure:"output" validate:"required,oneof=console file"`
	File       string `mapstructure:"file" validate:"required_if=Output file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"required_if=Output file,gte=0,lte=100"`
	MaxBackups int    `mapstructure:"max_backups" validate:"required_if=Output file,gte=0,lte=10"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"required_if=Output file,gte=0,lte=365"`
}

var validate = validator.New()

// Validate checks the log settings on their own, before the logger is built.
func (s *LoggerSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("log settings: %w", err)
	}
	return nil
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SetDefaults registers the default value of every key on v.
// A PORT environment variable replaces the default address with ":$PORT".
func SetDefaults(v *viper.Viper) {
	addr := DefaultAddress
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	v.SetDefault("server.address", addr)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.allowed_origin", DefaultAllowedOrigin)
	v.SetDefault("storage.path", DefaultStoragePath)
	v.SetDefault("log.level", LogLevelInfo)
	v.SetDefault("log.output", LogOutputConsole)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads the configuration from v, which should already have its config
// file, flags and environment bound. SERVER_ADDRESS overrides the listen
// address when set.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	if err := v.BindEnv("server.address", EnvPrefix+"_SERVER_ADDRESS", "SERVER_ADDRESS"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
