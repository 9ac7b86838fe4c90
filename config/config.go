// Package config provides configuration loading for mpid executables.
//
// Configuration is read from a single YAML file merged over Default(). Command
// line flags may override individual values after loading; Validate must be
// called once all sources have been applied.
//
// Mailbox allowances are not configurable: every account receives
// limits.MaxInboxSize and limits.MaxOutboxSize.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opd-ai/mpid/chunkstore/localfs"
	"github.com/opd-ai/mpid/logging"
)

// Backend names a content store implementation.
type Backend string

const (
	BackendMemory  Backend = "memory"
	BackendLocalFS Backend = "localfs"
	BackendGRPC    Backend = "grpc"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root configuration.
type Config struct {
	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// Store configures the inbox and outbox content stores of each vault.
	Store StoreConfig `yaml:"store"`

	// Network configures the simulated network.
	Network NetworkConfig `yaml:"network"`

	// Server configures the remote store server.
	Server ServerConfig `yaml:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is a logrus level name: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`

	// File receives log output. Empty means stderr.
	File string `yaml:"file"`
}

// StoreConfig configures content stores.
type StoreConfig struct {
	// Backend is memory, localfs or grpc.
	Backend Backend `yaml:"backend"`

	// Dir is the root directory of the localfs backend. Each vault uses
	// <dir>/<vault id>/{inbox,outbox}.
	Dir string `yaml:"dir"`

	// Compression is none, lz4 or zstd (localfs only).
	Compression string `yaml:"compression"`

	// Address is the target of the grpc backend.
	Address string `yaml:"address"`

	// Timeout bounds each grpc call.
	Timeout time.Duration `yaml:"timeout"`

	// MaxMessageBytes bounds grpc messages in both directions.
	MaxMessageBytes int `yaml:"max_message_bytes"`
}

// NetworkConfig configures the simulated network.
type NetworkConfig struct {
	// Vaults is the number of vault nodes sharing the address space.
	Vaults int `yaml:"vaults"`

	// DeliveryLog enables recording of every delivery attempt.
	DeliveryLog bool `yaml:"delivery_log"`

	// MaxDeliveryLog caps the number of retained log records. Zero keeps all.
	MaxDeliveryLog int `yaml:"max_delivery_log"`
}

// ServerConfig configures cmd/mpid-store.
type ServerConfig struct {
	// Listen is the TCP address the gRPC server binds.
	Listen string `yaml:"listen"`
}

// Default returns the configuration used before any file or flag is applied.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		Store: StoreConfig{
			Backend:         BackendMemory,
			Compression:     localfs.CompressionZstd.String(),
			Address:         "127.0.0.1:7465",
			Timeout:         5 * time.Second,
			MaxMessageBytes: 4 << 20,
		},
		Network: NetworkConfig{
			Vaults:      8,
			DeliveryLog: true,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:7465",
		},
	}
}

// LoadFile reads path and merges it over Default(). The result is validated.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	switch logging.Format(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}
	if c.Log.Level == "" {
		return fmt.Errorf("%w: log level cannot be empty", ErrInvalid)
	}

	if err := c.Store.Validate(); err != nil {
		return err
	}

	if c.Network.Vaults < 1 {
		return fmt.Errorf("%w: network needs at least one vault", ErrInvalid)
	}
	if c.Network.MaxDeliveryLog < 0 {
		return fmt.Errorf("%w: max delivery log cannot be negative", ErrInvalid)
	}
	return nil
}

// Validate checks the store section.
func (s *StoreConfig) Validate() error {
	switch s.Backend {
	case BackendMemory:
	case BackendLocalFS:
		if s.Dir == "" {
			return fmt.Errorf("%w: localfs backend needs a directory", ErrInvalid)
		}
		if _, err := localfs.ParseCompression(s.Compression); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	case BackendGRPC:
		if s.Address == "" {
			return fmt.Errorf("%w: grpc backend needs an address", ErrInvalid)
		}
		if s.Timeout <= 0 {
			return fmt.Errorf("%w: grpc timeout must be positive", ErrInvalid)
		}
		if s.MaxMessageBytes <= 0 {
			return fmt.Errorf("%w: grpc max message bytes must be positive", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalid, s.Backend)
	}
	return nil
}

// LoggingOptions converts the log section for logging.Setup.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:  c.Log.Level,
		Format: logging.Format(c.Log.Format),
		File:   c.Log.File,
	}
}
