// Package config assembles filepush settings from the environment, an
// optional .env file and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/opd-ai/filepush/limits"
	"github.com/opd-ai/filepush/transport"
)

// Environment variables read by FromEnv.
const (
	EnvPort         = "FILEPUSH_PORT"
	EnvAddress      = "FILEPUSH_ADDRESS"
	EnvDownloadDir  = "FILEPUSH_DOWNLOAD_DIR"
	EnvBufferSize   = "FILEPUSH_BUFFER_SIZE"
	EnvLogLevel     = "FILEPUSH_LOG_LEVEL"
	EnvLogFile      = "FILEPUSH_LOG_FILE"
	EnvLogFormat    = "FILEPUSH_LOG_FORMAT"
	EnvMinFreeBytes = "FILEPUSH_MIN_FREE_BYTES"
	EnvProxy        = "FILEPUSH_PROXY"
)

// Defaults used when neither the environment nor a flag sets a value.
const (
	DefaultPort        = 5000
	DefaultDownloadDir = "receivedFiles"
	DefaultLogLevel    = "INFO"
	DefaultLogFormat   = "text"
)

// Config holds the settings shared by the server and the client. Address is
// the bind address for the server and the target for the client.
type Config struct {
	Address      string
	Port         uint
	DownloadDir  string
	BufferSize   int
	LogLevel     string
	LogFile      string
	LogFormat    string
	MinFreeBytes uint64

	// Client only.
	Files    []string
	WatchDir string
	// Proxy is socks5://host:port or http://host:port, empty for a direct dial.
	Proxy string
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Port:        DefaultPort,
		DownloadDir: DefaultDownloadDir,
		BufferSize:  limits.DefaultBufferSize,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
	}
}

// FromEnv loads .env from the working directory if present and overlays
// FILEPUSH_* variables on the defaults.
func FromEnv() (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays values found through lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddress); ok {
		c.Address = v
	}
	if v, ok := lookup(EnvDownloadDir); ok && v != "" {
		c.DownloadDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvLogFile); ok {
		c.LogFile = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.LogFormat = v
	}
	if v, ok := lookup(EnvProxy); ok {
		c.Proxy = v
	}

	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = uint(port)
	}
	if v, ok := lookup(EnvBufferSize); ok && v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBufferSize, err)
		}
		c.BufferSize = size
	}
	if v, ok := lookup(EnvMinFreeBytes); ok && v != "" {
		free, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMinFreeBytes, err)
		}
		c.MinFreeBytes = free
	}

	return nil
}

// RegisterServerFlags binds the receiving side's flags to c. Current values
// of c become the flag defaults.
func (c *Config) RegisterServerFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Address, "i", c.Address, "IP address to listen on (default: all interfaces)")
	fs.UintVar(&c.Port, "p", c.Port, "Port to listen on")
	fs.StringVar(&c.DownloadDir, "d", c.DownloadDir, "Directory to store received files in")
	c.registerCommonFlags(fs)
	fs.Uint64Var(&c.MinFreeBytes, "min-free", c.MinFreeBytes, "Refuse transfers leaving less than this many bytes free (0 disables the check)")
}

// RegisterClientFlags binds the sending side's flags to c.
func (c *Config) RegisterClientFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Address, "s", c.Address, "IP address of the server")
	fs.UintVar(&c.Port, "p", c.Port, "Port of the server")
	fs.StringVar(&c.WatchDir, "watch", c.WatchDir, "Push files as they appear in this directory")
	fs.StringVar(&c.Proxy, "proxy", c.Proxy, "Connect through a proxy (socks5://host:port or http://host:port)")
	c.registerCommonFlags(fs)
}

func (c *Config) registerCommonFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.BufferSize, "buffer-size", c.BufferSize, "Transfer buffer size in bytes")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (DEBUG, INFO, WARN, ERROR)")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Log file path (default: stderr only)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format (text, json)")
}

// Validate checks the settings common to both sides.
func (c *Config) Validate() error {
	if c.Port == 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if err := limits.ValidateBufferSize(c.BufferSize); err != nil {
		return fmt.Errorf("invalid buffer size: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	return nil
}

// ValidateServer checks the receiving side's settings.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DownloadDir == "" {
		return errors.New("download directory cannot be empty")
	}
	return nil
}

// ValidateClient checks the sending side's settings.
func (c *Config) ValidateClient() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Address == "" {
		return errors.New("server address is required (-s)")
	}
	if len(c.Files) == 0 && c.WatchDir == "" {
		return errors.New("no files to send")
	}
	if _, err := transport.ParseProxyURL(c.Proxy); err != nil {
		return err
	}
	return nil
}

// ListenAddress is the server's bind address.
func (c *Config) ListenAddress() string {
	return transport.Address(c.Address, uint16(c.Port))
}

// ServerAddress is the address the client dials.
func (c *Config) ServerAddress() string {
	return transport.Address(c.Address, uint16(c.Port))
}

// ProxyConfig parses Proxy. It returns nil when no proxy is set.
func (c *Config) ProxyConfig() (*transport.ProxyConfig, error) {
	return transport.ParseProxyURL(c.Proxy)
}
