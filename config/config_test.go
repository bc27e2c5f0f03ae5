package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/filepush/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, uint(5000), cfg.Port)
	assert.Equal(t, "receivedFiles", cfg.DownloadDir)
	assert.Equal(t, limits.DefaultBufferSize, cfg.BufferSize)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Zero(t, cfg.MinFreeBytes)
	assert.NoError(t, cfg.ValidateServer())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(mapLookup(map[string]string{
		EnvPort:         "6000",
		EnvAddress:      "127.0.0.1",
		EnvDownloadDir:  "/srv/incoming",
		EnvBufferSize:   "4096",
		EnvLogLevel:     "DEBUG",
		EnvLogFile:      "/var/log/filepush.log",
		EnvLogFormat:    "json",
		EnvMinFreeBytes: "1048576",
		EnvProxy:        "socks5://127.0.0.1:1080",
	}))
	require.NoError(t, err)

	assert.Equal(t, uint(6000), cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Address)
	assert.Equal(t, "/srv/incoming", cfg.DownloadDir)
	assert.Equal(t, 4096, cfg.BufferSize)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "/var/log/filepush.log", cfg.LogFile)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, uint64(1048576), cfg.MinFreeBytes)
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.Proxy)

	proxyCfg, err := cfg.ProxyConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(1080), proxyCfg.Port)
}

func TestApplyEnvEmptyKeepsDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(mapLookup(map[string]string{
		EnvPort:        "",
		EnvDownloadDir: "",
	})))

	assert.Equal(t, uint(DefaultPort), cfg.Port)
	assert.Equal(t, DefaultDownloadDir, cfg.DownloadDir)
}

func TestApplyEnvInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port not a number", EnvPort, "http"},
		{"port too large", EnvPort, "70000"},
		{"buffer not a number", EnvBufferSize, "big"},
		{"negative free bytes", EnvMinFreeBytes, "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Default().applyEnv(mapLookup(map[string]string{tt.key: tt.val}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestFromEnvReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FILEPUSH_PORT=7000\nFILEPUSH_DOWNLOAD_DIR=fromdotenv\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	// godotenv never overrides variables already set, so clear them
	t.Setenv(EnvPort, "")
	os.Unsetenv(EnvPort)
	t.Setenv(EnvDownloadDir, "")
	os.Unsetenv(EnvDownloadDir)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, uint(7000), cfg.Port)
	assert.Equal(t, "fromdotenv", cfg.DownloadDir)
}

func TestFromEnvWithoutDotEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	t.Setenv(EnvPort, "5001")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, uint(5001), cfg.Port)
}

func TestServerFlagsOverrideEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(mapLookup(map[string]string{EnvPort: "6000", EnvDownloadDir: "env-dir"})))

	fs := flag.NewFlagSet("filepushd", flag.ContinueOnError)
	cfg.RegisterServerFlags(fs)
	require.NoError(t, fs.Parse([]string{"-i", "0.0.0.0", "-p", "7001", "-min-free", "100"}))

	assert.Equal(t, "0.0.0.0", cfg.Address)
	assert.Equal(t, uint(7001), cfg.Port)
	assert.Equal(t, "env-dir", cfg.DownloadDir, "unset flags keep the env value")
	assert.Equal(t, uint64(100), cfg.MinFreeBytes)
	assert.Equal(t, "0.0.0.0:7001", cfg.ListenAddress())
}

func TestClientFlags(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("filepush", flag.ContinueOnError)
	cfg.RegisterClientFlags(fs)
	require.NoError(t, fs.Parse([]string{"-s", "203.0.113.10", "-p", "5050", "a.txt", "b.txt"}))
	cfg.Files = fs.Args()

	assert.Equal(t, "203.0.113.10:5050", cfg.ServerAddress())
	assert.Equal(t, []string{"a.txt", "b.txt"}, cfg.Files)
	assert.NoError(t, cfg.ValidateClient())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		client      bool
		errContains string
	}{
		{"valid server", func(*Config) {}, false, ""},
		{"port zero", func(c *Config) { c.Port = 0 }, false, "invalid port"},
		{"port over 65535", func(c *Config) { c.Port = 70000 }, false, "invalid port"},
		{"buffer zero", func(c *Config) { c.BufferSize = 0 }, false, "invalid buffer size"},
		{"buffer too large", func(c *Config) { c.BufferSize = limits.MaxBufferSize + 1 }, false, "invalid buffer size"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, false, "invalid log format"},
		{"json log format", func(c *Config) { c.LogFormat = "JSON" }, false, ""},
		{"empty download dir", func(c *Config) { c.DownloadDir = "" }, false, "download directory"},
		{"client without server", func(c *Config) { c.Files = []string{"a"} }, true, "server address"},
		{"client without files", func(c *Config) { c.Address = "10.0.0.1" }, true, "no files"},
		{"client watch only", func(c *Config) { c.Address = "10.0.0.1"; c.WatchDir = "." }, true, ""},
		{"client bad proxy", func(c *Config) { c.Address = "10.0.0.1"; c.Files = []string{"a"}; c.Proxy = "ftp://x:1" }, true, "unsupported proxy type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			var err error
			if tt.client {
				err = cfg.ValidateClient()
			} else {
				err = cfg.ValidateServer()
			}

			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
