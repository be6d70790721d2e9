package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPath(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		envValue string
		want     string
	}{
		{"flag takes precedence", "/path/from/flag", "/path/from/env", "/path/from/flag"},
		{"env when no flag", "", "/path/from/env", "/path/from/env"},
		{"empty when neither", "", "", ""},
		{"whitespace flag", "  ", "/path/from/env", "/path/from/env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KDNS_CONFIG", tt.envValue)
			got := ResolveConfigPath(tt.flag)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:53", cfg.Server.ListenAddr)
	assert.Equal(t, "0.0.0.0", cfg.Server.ParentDNS)
	assert.Equal(t, uint32(300), cfg.Server.TTL)
	assert.Equal(t, 10_000, cfg.Server.SweepIntervalMS)
	assert.False(t, cfg.API.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.API.Host)
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  listen_addr: "127.0.0.1:5353"
  parent_dns: "198.41.0.4"
  ttl: 60

dyndns:
  secret: "s3cr3t"

logging:
  level: "DEBUG"
  structured: true
  structured_format: "keyvalue"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "test-config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5353", cfg.Server.ListenAddr)
	assert.Equal(t, "198.41.0.4", cfg.Server.ParentDNS)
	assert.Equal(t, uint32(60), cfg.Server.TTL)
	assert.Equal(t, "s3cr3t", cfg.Dyndns.Secret)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Structured)
	assert.Equal(t, "keyvalue", cfg.Logging.StructuredFormat)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  ttl: [invalid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestNormalizeInvalidAPIPort(t *testing.T) {
	content := `
api:
  enabled: true
  port: 0
`
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KDNS_SERVER_LISTEN_ADDR", "192.168.1.1:53")
	t.Setenv("KDNS_SERVER_PARENT_DNS", "1.1.1.1")
	t.Setenv("KDNS_SERVER_TTL", "120")
	t.Setenv("KDNS_API_ENABLED", "true")
	t.Setenv("KDNS_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1:53", cfg.Server.ListenAddr)
	assert.Equal(t, "1.1.1.1", cfg.Server.ParentDNS)
	assert.Equal(t, uint32(120), cfg.Server.TTL)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}
