// Package config loads KDNS's configuration using Viper: defaults are set
// first, then an optional YAML file, then KDNS_-prefixed environment
// variables layer on top, the same three-tier precedence the upstream
// project this was built from uses for its own configuration.
package config

import (
	"os"
	"strings"
)

// ServerConfig holds the resolver's network and behavior settings.
type ServerConfig struct {
	ListenAddr      string `yaml:"listen_addr"       mapstructure:"listen_addr"`
	ParentDNS       string `yaml:"parent_dns"        mapstructure:"parent_dns"`
	TTL             uint32 `yaml:"ttl"               mapstructure:"ttl"`
	SweepIntervalMS int    `yaml:"sweep_interval_ms" mapstructure:"sweep_interval_ms"`
}

// DyndnsConfig holds the shared secret for the dynamic-update protocol.
type DyndnsConfig struct {
	Secret string `yaml:"secret" mapstructure:"secret"`
}

// HostsConfig points at the startup hosts file.
type HostsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig controls the slog-based logger.
type LoggingConfig struct {
	Level            string            `yaml:"level"             mapstructure:"level"`
	Structured       bool              `yaml:"structured"        mapstructure:"structured"`
	StructuredFormat string            `yaml:"structured_format" mapstructure:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"       mapstructure:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields"      mapstructure:"extra_fields"`
}

// APIConfig controls the read-only admin API.
//
// Note: the API never returns DyndnsConfig.Secret.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
}

// AuditConfig controls the dynamic-update audit trail database.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DBPath  string `yaml:"db_path" mapstructure:"db_path"`
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"  mapstructure:"server"`
	Dyndns  DyndnsConfig  `yaml:"dyndns"  mapstructure:"dyndns"`
	Hosts   HostsConfig   `yaml:"hosts"   mapstructure:"hosts"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	API     APIConfig     `yaml:"api"     mapstructure:"api"`
	Audit   AuditConfig   `yaml:"audit"   mapstructure:"audit"`
}

// ResolveConfigPath determines the config file path from a flag value or
// the KDNS_CONFIG environment variable, flag taking precedence.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("KDNS_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from an optional YAML file with environment
// variable and default overrides. This is the main entry point.
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}
