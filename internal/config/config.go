package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/nsserver/kdns/internal/helpers"
)

// initConfig sets up the config loader with defaults, env binding, and an
// optional config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	// KDNS_SERVER_LISTEN_ADDR -> server.listen_addr, etc.
	v.SetEnvPrefix("KDNS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.New("failed to read config file: " + err.Error())
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", "0.0.0.0:53")
	v.SetDefault("server.parent_dns", "0.0.0.0")
	v.SetDefault("server.ttl", 300)
	v.SetDefault("server.sweep_interval_ms", 10_000)

	v.SetDefault("dyndns.secret", "")

	v.SetDefault("hosts.path", "")

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})

	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.db_path", "kdns-audit.db")
}

func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.Server.ListenAddr = v.GetString("server.listen_addr")
	cfg.Server.ParentDNS = v.GetString("server.parent_dns")
	cfg.Server.TTL = helpers.ClampIntToUint32(v.GetInt("server.ttl"))
	cfg.Server.SweepIntervalMS = v.GetInt("server.sweep_interval_ms")

	cfg.Dyndns.Secret = v.GetString("dyndns.secret")

	cfg.Hosts.Path = v.GetString("hosts.path")

	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
	cfg.Logging.StructuredFormat = v.GetString("logging.structured_format")
	cfg.Logging.IncludePID = v.GetBool("logging.include_pid")
	cfg.Logging.ExtraFields = v.GetStringMapString("logging.extra_fields")

	cfg.API.Enabled = v.GetBool("api.enabled")
	cfg.API.Host = v.GetString("api.host")
	cfg.API.Port = v.GetInt("api.port")

	cfg.Audit.Enabled = v.GetBool("audit.enabled")
	cfg.Audit.DBPath = v.GetString("audit.db_path")

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func normalizeConfig(cfg *Config) error {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "0.0.0.0:53"
	}
	if cfg.Server.ParentDNS == "" {
		cfg.Server.ParentDNS = "0.0.0.0"
	}
	if cfg.Server.SweepIntervalMS <= 0 {
		cfg.Server.SweepIntervalMS = 10_000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}
	if cfg.API.Host == "" {
		cfg.API.Host = "127.0.0.1"
	}
	if cfg.API.Enabled && (cfg.API.Port <= 0 || cfg.API.Port > 65535) {
		return errors.New("api.port must be 1..65535")
	}
	if cfg.Audit.DBPath == "" {
		cfg.Audit.DBPath = "kdns-audit.db"
	}
	return nil
}
