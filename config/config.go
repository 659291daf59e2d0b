// Package config loads the engine configuration from a YAML file and
// PORTMUX_-prefixed environment variables. The engine itself only
// consumes the resulting portmux.Config; nothing in the core depends on
// how it was produced.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/luciancaetano/portmux"
)

// Load reads configuration from path (optional) with environment
// overrides. Unset keys keep the portmux.DefaultConfig values. Runtime
// collaborators (Logger, Admission) are not part of the file surface and
// stay at their defaults for the caller to replace.
//
//	cfg, err := config.Load("portmux.yaml")
//	// PORTMUX_PORT=9000 overrides the file's port
func Load(path string) (*portmux.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PORTMUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := portmux.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := portmux.DefaultConfig()
	v.SetDefault("host", defaults.Host)
	v.SetDefault("port", defaults.Port)
	v.SetDefault("allowed_origins", defaults.AllowedOrigins)
	v.SetDefault("allowed_methods", defaults.AllowedMethods)
	v.SetDefault("allowed_headers", defaults.AllowedHeaders)
	v.SetDefault("allow_credentials", defaults.AllowCredentials)
	v.SetDefault("max_age", defaults.MaxAge)
	v.SetDefault("auth_key", defaults.AuthKey)
	v.SetDefault("max_message_bytes", defaults.MaxMessageBytes)
	v.SetDefault("write_timeout", defaults.WriteTimeout)
	v.SetDefault("read_idle_timeout", defaults.ReadIdleTimeout)
	v.SetDefault("ping_interval", defaults.PingInterval)
}
