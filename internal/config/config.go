// Package config loads this proxy's runtime configuration. Keys are read
// verbatim from the environment (no prefix) since they already form a
// dedicated namespace, unlike some multi-tenant configs in the pack that
// prefix every key.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds every runtime knob this proxy reads once at startup.
type Config struct {
	Bind     string `mapstructure:"bind"`
	BindUnix string `mapstructure:"bind_unix"`
	UDS      bool   `mapstructure:"uds"`
	FDUnix   int    `mapstructure:"fd_unix"`
	FDTCP    int    `mapstructure:"fd_tcp"`

	Proxy     string `mapstructure:"proxy"`
	ProxyUser string `mapstructure:"proxy_user"`
	ProxyPass string `mapstructure:"proxy_pass"`
	IPv4Only  bool   `mapstructure:"ipv4_only"`

	HashSecret               string `mapstructure:"hash_secret"`
	DisallowImageTranscoding bool   `mapstructure:"disallow_image_transcoding"`
}

// Load reads configuration from the environment, falling back to the
// defaults below when a key is unset. Every key name matches the
// corresponding environment variable (e.g. BIND, HASH_SECRET).
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("bind", "0.0.0.0:8080")
	v.SetDefault("bind_unix", "")
	v.SetDefault("uds", false)
	v.SetDefault("fd_unix", -1)
	v.SetDefault("fd_tcp", -1)
	v.SetDefault("proxy", "")
	v.SetDefault("proxy_user", "")
	v.SetDefault("proxy_pass", "")
	v.SetDefault("ipv4_only", false)
	v.SetDefault("hash_secret", "")
	v.SetDefault("disallow_image_transcoding", false)

	for _, key := range []string{
		"bind", "bind_unix", "uds", "fd_unix", "fd_tcp",
		"proxy", "proxy_user", "proxy_pass", "ipv4_only",
		"hash_secret", "disallow_image_transcoding",
	} {
		if err := v.BindEnv(key, envName(key)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// envName maps a mapstructure key to its literal environment variable
// name: BIND_UNIX, not a prefixed/namespaced variant.
func envName(key string) string {
	out := make([]byte, 0, len(key))
	for _, c := range key {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, byte(c))
	}
	return string(out)
}

// QhashEnabled reports whether a qhash secret was configured.
func (c *Config) QhashEnabled() bool { return c.HashSecret != "" }
