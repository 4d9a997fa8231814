// Package config loads application configuration from file and environment.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tradelens/analytics-backend/pkg/types"
)

// Load reads configuration from the given path (optional) and the TRADELENS_*
// environment, applying defaults for anything unset.
func Load(path string) (*types.AppConfig, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.websocket_path", "/ws")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_connections", 100)
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("fx.rates_url", "https://open.er-api.com/v6/latest/USD")
	v.SetDefault("fx.cache_ttl", time.Hour)
	v.SetDefault("fx.fetch_timeout", 10*time.Second)

	v.SetEnvPrefix("TRADELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg types.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
