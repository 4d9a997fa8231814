// Package types provides configuration types for the analytics backend.
package types

import "time"

// ServerConfig represents HTTP/WebSocket server configuration
type ServerConfig struct {
	Host           string        `json:"host" mapstructure:"host"`
	Port           int           `json:"port" mapstructure:"port"`
	WebSocketPath  string        `json:"websocketPath" mapstructure:"websocket_path"`
	ReadTimeout    time.Duration `json:"readTimeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `json:"writeTimeout" mapstructure:"write_timeout"`
	MaxConnections int           `json:"maxConnections" mapstructure:"max_connections"`
	EnableMetrics  bool          `json:"enableMetrics" mapstructure:"enable_metrics"`
}

// FXConfig represents FX rate provider configuration
type FXConfig struct {
	RatesURL     string        `json:"ratesUrl" mapstructure:"rates_url"`
	CacheTTL     time.Duration `json:"cacheTtl" mapstructure:"cache_ttl"`
	FetchTimeout time.Duration `json:"fetchTimeout" mapstructure:"fetch_timeout"`
}

// AppConfig is the root configuration
type AppConfig struct {
	LogLevel string       `json:"logLevel" mapstructure:"log_level"`
	Server   ServerConfig `json:"server" mapstructure:"server"`
	FX       FXConfig     `json:"fx" mapstructure:"fx"`
}
