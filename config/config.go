// Package config defines the Agent's configuration surface and loads it
// from file + environment + flags via viper, mirroring the teacher's
// `am` package (`am/am.go`'s mapstructure-tagged Config tree,
// `am/defaults.go`'s SetDefaults/BindSensitiveEnvVars, `am/load.go`'s
// layered viper init, `am/watcher.go`'s fsnotify hot-reload), generalized
// from QNTX's server-side config surface to this Agent's transport/
// replication/logging knobs.
package config

import (
	"time"

	"github.com/arkitektio/rekuest-next/transport"
)

// Config is the Agent's entire configuration tree, unmarshaled from TOML
// plus environment overrides via mapstructure tags.
type Config struct {
	Agent     AgentConfig     `mapstructure:"agent"`
	Transport TransportConfig `mapstructure:"transport"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AgentConfig configures the runtime instance identity and state
// replication cadence.
type AgentConfig struct {
	InstanceID             string `mapstructure:"instance_id"`
	StatePublishIntervalMS int    `mapstructure:"state_publish_interval_ms"`
}

// TransportConfig configures the control-plane WebSocket connection.
type TransportConfig struct {
	URL                 string  `mapstructure:"url"`
	Token               string  `mapstructure:"token"`
	PingIntervalSecs    int     `mapstructure:"ping_interval_secs"`
	PongTimeoutSecs     int     `mapstructure:"pong_timeout_secs"`
	ReconnectAttempts   int     `mapstructure:"reconnect_attempts"`
	ReconnectBaseWaitMS int     `mapstructure:"reconnect_base_wait_ms"`
	ReconnectMaxWaitMS  int     `mapstructure:"reconnect_max_wait_ms"`
	SendRatePerSec      float64 `mapstructure:"send_rate_per_sec"`
	SendQueueSize       int     `mapstructure:"send_queue_size"`
}

// LoggingConfig configures the zap-backed logger (see package logger).
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Theme string `mapstructure:"theme"`
}

// ToTransportConfig translates the config tree's transport knobs into a
// transport.Config, the shape transport.DialWithBackoff/NewKeepalive expect.
func (c *Config) ToTransportConfig() transport.Config {
	return transport.Config{
		URL:               c.Transport.URL,
		PingInterval:      time.Duration(c.Transport.PingIntervalSecs) * time.Second,
		PongTimeout:       time.Duration(c.Transport.PongTimeoutSecs) * time.Second,
		ReconnectAttempts: c.Transport.ReconnectAttempts,
		ReconnectBaseWait: time.Duration(c.Transport.ReconnectBaseWaitMS) * time.Millisecond,
		ReconnectMaxWait:  time.Duration(c.Transport.ReconnectMaxWaitMS) * time.Millisecond,
	}
}

// StatePublishInterval returns the configured state publish debounce
// window as a time.Duration.
func (c *Config) StatePublishInterval() time.Duration {
	return time.Duration(c.Agent.StatePublishIntervalMS) * time.Millisecond
}
