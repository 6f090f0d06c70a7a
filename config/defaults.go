package config

import "github.com/spf13/viper"

// SetDefaults configures default values for every configuration option,
// mirroring am/defaults.go's SetDefaults.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("agent.instance_id", "")
	v.SetDefault("agent.state_publish_interval_ms", 250)

	v.SetDefault("transport.url", "ws://localhost:8000/ws")
	v.SetDefault("transport.token", "")
	v.SetDefault("transport.ping_interval_secs", 30)
	v.SetDefault("transport.pong_timeout_secs", 60)
	v.SetDefault("transport.reconnect_attempts", 0) // 0 = retry forever
	v.SetDefault("transport.reconnect_base_wait_ms", 1000)
	v.SetDefault("transport.reconnect_max_wait_ms", 30000)
	v.SetDefault("transport.send_rate_per_sec", 50.0)
	v.SetDefault("transport.send_queue_size", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.theme", "")
}

// BindSensitiveEnvVars explicitly binds secrets to environment variables
// rather than leaving them discoverable only through AutomaticEnv's
// implicit REKUEST_-prefixed lookup, mirroring am/defaults.go's
// BindSensitiveEnvVars.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("transport.token", "REKUEST_TRANSPORT_TOKEN")
	v.BindEnv("transport.url", "REKUEST_TRANSPORT_URL")
	v.BindEnv("agent.instance_id", "REKUEST_AGENT_INSTANCE_ID")
}
