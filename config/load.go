package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/arkitektio/rekuest-next/errors"
)

var (
	globalConfig  *Config
	viperInstance *viper.Viper
)

// Load reads the agent's configuration using Viper, caching the result for
// subsequent calls -- mirrors am/load.go's Load.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: failed to unmarshal config")
	}
	globalConfig = &cfg
	return globalConfig, nil
}

// GetViper returns the package's Viper instance for advanced access.
func GetViper() *viper.Viper {
	return initViper()
}

// LoadFromFile loads configuration from a specific TOML file path, bypassing
// the layered search/merge Load performs.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "config: failed to read config file %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "config: failed to unmarshal config from %s", path)
	}
	return &cfg, nil
}

// Reset clears the cached configuration, for tests and for Watcher's
// reload path.
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()
	v.SetEnvPrefix("REKUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)
	SetDefaults(v)
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig walks up from the working directory looking for
// rekuest-agent.toml, mirroring am/load.go's findProjectConfig.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, "rekuest-agent.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFiles merges config files in ascending precedence: system,
// then user, then project -- env vars (already bound on v) outrank all of
// them since viper checks env before file-set values. Mirrors
// am/load.go's mergeConfigFiles, simplified to this agent's single-file
// layers (no UI-written override file, no plugin namespace).
func mergeConfigFiles(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()

	paths := []string{
		"/etc/rekuest-agent/config.toml",
		filepath.Join(homeDir, ".rekuest", "config.toml"),
	}
	if project := findProjectConfig(); project != "" {
		paths = append(paths, project)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		tmp := viper.New()
		tmp.SetConfigFile(path)
		tmp.SetConfigType("toml")
		if err := tmp.ReadInConfig(); err != nil {
			continue
		}
		if err := v.MergeConfigMap(tmp.AllSettings()); err != nil {
			continue
		}
	}
}
