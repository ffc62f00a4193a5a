// Package config loads daemon configuration.
//
// Values are layered: hardcoded defaults, then an optional YAML config
// file, then KILND_ environment variables. A config file path given
// explicitly must exist; the default path is loaded only when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilnhq/kilnd/internal/isolation"
	"github.com/kilnhq/kilnd/internal/paths"
)

type Config struct {
	Socket   string         `koanf:"socket"`   // Unix socket path. Empty uses the runtime dir default.
	DataDir  string         `koanf:"data_dir"` // Root for container and volume state.
	Registry RegistryConfig `koanf:"registry"`
	Limits   LimitsConfig   `koanf:"limits"`
}

// Simulated registry behavior.
type RegistryConfig struct {
	PullDelay string `koanf:"pull_delay"` // Latency applied to pulls, e.g. "150ms".
}

// Default resource limits for containers started without explicit ones.
type LimitsConfig struct {
	Memory string  `koanf:"memory"` // Human-readable size, e.g. "512MiB".
	CPU    float64 `koanf:"cpu"`    // CPU cores.
}

const (
	DefaultRegistryPullDelay = "150ms"
	DefaultLimitsMemory      = "512MiB"
	DefaultLimitsCPU         = 1.0
)

// Loads configuration from the given file path, or from the default
// config file when path is empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"registry.pull_delay": DefaultRegistryPullDelay,
		"limits.memory":       DefaultLimitsMemory,
		"limits.cpu":          DefaultLimitsCPU,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	} else {
		defaultPath := paths.ConfigFile()
		if _, err := os.Stat(defaultPath); err == nil {
			if err := k.Load(file.Provider(defaultPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config %s: %w", defaultPath, err)
			}
		} else {
			slog.Debug("default config not found", "path", defaultPath)
		}
	}

	k.Load(env.Provider("KILND_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "KILND_")), "_", ".", -1)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Parses the configured pull delay.
func (c *Config) PullDelay() (time.Duration, error) {
	if c.Registry.PullDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Registry.PullDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid registry.pull_delay %q: %w", c.Registry.PullDelay, err)
	}
	return d, nil
}

// Converts the configured limits to engine limits. Empty fields stay
// zero so the engine defaults apply.
func (c *Config) DefaultLimits() (isolation.Limits, error) {
	var limits isolation.Limits

	if c.Limits.Memory != "" {
		memory, err := units.RAMInBytes(c.Limits.Memory)
		if err != nil {
			return isolation.Limits{}, fmt.Errorf("invalid limits.memory %q: %w", c.Limits.Memory, err)
		}
		limits.Memory = memory
	}
	limits.CPUCores = c.Limits.CPU

	return limits, nil
}
