package log

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DefaultLevel string   `yaml:"defaultLevel"`
	Filters      []string `yaml:"filters"`
}

// LoadConfig reads a yaml file with the default level and zapfilter rules.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read log config: %w", err)
	}
	cfg := &Config{DefaultLevel: "info"}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse log config: %w", err)
	}
	return cfg, nil
}

// Apply creates a logger honoring the config on top of the given base logger.
func (c *Config) Apply(base *Logger) *Logger {
	if len(c.Filters) == 0 {
		return base
	}
	rules := ""
	for i, f := range c.Filters {
		if i > 0 {
			rules += " "
		}
		rules += f
	}
	return base.WithFilters(rules)
}
