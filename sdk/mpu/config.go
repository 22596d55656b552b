package mpu

import (
	"fmt"
	"os"

	"github.com/leandrodaf/mpuart/sdk/contracts"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML device configuration. Durations use Go syntax
// ("1ms", "50ms"); missing fields keep their defaults.
func LoadConfig(path string) (contracts.Config, error) {
	var cfg contracts.Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
