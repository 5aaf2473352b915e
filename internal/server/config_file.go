package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadConfigFile overlays the YAML document at path onto cfg. Only keys
// present in the file are touched, so defaults survive partial files.
func loadConfigFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}
