package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"jobshop_heuristics/search"
)

// loadParams overlays the YAML file at path onto cfg. Keys missing from the file keep their
// current values.
func loadParams(path string, cfg *search.Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read parameter file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse parameter file: %w", err)
	}
	return nil
}
