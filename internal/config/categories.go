package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCategoriesYAML []byte

// CategoryConfig is the single authoritative vocabulary for both
// filtering layers: fine category tokens and the coarse garment-class
// cues. Token order is significant for both.
type CategoryConfig struct {
	Categories []string `yaml:"categories"`
	UpperCues  []string `yaml:"upper_cues"`
	LowerCues  []string `yaml:"lower_cues"`
}

// LoadCategories reads the vocabulary from path, or the embedded default
// when path is empty.
func LoadCategories(path string) (CategoryConfig, error) {
	raw := defaultCategoriesYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return CategoryConfig{}, fmt.Errorf("read category config: %w", err)
		}
		raw = data
	}

	var cfg CategoryConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return CategoryConfig{}, fmt.Errorf("parse category config: %w", err)
	}
	if len(cfg.Categories) == 0 {
		return CategoryConfig{}, fmt.Errorf("category config: empty category list")
	}
	return cfg, nil
}
