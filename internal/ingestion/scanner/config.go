package scanner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var DefaultDisqualifiers = []string{
	"high", "borderline", "normal", "desirable", "above", "below", "ref", "method",
}

type Config struct {
	Disqualifiers []string `yaml:"disqualifiers"`
	MinWords      int      `yaml:"min_words"`
}

func DefaultConfig() Config {
	return Config{
		Disqualifiers: append([]string(nil), DefaultDisqualifiers...),
		MinWords:      2,
	}
}

func (c Config) withDefaults() Config {
	if c.MinWords <= 0 {
		c.MinWords = 2
	}
	if len(c.Disqualifiers) == 0 {
		c.Disqualifiers = append([]string(nil), DefaultDisqualifiers...)
	}
	return c
}

// LoadConfig reads a YAML overlay. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scanner config %q: %w", path, err)
	}
	return ParseConfig(raw)
}

func ParseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse scanner config: %w", err)
	}
	return cfg.withDefaults(), nil
}
