package config

import (
	_ "embed"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the complete tilestream configuration.
type Config struct {
	Stream     Stream     `yaml:"stream"`
	Generation Generation `yaml:"generation"`
	Storage    Storage    `yaml:"storage"`
}

// Stream holds chunk streaming settings
type Stream struct {
	Frustum         [2]int `yaml:"frustum"`
	Padding         int    `yaml:"padding"`
	RetentionMargin int    `yaml:"retention_margin"`
	ActivateRadius  int    `yaml:"activate_radius"`
	Async           bool   `yaml:"async"`
	Workers         int    `yaml:"workers"`
	QueueSize       int    `yaml:"queue_size"`
}

// Storage selects the persistence back end.
type Storage struct {
	Backend    string `yaml:"backend"`
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Default returns the embedded defaults.
func Default() Config {
	cfg, err := Parse(nil)
	if err != nil {
		// defaults.yaml ships with the binary
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads a YAML file and overlays it on the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data on top of the defaults. Nil data yields the defaults.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return Config{}, err
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize clamps values into usable ranges.
func (c *Config) Normalize() {
	c.Stream.normalize()
	c.Generation.normalize()
	switch c.Storage.Backend {
	case "file", "sqlite", "none":
	default:
		c.Storage.Backend = "file"
	}
}

func (s *Stream) normalize() {
	for i := range s.Frustum {
		if s.Frustum[i] < 1 {
			s.Frustum[i] = 1
		}
	}
	if s.Padding < 0 {
		s.Padding = 0
	}
	if s.RetentionMargin < 0 {
		s.RetentionMargin = 0
	}
	if s.ActivateRadius < 0 {
		s.ActivateRadius = 0
	}
	if s.Workers <= 0 {
		s.Workers = max(runtime.NumCPU(), 1)
	}
	if s.QueueSize < 1 {
		s.QueueSize = 1
	}
}
