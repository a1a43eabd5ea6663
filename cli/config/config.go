package config

import (
	"fmt"
	"time"
)

// Config represents a scanport.yaml configuration file.
// All values are optional and act as defaults for scanport flags.
// CLI flags always override config values.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	UR      URConfig      `yaml:"ur"`
	BBQr    BBQrConfig    `yaml:"bbqr"`
	Journal JournalConfig `yaml:"journal"`
	Adapter AdapterConfig `yaml:"adapter"`
	Log     LogConfig     `yaml:"log"`
}

// InputConfig holds fragment input defaults for scan.
type InputConfig struct {
	Format string `yaml:"format"`
	Origin string `yaml:"origin"`
}

// URConfig holds UR fragment sizing for split.
type URConfig struct {
	MaxFragmentLength int `yaml:"max_fragment_length"`
	MinFragmentLength int `yaml:"min_fragment_length"`
}

// BBQrConfig holds BBQr defaults for split.
type BBQrConfig struct {
	Encoding  string `yaml:"encoding"`
	FileType  string `yaml:"file_type"`
	PartChars int    `yaml:"part_chars"`
	MinParts  int    `yaml:"min_parts"`
}

// JournalConfig holds journal storage defaults from the config file.
type JournalConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
