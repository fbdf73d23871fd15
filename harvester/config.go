package harvester

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all harvester configuration.
type Config struct {
	// MaxFileSize is the largest buffer accepted for scanning (default: 100 MiB).
	MaxFileSize int64 `yaml:"max_file_size"`

	// OutputPath is where the CLI writes the address list (default: emails.txt).
	OutputPath string `yaml:"output_path"`

	// DBPath enables the SQLite scan-history store when non-empty.
	DBPath string `yaml:"db_path"`

	// Listen is the HTTP listen address for serve mode.
	Listen string `yaml:"listen"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.OutputPath == "" {
		c.OutputPath = "emails.txt"
	}
	if c.Listen == "" {
		c.Listen = ":8085"
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
