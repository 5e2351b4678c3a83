package editkeeper

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all editkeeper configuration.
type Config struct {
	// Roots maps symbolic root keys to absolute directories. Callers only
	// ever name files as (root, relative path).
	Roots map[string]string `yaml:"roots"`

	// AllowedExtensions restricts which files are editable at all.
	AllowedExtensions []string `yaml:"allowed_extensions"`

	MaxFileBytes  int64 `yaml:"max_file_bytes"`
	MaxPatchBytes int   `yaml:"max_patch_bytes"`

	Risk RiskConfig `yaml:"risk"`
}

// RiskConfig sets the changed-line thresholds for the risk classifier.
type RiskConfig struct {
	HighLines   int `yaml:"high_lines"`
	MediumLines int `yaml:"medium_lines"`
}

func (c *Config) defaults() {
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = []string{
			".txt", ".md", ".go", ".js", ".jsx", ".ts", ".tsx",
			".json", ".yaml", ".yml", ".toml", ".css", ".html",
			".py", ".rs", ".sql", ".sh",
		}
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = 2 << 20
	}
	if c.MaxPatchBytes <= 0 {
		c.MaxPatchBytes = 1 << 20
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
