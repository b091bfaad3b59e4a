package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk ddctl configuration.
type Config struct {
	Host       string `yaml:"host" json:"host"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	Username   string `yaml:"username" json:"username"`
	Password   string `yaml:"password" json:"password"`
	VerifyTLS  bool   `yaml:"verify_tls" json:"verify_tls"`
	SSHPort    int    `yaml:"ssh_port" json:"ssh_port"`
	KnownHosts string `yaml:"known_hosts" json:"known_hosts"`
	Output     string `yaml:"output" json:"output"`
}

// DefaultConfigPath returns ~/.ddctl/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".ddctl", "config.yaml")
	}
	return filepath.Join(home, ".ddctl", "config.yaml")
}

// LoadConfig reads the YAML file at path. A missing file yields the
// defaults. Files readable by group or others get a warning on warn, since
// they may hold a password.
func LoadConfig(path string, warn io.Writer) (*Config, error) {
	cfg := &Config{Output: "table"}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 && warn != nil {
		fmt.Fprintf(warn, "warning: config file %s has permissions %04o, expected 0600\n", path, perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
