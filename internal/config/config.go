package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type Config struct {
	KVPath       string        `yaml:"kv_path"`
	PersistDelay time.Duration `yaml:"persist_delay"`
	Server       ServerConfig  `yaml:"server"`
}

func DefaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "config.yml"
	}
	return filepath.Join(filepath.Dir(exe), "config.yml")
}

func DefaultKVPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "quickie.db"
	}
	return filepath.Join(filepath.Dir(exe), "quickie.db")
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// Load reads the config at path, filling defaults for anything unset.
// A missing file is not an error; the defaults are a working config.
func Load(path string) (*Config, error) {
	cfg := &Config{
		KVPath: DefaultKVPath(),
		Server: ServerConfig{
			URL:     "http://localhost:8080",
			Enabled: true,
		},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.KVPath == "" {
		cfg.KVPath = DefaultKVPath()
	}

	if cfg.KVPath[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.KVPath = filepath.Join(home, cfg.KVPath[1:])
	}

	return cfg, nil
}

func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
