package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Providers Providers `yaml:"providers"`
	Crawl     Crawl     `yaml:"crawl"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Providers struct {
	WorldBank ProviderConfig `yaml:"worldbank"`
	Census    ProviderConfig `yaml:"census"`
}

type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	// ReleaseFeed is an optional RSS/Atom announcement feed scanned for
	// newly released indicator IDs before the direct-lookup strategy runs.
	ReleaseFeed string `yaml:"release_feed"`
}

type Crawl struct {
	MinDelayMS     int `yaml:"min_delay_ms"`
	MaxAttempts    int `yaml:"max_attempts"`
	MaxSweepPages  int `yaml:"max_sweep_pages"`
	RunTimeoutSecs int `yaml:"run_timeout_secs"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for econcrawl.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "econcrawl")
}

// DataDir returns the XDG data directory for econcrawl.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "econcrawl")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/econcrawl/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'econcrawl init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Providers: Providers{
			WorldBank: ProviderConfig{
				Enabled: true,
				BaseURL: "https://api.worldbank.org/v2",
			},
			Census: ProviderConfig{
				Enabled: true,
				BaseURL: "https://api.census.gov/data",
			},
		},
		Crawl: Crawl{
			MinDelayMS:     100,
			MaxAttempts:    3,
			MaxSweepPages:  10,
			RunTimeoutSecs: 600,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// MinDelay returns the politeness floor between requests to one provider.
func (c *Config) MinDelay() time.Duration {
	if c.Crawl.MinDelayMS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.Crawl.MinDelayMS) * time.Millisecond
}

// RunTimeout returns the wall-clock bound for one discovery run.
func (c *Config) RunTimeout() time.Duration {
	if c.Crawl.RunTimeoutSecs <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Crawl.RunTimeoutSecs) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
