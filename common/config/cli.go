// Package config loads and saves modelctl profiles.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultIngestURL is used when neither the profile nor the environment sets one.
const DefaultIngestURL = "http://localhost:8080"

// CLIConfig is the on-disk modelctl configuration.
type CLIConfig struct {
	CurrentProfile string              `mapstructure:"current_profile" yaml:"current_profile"`
	Profiles       map[string]*Profile `mapstructure:"profiles" yaml:"profiles"`

	path string
}

// Profile points modelctl at one ingest deployment.
type Profile struct {
	IngestURL string `mapstructure:"ingest_url" yaml:"ingest_url"`
	Token     string `mapstructure:"token" yaml:"token,omitempty"`
}

// DefaultCLI returns an empty configuration with the default profile selected.
func DefaultCLI() *CLIConfig {
	return &CLIConfig{
		CurrentProfile: "default",
		Profiles:       make(map[string]*Profile),
	}
}

// DefaultPath is $MODELCTL_CONFIG_DIR/config.yaml, falling back to ~/.modelctl.
func DefaultPath() (string, error) {
	dir := os.Getenv("MODELCTL_CONFIG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".modelctl")
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadCLI reads path (DefaultPath when empty). A missing file yields DefaultCLI.
func LoadCLI(path string) (*CLIConfig, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	v.SetDefault("current_profile", "default")
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MODELCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := DefaultCLI()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}
	cfg.path = path
	return cfg, nil
}

// Path returns the file the configuration was loaded from.
func (c *CLIConfig) Path() string { return c.path }

// Save writes the configuration as YAML with owner-only permissions.
func (c *CLIConfig) Save() error {
	if c.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(c.path, data, 0o600)
}

// SaveProfile stores p under name, selects it and writes the file.
func (c *CLIConfig) SaveProfile(name string, p *Profile) error {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}
	c.Profiles[name] = p
	c.CurrentProfile = name
	return c.Save()
}

// Resolve returns the named profile (current when name is empty) with
// MODELCTL_URL and MODELCTL_TOKEN applied on top. An unknown profile
// resolves to the defaults rather than failing, so env-only use works.
func (c *CLIConfig) Resolve(name string) Profile {
	if name == "" {
		name = c.CurrentProfile
	}
	p := Profile{IngestURL: DefaultIngestURL}
	if stored, ok := c.Profiles[name]; ok && stored != nil {
		if stored.IngestURL != "" {
			p.IngestURL = stored.IngestURL
		}
		p.Token = stored.Token
	}
	if u := os.Getenv("MODELCTL_URL"); u != "" {
		p.IngestURL = u
	}
	if t := os.Getenv("MODELCTL_TOKEN"); t != "" {
		p.Token = t
	}
	p.IngestURL = strings.TrimRight(p.IngestURL, "/")
	return p
}
