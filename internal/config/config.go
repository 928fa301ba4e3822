package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CristiGvl/picoOmenCtl/internal/profile"
)

// Config holds the service configuration
type Config struct {
	Bind      string `yaml:"bind"`
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// AllowedOrigins lists browser origins permitted to call the API.
	// Empty rejects every cross-origin request.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// WMITimeout bounds each BIOS settings call
	WMITimeout time.Duration `yaml:"wmi_timeout"`

	// BoardID and ProductName override host detection when set
	BoardID     string `yaml:"board_id"`
	ProductName string `yaml:"product_name"`

	// ECDevice overrides the privileged driver path
	ECDevice string `yaml:"ec_device"`
	// BiosCfgDir overrides the Linux firmware-attributes directory
	BiosCfgDir string `yaml:"bioscfg_dir"`

	// Profiles adds or replaces board entries, keyed by board ID
	Profiles map[string]profile.DeviceProfile `yaml:"profiles"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Bind:       "127.0.0.1",
		Port:       "8080",
		LogLevel:   "info",
		LogFormat:  "text",
		WMITimeout: 5 * time.Second,
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file '%s': %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing YAML from '%s': %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", path, err)
	}

	return cfg, nil
}

// Overrides carries command line values. Nil fields keep the loaded value.
type Overrides struct {
	Port     *string
	Bind     *string
	LogLevel *string
}

// Apply sets the non-nil overrides and validates the result
func (c *Config) Apply(o Overrides) error {
	if o.Port != nil {
		c.Port = *o.Port
	}
	if o.Bind != nil {
		c.Bind = *o.Bind
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	return c.Validate()
}

// Validate checks field ranges
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", c.Port)
	}
	if c.WMITimeout <= 0 {
		return fmt.Errorf("wmi_timeout must be positive, got %s", c.WMITimeout)
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("allowed_origins must list explicit origins, not %q", origin)
		}
	}
	for id, p := range c.Profiles {
		if p.FanMaxRPM < 0 {
			return fmt.Errorf("profile %s: fan_max_rpm must not be negative", id)
		}
	}
	return nil
}

// Address returns the listen address
func (c *Config) Address() string {
	return c.Bind + ":" + c.Port
}
