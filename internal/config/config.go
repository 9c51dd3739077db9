// Package config loads the ridefit configuration file
// (~/.config/ridefit/config.yaml).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// FTP is used when an activity document does not carry one.
	FTP       int          `yaml:"ftp"`
	Device    Device       `yaml:"device"`
	LogLevel  string       `yaml:"log_level"`
	LogFormat string       `yaml:"log_format"`
	Server    Server       `yaml:"server"`
	Decode    DecodeConfig `yaml:"decode"`
}

// Device overrides the creator identity written to encoded files.
type Device struct {
	Manufacturer    uint16  `yaml:"manufacturer"`
	Product         uint16  `yaml:"product"`
	ProductName     string  `yaml:"product_name"`
	SoftwareVersion float64 `yaml:"software_version"`
	SerialNumber    uint32  `yaml:"serial_number"`
}

type Server struct {
	Address     string        `yaml:"address"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	DataDir     string        `yaml:"data_dir"`
	// RateLimit is the sustained number of codec requests per second.
	RateLimit    float64 `yaml:"rate_limit"`
	RateBurst    int     `yaml:"rate_burst"`
	MaxBodyBytes int64   `yaml:"max_body_bytes"`
}

type DecodeConfig struct {
	VerifyChecksum *bool `yaml:"verify_checksum"`
}

// Verify reports whether trailing file checksums should be checked.
func (d DecodeConfig) Verify() bool {
	return d.VerifyChecksum == nil || *d.VerifyChecksum
}

func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "pretty",
		Server: Server{
			Address:      "127.0.0.1:8088",
			ReadTimeout:  30 * time.Second,
			DataDir:      defaultDataDir(),
			RateLimit:    20,
			RateBurst:    40,
			MaxBodyBytes: 16 << 20,
		},
	}
}

// Path returns the default config file location, or "" when the user config
// directory cannot be determined.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ridefit", "config.yaml")
}

func defaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "ridefit-data"
	}
	return filepath.Join(dir, "ridefit", "activities")
}

// Load reads path over Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.FTP < 0:
		return fmt.Errorf("ftp must not be negative, got %d", c.FTP)
	case c.Server.RateLimit < 0:
		return fmt.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	case c.Server.RateBurst < 0:
		return fmt.Errorf("server.rate_burst must not be negative, got %d", c.Server.RateBurst)
	case c.Server.MaxBodyBytes < 0:
		return fmt.Errorf("server.max_body_bytes must not be negative, got %d", c.Server.MaxBodyBytes)
	}
	return nil
}
