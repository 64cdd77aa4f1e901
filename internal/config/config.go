// Package config holds the daemon configuration: panel wiring, busy-gate
// bounds, refresh scheduling and the capture source.
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

// Duration wraps time.Duration so YAML configs can use "5s", "200us" etc.
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// PinsConfig names the BCM GPIO numbers of the panel control lines.
type PinsConfig struct {
	DC    int `yaml:"dc" json:"dc"`
	Reset int `yaml:"reset" json:"reset"`
	Busy  int `yaml:"busy" json:"busy"`
	Power int `yaml:"power" json:"power"`
}

// CaptureConfig describes the page the daemon screenshots for the panel.
type CaptureConfig struct {
	// URL is the page to capture. Empty disables capture; the daemon then
	// shows the built-in status banner.
	URL string `yaml:"url" json:"url"`
	// Width and Height are the browser viewport. They default to the
	// panel geometry.
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	// Timeout bounds a single capture.
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

// Config is the top-level daemon configuration.
type Config struct {
	// Listen is the HTTP listen address for the status endpoints.
	Listen string `yaml:"listen" json:"listen"`

	// SPI is the spireg port name (e.g. "SPI0.0"); empty picks the first
	// available port. SPIHz is the bus clock.
	SPI   string `yaml:"spi" json:"spi"`
	SPIHz int    `yaml:"spi_hz" json:"spi_hz"`

	Pins PinsConfig `yaml:"pins" json:"pins"`

	// BusyTimeout and PollInterval bound the busy-line waits.
	BusyTimeout  Duration `yaml:"busy_timeout" json:"busy_timeout"`
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`

	// Mode selects the drawing surface: "binary" or "gray2".
	Mode string `yaml:"mode" json:"mode"`

	// RefreshCron schedules the capture/display cycle.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// FullRefreshEvery forces a full (ghost-purging) refresh every N
	// cycles; the cycles in between use the fast waveform.
	FullRefreshEvery int `yaml:"full_refresh_every" json:"full_refresh_every"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// LogLevel: "debug", "info" or "error".
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration matching the
// vendor HAT wiring.
func DefaultConfig() *Config {
	return &Config{
		Listen:           "127.0.0.1:8080",
		SPI:              "",
		SPIHz:            4_000_000,
		Pins:             PinsConfig{DC: 25, Reset: 17, Busy: 24, Power: 18},
		BusyTimeout:      Duration(5 * time.Second),
		PollInterval:     Duration(200 * time.Microsecond),
		Mode:             "gray2",
		RefreshCron:      "*/15 * * * *",
		FullRefreshEvery: 4,
		Capture: CaptureConfig{
			Width:   792,
			Height:  272,
			Timeout: Duration(30 * time.Second),
		},
		LogLevel: "info",
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.SPIHz <= 0 {
		c.SPIHz = def.SPIHz
	}
	if c.Pins == (PinsConfig{}) {
		c.Pins = def.Pins
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = def.BusyTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	switch c.Mode {
	case "binary", "gray2":
	default:
		c.Mode = def.Mode
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.FullRefreshEvery <= 0 {
		c.FullRefreshEvery = def.FullRefreshEvery
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = def.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = def.Capture.Height
	}
	if c.Capture.Timeout <= 0 {
		c.Capture.Timeout = def.Capture.Timeout
	}
	switch c.LogLevel {
	case "debug", "info", "error":
	default:
		c.LogLevel = def.LogLevel
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600,
// parent directory created) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".epdpanel-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
