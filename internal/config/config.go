// Package config loads the service configuration. Fields omitted from the
// JSON file retain their defaults, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rigel-imaging/camerad/internal/spin"
)

// Config is the root service configuration. All fields are pointers so that
// absent values fall back to defaults via the Get* accessors.
type Config struct {
	// Listen is the HTTP listen address.
	Listen *string `json:"listen,omitempty"`

	// Sim selects the in-memory device model instead of a serial camera.
	Sim           *bool `json:"sim,omitempty"`
	SimChipWidth  *int  `json:"sim_chip_width,omitempty"`
	SimChipHeight *int  `json:"sim_chip_height,omitempty"`

	// PortPath is the serial device of the camera control channel.
	PortPath *string `json:"port_path,omitempty"`
	BaudRate *int    `json:"baud_rate,omitempty"`
	DataBits *int    `json:"data_bits,omitempty"`
	StopBits *int    `json:"stop_bits,omitempty"`
	Parity   *string `json:"parity,omitempty"`

	// EventLogPath is the sqlite file recording reconciliations.
	EventLogPath *string `json:"event_log_path,omitempty"`
}

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json extension
// and stay under the max file size.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.SimChipWidth != nil && *c.SimChipWidth < 4 {
		return fmt.Errorf("sim_chip_width must be at least 4, got %d", *c.SimChipWidth)
	}
	if c.SimChipHeight != nil && *c.SimChipHeight < 4 {
		return fmt.Errorf("sim_chip_height must be at least 4, got %d", *c.SimChipHeight)
	}
	if !c.GetSim() && c.GetPortPath() == "" {
		return fmt.Errorf("port_path is required unless sim mode is enabled")
	}
	if _, err := c.SerialOptions().Normalize(); err != nil {
		return fmt.Errorf("invalid serial options: %w", err)
	}
	return nil
}

// GetListen returns the listen address or the default.
func (c *Config) GetListen() string {
	if c.Listen == nil {
		return ":8080"
	}
	return *c.Listen
}

// GetSim reports whether the simulated device is selected.
func (c *Config) GetSim() bool {
	if c.Sim == nil {
		return false
	}
	return *c.Sim
}

// GetSimChipWidth returns the simulated chip width or the default.
func (c *Config) GetSimChipWidth() int {
	if c.SimChipWidth == nil {
		return 2048
	}
	return *c.SimChipWidth
}

// GetSimChipHeight returns the simulated chip height or the default.
func (c *Config) GetSimChipHeight() int {
	if c.SimChipHeight == nil {
		return 2048
	}
	return *c.SimChipHeight
}

// GetPortPath returns the serial device path, empty when unset.
func (c *Config) GetPortPath() string {
	if c.PortPath == nil {
		return ""
	}
	return *c.PortPath
}

// GetEventLogPath returns the event log location or the default.
func (c *Config) GetEventLogPath() string {
	if c.EventLogPath == nil {
		return "camerad_events.db"
	}
	return *c.EventLogPath
}

// SerialOptions assembles the control-channel port options.
func (c *Config) SerialOptions() spin.PortOptions {
	opts := spin.PortOptions{}
	if c.BaudRate != nil {
		opts.BaudRate = *c.BaudRate
	}
	if c.DataBits != nil {
		opts.DataBits = *c.DataBits
	}
	if c.StopBits != nil {
		opts.StopBits = *c.StopBits
	}
	if c.Parity != nil {
		opts.Parity = *c.Parity
	}
	return opts
}
