package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's device file.
type Config struct {
	Devices []Device  `yaml:"devices"`
	Log     LogConfig `yaml:"log"`
}

// Device describes one television.
type Device struct {
	Name         string `yaml:"name"`
	IP           string `yaml:"ip"`
	MAC          string `yaml:"mac"`
	Model        string `yaml:"model"`
	APIVersion   int    `yaml:"api_version"`
	Port         int    `yaml:"port"`
	Broadcast    string `yaml:"broadcast"`
	PollInterval string `yaml:"poll_interval"`

	// PlayPauseKey replaces the native key sent for the play/pause remote button.
	PlayPauseKey string `yaml:"play_pause_key"`

	// PowerOff enables sending standby to the television. Most firmware ignores it.
	PowerOff bool `yaml:"power_off"`

	WakeOnLan       WakeOnLanConfig        `yaml:"wake_on_lan"`
	AmbilightHue    AmbilightHueConfig     `yaml:"ambilight_hue"`
	AmbilightStyles []AmbilightStyleConfig `yaml:"ambilight_styles"`
}

type WakeOnLanConfig struct {
	Requests int    `yaml:"requests"`
	Timeout  string `yaml:"timeout"`
}

type AmbilightHueConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// AmbilightStyleConfig is exposed as a HomeKit input source.
// Exactly one of Value (menu setting) or String (string value) is sent.
type AmbilightStyleConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Value  string `yaml:"value"`
	String string `yaml:"str"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	for i := range c.Devices {
		d := &c.Devices[i]
		if d.APIVersion == 0 {
			d.APIVersion = 6
		}
		if d.Port == 0 {
			d.Port = 1925
		}
		if d.Broadcast == "" {
			d.Broadcast = "255.255.255.255"
		}
		if d.PollInterval == "" {
			d.PollInterval = "15s"
		}
		if d.WakeOnLan.Requests == 0 {
			d.WakeOnLan.Requests = 1
		}
		if d.WakeOnLan.Timeout == "" {
			d.WakeOnLan.Timeout = "1s"
		}
		if d.AmbilightHue.Name == "" {
			d.AmbilightHue.Name = d.Name + " Ambilight + Hue"
		}
	}
}

// Validate checks that every device can be reached and that durations parse.
func (c *Config) Validate() error {
	if len(c.Devices) == 0 {
		return errors.New("no devices configured")
	}

	names := map[string]bool{}
	macs := map[string]bool{}
	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("device %d: missing name", i)
		}
		if names[d.Name] {
			return fmt.Errorf("device %q: duplicate name", d.Name)
		}
		names[d.Name] = true

		if d.IP == "" {
			return fmt.Errorf("device %q: missing ip", d.Name)
		}
		hw, err := net.ParseMAC(d.MAC)
		if err != nil {
			return fmt.Errorf("device %q: invalid mac %q: %w", d.Name, d.MAC, err)
		}
		if macs[hw.String()] {
			return fmt.Errorf("device %q: duplicate mac %s", d.Name, hw)
		}
		macs[hw.String()] = true
		if _, err := d.Interval(); err != nil {
			return fmt.Errorf("device %q: %w", d.Name, err)
		}
		if _, err := d.WakeTimeout(); err != nil {
			return fmt.Errorf("device %q: %w", d.Name, err)
		}
		for _, s := range d.AmbilightStyles {
			if s.Name == "" || s.Type == "" {
				return fmt.Errorf("device %q: ambilight style needs name and type", d.Name)
			}
		}
	}

	return nil
}

// Interval returns the poll interval.
func (d Device) Interval() (time.Duration, error) {
	interval, err := time.ParseDuration(d.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("parsing poll_interval: %w", err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("poll_interval must be positive, got %s", d.PollInterval)
	}
	return interval, nil
}

func (d Device) WakeTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(d.WakeOnLan.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parsing wake_on_lan.timeout: %w", err)
	}
	return timeout, nil
}
