// Package config holds the garage monitor settings and loads them from YAML.
//
// Example file:
//
//	http_port: 8080
//	device_index: 1
//	polling_freq: 5
//	gpio_pin: 7
//	interface: eth0
//	event_log: /var/log/garage/events.cbor
//	subscription_ttl: 24h
//	notify_timeout: 10s
//
// Fields absent from the file keep their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rpi-garage/garage-go/pkg/device"
	"github.com/rpi-garage/garage-go/pkg/notify"
	"github.com/rpi-garage/garage-go/pkg/ssdp"
	"github.com/rpi-garage/garage-go/pkg/subscription"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the process settings.
type Config struct {
	// HTTPPort is the status endpoint port.
	HTTPPort int `yaml:"http_port"`

	// DeviceIndex is appended to the device target string.
	DeviceIndex int `yaml:"device_index"`

	// PollingFreq is the sensor polling period in seconds.
	PollingFreq int `yaml:"polling_freq"`

	// GPIOPin is the header pin of the door contact. Negative selects the
	// simulator.
	GPIOPin int `yaml:"gpio_pin"`

	Debug bool `yaml:"debug"`

	// Interface restricts multicast membership (name or address).
	Interface string `yaml:"interface"`

	// EventLog is the path of the CBOR event log. Empty disables it.
	EventLog string `yaml:"event_log"`

	// UUID overrides the device UUID.
	UUID string `yaml:"uuid"`

	// ServerID overrides the SERVER header of discovery responses.
	ServerID string `yaml:"server_id"`

	SubscriptionTTL time.Duration `yaml:"subscription_ttl"`
	NotifyTimeout   time.Duration `yaml:"notify_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPPort:        8080,
		DeviceIndex:     1,
		PollingFreq:     5,
		GPIOPin:         -1,
		UUID:            device.DefaultUUID,
		ServerID:        ssdp.DefaultServerID,
		SubscriptionTTL: subscription.DefaultTTL,
		NotifyTimeout:   notify.DefaultTimeout,
	}
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks ranges and the UUID.
func (c Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("%w: http port must be 1-65535, got %d", ErrInvalid, c.HTTPPort)
	}
	if c.DeviceIndex < 0 {
		return fmt.Errorf("%w: device index must not be negative, got %d", ErrInvalid, c.DeviceIndex)
	}
	if c.PollingFreq <= 0 {
		return fmt.Errorf("%w: polling frequency must be positive, got %d", ErrInvalid, c.PollingFreq)
	}
	if c.SubscriptionTTL <= 0 {
		return fmt.Errorf("%w: subscription ttl must be positive, got %s", ErrInvalid, c.SubscriptionTTL)
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("%w: notify timeout must be positive, got %s", ErrInvalid, c.NotifyTimeout)
	}
	if _, err := c.Identity(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// PollingInterval returns PollingFreq as a duration.
func (c Config) PollingInterval() time.Duration {
	return time.Duration(c.PollingFreq) * time.Second
}

// Identity builds the device identity from UUID and DeviceIndex.
func (c Config) Identity() (device.Identity, error) {
	return device.ParseIdentity(c.UUID, c.DeviceIndex)
}

// Simulated reports whether the simulator replaces the GPIO contact.
func (c Config) Simulated() bool {
	return c.GPIOPin < 0
}
