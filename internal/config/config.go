// Package config loads observatory client configuration from a file
// and the environment into validated, typed structures.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/michealroberts/pwi/pkg/pwi"
)

// Config is the top-level observatory client configuration.
type Config struct {
	// Controller is the PWI controller endpoint
	Controller ControllerConfig `mapstructure:"controller"`

	// Site is the observing site the mount is configured for
	Site SiteConfig `mapstructure:"site"`

	// Focuser configures the focuser device interface
	Focuser DeviceConfig `mapstructure:"focuser"`

	// Mount configures the mount device interface
	Mount MountConfig `mapstructure:"mount"`

	// Telemetry configures the optional MQTT status publisher
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// LogLevel selects the logger profile (debug, info, warn, error)
	LogLevel string `mapstructure:"log_level"`
}

// ControllerConfig holds the PWI controller endpoint settings.
type ControllerConfig struct {
	// Host is the controller hostname or IP address
	Host string `mapstructure:"host"`
	// Port is the controller HTTP port
	Port int `mapstructure:"port"`
	// Timeout applies uniformly to connect, read and write
	Timeout time.Duration `mapstructure:"timeout"`
}

// SiteConfig holds the geographic coordinates of the observing site.
type SiteConfig struct {
	// Latitude in degrees north
	Latitude float64 `mapstructure:"latitude"`
	// Longitude in degrees east
	Longitude float64 `mapstructure:"longitude"`
	// Elevation above sea level in metres
	Elevation float64 `mapstructure:"elevation"`
}

// DeviceConfig holds the identity of one device interface.
type DeviceConfig struct {
	// ID is the numeric device identifier
	ID int `mapstructure:"id"`
	// DeviceID is the controller-assigned identifier
	DeviceID string `mapstructure:"device_id"`
	// VendorID is the USB vendor ID, when known
	VendorID string `mapstructure:"vendor_id"`
	// ProductID is the USB product ID, when known
	ProductID string `mapstructure:"product_id"`
	// Name is the human-readable device name
	Name string `mapstructure:"name"`
	// Description is a human-readable device description
	Description string `mapstructure:"description"`
}

// MountConfig extends DeviceConfig with mount-specific settings.
type MountConfig struct {
	DeviceConfig `mapstructure:",squash"`

	// Alignment is the mechanical alignment mode (alt_az, equatorial, ...)
	Alignment string `mapstructure:"alignment"`
	// Tracking is the tracking rate profile (sidereal, solar, lunar, custom)
	Tracking string `mapstructure:"tracking"`
}

// TelemetryConfig holds the MQTT status publisher settings.
type TelemetryConfig struct {
	// Enabled turns the publisher on
	Enabled bool `mapstructure:"enabled"`
	// BrokerURL is the MQTT broker URL
	BrokerURL string `mapstructure:"broker_url"`
	// ClientID identifies the publisher to the broker (optional)
	ClientID string `mapstructure:"client_id"`
	// Username for MQTT authentication (optional)
	Username string `mapstructure:"username"`
	// Password for MQTT authentication (optional)
	Password string `mapstructure:"password"`
	// Interval between status publications
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads configuration from the given file, layering PWI_*
// environment variables on top, and validates the result. An empty
// path loads defaults plus the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("controller.host", pwi.DefaultHost)
	v.SetDefault("controller.port", pwi.DefaultPort)
	v.SetDefault("controller.timeout", pwi.DefaultTimeout)
	v.SetDefault("mount.alignment", string(pwi.MountAlignmentModeAltAz))
	v.SetDefault("mount.tracking", string(pwi.MountTrackingModeSidereal))
	v.SetDefault("telemetry.interval", 10*time.Second)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("PWI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks the configuration for values the client cannot work
// with.
func (c *Config) Validate() error {
	if c.Controller.Port < 1 || c.Controller.Port > 65535 {
		return fmt.Errorf("controller port out of range: %d", c.Controller.Port)
	}
	if c.Controller.Timeout <= 0 {
		return fmt.Errorf("controller timeout must be positive: %v", c.Controller.Timeout)
	}
	if c.Site.Latitude < -90 || c.Site.Latitude > 90 {
		return fmt.Errorf("site latitude out of range: %f", c.Site.Latitude)
	}
	if c.Site.Longitude < -180 || c.Site.Longitude > 180 {
		return fmt.Errorf("site longitude out of range: %f", c.Site.Longitude)
	}

	switch pwi.MountAlignmentMode(c.Mount.Alignment) {
	case pwi.MountAlignmentModeUnknown,
		pwi.MountAlignmentModeEquatorial,
		pwi.MountAlignmentModeHorizontal,
		pwi.MountAlignmentModeAltAz,
		pwi.MountAlignmentModePolar,
		pwi.MountAlignmentModeGermanPolar:
	default:
		return fmt.Errorf("unknown mount alignment mode: %q", c.Mount.Alignment)
	}

	switch pwi.MountTrackingMode(c.Mount.Tracking) {
	case pwi.MountTrackingModeSidereal,
		pwi.MountTrackingModeSolar,
		pwi.MountTrackingModeLunar,
		pwi.MountTrackingModeCustom:
	default:
		return fmt.Errorf("unknown mount tracking mode: %q", c.Mount.Tracking)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.BrokerURL == "" {
			return fmt.Errorf("telemetry enabled but no broker URL configured")
		}
		if c.Telemetry.Interval <= 0 {
			return fmt.Errorf("telemetry interval must be positive: %v", c.Telemetry.Interval)
		}
	}

	return nil
}

// ClientConfig converts the controller section into the transport
// configuration.
func (c *Config) ClientConfig() *pwi.ClientConfig {
	return &pwi.ClientConfig{
		Host:    c.Controller.Host,
		Port:    c.Controller.Port,
		Timeout: c.Controller.Timeout,
	}
}

// FocuserParameters converts the focuser section into device parameters.
func (c *Config) FocuserParameters() pwi.FocuserParameters {
	return pwi.FocuserParameters{
		DeviceParameters: pwi.DeviceParameters{
			DeviceID:    c.Focuser.DeviceID,
			VendorID:    c.Focuser.VendorID,
			ProductID:   c.Focuser.ProductID,
			Name:        c.Focuser.Name,
			Description: c.Focuser.Description,
		},
	}
}

// MountParameters converts the mount and site sections into device
// parameters.
func (c *Config) MountParameters() pwi.MountParameters {
	return pwi.MountParameters{
		DeviceParameters: pwi.DeviceParameters{
			DeviceID:    c.Mount.DeviceID,
			VendorID:    c.Mount.VendorID,
			ProductID:   c.Mount.ProductID,
			Name:        c.Mount.Name,
			Description: c.Mount.Description,
		},
		Alignment: pwi.MountAlignmentMode(c.Mount.Alignment),
		Tracking:  pwi.MountTrackingMode(c.Mount.Tracking),
		Latitude:  c.Site.Latitude,
		Longitude: c.Site.Longitude,
		Elevation: c.Site.Elevation,
	}
}
