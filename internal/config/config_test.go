package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michealroberts/pwi/pkg/pwi"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pwi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, pwi.DefaultHost, config.Controller.Host)
	assert.Equal(t, pwi.DefaultPort, config.Controller.Port)
	assert.Equal(t, pwi.DefaultTimeout, config.Controller.Timeout)
	assert.Equal(t, string(pwi.MountAlignmentModeAltAz), config.Mount.Alignment)
	assert.Equal(t, string(pwi.MountTrackingModeSidereal), config.Mount.Tracking)
	assert.Equal(t, 10*time.Second, config.Telemetry.Interval)
	assert.False(t, config.Telemetry.Enabled)
	assert.Equal(t, "info", config.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
controller:
  host: pwi.observatory.local
  port: 8220
  timeout: 5s

site:
  latitude: 33.87047
  longitude: -118.24708
  elevation: 30.5

focuser:
  id: 0
  device_id: "focuser-0"
  name: "Primary Focuser"

mount:
  id: 0
  device_id: "mount-0"
  alignment: alt_az

telemetry:
  enabled: true
  broker_url: tcp://localhost:1883
  interval: 2s

log_level: debug
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pwi.observatory.local", config.Controller.Host)
	assert.Equal(t, 5*time.Second, config.Controller.Timeout)
	assert.InDelta(t, 33.87047, config.Site.Latitude, 1e-9)
	assert.InDelta(t, -118.24708, config.Site.Longitude, 1e-9)
	assert.Equal(t, "focuser-0", config.Focuser.DeviceID)
	assert.Equal(t, "Primary Focuser", config.Focuser.Name)
	assert.True(t, config.Telemetry.Enabled)
	assert.Equal(t, "tcp://localhost:1883", config.Telemetry.BrokerURL)
	assert.Equal(t, 2*time.Second, config.Telemetry.Interval)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		config, err := Load("")
		require.NoError(t, err)
		return config
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Controller.Port = 0 },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Controller.Timeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			mutate:  func(c *Config) { c.Site.Latitude = 91 },
			wantErr: true,
		},
		{
			name:    "longitude out of range",
			mutate:  func(c *Config) { c.Site.Longitude = -181 },
			wantErr: true,
		},
		{
			name:    "unknown alignment mode",
			mutate:  func(c *Config) { c.Mount.Alignment = "sideways" },
			wantErr: true,
		},
		{
			name:    "unknown tracking mode",
			mutate:  func(c *Config) { c.Mount.Tracking = "geostationary" },
			wantErr: true,
		},
		{
			name: "telemetry enabled without broker",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.BrokerURL = ""
			},
			wantErr: true,
		},
		{
			name: "telemetry enabled with broker",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.BrokerURL = "tcp://localhost:1883"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConversionHelpers(t *testing.T) {
	path := writeConfigFile(t, `
controller:
  host: controller.local
  port: 9000
  timeout: 1s

site:
  latitude: 10.5
  longitude: 20.25
  elevation: 100

mount:
  device_id: "mount-0"
  alignment: equatorial
`)

	config, err := Load(path)
	require.NoError(t, err)

	clientConfig := config.ClientConfig()
	assert.Equal(t, "controller.local", clientConfig.Host)
	assert.Equal(t, 9000, clientConfig.Port)
	assert.Equal(t, time.Second, clientConfig.Timeout)

	mountParams := config.MountParameters()
	assert.Equal(t, pwi.MountAlignmentModeEquatorial, mountParams.Alignment)
	assert.InDelta(t, 10.5, mountParams.Latitude, 1e-9)
	assert.InDelta(t, 20.25, mountParams.Longitude, 1e-9)
	assert.InDelta(t, 100.0, mountParams.Elevation, 1e-9)
	assert.Equal(t, "mount-0", mountParams.DeviceID)
}
