package bridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, 19200, cfg.BaudRate)
	assert.False(t, cfg.NATSURL.Valid)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestDefaultConfigMatchesFirmware(t *testing.T) {
	cfg := defaultConfig()
	assert.True(t, cfg.ChatpadEnabled)
	assert.Equal(t, 5, cfg.InitAttempts)
	assert.True(t, cfg.VerifyChecksum)
	assert.True(t, cfg.Resync)
	assert.True(t, cfg.CapsLockChord)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `{
		"config_version": "1.2.0",
		"serial_port": "/dev/ttyS1",
		"usb_vid": "0403",
		"verify_checksum": true,
		"output_backend": "console",
		"restart_delay_ms": 500
	}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", cfg.SerialPort)
	assert.True(t, cfg.USBVendorID.Valid)
	assert.Equal(t, "0403", cfg.USBVendorID.String)
	assert.False(t, cfg.USBProductID.Valid)
	assert.True(t, cfg.VerifyChecksum)
	assert.Equal(t, "console", cfg.OutputBackend)
	assert.Equal(t, int64(500), cfg.RestartDelay().Milliseconds())
	assert.True(t, cfg.Resync, "unset fields keep defaults")
}

func TestLoadConfigVersionGate(t *testing.T) {
	for _, v := range []string{"2.0.0", "0.9.0", "banana"} {
		t.Run(v, func(t *testing.T) {
			path := writeConfigFile(t, `{"config_version": "`+v+`"}`)
			_, err := LoadConfig(path)
			require.ErrorIs(t, err, ErrIncompatibleConfig)
		})
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CHATPAD_SERIAL_PORT", "/dev/ttyACM3")
	t.Setenv("CHATPAD_LISTEN", "127.0.0.1:9999")
	t.Setenv("CHATPAD_NATS_URL", "nats://localhost:4222")
	t.Setenv("CHATPAD_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM3", cfg.SerialPort)
	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddress)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL.String)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad json":      `{`,
		"bad backend":   `{"output_backend": "hid"}`,
		"bad baud":      `{"baud_rate": 0}`,
		"negative time": `{"stale_after_ms": -1}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfigFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := defaultConfig()
	cfg.SerialPort = "/dev/ttyUSB1"
	cfg.CapsLockChord = false

	require.NoError(t, SaveConfig(path, cfg))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
