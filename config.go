package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/guregu/null/v6"
)

const (
	DefaultConfigPath = "/etc/chatpad-bridge/config.json"

	currentConfigVersion = "1.0.0"
	configVersionRange   = ">= 1.0.0, < 2.0.0"
)

var ErrIncompatibleConfig = errors.New("incompatible config version")

var validBackends = map[string]bool{
	"auto":    true,
	"uinput":  true,
	"console": true,
	"none":    true,
}

type Config struct {
	ConfigVersion  string      `json:"config_version"`
	ChatpadEnabled bool        `json:"chatpad_enabled"`
	SerialPort     string      `json:"serial_port"`
	USBVendorID    null.String `json:"usb_vid"`
	USBProductID   null.String `json:"usb_pid"`
	BaudRate       int         `json:"baud_rate"`
	InitAttempts   int         `json:"init_attempts"`
	VerifyChecksum bool        `json:"verify_checksum"`
	Resync         bool        `json:"resync"`
	CapsLockChord  bool        `json:"caps_lock_chord"`
	OutputBackend  string      `json:"output_backend"`
	ListenAddress  string      `json:"listen_address"`
	AllowedOrigins []string    `json:"allowed_origins"`
	NATSURL        null.String `json:"nats_url"`
	NATSSubject    string      `json:"nats_subject"`
	MacrosFile     string      `json:"macros_file"`
	RestartDelayMs int         `json:"restart_delay_ms"`
	StaleAfterMs   int         `json:"stale_after_ms"`
	LogLevel       string      `json:"log_level"`
}

func defaultConfig() *Config {
	return &Config{
		ConfigVersion:  currentConfigVersion,
		ChatpadEnabled: true,
		SerialPort:     "auto",
		BaudRate:       19200,
		InitAttempts:   5,
		VerifyChecksum: true,
		Resync:         true,
		CapsLockChord:  true,
		OutputBackend:  "auto",
		ListenAddress:  ":8090",
		NATSSubject:    "chatpad.keys",
		MacrosFile:     "/etc/chatpad-bridge/macros.json",
		RestartDelayMs: 2000,
		StaleAfterMs:   5000,
		LogLevel:       "info",
	}
}

func (c *Config) RestartDelay() time.Duration {
	return time.Duration(c.RestartDelayMs) * time.Millisecond
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterMs) * time.Millisecond
}

// LoadConfig reads path over the defaults and applies environment overrides.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		configLogger.Info().Str("path", path).Msg("config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := checkConfigVersion(cfg.ConfigVersion); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkConfigVersion(v string) error {
	constraint, err := semver.NewConstraint(configVersionRange)
	if err != nil {
		return err
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIncompatibleConfig, v, err)
	}
	if !constraint.Check(parsed) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleConfig, parsed, configVersionRange)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHATPAD_SERIAL_PORT"); v != "" {
		cfg.SerialPort = v
	}
	if v := os.Getenv("CHATPAD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CHATPAD_LISTEN"); v != "" {
		cfg.ListenAddress = v
	}
	if v := os.Getenv("CHATPAD_NATS_URL"); v != "" {
		cfg.NATSURL = null.StringFrom(v)
	}
}

func (c *Config) validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud_rate %d", c.BaudRate)
	}
	if !validBackends[c.OutputBackend] {
		return fmt.Errorf("invalid output_backend %q", c.OutputBackend)
	}
	if c.RestartDelayMs < 0 || c.StaleAfterMs < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// SaveConfig writes cfg as indented JSON, replacing path atomically.
func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Rename(tmp, path)
}
