package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the unlockd daemon.
//
// Keep defaults and validation centralized so the rest of the code can
// assume a well-formed config. User preferences for the lock surface
// itself live in the settings file (see FileStore), not here.
type Config struct {
	// Settings file backing the ConfigStore
	Settings SettingsConfig `yaml:"settings"`

	// Lock surface behaviour
	Surface SurfaceConfig `yaml:"surface"`

	// Launch reference resolution
	Launcher LauncherConfig `yaml:"launcher"`

	// IPC configuration (gesture and lifecycle events from the shell)
	IPC IPCConfig `yaml:"ipc"`

	// HTTP server (state websocket and metrics)
	HTTP HTTPConfig `yaml:"http"`

	// Device bus for the ringer and launcher
	MQTT MQTTConfig `yaml:"mqtt"`

	// Hardware keys
	Input InputConfig `yaml:"input"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type SettingsConfig struct {
	Path           string `yaml:"path"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
}

type SurfaceConfig struct {
	TabVariant        string `yaml:"tab_variant"` // "slider" or "wave"
	Orientation       string `yaml:"orientation"` // "portrait" or "landscape"
	ResumePingDelayMS int    `yaml:"resume_ping_delay_ms"`
	KeyguardBypass    bool   `yaml:"keyguard_bypass"`
}

type LauncherConfig struct {
	Schemes   []string `yaml:"schemes"`
	Messaging string   `yaml:"messaging"`
	Dialer    string   `yaml:"dialer"`
	Camera    string   `yaml:"camera"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Port        int    `yaml:"port"`
	WSPath      string `yaml:"ws_path"`
	MetricsPath string `yaml:"metrics_path"`
}

type MQTTConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Broker           string `yaml:"broker"` // e.g. tcp://127.0.0.1:1883
	ClientID         string `yaml:"client_id"`
	Username         string `yaml:"username,omitempty"`
	Password         string `yaml:"password,omitempty"`
	TopicPrefix      string `yaml:"topic_prefix"`
	QoS              int    `yaml:"qos"`
	ConnectTimeoutMS int    `yaml:"connect_timeout_ms"`
}

type InputConfig struct {
	Devices             []string `yaml:"devices,omitempty"`
	MenuKey             bool     `yaml:"menu_key"`
	MenuKeyOverrideFile string   `yaml:"menu_key_override_file"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Settings: SettingsConfig{
			Path:           "/etc/unlockd/settings.yaml",
			PollIntervalMS: 1000,
		},
		Surface: SurfaceConfig{
			TabVariant:        VariantSlider.String(),
			Orientation:       OrientationPortrait.String(),
			ResumePingDelayMS: int(defaultResumePingDelay / time.Millisecond),
		},
		Launcher: LauncherConfig{
			Schemes:   []string{"app", "intent", "tel", "sms"},
			Messaging: "app://com.android.mms",
			Dialer:    "app://com.android.contacts/dialer",
			Camera:    "app://com.android.camera",
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/unlockd.sock",
		},
		HTTP: HTTPConfig{
			Port:        3001,
			WSPath:      "/ws/state",
			MetricsPath: "/metrics",
		},
		MQTT: MQTTConfig{
			Enabled:          false,
			Broker:           "tcp://127.0.0.1:1883",
			ClientID:         "unlockd",
			TopicPrefix:      "unlockd",
			QoS:              1,
			ConnectTimeoutMS: 30000,
		},
		Input: InputConfig{
			MenuKeyOverrideFile: defaultMenuKeyOverrideFile,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document. A trailing
	// document fails with a decode error (KnownFields) or decodes cleanly;
	// both are rejected.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; each override is only applied if non-nil.
// main.go decides what flags exist.
type FlagOverrides struct {
	SettingsPath *string

	TabVariant     *string
	Orientation    *string
	KeyguardBypass *bool

	IPCSocketPath *string
	HTTPPort      *int

	MQTTEnabled *bool
	MQTTBroker  *string

	InputDevice *string
	MenuKey     *bool

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a “zero value”).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.SettingsPath != nil {
		cfg.Settings.Path = *o.SettingsPath
	}

	if o.TabVariant != nil {
		cfg.Surface.TabVariant = *o.TabVariant
	}
	if o.Orientation != nil {
		cfg.Surface.Orientation = *o.Orientation
	}
	if o.KeyguardBypass != nil {
		cfg.Surface.KeyguardBypass = *o.KeyguardBypass
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPPort != nil {
		cfg.HTTP.Port = *o.HTTPPort
	}

	if o.MQTTEnabled != nil {
		cfg.MQTT.Enabled = *o.MQTTEnabled
	}
	if o.MQTTBroker != nil {
		cfg.MQTT.Broker = *o.MQTTBroker
	}

	if o.InputDevice != nil {
		cfg.Input.Devices = []string{*o.InputDevice}
	}
	if o.MenuKey != nil {
		cfg.Input.MenuKey = *o.MenuKey
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Settings
	if c.Settings.Path == "" {
		return errors.New("settings.path must not be empty")
	}
	if c.Settings.PollIntervalMS <= 0 {
		return errors.New("settings.poll_interval_ms must be > 0")
	}

	// Surface
	tab, err := ParseVariantIdentity(c.Surface.TabVariant)
	if err != nil {
		return fmt.Errorf("surface.tab_variant: %w", err)
	}
	if tab != VariantSlider && tab != VariantWave {
		return fmt.Errorf("surface.tab_variant must be %q or %q", VariantSlider, VariantWave)
	}
	if _, err := ParseOrientation(c.Surface.Orientation); err != nil {
		return fmt.Errorf("surface.orientation: %w", err)
	}
	if c.Surface.ResumePingDelayMS < 0 {
		return errors.New("surface.resume_ping_delay_ms must be >= 0")
	}

	// Launcher
	if len(c.Launcher.Schemes) == 0 {
		return errors.New("launcher.schemes must not be empty")
	}
	for name, ref := range map[string]string{
		"launcher.messaging": c.Launcher.Messaging,
		"launcher.dialer":    c.Launcher.Dialer,
		"launcher.camera":    c.Launcher.Camera,
	} {
		if ref == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// HTTP
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port must be between 0 and 65535 (0 disables)")
	}
	if !strings.HasPrefix(c.HTTP.WSPath, "/") {
		return errors.New("http.ws_path must start with /")
	}
	if !strings.HasPrefix(c.HTTP.MetricsPath, "/") {
		return errors.New("http.metrics_path must start with /")
	}
	if c.HTTP.WSPath == c.HTTP.MetricsPath {
		return errors.New("http.ws_path and http.metrics_path must differ")
	}

	// MQTT
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return errors.New("mqtt.enabled is true but mqtt.broker is empty")
		}
		if c.MQTT.ClientID == "" {
			return errors.New("mqtt.enabled is true but mqtt.client_id is empty")
		}
		if c.MQTT.TopicPrefix == "" {
			return errors.New("mqtt.enabled is true but mqtt.topic_prefix is empty")
		}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errors.New("mqtt.qos must be 0, 1 or 2")
	}
	if c.MQTT.ConnectTimeoutMS <= 0 {
		return errors.New("mqtt.connect_timeout_ms must be > 0")
	}

	// Input
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// MenuKeyEnabled reports whether the menu key unlocks: either configured
// or switched on by the presence of the override file.
func (c *Config) MenuKeyEnabled() bool {
	if c.Input.MenuKey {
		return true
	}
	if c.Input.MenuKeyOverrideFile == "" {
		return false
	}
	_, err := os.Stat(ExpandPath(c.Input.MenuKeyOverrideFile))
	return err == nil
}

// ToSurfaceOptions converts the validated config into controller options.
func (c *Config) ToSurfaceOptions() SurfaceOptions {
	tab, err := ParseVariantIdentity(c.Surface.TabVariant)
	if err != nil {
		tab = VariantSlider
	}
	o, err := ParseOrientation(c.Surface.Orientation)
	if err != nil {
		o = OrientationPortrait
	}
	return SurfaceOptions{
		TabVariant:      tab,
		Orientation:     o,
		ResumePingDelay: time.Duration(c.Surface.ResumePingDelayMS) * time.Millisecond,
		KeyguardBypass:  c.Surface.KeyguardBypass,
		MenuKeyUnlock:   c.MenuKeyEnabled(),
		Builtins: BuiltinRefs{
			Messaging: c.Launcher.Messaging,
			Dialer:    c.Launcher.Dialer,
			Camera:    c.Launcher.Camera,
		},
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
