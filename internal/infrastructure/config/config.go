package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Slate Hub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Display   DisplayConfig             `yaml:"display"`
	Schedule  ScheduleConfig            `yaml:"schedule"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Layouts   map[string]LayoutConfig   `yaml:"layouts"`
	Database  DatabaseConfig            `yaml:"database"`
	MQTT      MQTTConfig                `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig            `yaml:"influxdb"`
	API       APIConfig                 `yaml:"api"`
	WebSocket WebSocketConfig           `yaml:"websocket"`
	Logging   LoggingConfig             `yaml:"logging"`
}

// DisplayConfig contains e-ink panel settings.
type DisplayConfig struct {
	// Width and Height are the panel resolution in pixels.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// MockMode routes frames to the preview directory instead of real
	// hardware. Useful for development without a panel attached.
	MockMode bool `yaml:"mock_mode"`

	// PreviewDir is where the last rendered frame is written as PNG.
	PreviewDir string `yaml:"preview_dir"`

	// PushTimeout is the maximum time for a single panel refresh (seconds).
	// E-ink full refreshes routinely take several seconds.
	PushTimeout int `yaml:"push_timeout"`
}

// ScheduleConfig contains rotation scheduling settings.
type ScheduleConfig struct {
	// Mode is the startup display mode: "manual" or "auto_rotate".
	Mode string `yaml:"mode"`

	// RotationInterval is the auto-rotation cadence in seconds.
	RotationInterval int `yaml:"rotation_interval"`

	// LayoutSequence is the ordered cycle of layout names for auto-rotation.
	LayoutSequence []string `yaml:"layout_sequence"`

	// QuietHours suppresses rotation pushes inside the window (optional).
	QuietHours QuietHoursConfig `yaml:"quiet_hours"`
}

// QuietHoursConfig defines a daily window during which auto-rotation is
// suppressed. Times are "HH:MM" in the process's local time. The window may
// span midnight (e.g. 22:00 - 07:00). Empty values disable quiet hours.
type QuietHoursConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// ProviderConfig contains settings for a single data provider.
type ProviderConfig struct {
	// Type selects the fetcher implementation (weather, calendar, tasks,
	// indoor_sensor). Defaults to the provider's map key when empty.
	Type string `yaml:"type"`

	Enabled bool `yaml:"enabled"`

	// RefreshInterval is the scheduled refresh cadence in seconds.
	RefreshInterval int `yaml:"refresh_interval"`

	// MaxAge is how long cached data stays fresh, in seconds.
	MaxAge int `yaml:"max_age"`

	// Credentials holds secrets (API tokens). Values support ${ENV} expansion.
	Credentials map[string]string `yaml:"credentials"`

	// Options holds provider-specific settings (location, feed URL, ...).
	Options map[string]any `yaml:"options"`
}

// LayoutConfig describes one display layout.
type LayoutConfig struct {
	// Name is the human-readable layout name. Defaults to the map key.
	Name string `yaml:"name"`

	// Background is the canvas fill (0 = black ... 255 = white).
	Background int `yaml:"background"`

	Widgets []WidgetConfig `yaml:"widgets"`
}

// WidgetConfig describes one widget placement within a layout.
type WidgetConfig struct {
	Type   string `yaml:"type"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`

	// Provider is the name of the provider this widget reads. Empty for
	// widgets that need no data (clock, static text).
	Provider string `yaml:"provider"`

	// OnDemandRefresh triggers one synchronous refresh during render when
	// the bound provider's data is stale or absent.
	OnDemandRefresh bool `yaml:"on_demand_refresh"`

	Options map[string]any `yaml:"options"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// MQTT is optional; when disabled, sensor readings arrive via HTTP only.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB export settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket event stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads, parses and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates raw YAML configuration.
//
// Missing values take defaults, then environment variable overrides
// (SLATEHUB_*) are applied, then the result is validated.
//
// Parse is the entry point for both file loading and the reload-config API:
// a payload that fails here must leave the running configuration untouched.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)
	expandCredentials(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Display: DisplayConfig{
			Width:       800,
			Height:      480,
			MockMode:    true,
			PreviewDir:  "./data/previews",
			PushTimeout: 30,
		},
		Schedule: ScheduleConfig{
			Mode:             "manual",
			RotationInterval: 1800,
		},
		Database: DatabaseConfig{
			Path:        "./data/slatehub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "slatehub-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SLATEHUB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SLATEHUB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SLATEHUB_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SLATEHUB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SLATEHUB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("SLATEHUB_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SLATEHUB_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("SLATEHUB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// expandCredentials replaces ${VAR} references in provider credentials with
// environment variable values. Unset variables expand to the empty string;
// whether that matters is up to the individual provider.
func expandCredentials(cfg *Config) {
	for name, prov := range cfg.Providers {
		for key, value := range prov.Credentials {
			if strings.Contains(value, "${") {
				prov.Credentials[key] = os.Expand(value, os.Getenv)
			}
		}
		cfg.Providers[name] = prov
	}
}

// Validate checks the configuration for errors.
//
// Widget provider bindings are deliberately NOT validated here: a binding to
// an unknown provider degrades that placement at render time instead of
// rejecting the whole configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, "display.width and display.height must be positive")
	}

	switch c.Schedule.Mode {
	case "manual", "auto_rotate":
	default:
		errs = append(errs, fmt.Sprintf("schedule.mode must be \"manual\" or \"auto_rotate\", got %q", c.Schedule.Mode))
	}

	if c.Schedule.Mode == "auto_rotate" && len(c.Schedule.LayoutSequence) == 0 {
		errs = append(errs, "schedule.layout_sequence is required when mode is auto_rotate")
	}
	if c.Schedule.RotationInterval <= 0 {
		errs = append(errs, "schedule.rotation_interval must be positive")
	}
	for _, name := range c.Schedule.LayoutSequence {
		if _, ok := c.Layouts[name]; !ok {
			errs = append(errs, fmt.Sprintf("schedule.layout_sequence references unknown layout %q", name))
		}
	}

	if err := validateQuietHours(c.Schedule.QuietHours); err != nil {
		errs = append(errs, err.Error())
	}

	for name, prov := range c.Providers {
		if !prov.Enabled {
			continue
		}
		if prov.RefreshInterval <= 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.refresh_interval must be positive", name))
		}
		if prov.MaxAge <= 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.max_age must be positive", name))
		}
	}

	for name, layout := range c.Layouts {
		if len(layout.Widgets) == 0 {
			errs = append(errs, fmt.Sprintf("layouts.%s has no widgets", name))
		}
		for i, w := range layout.Widgets {
			if w.Type == "" {
				errs = append(errs, fmt.Sprintf("layouts.%s.widgets[%d] is missing a type", name, i))
			}
			if w.Width <= 0 || w.Height <= 0 {
				errs = append(errs, fmt.Sprintf("layouts.%s.widgets[%d] must have positive width and height", name, i))
			}
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateQuietHours checks that both bounds are set together and parse as HH:MM.
func validateQuietHours(qh QuietHoursConfig) error {
	if qh.Start == "" && qh.End == "" {
		return nil
	}
	if qh.Start == "" || qh.End == "" {
		return fmt.Errorf("schedule.quiet_hours requires both start and end")
	}
	for _, v := range []string{qh.Start, qh.End} {
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("schedule.quiet_hours value %q is not HH:MM", v)
		}
	}
	return nil
}

// RotationPeriod returns the auto-rotation cadence as a Duration.
func (c *Config) RotationPeriod() time.Duration {
	return time.Duration(c.Schedule.RotationInterval) * time.Second
}

// PushTimeoutDuration returns the display push timeout as a Duration.
func (c *Config) PushTimeoutDuration() time.Duration {
	return time.Duration(c.Display.PushTimeout) * time.Second
}

// RefreshPeriod returns the provider refresh cadence as a Duration,
// defaulted to 15 minutes when unset.
func (p ProviderConfig) RefreshPeriod() time.Duration {
	if p.RefreshInterval <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(p.RefreshInterval) * time.Second
}

// MaxAgeDuration returns the staleness threshold as a Duration,
// defaulted to 30 minutes when unset.
func (p ProviderConfig) MaxAgeDuration() time.Duration {
	if p.MaxAge <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(p.MaxAge) * time.Second
}

// FetcherType returns the configured fetcher type, falling back to name.
func (p ProviderConfig) FetcherType(name string) string {
	if p.Type != "" {
		return p.Type
	}
	return name
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
