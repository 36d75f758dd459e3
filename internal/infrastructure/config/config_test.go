package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
display:
  width: 800
  height: 480
  mock_mode: true

schedule:
  mode: auto_rotate
  rotation_interval: 600
  layout_sequence: [dashboard, weather]

providers:
  weather:
    enabled: true
    refresh_interval: 900
    max_age: 3600
    options:
      latitude: 51.5
      longitude: -0.12
  tasks:
    enabled: false

layouts:
  dashboard:
    widgets:
      - type: clock
        x: 0
        y: 0
        width: 400
        height: 120
      - type: weather
        x: 400
        y: 0
        width: 400
        height: 240
        provider: weather
        on_demand_refresh: true
  weather:
    widgets:
      - type: weather_full
        x: 0
        y: 0
        width: 800
        height: 480
        provider: weather
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Display.Width != 800 || cfg.Display.Height != 480 {
		t.Errorf("display = %dx%d, want 800x480", cfg.Display.Width, cfg.Display.Height)
	}
	if cfg.Schedule.Mode != "auto_rotate" {
		t.Errorf("mode = %q, want auto_rotate", cfg.Schedule.Mode)
	}
	if got := cfg.RotationPeriod(); got != 10*time.Minute {
		t.Errorf("RotationPeriod() = %v, want 10m", got)
	}

	prov, ok := cfg.Providers["weather"]
	if !ok {
		t.Fatal("weather provider missing")
	}
	if got := prov.MaxAgeDuration(); got != time.Hour {
		t.Errorf("MaxAgeDuration() = %v, want 1h", got)
	}
	if got := prov.RefreshPeriod(); got != 15*time.Minute {
		t.Errorf("RefreshPeriod() = %v, want 15m", got)
	}

	dash := cfg.Layouts["dashboard"]
	if len(dash.Widgets) != 2 {
		t.Fatalf("dashboard widgets = %d, want 2", len(dash.Widgets))
	}
	if !dash.Widgets[1].OnDemandRefresh {
		t.Error("weather widget should have on_demand_refresh")
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("display:\n  width: 640\n  height: 384\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Schedule.Mode != "manual" {
		t.Errorf("default mode = %q, want manual", cfg.Schedule.Mode)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("default api.port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default logging.level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Database.Path == "" {
		t.Error("default database.path should be set")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad mode",
			yaml:    "schedule:\n  mode: slideshow\n",
			wantErr: "schedule.mode",
		},
		{
			name:    "auto rotate without sequence",
			yaml:    "schedule:\n  mode: auto_rotate\n",
			wantErr: "layout_sequence",
		},
		{
			name: "sequence references unknown layout",
			yaml: `
schedule:
  mode: auto_rotate
  layout_sequence: [missing]
`,
			wantErr: "unknown layout",
		},
		{
			name: "provider without max_age",
			yaml: `
providers:
  weather:
    enabled: true
    refresh_interval: 60
`,
			wantErr: "max_age",
		},
		{
			name: "widget without dimensions",
			yaml: `
layouts:
  broken:
    widgets:
      - type: clock
        x: 0
        y: 0
`,
			wantErr: "positive width",
		},
		{
			name:    "quiet hours malformed",
			yaml:    "schedule:\n  quiet_hours:\n    start: \"22:00\"\n    end: \"late\"\n",
			wantErr: "quiet_hours",
		},
		{
			name:    "not yaml",
			yaml:    "{{{",
			wantErr: "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCredentialExpansion(t *testing.T) {
	t.Setenv("SLATEHUB_TEST_TOKEN", "tok-123")

	cfg, err := Parse([]byte(`
providers:
  tasks:
    enabled: true
    refresh_interval: 600
    max_age: 1800
    credentials:
      api_token: "${SLATEHUB_TEST_TOKEN}"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := cfg.Providers["tasks"].Credentials["api_token"]; got != "tok-123" {
		t.Errorf("api_token = %q, want tok-123", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SLATEHUB_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("SLATEHUB_API_PORT", "9090")

	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("database.path = %q, want /tmp/override.db", cfg.Database.Path)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api.port = %d, want 9090", cfg.API.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Layouts) != 2 {
		t.Errorf("layouts = %d, want 2", len(cfg.Layouts))
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}
