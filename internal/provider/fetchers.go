package provider

import (
	"fmt"
	"net/http"
	"time"

	"github.com/slatehub/slate-core/internal/infrastructure/config"
	"github.com/slatehub/slate-core/internal/sensor"
)

// defaultHTTPTimeout bounds a single upstream request. The slot's
// in-flight guard means a hung request blocks only its own provider.
const defaultHTTPTimeout = 15 * time.Second

// NewFetcher builds the fetcher implementation for a configured
// provider. The sensor store is required only for indoor_sensor
// providers.
func NewFetcher(name string, cfg config.ProviderConfig, store *sensor.Store) (Fetcher, error) {
	switch cfg.FetcherType(name) {
	case "weather":
		return newWeatherFetcher(cfg)
	case "calendar":
		return newCalendarFetcher(cfg)
	case "tasks":
		return newTasksFetcher(cfg)
	case "indoor_sensor":
		return newIndoorFetcher(cfg, store)
	default:
		return nil, fmt.Errorf("%w: %q (provider %s)", ErrUnknownType, cfg.FetcherType(name), name)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// stringOption reads a string from a provider options map.
func stringOption(opts map[string]any, key, fallback string) string {
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// floatOption reads a number from a provider options map. YAML decodes
// numbers as int or float64 depending on the literal.
func floatOption(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// intOption reads an integer from a provider options map.
func intOption(opts map[string]any, key string, fallback int) int {
	switch v := opts[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}
