package widget

import "github.com/slatehub/slate-core/internal/provider"

// Payload field accessors. Provider payloads are loosely typed maps;
// these helpers absorb the int/float64 ambiguity of decoded JSON and
// YAML numbers.

func floatField(data provider.Payload, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func stringField(data provider.Payload, key string) (string, bool) {
	v, ok := data[key].(string)
	return v, ok
}

func listField(data provider.Payload, key string) ([]map[string]any, bool) {
	switch v := data[key].(type) {
	case []map[string]any:
		return v, true
	case []any:
		items := make([]map[string]any, 0, len(v))
		for _, raw := range v {
			if m, ok := raw.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items, true
	}
	return nil, false
}

func stringOpt(opts map[string]any, key, fallback string) string {
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intOpt(opts map[string]any, key string, fallback int) int {
	switch v := opts[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

func boolOpt(opts map[string]any, key string, fallback bool) bool {
	if v, ok := opts[key].(bool); ok {
		return v
	}
	return fallback
}
