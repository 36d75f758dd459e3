// Package config loads and validates Slate Hub configuration.
//
// Configuration is a single YAML document describing the display hardware,
// the provider set (what to fetch and how often), the layout definitions
// (what to draw where), and the rotation schedule. It is parsed once at
// startup and can be replaced atomically at runtime via the reload-config
// API or the file watcher.
//
// # Sources, in order of precedence
//
//  1. Built-in defaults (defaultConfig)
//  2. The YAML file (configs/config.yaml or SLATEHUB_CONFIG)
//  3. Environment overrides (SLATEHUB_SECTION_KEY)
//
// Provider credentials additionally support ${VAR} expansion so secrets can
// stay out of the file:
//
//	providers:
//	  tasks:
//	    enabled: true
//	    refresh_interval: 900
//	    max_age: 3600
//	    credentials:
//	      token: "${TODOIST_TOKEN}"
//
// # Reload semantics
//
// Parse is side-effect free: an invalid payload returns an error and the
// caller keeps the previous configuration. Widget provider bindings are not
// validated at parse time; a dangling binding degrades its placement at
// render time instead.
package config
