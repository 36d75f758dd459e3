// Package hub is the composition layer between the HTTP surface and the
// core engine. It owns the wiring of providers, layouts, scheduler jobs
// and the display controller, and implements the operations the API
// exposes, including atomic configuration reload.
package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slatehub/slate-core/internal/display"
	"github.com/slatehub/slate-core/internal/infrastructure/config"
	"github.com/slatehub/slate-core/internal/infrastructure/logging"
	"github.com/slatehub/slate-core/internal/layout"
	"github.com/slatehub/slate-core/internal/provider"
	"github.com/slatehub/slate-core/internal/scheduler"
	"github.com/slatehub/slate-core/internal/sensor"
	"github.com/slatehub/slate-core/internal/widget"
)

// refreshJobPrefix namespaces provider refresh jobs in the scheduler.
const refreshJobPrefix = "refresh:"

// refreshTimeout bounds one scheduled provider fetch.
const refreshTimeout = 30 * time.Second

// FetchExporter records provider fetch outcomes in the time-series
// store. Satisfied by the InfluxDB client; nil disables export.
type FetchExporter interface {
	WriteProviderFetch(provider string, success bool, durationMs int64)
}

// Status is the full hub status returned by the API.
type Status struct {
	Mode          display.Mode      `json:"mode"`
	CurrentLayout string            `json:"current_layout,omitempty"`
	LastPushAt    time.Time         `json:"last_push_at,omitzero"`
	LastPushError string            `json:"last_push_error,omitempty"`
	Degraded      bool              `json:"degraded"`
	Providers     []provider.Status `json:"providers"`
}

// Hub wires the core engine together.
type Hub struct {
	sched      *scheduler.Scheduler
	controller *display.Controller
	catalog    *widget.Catalog
	store      *sensor.Store
	logger     *logging.Logger

	events   display.Broadcaster
	exporter FetchExporter

	mu       sync.Mutex
	cfg      *config.Config
	registry *provider.Registry
	resolver *layout.Resolver
	jobKeys  []string
}

// New builds the hub from a validated configuration.
//
// The sensor store may be nil when no indoor_sensor provider is
// configured. The scheduler must already be running (or about to run)
// on its own goroutine.
func New(cfg *config.Config, sched *scheduler.Scheduler, transport display.Transport, store *sensor.Store, logger *logging.Logger) (*Hub, error) {
	h := &Hub{
		sched:   sched,
		catalog: widget.NewCatalog(),
		store:   store,
		logger:  logger,
	}

	registry, resolver, err := h.build(cfg)
	if err != nil {
		return nil, err
	}

	h.cfg = cfg
	h.registry = registry
	h.resolver = resolver
	h.controller = display.NewController(resolver, transport, sched, settingsFrom(cfg), logger)
	h.registerProviderJobs(cfg, registry)

	return h, nil
}

// Controller exposes the display controller for optional collaborator
// wiring (frame log, events, exporters) by the composition root.
func (h *Hub) Controller() *display.Controller {
	return h.controller
}

// SetBroadcaster attaches the WebSocket event hub.
func (h *Hub) SetBroadcaster(b display.Broadcaster) {
	h.mu.Lock()
	h.events = b
	h.mu.Unlock()
	h.controller.SetBroadcaster(b)
}

// SetFetchExporter attaches the provider fetch outcome exporter.
func (h *Hub) SetFetchExporter(e FetchExporter) {
	h.mu.Lock()
	h.exporter = e
	h.mu.Unlock()
}

// Start applies the configured initial mode and primes all providers
// with a first fetch.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	registry := h.registry
	mode := h.cfg.Schedule.Mode
	h.mu.Unlock()

	// Prime caches so the first render is not fully degraded. Failures
	// are per-provider and non-fatal.
	for _, name := range registry.Names() {
		go func(name string) {
			fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
			defer cancel()
			if err := registry.Refresh(fetchCtx, name); err != nil {
				h.logger.Warn("initial provider fetch failed", "provider", name, "error", err)
			}
		}(name)
	}

	parsed, err := display.ParseMode(mode)
	if err != nil {
		return fmt.Errorf("invalid initial mode %q: %w", mode, err)
	}
	if parsed == display.ModeAutoRotate {
		return h.controller.SetMode(ctx, display.ModeAutoRotate)
	}
	return nil
}

// GetStatus returns mode, current layout and per-provider health.
func (h *Hub) GetStatus() Status {
	h.mu.Lock()
	registry := h.registry
	h.mu.Unlock()

	ds := h.controller.Status()
	return Status{
		Mode:          ds.Mode,
		CurrentLayout: ds.CurrentLayout,
		LastPushAt:    ds.LastPushAt,
		LastPushError: ds.LastPushError,
		Degraded:      ds.Degraded,
		Providers:     registry.ListStatus(),
	}
}

// ListLayouts returns the configured layout names.
func (h *Hub) ListLayouts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resolver.Layouts().Names()
}

// TriggerDisplay renders and pushes the named layout, switching to
// Manual mode if rotation was active.
func (h *Hub) TriggerDisplay(ctx context.Context, name string) error {
	return h.controller.DisplayLayout(ctx, name)
}

// SetMode switches the display mode.
func (h *Hub) SetMode(ctx context.Context, mode string) error {
	parsed, err := display.ParseMode(mode)
	if err != nil {
		return err
	}
	return h.controller.SetMode(ctx, parsed)
}

// ClearDisplay blanks the panel.
func (h *Hub) ClearDisplay(ctx context.Context) error {
	return h.controller.Clear(ctx)
}

// RefreshProvider forces an immediate fetch for the named provider,
// bypassing its cadence. The slot's in-flight guard still applies. The
// fetch runs on the scheduler's context, so it survives the caller.
func (h *Hub) RefreshProvider(_ context.Context, name string) error {
	h.mu.Lock()
	registry := h.registry
	h.mu.Unlock()

	if _, _, err := registry.Read(name); err != nil {
		return err
	}
	return h.sched.RunNow(refreshJobPrefix + name)
}

// ListJobs returns the scheduler's job snapshot.
func (h *Hub) ListJobs() []scheduler.JobStatus {
	return h.sched.Jobs()
}

// LastFrame returns the most recently pushed frame, or nil.
func (h *Hub) LastFrame() *layout.Frame {
	return h.controller.LastFrame()
}

// SensorStore returns the sensor reading store, or nil when sensors
// are not configured.
func (h *Hub) SensorStore() *sensor.Store {
	return h.store
}

// Reload atomically swaps in a new configuration.
//
// The new registry and resolver are fully built before anything is
// replaced; a build failure rejects the reload and leaves the previous
// configuration active. In-flight fetches and pushes against the old
// registry finish and their results are discarded.
func (h *Hub) Reload(cfg *config.Config) error {
	registry, resolver, err := h.build(cfg)
	if err != nil {
		return fmt.Errorf("config reload rejected: %w", err)
	}

	h.mu.Lock()
	oldJobs := h.jobKeys
	h.cfg = cfg
	h.registry = registry
	h.resolver = resolver
	h.mu.Unlock()

	// Register before pruning: a provider present in both configs keeps
	// a registered job throughout (AddJob replaces in place), so a
	// concurrent forced refresh never sees a gap.
	h.registerProviderJobs(cfg, registry)

	h.mu.Lock()
	current := make(map[string]bool, len(h.jobKeys))
	for _, key := range h.jobKeys {
		current[key] = true
	}
	h.mu.Unlock()

	for _, key := range oldJobs {
		if !current[key] {
			h.sched.RemoveJob(key)
		}
	}
	h.controller.Reconfigure(resolver, settingsFrom(cfg))

	h.logger.Info("configuration reloaded",
		"providers", len(registry.Names()),
		"layouts", len(resolver.Layouts().Names()),
	)
	return nil
}

// ReloadFromFile loads, validates and applies a config file. Used by
// the file watcher and the reload endpoint.
func (h *Hub) ReloadFromFile(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config reload rejected: %w", err)
	}
	return h.Reload(cfg)
}

// build constructs a registry and resolver from cfg without touching
// the hub's current state.
func (h *Hub) build(cfg *config.Config) (*provider.Registry, *layout.Resolver, error) {
	var slots []*provider.Slot
	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		fetcher, err := provider.NewFetcher(name, pc, h.store)
		if err != nil {
			return nil, nil, fmt.Errorf("building provider %s: %w", name, err)
		}
		slots = append(slots, provider.NewSlot(name, fetcher, pc.MaxAgeDuration()))
	}

	registry := provider.NewRegistry(slots...)
	resolver := layout.NewResolver(
		layout.NewSet(cfg.Layouts),
		registry,
		h.catalog,
		cfg.Display.Width,
		cfg.Display.Height,
		h.logger,
	)
	return registry, resolver, nil
}

// registerProviderJobs schedules a refresh job per enabled provider.
func (h *Hub) registerProviderJobs(cfg *config.Config, registry *provider.Registry) {
	var keys []string
	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}

		name := name
		cadence := pc.RefreshPeriod()
		key := refreshJobPrefix + name

		fn := func(ctx context.Context) {
			fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
			defer cancel()

			start := time.Now()
			err := registry.Refresh(fetchCtx, name)
			duration := time.Since(start)

			h.mu.Lock()
			exporter := h.exporter
			events := h.events
			h.mu.Unlock()

			if exporter != nil {
				exporter.WriteProviderFetch(name, err == nil, duration.Milliseconds())
			}
			if err != nil {
				h.logger.Warn("scheduled refresh failed", "provider", name, "error", err)
				return
			}
			if events != nil {
				events.Broadcast("provider.refreshed", map[string]any{
					"provider":    name,
					"duration_ms": duration.Milliseconds(),
				})
			}
		}

		if err := h.sched.AddJob(key, cadence, fn); err != nil {
			h.logger.Error("registering refresh job failed", "provider", name, "error", err)
			continue
		}
		keys = append(keys, key)
	}

	h.mu.Lock()
	h.jobKeys = keys
	h.mu.Unlock()
}

// settingsFrom extracts the controller settings slice from cfg.
func settingsFrom(cfg *config.Config) display.Settings {
	return display.Settings{
		Sequence:         cfg.Schedule.LayoutSequence,
		RotationInterval: cfg.RotationPeriod(),
		PushTimeout:      cfg.PushTimeoutDuration(),
		QuietHoursStart:  cfg.Schedule.QuietHours.Start,
		QuietHoursEnd:    cfg.Schedule.QuietHours.End,
	}
}
