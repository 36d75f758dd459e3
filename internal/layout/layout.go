// Package layout composes provider data into full-canvas frames.
//
// A layout is an ordered list of widget placements, each optionally
// bound to a provider. The resolver gathers data from the provider
// registry (refreshing on demand when a placement asks for it), renders
// each placement through the widget catalog, and composites the result
// into a single monochrome frame for the display controller.
package layout

import (
	"image"
	"sort"
	"time"

	"github.com/slatehub/slate-core/internal/infrastructure/config"
	"github.com/slatehub/slate-core/internal/widget"
)

// Placement is one widget position within a layout.
type Placement struct {
	Type            string
	Region          widget.Region
	Provider        string
	OnDemandRefresh bool
	Options         map[string]any
}

// Definition is a named, ordered set of placements. Order matters for
// draw-over-draw composition only.
type Definition struct {
	Name       string
	Background uint8
	Placements []Placement
}

// Frame is a rendered layout ready for the display.
// Immutable once produced.
type Frame struct {
	ID         string
	LayoutName string
	Image      *image.Gray
	ProducedAt time.Time

	// Degraded is true when any placement used stale or absent data or
	// fell back to placeholder visuals.
	Degraded bool
}

// Set holds the configured layout definitions. Built at startup or
// config reload; read-only thereafter.
type Set struct {
	definitions map[string]Definition
}

// NewSet builds a Set from configuration.
func NewSet(layouts map[string]config.LayoutConfig) *Set {
	defs := make(map[string]Definition, len(layouts))
	for key, lc := range layouts {
		name := lc.Name
		if name == "" {
			name = key
		}

		def := Definition{
			Name:       name,
			Background: uint8(lc.Background), //nolint:gosec // validated 0-255 at config load
		}
		for _, wc := range lc.Widgets {
			def.Placements = append(def.Placements, Placement{
				Type: wc.Type,
				Region: widget.Region{
					X: wc.X, Y: wc.Y, Width: wc.Width, Height: wc.Height,
				},
				Provider:        wc.Provider,
				OnDemandRefresh: wc.OnDemandRefresh,
				Options:         wc.Options,
			})
		}
		defs[key] = def
	}
	return &Set{definitions: defs}
}

// Get returns the named definition.
func (s *Set) Get(name string) (Definition, bool) {
	def, ok := s.definitions[name]
	return def, ok
}

// Names returns the configured layout names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.definitions))
	for name := range s.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
