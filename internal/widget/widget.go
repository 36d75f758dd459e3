// Package widget turns provider data into pixels.
//
// Each widget type is a pure renderer: given a region, a data payload,
// and options, it draws into the frame canvas and reports whether it
// had to fall back to placeholder visuals. Renderers perform no I/O and
// never fail outright; missing or malformed data produces a defined
// fallback so a layout always composes into a full frame.
package widget

import (
	"image"

	"github.com/slatehub/slate-core/internal/provider"
)

// Region is a widget's placement rectangle within the frame canvas.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Renderer draws one widget type.
//
// Implementations must be pure: no I/O, no stored state, output fully
// determined by the arguments. Render returns true when placeholder
// visuals were used because data was absent or unusable.
type Renderer interface {
	Render(canvas *image.Gray, region Region, data provider.Payload, opts map[string]any) (usedFallback bool)
}

// Catalog maps widget type names to renderers. Built once at startup;
// read-only thereafter.
type Catalog struct {
	renderers map[string]Renderer
}

// NewCatalog builds the catalog with all built-in widget types.
func NewCatalog() *Catalog {
	return &Catalog{
		renderers: map[string]Renderer{
			"clock":         &clockWidget{},
			"text":          &textWidget{},
			"weather":       &weatherWidget{},
			"calendar":      &calendarWidget{},
			"tasks":         &tasksWidget{},
			"indoor_sensor": &sensorWidget{},
		},
	}
}

// Render dispatches to the named widget type.
// Unknown types return ErrUnknownType; the caller decides whether to
// skip the placement.
func (c *Catalog) Render(widgetType string, canvas *image.Gray, region Region, data provider.Payload, opts map[string]any) (bool, error) {
	r, ok := c.renderers[widgetType]
	if !ok {
		return false, ErrUnknownType
	}
	return r.Render(canvas, region, data, opts), nil
}

// Types returns the registered widget type names.
func (c *Catalog) Types() []string {
	types := make([]string, 0, len(c.renderers))
	for name := range c.renderers {
		types = append(types, name)
	}
	return types
}
