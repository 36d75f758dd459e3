package widget

import (
	"image"

	"github.com/slatehub/slate-core/internal/provider"
)

// textWidget draws a static string from its options. It binds to no
// provider; useful for labels and section headers.
type textWidget struct{}

// Render draws the configured text.
//
// Options:
//   - text: the string to draw (fallback visual when empty)
//   - scale: integer scale factor (default 1)
//   - centered: center horizontally (default false)
func (w *textWidget) Render(canvas *image.Gray, region Region, _ provider.Payload, opts map[string]any) bool {
	text := stringOpt(opts, "text", "")
	if text == "" {
		drawFallback(canvas, region)
		return true
	}

	scale := intOpt(opts, "scale", 1)
	if boolOpt(opts, "centered", false) {
		drawTextCentered(canvas, region, region.Y, scale, text, Black)
	} else {
		drawTextScaled(canvas, region.X, region.Y, scale, text, Black)
	}

	return false
}
