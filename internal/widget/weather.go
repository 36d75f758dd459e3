package widget

import (
	"fmt"
	"image"

	"github.com/slatehub/slate-core/internal/provider"
)

// weatherWidget draws current outdoor conditions: temperature large,
// condition text, and a min/max line when present.
type weatherWidget struct{}

func (w *weatherWidget) Render(canvas *image.Gray, region Region, data provider.Payload, _ map[string]any) bool {
	temp, ok := floatField(data, "temperature_c")
	if !ok {
		drawFallback(canvas, region)
		return true
	}

	scale := region.Height / (glyphHeight * 4)
	if scale < 1 {
		scale = 1
	}

	y := region.Y + glyphHeight/2
	// Face7x13 is ASCII-only, so "C" rather than a degree sign.
	drawTextCentered(canvas, region, y, scale, fmt.Sprintf("%.1fC", temp), Black)
	y += glyphHeight*scale + glyphHeight/2

	if condition, ok := stringField(data, "condition"); ok {
		drawTextCentered(canvas, region, y, 1, truncate(condition, region.Width), Black)
		y += glyphHeight + glyphHeight/2
	}

	lo, hasLo := floatField(data, "temp_min_c")
	hi, hasHi := floatField(data, "temp_max_c")
	if hasLo && hasHi {
		drawTextCentered(canvas, region, y, 1,
			fmt.Sprintf("%.0f / %.0f", lo, hi), Black)
	}

	return false
}
