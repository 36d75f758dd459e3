package widget

import (
	"fmt"
	"image"

	"github.com/slatehub/slate-core/internal/provider"
)

// sensorWidget draws the indoor climate reading: temperature large,
// humidity and the 24h range underneath.
type sensorWidget struct{}

func (w *sensorWidget) Render(canvas *image.Gray, region Region, data provider.Payload, _ map[string]any) bool {
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
	drawTextCentered(canvas, region, y, scale, fmt.Sprintf("%.1fC", temp), Black)
	y += glyphHeight*scale + glyphHeight/2

	if humidity, ok := floatField(data, "humidity"); ok {
		drawTextCentered(canvas, region, y, 1, fmt.Sprintf("%.0f%% RH", humidity), Black)
		y += glyphHeight + glyphHeight/2
	}

	lo, hasLo := floatField(data, "min_temp_c")
	hi, hasHi := floatField(data, "max_temp_c")
	if hasLo && hasHi {
		drawTextCentered(canvas, region, y, 1,
			fmt.Sprintf("24h: %.1f - %.1f", lo, hi), Black)
	}

	return false
}
