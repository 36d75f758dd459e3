package widget

import (
	"image"
	"time"

	"github.com/slatehub/slate-core/internal/provider"
)

// clockWidget draws the current time and date. It binds to no provider.
type clockWidget struct {
	// now is swappable for tests.
	now func() time.Time
}

// Render draws the time large with the date underneath.
//
// Options:
//   - format: time format (default "15:04")
//   - show_date: draw the date line (default true)
func (w *clockWidget) Render(canvas *image.Gray, region Region, _ provider.Payload, opts map[string]any) bool {
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	t := now()

	format := stringOpt(opts, "format", "15:04")
	showDate := boolOpt(opts, "show_date", true)

	scale := region.Height / (glyphHeight * 3)
	if scale < 1 {
		scale = 1
	}

	y := region.Y + region.Height/6
	drawTextCentered(canvas, region, y, scale, t.Format(format), Black)

	if showDate {
		dateY := y + glyphHeight*scale + glyphHeight/2
		drawTextCentered(canvas, region, dateY, 1, t.Format("Monday, 2 January"), Black)
	}

	return false
}
