package widget

import (
	"image"
	"time"

	"github.com/slatehub/slate-core/internal/provider"
)

// calendarWidget lists upcoming events, one per line.
type calendarWidget struct{}

func (w *calendarWidget) Render(canvas *image.Gray, region Region, data provider.Payload, _ map[string]any) bool {
	events, ok := listField(data, "events")
	if !ok {
		drawFallback(canvas, region)
		return true
	}

	const lineHeight = glyphHeight + 3
	maxLines := region.Height / lineHeight

	if len(events) == 0 {
		drawText(canvas, region.X, region.Y, "No upcoming events", Black)
		return false
	}

	y := region.Y
	for i, ev := range events {
		if i >= maxLines {
			break
		}

		summary, _ := ev["summary"].(string)
		line := formatEventLine(ev, summary)
		drawText(canvas, region.X, y, truncate(line, region.Width), Black)
		y += lineHeight
	}

	return false
}

// formatEventLine prefixes the summary with "Jan 2" and, for timed
// events, "15:04".
func formatEventLine(ev map[string]any, summary string) string {
	start, _ := ev["start"].(string)
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return summary
	}

	allDay, _ := ev["all_day"].(bool)
	if allDay {
		return t.Format("Jan 2") + "  " + summary
	}
	return t.Format("Jan 2 15:04") + "  " + summary
}
