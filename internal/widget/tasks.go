package widget

import (
	"image"

	"github.com/slatehub/slate-core/internal/provider"
)

// tasksWidget lists open tasks with a bullet per line.
type tasksWidget struct{}

func (w *tasksWidget) Render(canvas *image.Gray, region Region, data provider.Payload, _ map[string]any) bool {
	tasks, ok := listField(data, "tasks")
	if !ok {
		drawFallback(canvas, region)
		return true
	}

	const lineHeight = glyphHeight + 3
	maxLines := region.Height / lineHeight

	if len(tasks) == 0 {
		drawText(canvas, region.X, region.Y, "All done", Black)
		return false
	}

	y := region.Y
	for i, task := range tasks {
		if i >= maxLines {
			break
		}

		title, _ := task["title"].(string)
		line := "- " + title
		if due, ok := task["due"].(string); ok && due != "" {
			line += " (" + due + ")"
		}
		drawText(canvas, region.X, y, truncate(line, region.Width), Black)
		y += lineHeight
	}

	return false
}
