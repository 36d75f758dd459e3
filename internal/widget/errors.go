package widget

import "errors"

// ErrUnknownType is returned when a layout references a widget type
// with no registered renderer.
var ErrUnknownType = errors.New("widget: unknown widget type")
