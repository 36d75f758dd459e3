package layout

import "errors"

// ErrLayoutNotFound is returned when resolving a layout name with no
// definition. It is the only hard error a resolve can produce; every
// placement-level failure degrades the frame instead.
var ErrLayoutNotFound = errors.New("layout: not found")
