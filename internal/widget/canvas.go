package widget

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Grayscale values for the 1-bit e-ink palette. Intermediate grays are
// quantised by the display transport.
const (
	Black = 0x00
	White = 0xFF
)

// glyphWidth and glyphHeight are the Face7x13 cell dimensions, used for
// text measurement and placement maths.
const (
	glyphWidth  = 7
	glyphHeight = 13
)

// fillRect fills the intersection of r with the canvas bounds.
func fillRect(canvas *image.Gray, r image.Rectangle, gray uint8) {
	r = r.Intersect(canvas.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			canvas.SetGray(x, y, color.Gray{Y: gray})
		}
	}
}

// drawBorder draws a 1px rectangle outline.
func drawBorder(canvas *image.Gray, r image.Rectangle, gray uint8) {
	fillRect(canvas, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), gray)
	fillRect(canvas, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), gray)
	fillRect(canvas, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), gray)
	fillRect(canvas, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), gray)
}

// drawText renders s at (x, y) using the 7x13 bitmap face. y is the
// top of the text cell, not the baseline.
func drawText(canvas *image.Gray, x, y int, s string, gray uint8) {
	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Gray{Y: gray}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y+basicfont.Face7x13.Ascent),
	}
	d.DrawString(s)
}

// drawTextScaled renders s at an integer scale factor by drawing to a
// scratch image and expanding pixels. Face7x13 is the only bundled
// bitmap face, so large clock digits are produced this way rather than
// shipping a TTF.
func drawTextScaled(canvas *image.Gray, x, y, scale int, s string, gray uint8) {
	if scale <= 1 {
		drawText(canvas, x, y, s, gray)
		return
	}

	w := textWidth(s)
	scratch := image.NewGray(image.Rect(0, 0, w, glyphHeight))
	fillRect(scratch, scratch.Bounds(), White)
	drawText(scratch, 0, 0, s, Black)

	bounds := canvas.Bounds()
	for sy := 0; sy < glyphHeight; sy++ {
		for sx := 0; sx < w; sx++ {
			if scratch.GrayAt(sx, sy).Y != Black {
				continue
			}
			target := image.Rect(x+sx*scale, y+sy*scale, x+(sx+1)*scale, y+(sy+1)*scale).
				Intersect(bounds)
			for ty := target.Min.Y; ty < target.Max.Y; ty++ {
				for tx := target.Min.X; tx < target.Max.X; tx++ {
					canvas.SetGray(tx, ty, color.Gray{Y: gray})
				}
			}
		}
	}
}

// textWidth returns the pixel width of s in the 7x13 face.
func textWidth(s string) int {
	return len(s) * glyphWidth
}

// drawTextCentered renders s horizontally centered within the region at
// the given top y.
func drawTextCentered(canvas *image.Gray, region Region, y, scale int, s string, gray uint8) {
	w := textWidth(s) * scale
	x := region.X + (region.Width-w)/2
	drawTextScaled(canvas, x, y, scale, s, gray)
}

// truncate shortens s to fit maxWidth pixels at scale 1, appending an
// ellipsis dot when cut.
func truncate(s string, maxWidth int) string {
	maxChars := maxWidth / glyphWidth
	if len(s) <= maxChars {
		return s
	}
	if maxChars <= 1 {
		return ""
	}
	return s[:maxChars-1] + "."
}

// regionRect converts a Region to an image.Rectangle.
func regionRect(r Region) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// drawFallback renders the placeholder visual used when a widget has no
// usable data: a border with a centered double dash.
func drawFallback(canvas *image.Gray, region Region) {
	drawBorder(canvas, regionRect(region), Black)
	y := region.Y + (region.Height-glyphHeight)/2
	drawTextCentered(canvas, region, y, 1, "--", Black)
}
