package vision

import (
	"image"
	"image/color"
)

// Annotate returns a copy of target with an outline drawn around each match.
func Annotate(target *Image, matches []Match, c color.Color, thickness int) *image.RGBA {
	dst := target.RGBA()
	if thickness < 1 {
		thickness = 1
	}
	bounds := dst.Bounds()
	for _, m := range matches {
		r := image.Rectangle{Min: m.Box.Min, Max: m.Box.Max}
		for t := 0; t < thickness; t++ {
			inner := r.Inset(t)
			if inner.Empty() {
				break
			}
			for x := inner.Min.X; x < inner.Max.X; x++ {
				setIn(dst, bounds, x, inner.Min.Y, c)
				setIn(dst, bounds, x, inner.Max.Y-1, c)
			}
			for y := inner.Min.Y; y < inner.Max.Y; y++ {
				setIn(dst, bounds, inner.Min.X, y, c)
				setIn(dst, bounds, inner.Max.X-1, y, c)
			}
		}
	}
	return dst
}

func setIn(dst *image.RGBA, bounds image.Rectangle, x, y int, c color.Color) {
	if image.Pt(x, y).In(bounds) {
		dst.Set(x, y, c)
	}
}
