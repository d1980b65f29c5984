package vision

import (
	"image"
	"math"
)

// Surface is a similarity map. The value at (x, y) scores the template
// anchored with its top-left corner at (x, y) in the target.
type Surface struct {
	Width  int
	Height int
	Values []float64
}

func newSurface(width, height int) *Surface {
	return &Surface{
		Width:  width,
		Height: height,
		Values: make([]float64, width*height),
	}
}

func (s *Surface) At(x, y int) float64 {
	return s.Values[y*s.Width+x]
}

// Max returns the location and value of the largest cell. Ties go to the
// first cell in row-major order. An empty surface reports -Inf.
func (s *Surface) Max() (image.Point, float64) {
	best := math.Inf(-1)
	var loc image.Point
	for i, v := range s.Values {
		if v > best {
			best = v
			loc = image.Pt(i%s.Width, i/s.Width)
		}
	}
	return loc, best
}

// Fill sets every cell of r, clipped to the surface, to v.
func (s *Surface) Fill(r image.Rectangle, v float64) {
	r = r.Intersect(image.Rect(0, 0, s.Width, s.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := s.Values[y*s.Width : (y+1)*s.Width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = v
		}
	}
}
