package vision

import "image"

// BoundingBox is a rectangle in the coordinate space of the image it was
// found in. Max is exclusive.
type BoundingBox struct {
	Min image.Point
	Max image.Point
}

func (b BoundingBox) Size() image.Point {
	return b.Max.Sub(b.Min)
}

// CenterX is the horizontal midpoint, rounded down.
func (b BoundingBox) CenterX() int {
	return (b.Min.X + b.Max.X) / 2
}

// ContainsX reports whether x lies strictly between the box's left and
// right edges.
func (b BoundingBox) ContainsX(x int) bool {
	return b.Min.X < x && x < b.Max.X
}

// Match is a detected template instance. Confidence is a similarity in
// [0, 1], not a probability.
type Match struct {
	Box        BoundingBox
	Confidence float64
}

// Suppress extracts up to maxCount peaks from s, strongest first. After each
// accepted peak a window of 1.5x the template size, shifted back by a quarter
// of the template, is zeroed so the same instance is not picked again at a
// nearby offset. Peaks below threshold end the extraction. s is modified.
func Suppress(s *Surface, size image.Point, threshold float64, maxCount int) []Match {
	var matches []Match
	for len(matches) < maxCount {
		loc, value := s.Max()
		if value < threshold {
			break
		}

		matches = append(matches, Match{
			Box:        BoundingBox{Min: loc, Max: loc.Add(size)},
			Confidence: value,
		})

		x1 := max(loc.X-size.X/4, 0)
		y1 := max(loc.Y-size.Y/4, 0)
		x2 := min(x1+size.X+size.X/2, s.Width)
		y2 := min(y1+size.Y+size.Y/2, s.Height)
		if x2 > x1 && y2 > y1 {
			s.Fill(image.Rect(x1, y1, x2, y2), 0)
		}
	}
	return matches
}
