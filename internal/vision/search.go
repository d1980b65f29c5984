package vision

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SearchParams describes the scale grid: ScaleSteps+1 evenly spaced factors
// from ScaleMin to ScaleMax inclusive.
type SearchParams struct {
	ScaleMin   float64
	ScaleMax   float64
	ScaleSteps int
}

func (p SearchParams) validate() error {
	if p.ScaleSteps < 0 {
		return fmt.Errorf("scale steps %d: %w", p.ScaleSteps, ErrInvalidParams)
	}
	if math.IsNaN(p.ScaleMin) || math.IsNaN(p.ScaleMax) || p.ScaleMin <= 0 || p.ScaleMax < p.ScaleMin {
		return fmt.Errorf("scale range [%v, %v]: %w", p.ScaleMin, p.ScaleMax, ErrInvalidParams)
	}
	return nil
}

// Scales lists the factors searched, smallest first.
func (p SearchParams) Scales() []float64 {
	if p.ScaleSteps == 0 {
		return []float64{p.ScaleMin}
	}
	step := (p.ScaleMax - p.ScaleMin) / float64(p.ScaleSteps)
	scales := make([]float64, p.ScaleSteps+1)
	for i := range scales {
		scales[i] = p.ScaleMin + float64(i)*step
	}
	return scales
}

func validateInputs(template, target *Image, p SearchParams) error {
	if template.Empty() {
		return fmt.Errorf("template: %w", ErrEmptyImage)
	}
	if target.Empty() {
		return fmt.Errorf("target: %w", ErrEmptyImage)
	}
	return p.validate()
}

// ScaleSurface is the similarity surface produced at one scale.
type ScaleSurface struct {
	Scale        float64
	Surface      *Surface
	TemplateSize image.Point
}

// Search resizes template to every scale of the grid and correlates it with
// target. Scales the target cannot accommodate are skipped. The result is in
// scale order and is not ranked.
func Search(template, target *Image, p SearchParams) ([]ScaleSurface, error) {
	if err := validateInputs(template, target, p); err != nil {
		return nil, err
	}

	plan := newTargetPlan(target)
	scales := p.Scales()
	results := make([]*ScaleSurface, len(scales))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, scale := range scales {
		g.Go(func() error {
			resized := template.Scale(scale)
			surface, err := plan.correlate(resized)
			if err != nil {
				slog.Debug("Skipping scale", "scale", scale, "error", err)
				return nil
			}
			results[i] = &ScaleSurface{
				Scale:        scale,
				Surface:      surface,
				TemplateSize: resized.Size(),
			}
			return nil
		})
	}
	_ = g.Wait()

	surfaces := make([]ScaleSurface, 0, len(results))
	for _, r := range results {
		if r != nil {
			surfaces = append(surfaces, *r)
		}
	}
	return surfaces, nil
}
