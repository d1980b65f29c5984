package vision

import (
	"cmp"
	"slices"
)

// Params configures a multi-scale detection.
type Params struct {
	MaxMatches int     `json:"maxMatches"`
	ScaleMin   float64 `json:"scaleMin"`
	ScaleMax   float64 `json:"scaleMax"`
	ScaleSteps int     `json:"scaleSteps"`
	Threshold  float64 `json:"threshold"`
}

func (p Params) search() SearchParams {
	return SearchParams{
		ScaleMin:   p.ScaleMin,
		ScaleMax:   p.ScaleMax,
		ScaleSteps: p.ScaleSteps,
	}
}

// Detect finds up to p.MaxMatches instances of template in target across the
// scale grid, most confident first.
//
// Each scale is suppressed on its own and the accepted matches are pooled, so
// an instance that matches at several adjacent scales can appear more than
// once. Instances in chat screenshots are far apart, which is why no
// cross-scale merge is done.
//
// Inputs are validated even when p.MaxMatches asks for nothing.
func Detect(template, target *Image, p Params) ([]Match, error) {
	if err := validateInputs(template, target, p.search()); err != nil {
		return nil, err
	}
	if p.MaxMatches <= 0 {
		return nil, nil
	}

	surfaces, err := Search(template, target, p.search())
	if err != nil {
		return nil, err
	}

	var pool []Match
	for _, ss := range surfaces {
		pool = append(pool, Suppress(ss.Surface, ss.TemplateSize, p.Threshold, p.MaxMatches)...)
	}

	slices.SortStableFunc(pool, func(a, b Match) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	if len(pool) > p.MaxMatches {
		pool = pool[:p.MaxMatches]
	}
	return pool, nil
}
