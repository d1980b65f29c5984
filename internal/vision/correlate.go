package vision

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// fft2 is a 2-D real FFT over a w x h plane built from row-wise real
// transforms and column-wise complex transforms. Spectra keep only the
// w/2+1 non-redundant columns. Not safe for concurrent use.
type fft2 struct {
	w, h int
	cw   int
	row  *fourier.FFT
	col  *fourier.CmplxFFT
	in   []complex128
	out  []complex128
	work []complex128
}

func newFFT2(w, h int) *fft2 {
	cw := w/2 + 1
	return &fft2{
		w:    w,
		h:    h,
		cw:   cw,
		row:  fourier.NewFFT(w),
		col:  fourier.NewCmplxFFT(h),
		in:   make([]complex128, h),
		out:  make([]complex128, h),
		work: make([]complex128, cw*h),
	}
}

func (f *fft2) forward(plane []float64) []complex128 {
	spec := make([]complex128, f.cw*f.h)
	for y := 0; y < f.h; y++ {
		f.row.Coefficients(spec[y*f.cw:(y+1)*f.cw], plane[y*f.w:(y+1)*f.w])
	}
	for x := 0; x < f.cw; x++ {
		for y := 0; y < f.h; y++ {
			f.in[y] = spec[y*f.cw+x]
		}
		f.col.Coefficients(f.out, f.in)
		for y := 0; y < f.h; y++ {
			spec[y*f.cw+x] = f.out[y]
		}
	}
	return spec
}

// inverse writes the normalized inverse transform of spec into dst.
func (f *fft2) inverse(spec []complex128, dst []float64) {
	for x := 0; x < f.cw; x++ {
		for y := 0; y < f.h; y++ {
			f.in[y] = spec[y*f.cw+x]
		}
		f.col.Sequence(f.out, f.in)
		for y := 0; y < f.h; y++ {
			f.work[y*f.cw+x] = f.out[y]
		}
	}
	for y := 0; y < f.h; y++ {
		f.row.Sequence(dst[y*f.w:(y+1)*f.w], f.work[y*f.cw:(y+1)*f.cw])
	}
	n := float64(f.w * f.h)
	for i := range dst {
		dst[i] /= n
	}
}

// targetPlan holds everything about a target that is shared by every scale:
// its channel spectra and a summed-area table of squared intensities.
type targetPlan struct {
	width, height int
	pw, ph        int
	spectra       [3][]complex128
	energy        []float64
}

func newTargetPlan(target *Image) *targetPlan {
	w, h := target.Width(), target.Height()
	p := &targetPlan{
		width:  w,
		height: h,
		pw:     smoothSize(w),
		ph:     smoothSize(h),
	}

	planes := target.planes(p.pw, p.ph)
	f := newFFT2(p.pw, p.ph)
	for c := range planes {
		p.spectra[c] = f.forward(planes[c])
	}

	// energy has (w+1) x (h+1) entries with a zero first row and column.
	p.energy = make([]float64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum float64
		for x := 0; x < w; x++ {
			i := y*p.pw + x
			rowSum += planes[0][i]*planes[0][i] + planes[1][i]*planes[1][i] + planes[2][i]*planes[2][i]
			p.energy[(y+1)*(w+1)+x+1] = p.energy[y*(w+1)+x+1] + rowSum
		}
	}
	return p
}

func (p *targetPlan) windowEnergy(x, y, w, h int) float64 {
	stride := p.width + 1
	return p.energy[(y+h)*stride+x+w] - p.energy[y*stride+x+w] - p.energy[(y+h)*stride+x] + p.energy[y*stride+x]
}

// correlate computes the normalized cross-correlation surface of template
// against the target: sum(T*I) / sqrt(sum(T^2) * sum(I^2)) over all channels.
func (p *targetPlan) correlate(template *Image) (*Surface, error) {
	tw, th := template.Width(), template.Height()
	if tw == 0 || th == 0 {
		return nil, fmt.Errorf("template resized to %dx%d: %w", tw, th, ErrEmptyImage)
	}
	if tw > p.width || th > p.height {
		return nil, fmt.Errorf("template %dx%d larger than target %dx%d", tw, th, p.width, p.height)
	}

	f := newFFT2(p.pw, p.ph)
	planes := template.planes(p.pw, p.ph)

	var templateEnergy float64
	product := make([]complex128, f.cw*f.h)
	for c := range planes {
		for _, v := range planes[c] {
			templateEnergy += v * v
		}
		spec := f.forward(planes[c])
		for i, t := range spec {
			product[i] += p.spectra[c][i] * complex(real(t), -imag(t))
		}
	}

	numerator := make([]float64, p.pw*p.ph)
	f.inverse(product, numerator)

	s := newSurface(p.width-tw+1, p.height-th+1)
	if templateEnergy == 0 {
		return s, nil
	}
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			e := p.windowEnergy(x, y, tw, th)
			if e <= 0 {
				continue
			}
			v := numerator[y*p.pw+x] / math.Sqrt(templateEnergy*e)
			s.Values[y*s.Width+x] = clamp01(v)
		}
	}
	return s, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}

// smoothSize returns the smallest n >= size whose only prime factors are 2,
// 3 and 5, which keeps the FFTs on their fast paths.
func smoothSize(size int) int {
	if size < 1 {
		return 1
	}
	for n := size; ; n++ {
		m := n
		for _, f := range []int{2, 3, 5} {
			for m%f == 0 {
				m /= f
			}
		}
		if m == 1 {
			return n
		}
	}
}
