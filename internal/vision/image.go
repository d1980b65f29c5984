package vision

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage    = errors.New("image has no pixels")
	ErrInvalidParams = errors.New("invalid detection parameters")
	ErrDecode        = errors.New("failed to decode image")
)

// Image is an immutable RGB raster anchored at the origin. Alpha is dropped
// after premultiplication, so fully transparent pixels read as black.
type Image struct {
	rgba *image.RGBA
}

// FromImage copies src into a new Image.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return &Image{rgba: dst}
}

// Decode reads a PNG, JPEG, GIF or WebP image.
func Decode(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return FromImage(src), nil
}

// Load decodes the image file at path.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func (im *Image) Width() int {
	if im == nil || im.rgba == nil {
		return 0
	}
	return im.rgba.Rect.Dx()
}

func (im *Image) Height() int {
	if im == nil || im.rgba == nil {
		return 0
	}
	return im.rgba.Rect.Dy()
}

func (im *Image) Size() image.Point {
	return image.Pt(im.Width(), im.Height())
}

func (im *Image) Empty() bool {
	return im.Width() == 0 || im.Height() == 0
}

// RGBA returns a copy of the pixels that the caller may modify.
func (im *Image) RGBA() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, im.Width(), im.Height()))
	if im.rgba != nil {
		copy(dst.Pix, im.rgba.Pix)
	}
	return dst
}

// Resize returns a bilinear resampled copy with the given dimensions.
func (im *Image) Resize(width, height int) *Image {
	if width <= 0 || height <= 0 || im.Empty() {
		return &Image{rgba: image.NewRGBA(image.Rectangle{})}
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), im.rgba, im.rgba.Bounds(), draw.Src, nil)
	return &Image{rgba: dst}
}

// Scale resizes by factor. Fractional dimensions are truncated.
func (im *Image) Scale(factor float64) *Image {
	return im.Resize(int(float64(im.Width())*factor), int(float64(im.Height())*factor))
}

// planes splits the image into one float plane per colour channel, each
// padded with zeros to pw x ph.
func (im *Image) planes(pw, ph int) [3][]float64 {
	var out [3][]float64
	for c := range out {
		out[c] = make([]float64, pw*ph)
	}
	w, h := im.Width(), im.Height()
	for y := 0; y < h; y++ {
		row := im.rgba.Pix[y*im.rgba.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4:]
			out[0][y*pw+x] = float64(p[0])
			out[1][y*pw+x] = float64(p[1])
			out[2][y*pw+x] = float64(p[2])
		}
	}
	return out
}
