package snapfit

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// DefaultMaxSurfacePixels is the largest drawing surface JPEGEncoder will
// allocate, matching the canvas area limit of common browsers.
const DefaultMaxSurfacePixels = 16384 * 16384

// Encoder rasterizes a Bitmap at a requested size into JPEG bytes.
type Encoder interface {
	// Encode draws bm scaled to width x height and serializes it as JPEG at
	// quality (0 = most compressed, 1 = best fidelity).
	Encode(bm *Bitmap, width, height int, quality float64) ([]byte, error)
}

// Resampler selects the interpolation used when scaling a bitmap.
type Resampler int

const (
	// ApproxBiLinear is fast bilinear-like sampling (default).
	ApproxBiLinear Resampler = iota
	// NearestNeighbor is the fastest and lowest quality.
	NearestNeighbor
	// BiLinear is exact bilinear interpolation.
	BiLinear
	// CatmullRom is the slowest and sharpest.
	CatmullRom
)

func (r Resampler) String() string {
	switch r {
	case NearestNeighbor:
		return "nearest"
	case BiLinear:
		return "bilinear"
	case CatmullRom:
		return "catmull-rom"
	default:
		return "approx-bilinear"
	}
}

// ParseResampler parses the String form of a Resampler.
func ParseResampler(s string) (Resampler, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "approx-bilinear":
		return ApproxBiLinear, nil
	case "nearest":
		return NearestNeighbor, nil
	case "bilinear":
		return BiLinear, nil
	case "catmull-rom", "catmullrom":
		return CatmullRom, nil
	default:
		return ApproxBiLinear, fmt.Errorf("snapfit: unknown resampler %q", s)
	}
}

func (r Resampler) interpolator() draw.Interpolator {
	switch r {
	case NearestNeighbor:
		return draw.NearestNeighbor
	case BiLinear:
		return draw.BiLinear
	case CatmullRom:
		return draw.CatmullRom
	default:
		return draw.ApproxBiLinear
	}
}

// JPEGEncoder encodes with image/jpeg after scaling with golang.org/x/image/draw.
type JPEGEncoder struct {
	// Resampler is the scaling interpolation.
	Resampler Resampler

	// Background fills the surface before drawing, since JPEG has no alpha.
	// Nil means white.
	Background color.Color

	// MaxSurfacePixels bounds width*height. Zero means DefaultMaxSurfacePixels.
	MaxSurfacePixels int
}

// NewJPEGEncoder returns an encoder with the default resampler and a white background.
func NewJPEGEncoder() *JPEGEncoder {
	return &JPEGEncoder{}
}

// Encode implements Encoder.
func (e *JPEGEncoder) Encode(bm *Bitmap, width, height int, quality float64) ([]byte, error) {
	if bm == nil || bm.Image == nil {
		return nil, &EncodeError{Width: width, Height: height, Quality: quality, Err: errors.New("nil bitmap")}
	}
	if width < 1 || height < 1 {
		return nil, &EncodeError{Width: width, Height: height, Quality: quality, Err: errors.New("geometry below 1 pixel")}
	}

	limit := e.MaxSurfacePixels
	if limit <= 0 {
		limit = DefaultMaxSurfacePixels
	}
	if int64(width)*int64(height) > int64(limit) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrSurfaceUnavailable, width, height, limit)
	}

	surface := e.render(bm.Image, width, height)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, surface, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return nil, &EncodeError{Width: width, Height: height, Quality: quality, Err: err}
	}
	if buf.Len() == 0 {
		return nil, &EncodeError{Width: width, Height: height, Quality: quality, Err: errors.New("no output")}
	}
	return buf.Bytes(), nil
}

// render renders src scaled to width x height on a fresh opaque surface.
func (e *JPEGEncoder) render(src image.Image, width, height int) *image.RGBA {
	bg := e.Background
	if bg == nil {
		bg = color.White
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	sb := src.Bounds()
	if sb.Dx() == width && sb.Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst
	}
	e.Resampler.interpolator().Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}

// jpegQuality maps a [0, 1] quality to the image/jpeg 1..100 scale.
func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}
