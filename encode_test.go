package snapfit

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bitmapOf(img image.Image) *Bitmap {
	b := img.Bounds()
	return &Bitmap{Image: img, Width: b.Dx(), Height: b.Dy()}
}

func TestJPEGEncoderGeometry(t *testing.T) {
	bm := bitmapOf(makeGradient(300, 200))

	for _, r := range []Resampler{ApproxBiLinear, NearestNeighbor, BiLinear, CatmullRom} {
		t.Run(r.String(), func(t *testing.T) {
			enc := &JPEGEncoder{Resampler: r}
			data, err := enc.Encode(bm, 150, 100, 0.8)
			require.NoError(t, err)

			cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, 150, cfg.Width)
			assert.Equal(t, 100, cfg.Height)
		})
	}
}

func TestJPEGEncoderQualityShrinksOutput(t *testing.T) {
	bm := bitmapOf(makeNoise(200, 200))
	enc := NewJPEGEncoder()

	hi, err := enc.Encode(bm, 200, 200, 0.95)
	require.NoError(t, err)
	lo, err := enc.Encode(bm, 200, 200, 0.3)
	require.NoError(t, err)
	assert.Less(t, len(lo), len(hi))

	small, err := enc.Encode(bm, 100, 100, 0.95)
	require.NoError(t, err)
	assert.Less(t, len(small), len(hi))
}

func TestJPEGEncoderFillsTransparency(t *testing.T) {
	transparent := makeSolid(16, 16, color.NRGBA{})

	tests := []struct {
		name string
		bg   color.Color
		want uint8
	}{
		{"default white", nil, 255},
		{"black", color.Black, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &JPEGEncoder{Background: tt.bg}
			data, err := enc.Encode(bitmapOf(transparent), 16, 16, 0.9)
			require.NoError(t, err)

			img, err := jpeg.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			r, g, b, _ := img.At(8, 8).RGBA()
			assert.InDelta(t, tt.want, r>>8, 2)
			assert.InDelta(t, tt.want, g>>8, 2)
			assert.InDelta(t, tt.want, b>>8, 2)
		})
	}
}

func TestJPEGEncoderErrors(t *testing.T) {
	enc := NewJPEGEncoder()

	_, err := enc.Encode(nil, 10, 10, 0.5)
	assert.ErrorIs(t, err, ErrEncode)

	_, err = enc.Encode(bitmapOf(makeGradient(4, 4)), 0, 10, 0.5)
	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 0, ee.Width)

	limited := &JPEGEncoder{MaxSurfacePixels: 100}
	_, err = limited.Encode(bitmapOf(makeGradient(4, 4)), 11, 10, 0.5)
	assert.ErrorIs(t, err, ErrSurfaceUnavailable)
	_, err = limited.Encode(bitmapOf(makeGradient(4, 4)), 10, 10, 0.5)
	assert.NoError(t, err)
}

func TestJPEGQuality(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 1},
		{-1, 1},
		{0.54, 54},
		{0.86, 86},
		{1, 100},
		{1.5, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, jpegQuality(tt.in), "jpegQuality(%v)", tt.in)
	}
}

func TestParseResampler(t *testing.T) {
	for _, r := range []Resampler{ApproxBiLinear, NearestNeighbor, BiLinear, CatmullRom} {
		got, err := ParseResampler(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	got, err := ParseResampler("")
	require.NoError(t, err)
	assert.Equal(t, ApproxBiLinear, got)

	_, err = ParseResampler("lanczos")
	assert.Error(t, err)
}
