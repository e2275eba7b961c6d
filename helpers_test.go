package snapfit

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// ── Test Helpers ────────────────────────────────────────────────────────────

func makeGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*img.Stride + x*4
			img.Pix[off] = uint8(x * 255 / w)
			img.Pix[off+1] = uint8(y * 255 / h)
			img.Pix[off+2] = uint8((x + y) % 256)
			img.Pix[off+3] = 0xff
		}
	}
	return img
}

// makeNoise returns an image that JPEG cannot compress well.
func makeNoise(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewPCG(1, 2))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.IntN(256))
		img.Pix[i+1] = uint8(rng.IntN(256))
		img.Pix[i+2] = uint8(rng.IntN(256))
		img.Pix[i+3] = 0xff
	}
	return img
}

func makeSolid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image, q int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}))
	return buf.Bytes()
}

// withOrientation inserts an EXIF APP1 segment carrying o right after SOI.
func withOrientation(data []byte, o Orientation, littleEndian bool) []byte {
	tiff := []byte{'M', 'M', 0, 42, 0, 0, 0, 8, // header, IFD0 at 8
		0, 1, // one entry
		0x01, 0x12, 0, 3, 0, 0, 0, 1, 0, byte(o), 0, 0, // orientation SHORT
		0, 0, 0, 0, // no next IFD
	}
	if littleEndian {
		tiff = []byte{'I', 'I', 42, 0, 8, 0, 0, 0,
			1, 0,
			0x12, 0x01, 3, 0, 1, 0, 0, 0, byte(o), 0, 0, 0,
			0, 0, 0, 0,
		}
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	n := len(payload) + 2
	seg := append([]byte{0xFF, 0xE1, byte(n >> 8), byte(n)}, payload...)

	out := append([]byte{}, data[:2]...)
	out = append(out, seg...)
	return append(out, data[2:]...)
}

// fakeDecoder returns a fixed bitmap or error and counts calls.
type fakeDecoder struct {
	bm    *Bitmap
	err   error
	calls int
}

func (d *fakeDecoder) Decode(File) (*Bitmap, error) {
	d.calls++
	return d.bm, d.err
}

func fakeBitmap(w, h int) *Bitmap {
	return &Bitmap{Image: image.NewNRGBA(image.Rect(0, 0, 1, 1)), Width: w, Height: h}
}

// fakeEncoder returns size(i) bytes for the i-th call, each filled with
// byte(i) so results can be traced back to their attempt.
type fakeEncoder struct {
	size   func(i int) int
	failAt int // 1-based call that fails; 0 never fails
	err    error
	calls  []Attempt
}

func (e *fakeEncoder) Encode(_ *Bitmap, w, h int, q float64) ([]byte, error) {
	i := len(e.calls)
	e.calls = append(e.calls, Attempt{Index: i, Width: w, Height: h, Quality: q})
	if e.failAt == i+1 {
		return nil, e.err
	}
	return bytes.Repeat([]byte{byte(i)}, e.size(i)), nil
}

func constSize(n int) func(int) int { return func(int) int { return n } }
