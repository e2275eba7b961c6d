package snapfit

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// Integration tests that run the full pipeline on image files written to
// disk, read back through FileSource.

// writeFixtures generates the fixture set into a temporary directory.
func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	write := func(name string, data []byte) {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	// Photograph stand-in, large and already JPEG.
	write("large_photo.jpg", encodeJPEG(t, makeNoise(2400, 1600), 95))

	// Small JPEG that already fits.
	write("gradient.jpg", encodeJPEG(t, makeGradient(400, 300), 90))

	// Logo with transparency around a disc.
	logo := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			if cx, cy := x-100, y-100; cx*cx+cy*cy < 80*80 {
				logo.SetNRGBA(x, y, color.NRGBA{R: 0x33, G: 0x99, B: 0xff, A: 0xff})
			}
		}
	}
	write("transparent.png", encodePNG(t, logo))

	// Portrait shot stored landscape with EXIF orientation 6.
	write("rotated.jpg", withOrientation(encodeJPEG(t, makeGradient(1600, 1200), 95), OrientRotate90CW, false))

	write("notes.txt", []byte("grocery list"))
	return dir
}

func compressFixture(t *testing.T, dir, name string, target Target) *Result {
	t.Helper()
	src, err := FileSource{Path: filepath.Join(dir, name)}.Source(context.Background())
	if err != nil {
		t.Fatalf("Source(%s): %v", name, err)
	}
	res, err := New(WithFidelity(true)).Compress(src, target)
	if err != nil {
		t.Fatalf("Compress(%s): %v", name, err)
	}
	t.Logf("Result: %s", res)
	return res
}

func TestIntegrationLargePhoto(t *testing.T) {
	dir := writeFixtures(t)
	target := Target{MaxBytes: 400 * 1024, MaxDimension: 1400}

	res := compressFixture(t, dir, "large_photo.jpg", target)
	if !res.Outcome.Recompressed() {
		t.Fatalf("Outcome = %s, want recompressed", res.Outcome)
	}
	if res.OriginalDimensions != image.Pt(2400, 1600) {
		t.Fatalf("OriginalDimensions = %v", res.OriginalDimensions)
	}
	if res.FinalDimensions.X > 1400 || res.FinalDimensions.Y > 1400 {
		t.Fatalf("FinalDimensions %v exceed cap", res.FinalDimensions)
	}
	if res.Outcome == WithinBudget && res.File.Size() > int64(target.MaxBytes) {
		t.Fatalf("within budget but %d bytes", res.File.Size())
	}
	if res.File.Name != "large_photo.jpg" {
		t.Fatalf("Name = %q", res.File.Name)
	}
}

func TestIntegrationSmallJPEGPassesThrough(t *testing.T) {
	dir := writeFixtures(t)
	orig, err := os.ReadFile(filepath.Join(dir, "gradient.jpg"))
	if err != nil {
		t.Fatal(err)
	}

	res := compressFixture(t, dir, "gradient.jpg", DefaultTarget())
	if res.Outcome != Passthrough {
		t.Fatalf("Outcome = %s, want passthrough", res.Outcome)
	}
	if !bytes.Equal(res.File.Data, orig) {
		t.Fatal("passthrough must keep the original bytes")
	}
	if res.SSIM != 0 {
		t.Fatalf("SSIM = %f for an untouched file", res.SSIM)
	}
}

func TestIntegrationTransparentPNG(t *testing.T) {
	dir := writeFixtures(t)

	res := compressFixture(t, dir, "transparent.png", DefaultTarget())
	if res.Outcome != WithinBudget {
		t.Fatalf("Outcome = %s", res.Outcome)
	}
	if res.File.Name != "transparent.jpg" || res.File.MIMEType != MIMEJPEG {
		t.Fatalf("got %s (%s)", res.File.Name, res.File.MIMEType)
	}
	if res.SSIM < 0.9 {
		t.Fatalf("SSIM too low: %.4f", res.SSIM)
	}

	img, err := jpeg.Decode(bytes.NewReader(res.File.Data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	// Corners were transparent and must come out white.
	if r, g, b, _ := img.At(2, 2).RGBA(); r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Fatalf("corner = (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
}

func TestIntegrationOrientationApplied(t *testing.T) {
	dir := writeFixtures(t)

	res := compressFixture(t, dir, "rotated.jpg", Target{MaxBytes: 1, MaxDimension: 1400})
	if res.OriginalDimensions != image.Pt(1200, 1600) {
		t.Fatalf("OriginalDimensions = %v, want upright 1200x1600", res.OriginalDimensions)
	}
	if res.Outcome != OverBudget || len(res.Attempts) != maxAttempts {
		t.Fatalf("Outcome = %s after %d attempts", res.Outcome, len(res.Attempts))
	}
	first := res.Attempts[0]
	if first.Width != 1050 || first.Height != 1400 {
		t.Fatalf("first attempt %dx%d, want 1050x1400", first.Width, first.Height)
	}
}

func TestIntegrationNonImage(t *testing.T) {
	dir := writeFixtures(t)

	res := compressFixture(t, dir, "notes.txt", DefaultTarget())
	if res.Outcome != NotAnImage {
		t.Fatalf("Outcome = %s", res.Outcome)
	}
	if res.File.Name != "notes.txt" || res.File.MIMEType != "text/plain" {
		t.Fatalf("got %s (%s)", res.File.Name, res.File.MIMEType)
	}
}
