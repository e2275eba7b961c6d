package snapfit

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	// Register decoders for every raster format the platform can rasterize.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoder turns raw image bytes into a Bitmap.
type Decoder interface {
	// Decode rasterizes src. It fails with *DecodeError when the bytes
	// are not a supported raster image.
	Decode(src File) (*Bitmap, error)
}

// ImageDecoder decodes with the registered image formats and applies the
// EXIF orientation of JPEG sources.
type ImageDecoder struct {
	// SkipOrientation keeps the stored pixel orientation instead of the
	// orientation recorded in EXIF metadata.
	SkipOrientation bool

	// MaxSurfacePixels bounds the width*height declared in the image
	// header. Zero means DefaultMaxSurfacePixels.
	MaxSurfacePixels int

	inFlight atomic.Int64
}

// NewImageDecoder returns a decoder that auto-orients JPEG sources.
func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{}
}

var readerPool = sync.Pool{
	New: func() any { return bufio.NewReaderSize(nil, 64*1024) },
}

// acquire takes a buffered reader over data from the pool. The returned
// release func must be called exactly once.
func (d *ImageDecoder) acquire(data []byte) (*bufio.Reader, func()) {
	br := readerPool.Get().(*bufio.Reader)
	br.Reset(bytes.NewReader(data))
	d.inFlight.Add(1)
	return br, func() {
		br.Reset(nil)
		readerPool.Put(br)
		d.inFlight.Add(-1)
	}
}

// InFlight returns the number of decode handles that are currently held.
func (d *ImageDecoder) InFlight() int64 {
	return d.inFlight.Load()
}

// Decode implements Decoder. Images whose header declares more pixels than
// MaxSurfacePixels fail with ErrSurfaceUnavailable before any pixel buffer
// is allocated.
func (d *ImageDecoder) Decode(src File) (*Bitmap, error) {
	if err := d.checkSurface(src.Data); err != nil {
		if errors.Is(err, ErrSurfaceUnavailable) {
			return nil, err
		}
		return nil, &DecodeError{Name: src.Name, MIMEType: src.MIMEType, Err: err}
	}

	img, err := d.rasterize(src.Data)
	if err != nil {
		return nil, &DecodeError{Name: src.Name, MIMEType: src.MIMEType, Err: err}
	}

	if !d.SkipOrientation {
		if orient := ReadOrientation(src.Data); orient > OrientNormal {
			img = ApplyOrientation(img, orient)
		}
	}

	b := img.Bounds()
	return &Bitmap{Image: img, Width: b.Dx(), Height: b.Dy()}, nil
}

// checkSurface reads only the image header.
func (d *ImageDecoder) checkSurface(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty data")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("empty image (%dx%d)", cfg.Width, cfg.Height)
	}

	limit := d.MaxSurfacePixels
	if limit <= 0 {
		limit = DefaultMaxSurfacePixels
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(limit) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrSurfaceUnavailable, cfg.Width, cfg.Height, limit)
	}
	return nil
}

func (d *ImageDecoder) rasterize(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty data")
	}

	br, release := d.acquire(data)
	defer release()

	img, _, err := image.Decode(br)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("empty image (%dx%d)", b.Dx(), b.Dy())
	}
	return img, nil
}
