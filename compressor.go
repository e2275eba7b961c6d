package snapfit

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"math"
)

// Search parameters. Quality is tracked in hundredths so the sequence of
// attempted qualities is exact.
const (
	maxAttempts        = 8
	initialQuality     = 86
	qualityStep        = 8
	qualityShrinkBelow = 58 // at or below this, shrink geometry instead
	shrinkFactor       = 0.85
	minShrinkDimension = 700
)

// Compressor fits images into a byte budget by searching over JPEG quality
// and output geometry.
//
// A Compressor holds no per-run state and is safe for concurrent use as
// long as its Decoder and Encoder are.
type Compressor struct {
	decoder   Decoder
	encoder   Encoder
	logger    *slog.Logger
	onAttempt func(Attempt)
	fidelity  bool
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithDecoder replaces the default ImageDecoder.
func WithDecoder(d Decoder) Option {
	return func(c *Compressor) { c.decoder = d }
}

// WithEncoder replaces the default JPEGEncoder.
func WithEncoder(e Encoder) Option {
	return func(c *Compressor) { c.encoder = e }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compressor) { c.logger = l }
}

// WithAttemptHook registers fn to be called after every encode attempt.
func WithAttemptHook(fn func(Attempt)) Option {
	return func(c *Compressor) { c.onAttempt = fn }
}

// WithFidelity enables SSIM measurement of the recompressed output.
func WithFidelity(enabled bool) Option {
	return func(c *Compressor) { c.fidelity = enabled }
}

// New returns a Compressor using ImageDecoder and JPEGEncoder unless
// overridden by opts.
func New(opts ...Option) *Compressor {
	c := &Compressor{
		decoder: NewImageDecoder(),
		encoder: NewJPEGEncoder(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compress returns src recompressed as JPEG within target.MaxBytes when
// that is achievable in a bounded number of attempts.
//
// A JPEG source already within budget, or a source whose type is not an
// image, is returned unchanged. When no drawing surface can be obtained or
// an attempt fails to produce bytes, the source is also returned unchanged.
// If no attempt meets the budget, the last attempt is returned even though
// it is over budget. Only undecodable images (*DecodeError) and invalid
// targets are reported as errors.
func (c *Compressor) Compress(src File, target Target) (*Result, error) {
	target, err := target.normalize()
	if err != nil {
		return nil, err
	}
	log := c.logger.With("name", src.Name, "mime", src.MIMEType, "size", src.Size())

	result := &Result{OriginalSize: src.Size()}
	keep := func(o Outcome) (*Result, error) {
		result.File = src
		result.Outcome = o
		result.computeStats()
		return result, nil
	}

	if !src.isImage() {
		log.Debug("not an image, leaving unchanged")
		return keep(NotAnImage)
	}
	if src.Size() <= int64(target.MaxBytes) && src.MIMEType == MIMEJPEG {
		log.Debug("jpeg within budget, leaving unchanged", "max_bytes", target.MaxBytes)
		return keep(Passthrough)
	}

	bm, err := c.decoder.Decode(src)
	if err != nil {
		if errors.Is(err, ErrSurfaceUnavailable) {
			log.Warn("no drawing surface, leaving unchanged", "error", err)
			return keep(SourceFallback)
		}
		var de *DecodeError
		if !errors.As(err, &de) {
			err = &DecodeError{Name: src.Name, MIMEType: src.MIMEType, Err: err}
		}
		return nil, err
	}
	if bm == nil || bm.Image == nil || bm.Width < 1 || bm.Height < 1 {
		return nil, &DecodeError{Name: src.Name, MIMEType: src.MIMEType, Err: errors.New("decoder returned no bitmap")}
	}
	result.OriginalDimensions = image.Pt(bm.Width, bm.Height)

	width, height := initialGeometry(bm.Width, bm.Height, target.MaxDimension)
	quality := initialQuality
	var last []byte

	for i := 0; i < maxAttempts; i++ {
		q := float64(quality) / 100
		data, err := c.encoder.Encode(bm, width, height, q)
		if err != nil {
			log.Warn("encode failed, leaving unchanged",
				"attempt", i, "width", width, "height", height, "quality", q, "error", err)
			result.FinalDimensions = image.Point{}
			return keep(SourceFallback)
		}

		attempt := Attempt{Index: i, Width: width, Height: height, Quality: q, Bytes: len(data)}
		result.Attempts = append(result.Attempts, attempt)
		result.FinalDimensions = image.Pt(width, height)
		last = data
		log.Debug("attempt", "attempt", i, "width", width, "height", height, "quality", q, "bytes", len(data))
		if c.onAttempt != nil {
			c.onAttempt(attempt)
		}

		if len(data) <= target.MaxBytes {
			result.Outcome = WithinBudget
			break
		}

		if quality > qualityShrinkBelow {
			quality -= qualityStep
		} else {
			width = shrink(width)
			height = shrink(height)
		}
	}

	if result.Outcome != WithinBudget {
		result.Outcome = OverBudget
		log.Info("budget not met, keeping last attempt",
			"attempts", len(result.Attempts), "bytes", len(last), "max_bytes", target.MaxBytes)
	}

	result.File = File{Name: jpegName(src.Name), MIMEType: MIMEJPEG, Data: last}
	result.computeStats()

	if c.fidelity {
		ssim, err := c.measureFidelity(bm, result.FinalDimensions, last)
		if err != nil {
			log.Warn("fidelity measurement failed", "error", err)
		}
		result.SSIM = ssim
	}
	return result, nil
}

// initialGeometry fits w x h within maxDim on the longer edge, never upscaling.
func initialGeometry(w, h, maxDim int) (int, int) {
	scale := math.Min(1, float64(maxDim)/float64(max(w, h)))
	return max(1, int(math.Round(float64(w)*scale))), max(1, int(math.Round(float64(h)*scale)))
}

// shrink scales a dimension by shrinkFactor, flooring at minShrinkDimension.
// A dimension already below the floor is raised to it.
func shrink(d int) int {
	return max(minShrinkDimension, int(math.Round(float64(d)*shrinkFactor)))
}

// measureFidelity decodes data and compares it with bm rendered at size
// without lossy encoding.
func (c *Compressor) measureFidelity(bm *Bitmap, size image.Point, data []byte) (float64, error) {
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("snapfit: decode output: %w", err)
	}
	enc, ok := c.encoder.(*JPEGEncoder)
	if !ok {
		enc = NewJPEGEncoder()
	}
	return SSIM(enc.render(bm.Image, size.X, size.Y), decoded), nil
}

// Compress recompresses src with a default Compressor.
func Compress(src File, target Target) (*Result, error) {
	return New().Compress(src, target)
}
