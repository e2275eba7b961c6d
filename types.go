package snapfit

import (
	"fmt"
	"image"
	"io"
	"strings"
)

// Version is the library version.
const Version = "1.0.0"

// MIMEJPEG is the content type of every recompressed output.
const MIMEJPEG = "image/jpeg"

const (
	// DefaultMaxBytes is the default byte budget (900 KiB).
	DefaultMaxBytes = 900 * 1024
	// DefaultMaxDimension is the default longer-edge cap in pixels.
	DefaultMaxDimension = 1400
)

// File is a named blob of bytes with a declared content type. It is both the
// input handed over by a SourceProvider and the output handed to an Uploader.
// A File is treated as immutable once read.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Size returns the byte length of the file content.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// isImage reports whether the declared content type is a raster image type.
func (f File) isImage() bool {
	return strings.HasPrefix(strings.ToLower(f.MIMEType), "image/")
}

// Target bounds the compressed output.
// Zero fields fall back to the package defaults.
type Target struct {
	// MaxBytes is the byte budget the output should not exceed.
	MaxBytes int

	// MaxDimension caps the longer edge of the output in pixels.
	MaxDimension int
}

// DefaultTarget returns the default byte budget and longer-edge cap.
func DefaultTarget() Target {
	return Target{
		MaxBytes:     DefaultMaxBytes,
		MaxDimension: DefaultMaxDimension,
	}
}

// normalize fills zero fields with defaults and rejects negative ones.
func (t Target) normalize() (Target, error) {
	if t.MaxBytes < 0 {
		return t, fmt.Errorf("%w: max bytes %d", ErrInvalidTarget, t.MaxBytes)
	}
	if t.MaxDimension < 0 {
		return t, fmt.Errorf("%w: max dimension %d", ErrInvalidTarget, t.MaxDimension)
	}
	if t.MaxBytes == 0 {
		t.MaxBytes = DefaultMaxBytes
	}
	if t.MaxDimension == 0 {
		t.MaxDimension = DefaultMaxDimension
	}
	return t, nil
}

// Bitmap is a decoded pixel surface with its intrinsic size.
// A Bitmap belongs to a single compression run.
type Bitmap struct {
	Image  image.Image
	Width  int
	Height int
}

// Attempt records one encode trial of the search.
type Attempt struct {
	// Index is the zero-based position of the attempt in the run.
	Index int
	// Width and Height are the output geometry of the attempt.
	Width, Height int
	// Quality is the JPEG quality in [0, 1].
	Quality float64
	// Bytes is the encoded length.
	Bytes int
}

// Outcome describes how a run produced its result.
type Outcome int

const (
	// Passthrough means the source was already a JPEG within budget.
	Passthrough Outcome = iota
	// NotAnImage means the declared content type is not an image type.
	NotAnImage
	// WithinBudget means an attempt met the byte budget.
	WithinBudget
	// OverBudget means every attempt missed the budget and the last one was kept.
	OverBudget
	// SourceFallback means encoding was not possible and the source was kept.
	SourceFallback
)

// String returns the human-readable name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Passthrough:
		return "passthrough"
	case NotAnImage:
		return "not-an-image"
	case WithinBudget:
		return "within-budget"
	case OverBudget:
		return "over-budget"
	case SourceFallback:
		return "source-fallback"
	default:
		return "unknown"
	}
}

// Recompressed reports whether the result carries newly encoded bytes.
func (o Outcome) Recompressed() bool {
	return o == WithinBudget || o == OverBudget
}

// Result contains the output file and statistics for one run.
type Result struct {
	// File is the output. For outcomes that keep the source it is the source itself.
	File File

	// Outcome tells how File was produced.
	Outcome Outcome

	// Attempts lists every encode trial in order.
	Attempts []Attempt

	// OriginalSize is the source size in bytes.
	OriginalSize int64

	// CompressedSize is the output size in bytes.
	CompressedSize int64

	// Ratio is the compression ratio (original / compressed).
	Ratio float64

	// SavingsPercent is the percentage of bytes saved.
	SavingsPercent float64

	// OriginalDimensions is the decoded width x height (zero if never decoded).
	OriginalDimensions image.Point

	// FinalDimensions is the output width x height (zero if never encoded).
	FinalDimensions image.Point

	// SSIM is the structural similarity of the output against the resampled
	// bitmap. Zero unless fidelity measurement is enabled.
	SSIM float64
}

// WriteTo writes the output bytes to w.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	if len(r.File.Data) == 0 {
		return 0, fmt.Errorf("snapfit: no output data available")
	}
	n, err := w.Write(r.File.Data)
	return int64(n), err
}

// Bytes returns the output bytes.
func (r *Result) Bytes() []byte {
	return r.File.Data
}

// String returns a human-readable summary of the result.
func (r *Result) String() string {
	if !r.Outcome.Recompressed() {
		return fmt.Sprintf("snapfit: %s | %s | %s (unchanged)",
			r.File.Name, r.Outcome, humanBytes(r.OriginalSize))
	}
	last := r.Attempts[len(r.Attempts)-1]
	s := fmt.Sprintf(
		"snapfit: %s | %s | %dx%d → %dx%d | Q=%.2f | %d attempts | %s → %s | Saved: %.1f%%",
		r.File.Name, r.Outcome,
		r.OriginalDimensions.X, r.OriginalDimensions.Y,
		r.FinalDimensions.X, r.FinalDimensions.Y,
		last.Quality, len(r.Attempts),
		humanBytes(r.OriginalSize), humanBytes(r.CompressedSize),
		r.SavingsPercent,
	)
	if r.SSIM > 0 {
		s += fmt.Sprintf(" | SSIM: %.4f", r.SSIM)
	}
	return s
}

// computeStats fills in the size-derived fields.
func (r *Result) computeStats() {
	r.CompressedSize = r.File.Size()
	if r.OriginalSize > 0 && r.CompressedSize > 0 {
		r.Ratio = float64(r.OriginalSize) / float64(r.CompressedSize)
		r.SavingsPercent = (1 - float64(r.CompressedSize)/float64(r.OriginalSize)) * 100
	}
}

// jpegName replaces the extension of name with ".jpg". An extension is the
// last dot followed by at least one character that is neither '/' nor '.'.
func jpegName(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i >= 0 && i < len(name)-1 && !strings.ContainsAny(name[i+1:], "/.") {
		name = name[:i]
	}
	return name + ".jpg"
}

// humanBytes formats a byte count for human reading.
func humanBytes(b int64) string {
	if b == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	i := 0
	bf := float64(b)
	for bf >= 1024 && i < len(units)-1 {
		bf /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", b)
	}
	return fmt.Sprintf("%.1f %s", bf, units[i])
}
