package snapfit

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("snapfit: cannot decode image")

	// ErrEncode is matched by every *EncodeError.
	ErrEncode = errors.New("snapfit: cannot encode image")

	// ErrSurfaceUnavailable reports that no drawing surface could be
	// obtained. Compress recovers from it by returning the source unchanged.
	ErrSurfaceUnavailable = errors.New("snapfit: drawing surface unavailable")

	// ErrInvalidTarget reports a negative byte budget or dimension cap.
	ErrInvalidTarget = errors.New("snapfit: invalid compression target")
)

// DecodeError reports bytes that could not be rasterized.
// It is returned to the caller, who decides whether to upload the original.
type DecodeError struct {
	Name     string
	MIMEType string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("snapfit: decode %q (%s): %v", e.Name, e.MIMEType, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

// EncodeError reports a failed attempt to produce JPEG bytes.
type EncodeError struct {
	Width, Height int
	Quality       float64
	Err           error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("snapfit: encode %dx%d at quality %.2f: %v", e.Width, e.Height, e.Quality, e.Err)
}

func (e *EncodeError) Unwrap() []error {
	return []error{ErrEncode, e.Err}
}
