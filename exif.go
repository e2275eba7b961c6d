package snapfit

import (
	"encoding/binary"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Orientation describes an EXIF orientation tag value.
type Orientation int

const (
	OrientNormal      Orientation = 1
	OrientFlipH       Orientation = 2
	OrientRotate180   Orientation = 3
	OrientFlipV       Orientation = 4
	OrientTranspose   Orientation = 5 // mirror across the top-left diagonal
	OrientRotate90CW  Orientation = 6
	OrientTransverse  Orientation = 7 // mirror across the top-right diagonal
	OrientRotate270CW Orientation = 8
)

// ReadOrientation reads the EXIF orientation tag from JPEG data.
// Returns OrientNormal if no orientation is found or the data is not JPEG.
func ReadOrientation(data []byte) Orientation {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return OrientNormal
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return OrientNormal
		}
		marker := data[pos+1]
		if marker == 0xFF { // fill byte
			pos++
			continue
		}
		// No metadata after start of scan.
		if marker == 0xDA {
			return OrientNormal
		}

		segLen := int(binary.BigEndian.Uint16(data[pos+2:pos+4])) - 2
		if segLen < 0 || pos+4+segLen > len(data) {
			return OrientNormal
		}
		seg := data[pos+4 : pos+4+segLen]
		if marker == 0xE1 {
			if o, ok := parseAPP1(seg); ok {
				return o
			}
		}
		pos += 4 + segLen
	}
	return OrientNormal
}

// parseAPP1 parses an APP1 segment for EXIF orientation. ok is false when
// the segment is not EXIF (XMP also lives in APP1).
func parseAPP1(seg []byte) (Orientation, bool) {
	if len(seg) < 14 || string(seg[:4]) != "Exif" || seg[4] != 0 || seg[5] != 0 {
		return OrientNormal, false
	}

	tiff := seg[6:]
	var bo binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return OrientNormal, true
	}
	if bo.Uint16(tiff[2:4]) != 42 {
		return OrientNormal, true
	}

	ifd := int(bo.Uint32(tiff[4:8]))
	if ifd < 8 || ifd+2 > len(tiff) {
		return OrientNormal, true
	}
	count := int(bo.Uint16(tiff[ifd : ifd+2]))
	ifd += 2

	for i := 0; i < count; i++ {
		off := ifd + i*12
		if off+12 > len(tiff) {
			break
		}
		if bo.Uint16(tiff[off:off+2]) != 0x0112 {
			continue
		}
		if bo.Uint16(tiff[off+2:off+4]) != 3 { // SHORT
			return OrientNormal, true
		}
		if v := bo.Uint16(tiff[off+8 : off+10]); v >= 1 && v <= 8 {
			return Orientation(v), true
		}
		return OrientNormal, true
	}
	return OrientNormal, true
}

// orientMatrix returns the source-to-destination affine transform for o on
// a w x h source, and whether the destination swaps width and height.
func orientMatrix(o Orientation, w, h float64) (f64.Aff3, bool) {
	switch o {
	case OrientFlipH:
		return f64.Aff3{-1, 0, w, 0, 1, 0}, false
	case OrientRotate180:
		return f64.Aff3{-1, 0, w, 0, -1, h}, false
	case OrientFlipV:
		return f64.Aff3{1, 0, 0, 0, -1, h}, false
	case OrientTranspose:
		return f64.Aff3{0, 1, 0, 1, 0, 0}, true
	case OrientRotate90CW:
		return f64.Aff3{0, -1, h, 1, 0, 0}, true
	case OrientTransverse:
		return f64.Aff3{0, -1, h, -1, 0, w}, true
	case OrientRotate270CW:
		return f64.Aff3{0, 1, 0, -1, 0, w}, true
	default:
		return f64.Aff3{1, 0, 0, 0, 1, 0}, false
	}
}

// ApplyOrientation returns img redrawn so that it displays upright.
// Orientation transforms map whole pixels, so nearest-neighbour sampling
// is exact.
func ApplyOrientation(img image.Image, o Orientation) image.Image {
	if o <= OrientNormal || o > OrientRotate270CW {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	m, swap := orientMatrix(o, float64(w), float64(h))
	// Translate the source origin to (0, 0).
	m[2] -= m[0]*float64(b.Min.X) + m[1]*float64(b.Min.Y)
	m[5] -= m[3]*float64(b.Min.X) + m[4]*float64(b.Min.Y)

	dw, dh := w, h
	if swap {
		dw, dh = h, w
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Transform(dst, m, img, b, draw.Src, nil)
	return dst
}
