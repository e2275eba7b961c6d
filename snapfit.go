// Package snapfit prepares user-supplied photos for upload to an image
// analysis service. It guarantees the payload stays under a byte budget
// whenever that is achievable, keeps as much visual fidelity as it can and
// always produces JPEG.
//
// The work happens in three parts:
//
//   - Decoder rasterizes the source once (JPEG, PNG, GIF, WebP, BMP, TIFF),
//     honouring EXIF orientation.
//   - Encoder draws the bitmap at a requested size and serializes it as JPEG
//     at a requested quality.
//   - Compressor runs a bounded search of at most eight attempts. It first
//     steps quality down from 0.86 and then shrinks the geometry toward a
//     700 pixel floor, stopping at the first attempt that fits the budget.
//
// A JPEG that already fits is passed through untouched. When the budget
// cannot be met, the last attempt is returned as a best effort.
//
//	src, _ := snapfit.FileSource{Path: "dinner.png"}.Source(ctx)
//	res, err := snapfit.Compress(src, snapfit.DefaultTarget())
//	if err != nil {
//	    // *snapfit.DecodeError: not a raster image.
//	}
//	upload(res.File) // dinner.jpg, image/jpeg
package snapfit
