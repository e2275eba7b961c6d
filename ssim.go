package snapfit

import (
	"image"
	"math"
	"runtime"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// SSIM constants from Wang et al.
const (
	ssimK1 = 0.01
	ssimK2 = 0.03
	ssimL  = 255.0
	ssimC1 = (ssimK1 * ssimL) * (ssimK1 * ssimL)
	ssimC2 = (ssimK2 * ssimL) * (ssimK2 * ssimL)

	ssimWindow = 8
	ssimMaxDim = 512
)

// SSIM computes the structural similarity of b against a on the BT.601
// luminance channel. Returns 1.0 for identical images and values near 0
// for unrelated ones. b is resampled to the size of a when they differ,
// and both are downsampled so the longer edge is at most 512 pixels.
func SSIM(a, b image.Image) float64 {
	ab := a.Bounds()
	w, h := ab.Dx(), ab.Dy()
	if w <= 0 || h <= 0 {
		return 1.0
	}
	if w > ssimMaxDim || h > ssimMaxDim {
		scale := float64(ssimMaxDim) / float64(max(w, h))
		w = max(1, int(math.Round(float64(w)*scale)))
		h = max(1, int(math.Round(float64(h)*scale)))
	}

	la := luminance(a, w, h)
	lb := luminance(b, w, h)
	if w < ssimWindow || h < ssimWindow {
		return globalSSIM(la, lb)
	}
	return windowedSSIM(la, lb, w, h)
}

// luminance renders img as a w x h grayscale plane.
func luminance(img image.Image, w, h int) []uint8 {
	gray := image.NewGray(image.Rect(0, 0, w, h))
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, b, draw.Src, nil)
	}
	return gray.Pix
}

// windowedSSIM averages SSIM over every 8x8 Gaussian-weighted window.
func windowedSSIM(la, lb []uint8, w, h int) float64 {
	kernel := gaussianKernel(ssimWindow, 1.5)
	rows := h - ssimWindow + 1
	sums := make([]float64, rows)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y := 0; y < rows; y++ {
		g.Go(func() error {
			var sum float64
			for x := 0; x+ssimWindow <= w; x++ {
				sum += windowSSIM(la, lb, w, x, y, kernel)
			}
			sums[y] = sum
			return nil
		})
	}
	_ = g.Wait()

	var total float64
	for _, s := range sums {
		total += s
	}
	return total / float64(rows*(w-ssimWindow+1))
}

func windowSSIM(la, lb []uint8, stride, x0, y0 int, kernel []float64) float64 {
	var muA, muB float64
	for wy := 0; wy < ssimWindow; wy++ {
		row := (y0+wy)*stride + x0
		for wx := 0; wx < ssimWindow; wx++ {
			k := kernel[wy*ssimWindow+wx]
			muA += float64(la[row+wx]) * k
			muB += float64(lb[row+wx]) * k
		}
	}

	var sigAA, sigBB, sigAB float64
	for wy := 0; wy < ssimWindow; wy++ {
		row := (y0+wy)*stride + x0
		for wx := 0; wx < ssimWindow; wx++ {
			k := kernel[wy*ssimWindow+wx]
			da := float64(la[row+wx]) - muA
			db := float64(lb[row+wx]) - muB
			sigAA += da * da * k
			sigBB += db * db * k
			sigAB += da * db * k
		}
	}
	return ssimTerm(muA, muB, sigAA, sigBB, sigAB)
}

// globalSSIM treats the whole plane as one window, for tiny images.
func globalSSIM(la, lb []uint8) float64 {
	n := float64(len(la))
	var muA, muB float64
	for i := range la {
		muA += float64(la[i])
		muB += float64(lb[i])
	}
	muA /= n
	muB /= n

	var sigAA, sigBB, sigAB float64
	for i := range la {
		da := float64(la[i]) - muA
		db := float64(lb[i]) - muB
		sigAA += da * da
		sigBB += db * db
		sigAB += da * db
	}
	return ssimTerm(muA, muB, sigAA/n, sigBB/n, sigAB/n)
}

func ssimTerm(muA, muB, sigAA, sigBB, sigAB float64) float64 {
	num := (2*muA*muB + ssimC1) * (2*sigAB + ssimC2)
	den := (muA*muA + muB*muB + ssimC1) * (sigAA + sigBB + ssimC2)
	return num / den
}

// gaussianKernel creates a normalized size x size Gaussian kernel.
func gaussianKernel(size int, sigma float64) []float64 {
	kernel := make([]float64, size*size)
	half := float64(size-1) / 2
	var sum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-half, float64(y)-half
			v := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			kernel[y*size+x] = v
			sum += v
		}
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}
