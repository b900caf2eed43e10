package preprocess

import (
	"image"
	"math"
)

// binarizeAdaptive compares each pixel with the Gaussian-weighted mean of its
// block x block neighbourhood minus c.
func binarizeAdaptive(gray *image.Gray, block int, c float64) *image.Gray {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	mean := gaussianBlur(gray, block)
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(gray.Pix[y*gray.Stride+x])
			if v > float64(clampU8(mean[y*w+x]))-c {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// gaussianBlur is a separable blur with replicated borders. Sigma follows the
// usual derivation from the kernel size.
func gaussianBlur(gray *image.Gray, ksize int) []float64 {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	sigma := 0.3*((float64(ksize)-1)*0.5-1) + 0.8
	r := ksize / 2
	kernel := make([]float64, ksize)
	var sum float64
	for i := range kernel {
		d := float64(i - r)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k := -r; k <= r; k++ {
				sx := clampInt(x+k, 0, w-1)
				acc += kernel[k+r] * float64(gray.Pix[y*gray.Stride+sx])
			}
			tmp[y*w+x] = acc
		}
	}
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k := -r; k <= r; k++ {
				sy := clampInt(y+k, 0, h-1)
				acc += kernel[k+r] * tmp[sy*w+x]
			}
			out[y*w+x] = acc
		}
	}
	return out
}

// binarizeOtsu picks the global threshold maximising between-class variance.
func binarizeOtsu(gray *image.Gray) *image.Gray {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	t := otsuThreshold(gray)
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if gray.Pix[y*gray.Stride+x] > t {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

func otsuThreshold(gray *image.Gray) uint8 {
	var hist [256]float64
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			hist[gray.Pix[y*gray.Stride+x]]++
		}
	}
	total := float64(w * h)
	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i) * n
	}

	var best uint8
	var bestVar, wB, sumB float64
	for i := 0; i < 256; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * hist[i]
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = uint8(i)
		}
	}
	return best
}
