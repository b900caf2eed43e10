package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
)

var sharpenKernel = [9]float64{
	-1, -1, -1,
	-1, 9, -1,
	-1, -1, -1,
}

func sharpen(img *image.NRGBA) *image.NRGBA {
	return imaging.Convolve3x3(img, sharpenKernel, nil)
}

// toGray uses the ITU-R BT.601 weights.
func toGray(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			v := 0.299*float64(src[i]) + 0.587*float64(src[i+1]) + 0.114*float64(src[i+2])
			out.Pix[y*out.Stride+x] = clampU8(v)
		}
	}
	return out
}
