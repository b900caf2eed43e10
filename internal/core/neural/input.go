package neural

import (
	"image"

	"github.com/up-zero/gotool/imageutil"
)

const (
	pixelMean = 0.5
	pixelStd  = 0.5
)

// PixelValues resizes img to size x size and returns CHW float32 RGB scaled to
// [0,1] and normalized with mean 0.5 / std 0.5.
func PixelValues(img image.Image, size int) []float32 {
	var resized image.Image = imageutil.Resize(img, size, size)
	b := resized.Bounds()
	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*size + x
			out[i] = (float32(r>>8)/255.0 - pixelMean) / pixelStd
			out[plane+i] = (float32(g>>8)/255.0 - pixelMean) / pixelStd
			out[2*plane+i] = (float32(bl>>8)/255.0 - pixelMean) / pixelStd
		}
	}
	return out
}
