package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
)

// resizeIfOutOfRange leaves images whose sides are all within [MinSide, MaxSide]
// untouched; anything else is scaled uniformly by min(tw/w, th/h).
func resizeIfOutOfRange(img *image.NRGBA, o Options) (*image.NRGBA, bool) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w >= o.MinSide && w <= o.MaxSide && h >= o.MinSide && h <= o.MaxSide {
		return img, false
	}
	nw, nh := scaledSize(w, h, o.TargetWidth, o.TargetHeight)
	filter := imaging.Box
	if nw > w {
		filter = imaging.CatmullRom
	}
	return imaging.Resize(img, nw, nh, filter), true
}

// scaledSize is floor(w*s), floor(h*s) with s = min(tw/w, th/h), in integer arithmetic.
func scaledSize(w, h, tw, th int) (int, int) {
	if tw*h <= th*w {
		return tw, max(h*tw/w, 1)
	}
	return max(w*th/h, 1), th
}
