package preprocess

import (
	"image"
	"image/color"
	"math"
)

// equalizeLuma runs CLAHE on the Y channel of YCbCr; chroma is carried through unchanged.
func equalizeLuma(img *image.NRGBA, clipLimit float64, grid int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	luma := make([]uint8, w*h)
	cb := make([]uint8, w*h)
	cr := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			yy, u, v := color.RGBToYCbCr(row[i], row[i+1], row[i+2])
			luma[y*w+x], cb[y*w+x], cr[y*w+x] = yy, u, v
		}
	}

	luma = clahe(luma, w, h, clipLimit, grid)

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			r, g, bl := color.YCbCrToRGB(luma[y*w+x], cb[y*w+x], cr[y*w+x])
			dst[i], dst[i+1], dst[i+2], dst[i+3] = r, g, bl, src[i+3]
		}
	}
	return out
}

// clahe equalizes an 8-bit plane tile by tile with a clipped histogram and
// bilinear blending between the four nearest tile mappings.
func clahe(src []uint8, w, h int, clipLimit float64, grid int) []uint8 {
	if grid < 1 {
		grid = 1
	}
	tilesX, tilesY := min(grid, w), min(grid, h)
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, w), min(y0+tileH, h)
			luts[ty*tilesX+tx] = tileLUT(src, w, x0, y0, x1, y1, clipLimit)
		}
	}

	dst := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := ty0 + 1
		ty0 = clampInt(ty0, 0, tilesY-1)
		ty1 = clampInt(ty1, 0, tilesY-1)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := tx0 + 1
			tx0 = clampInt(tx0, 0, tilesX-1)
			tx1 = clampInt(tx1, 0, tilesX-1)

			v := src[y*w+x]
			top := (1-wx)*float64(luts[ty0*tilesX+tx0][v]) + wx*float64(luts[ty0*tilesX+tx1][v])
			bot := (1-wx)*float64(luts[ty1*tilesX+tx0][v]) + wx*float64(luts[ty1*tilesX+tx1][v])
			dst[y*w+x] = clampU8((1-wy)*top + wy*bot)
		}
	}
	return dst
}

func tileLUT(src []uint8, stride, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	area := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[src[y*stride+x]]++
			area++
		}
	}

	var lut [256]uint8
	if area == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	if clipLimit > 0 {
		limit := max(int(clipLimit*float64(area)/256), 1)
		excess := 0
		for i := range hist {
			if hist[i] > limit {
				excess += hist[i] - limit
				hist[i] = limit
			}
		}
		batch := excess / 256
		residual := excess - batch*256
		for i := range hist {
			hist[i] += batch
		}
		if residual > 0 {
			step := max(256/residual, 1)
			for i := 0; i < 256 && residual > 0; i += step {
				hist[i]++
				residual--
			}
		}
	}

	scale := 255.0 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = clampU8(float64(sum) * scale)
	}
	return lut
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampU8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
