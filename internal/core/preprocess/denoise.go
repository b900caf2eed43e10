package preprocess

import (
	"context"
	"image"
	"math"
)

// denoiseNLM is non-local means with integral-image patch distances.
// Patch similarity is measured on luminance; the resulting weights average
// every color channel. ctx is checked once per search offset.
func denoiseNLM(ctx context.Context, img *image.NRGBA, h float64, templateWindow, searchWindow int) (*image.NRGBA, error) {
	b := img.Bounds()
	w, hgt := b.Dx(), b.Dy()
	t := templateWindow / 2
	s := searchWindow / 2
	if h <= 0 || w == 0 || hgt == 0 {
		return img, nil
	}

	pad := s + t
	pw, ph := w+2*pad, hgt+2*pad

	// padded planes: luma guide and the three color channels
	guide := make([]float32, pw*ph)
	chans := [3][]float32{make([]float32, pw*ph), make([]float32, pw*ph), make([]float32, pw*ph)}
	for py := 0; py < ph; py++ {
		sy := reflect101(py-pad, hgt)
		row := img.Pix[sy*img.Stride:]
		for px := 0; px < pw; px++ {
			sx := reflect101(px-pad, w)
			i := sx * 4
			r, g, bl := float32(row[i]), float32(row[i+1]), float32(row[i+2])
			k := py*pw + px
			chans[0][k], chans[1][k], chans[2][k] = r, g, bl
			guide[k] = 0.299*r + 0.587*g + 0.114*bl
		}
	}

	// diff domain covers every template around every output pixel
	dw, dh := w+2*t, hgt+2*t
	iw := dw + 1
	integral := make([]float64, iw*(dh+1))

	sumW := make([]float64, w*hgt)
	acc := [3][]float64{make([]float64, w*hgt), make([]float64, w*hgt), make([]float64, w*hgt)}

	patchArea := float64((2*t + 1) * (2*t + 1))
	invH2 := 1.0 / (h * h)
	origin := pad - t

	for dy := -s; dy <= s; dy++ {
		for dx := -s; dx <= s; dx++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for y := 0; y < dh; y++ {
				var rowSum float64
				py := origin + y
				base := (y + 1) * iw
				prev := y * iw
				for x := 0; x < dw; x++ {
					px := origin + x
					d := float64(guide[py*pw+px] - guide[(py+dy)*pw+px+dx])
					rowSum += d * d
					integral[base+x+1] = integral[prev+x+1] + rowSum
				}
			}

			for y := 0; y < hgt; y++ {
				y0, y1 := y, y+2*t+1
				for x := 0; x < w; x++ {
					x0, x1 := x, x+2*t+1
					ssd := integral[y1*iw+x1] - integral[y0*iw+x1] - integral[y1*iw+x0] + integral[y0*iw+x0]
					weight := math.Exp(-(ssd / patchArea) * invH2)
					k := y*w + x
					sumW[k] += weight
					src := (y+pad+dy)*pw + x + pad + dx
					acc[0][k] += weight * float64(chans[0][src])
					acc[1][k] += weight * float64(chans[1][src])
					acc[2][k] += weight * float64(chans[2][src])
				}
			}
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, hgt))
	for y := 0; y < hgt; y++ {
		src := img.Pix[y*img.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			k := y*w + x
			i := x * 4
			dst[i] = clampU8(acc[0][k] / sumW[k])
			dst[i+1] = clampU8(acc[1][k] / sumW[k])
			dst[i+2] = clampU8(acc[2][k] / sumW[k])
			dst[i+3] = src[i+3]
		}
	}
	return out, nil
}

// reflect101 mirrors i into [0, n) without repeating the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
