//go:build gocv

package preprocess

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"gocv.io/x/gocv"
)

// GocvNormalizer runs the same stages through OpenCV.
type GocvNormalizer struct {
	opts   Options
	logger *slog.Logger
}

func NewGocvNormalizer(opts Options, logger *slog.Logger) *GocvNormalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GocvNormalizer{opts: opts.withDefaults(), logger: logger}
}

// Normalize checks ctx between stages; a running OpenCV call is not interrupted.
func (g *GocvNormalizer) Normalize(ctx context.Context, raw *RawImage, profile Profile) (*PreprocessedImage, error) {
	if profile != ProfileClassical && profile != ProfileNeural {
		return nil, fmt.Errorf("unknown preprocess profile %q", profile)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := g.opts

	src, err := gocv.ImageToMatRGB(raw.Image)
	if err != nil {
		return nil, fmt.Errorf("image to mat: %w", err)
	}
	defer src.Close()

	w, h := src.Cols(), src.Rows()
	img := gocv.NewMat()
	defer img.Close()
	if w >= o.MinSide && w <= o.MaxSide && h >= o.MinSide && h <= o.MaxSide {
		src.CopyTo(&img)
	} else {
		nw, nh := scaledSize(w, h, o.TargetWidth, o.TargetHeight)
		gocv.Resize(src, &img, image.Pt(nw, nh), 0, 0, gocv.InterpolationArea)
	}

	// CLAHE on the L channel
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)
	channels := gocv.Split(lab)
	clahe := gocv.NewCLAHEWithParams(o.ClipLimit, image.Pt(o.TileGrid, o.TileGrid))
	defer clahe.Close()
	equalized := gocv.NewMat()
	clahe.Apply(channels[0], &equalized)
	channels[0].Close()
	channels[0] = equalized
	gocv.Merge(channels, &lab)
	for _, c := range channels {
		c.Close()
	}
	gocv.CvtColor(lab, &img, gocv.ColorLabToBGR)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.FastNlMeansDenoisingColoredWithParams(img, &denoised, float32(o.DenoiseH), float32(o.DenoiseH), o.TemplateWindow, o.SearchWindow)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if profile == ProfileNeural {
		out, err := denoised.ToImage()
		if err != nil {
			return nil, fmt.Errorf("mat to image: %w", err)
		}
		return &PreprocessedImage{Image: out, Profile: profile}, nil
	}

	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kernel.Close()
	for i, v := range sharpenKernel {
		kernel.SetFloatAt(i/3, i%3, float32(v))
	}
	sharp := gocv.NewMat()
	defer sharp.Close()
	gocv.Filter2D(denoised, &sharp, -1, kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(sharp, &gray, gocv.ColorBGRToGray)

	binary := gocv.NewMat()
	defer binary.Close()
	if o.Binarize == BinarizeOtsu {
		gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	} else {
		gocv.AdaptiveThreshold(gray, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, o.AdaptiveBlock, float32(o.AdaptiveC))
	}
	out, err := binary.ToImage()
	if err != nil {
		return nil, fmt.Errorf("mat to image: %w", err)
	}
	return &PreprocessedImage{Image: out, Profile: profile}, nil
}

// NewNormalizer returns the OpenCV stages in gocv builds.
func NewNormalizer(opts Options, logger *slog.Logger) Normalizer {
	return NewGocvNormalizer(opts, logger)
}
