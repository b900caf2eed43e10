package preprocess

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
)

// Profile selects the stage sequence.
type Profile string

const (
	// ProfileClassical ends in a binary image for the classical engine.
	ProfileClassical Profile = "classical"
	// ProfileNeural keeps color and stops after denoising.
	ProfileNeural Profile = "neural"
)

// Binarization methods for the classical profile.
const (
	BinarizeAdaptive = "adaptive"
	BinarizeOtsu     = "otsu"
)

// Options tunes the stages. Zero fields take the defaults from DefaultOptions.
type Options struct {
	MinSide      int
	MaxSide      int
	TargetWidth  int
	TargetHeight int

	ClipLimit float64
	TileGrid  int

	DenoiseH       float64
	TemplateWindow int
	SearchWindow   int

	Binarize      string
	AdaptiveBlock int
	AdaptiveC     float64
}

// DefaultOptions returns the stage parameters used for invoices.
func DefaultOptions() Options {
	return Options{
		MinSide:        512,
		MaxSide:        2048,
		TargetWidth:    1024,
		TargetHeight:   1024,
		ClipLimit:      2.0,
		TileGrid:       8,
		DenoiseH:       10,
		TemplateWindow: 7,
		SearchWindow:   21,
		Binarize:       BinarizeAdaptive,
		AdaptiveBlock:  11,
		AdaptiveC:      2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinSide == 0 {
		o.MinSide = d.MinSide
	}
	if o.MaxSide == 0 {
		o.MaxSide = d.MaxSide
	}
	if o.TargetWidth == 0 {
		o.TargetWidth = d.TargetWidth
	}
	if o.TargetHeight == 0 {
		o.TargetHeight = d.TargetHeight
	}
	if o.ClipLimit == 0 {
		o.ClipLimit = d.ClipLimit
	}
	if o.TileGrid == 0 {
		o.TileGrid = d.TileGrid
	}
	if o.DenoiseH == 0 {
		o.DenoiseH = d.DenoiseH
	}
	if o.TemplateWindow == 0 {
		o.TemplateWindow = d.TemplateWindow
	}
	if o.SearchWindow == 0 {
		o.SearchWindow = d.SearchWindow
	}
	if o.Binarize == "" {
		o.Binarize = d.Binarize
	}
	if o.AdaptiveBlock == 0 {
		o.AdaptiveBlock = d.AdaptiveBlock
	}
	if o.AdaptiveC == 0 {
		o.AdaptiveC = d.AdaptiveC
	}
	return o
}

// PreprocessedImage is a normalized image. It is derived from a RawImage on demand and never cached.
type PreprocessedImage struct {
	Image   image.Image
	Profile Profile
}

// Normalizer turns a raw image into a profile-specific normalized image.
type Normalizer interface {
	Normalize(ctx context.Context, raw *RawImage, profile Profile) (*PreprocessedImage, error)
}

// Preprocessor is the pure-Go Normalizer.
type Preprocessor struct {
	opts   Options
	logger *slog.Logger
}

func NewPreprocessor(opts Options, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{opts: opts.withDefaults(), logger: logger}
}

// Normalize applies resize, CLAHE and denoise; the classical profile then sharpens and binarizes.
// Only an unknown profile or a done ctx (checked between stages and inside denoise) fails it.
func (p *Preprocessor) Normalize(ctx context.Context, raw *RawImage, profile Profile) (*PreprocessedImage, error) {
	if profile != ProfileClassical && profile != ProfileNeural {
		return nil, fmt.Errorf("unknown preprocess profile %q", profile)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	o := p.opts

	img := imaging.Clone(raw.Image)
	if resized, ok := resizeIfOutOfRange(img, o); ok {
		p.logger.Debug("resized image",
			"file_path", raw.Path,
			"from", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
			"to", fmt.Sprintf("%dx%d", resized.Bounds().Dx(), resized.Bounds().Dy()),
		)
		img = resized
	}
	img = equalizeLuma(img, o.ClipLimit, o.TileGrid)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := denoiseNLM(ctx, img, o.DenoiseH, o.TemplateWindow, o.SearchWindow)
	if err != nil {
		return nil, err
	}

	out := &PreprocessedImage{Image: img, Profile: profile}
	if profile == ProfileClassical {
		sharp := sharpen(img)
		gray := toGray(sharp)
		if o.Binarize == BinarizeOtsu {
			out.Image = binarizeOtsu(gray)
		} else {
			out.Image = binarizeAdaptive(gray, o.AdaptiveBlock, o.AdaptiveC)
		}
	}

	p.logger.Debug("preprocessed image",
		"file_path", raw.Path,
		"profile", string(profile),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
