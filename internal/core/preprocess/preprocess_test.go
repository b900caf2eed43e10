package preprocess

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

func flatImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func smallOptions() Options {
	return Options{MinSide: 16, MaxSide: 128, TargetWidth: 64, TargetHeight: 64}
}

func TestLoadRejectsUndecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a png"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrImageDecode))

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, common.CodeImageDecode, appErr.Code)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.jpg"))
	assert.True(t, errors.Is(err, common.ErrImageDecode))
}

func TestLoadDecodesSupportedFormats(t *testing.T) {
	dir := t.TempDir()
	img := flatImage(20, 10, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	encoders := map[string]func(f *os.File) error{
		"a.png":  func(f *os.File) error { return png.Encode(f, img) },
		"b.bmp":  func(f *os.File) error { return bmp.Encode(f, img) },
		"c.tiff": func(f *os.File) error { return tiff.Encode(f, img, nil) },
	}
	for name, enc := range encoders {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, enc(f))
		require.NoError(t, f.Close())

		raw, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, 20, raw.Bounds().Dx(), name)
		assert.Equal(t, 10, raw.Bounds().Dy(), name)
	}
}

func TestScaledSizeKeepsAspect(t *testing.T) {
	w, h := scaledSize(4000, 3000, 1024, 1024)
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)

	w, h = scaledSize(200, 100, 1024, 1024)
	assert.Equal(t, 1024, w)
	assert.Equal(t, 512, h)
}

func TestResizeOnlyWhenOutOfRange(t *testing.T) {
	o := DefaultOptions()

	inRange := flatImage(600, 800, color.NRGBA{A: 255})
	out, resized := resizeIfOutOfRange(inRange, o)
	assert.False(t, resized)
	assert.Same(t, inRange, out)

	tooSmall := flatImage(256, 512, color.NRGBA{A: 255})
	out, resized = resizeIfOutOfRange(tooSmall, o)
	assert.True(t, resized)
	assert.Equal(t, 512, out.Bounds().Dx())
	assert.Equal(t, 1024, out.Bounds().Dy())
}

func TestClaheKeepsFlatPlaneFlat(t *testing.T) {
	w, h := 64, 48
	src := make([]uint8, w*h)
	for i := range src {
		src[i] = 100
	}
	dst := clahe(src, w, h, 2.0, 8)
	for i := range dst {
		require.Equal(t, dst[0], dst[i])
	}
}

func TestClaheStretchesLowContrast(t *testing.T) {
	w, h := 512, 512
	src := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src[y*w+x] = uint8(100 + (x+y)%20)
		}
	}
	dst := clahe(src, w, h, 2.0, 8)

	lo, hi := spread(src)
	nlo, nhi := spread(dst)
	assert.Greater(t, int(nhi)-int(nlo), int(hi)-int(lo))
}

func spread(p []uint8) (uint8, uint8) {
	lo, hi := uint8(255), uint8(0)
	for _, v := range p {
		lo, hi = min(lo, v), max(hi, v)
	}
	return lo, hi
}

func TestEqualizeLumaLeavesChromaAlone(t *testing.T) {
	img := flatImage(32, 32, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	out := equalizeLuma(img, 2.0, 8)
	c := out.NRGBAAt(5, 5)
	// a gray input stays gray
	assert.InDelta(t, int(c.R), int(c.G), 1)
	assert.InDelta(t, int(c.G), int(c.B), 1)
}

func TestDenoiseKeepsFlatImage(t *testing.T) {
	in := flatImage(30, 20, color.NRGBA{R: 50, G: 100, B: 150, A: 255})
	out, err := denoiseNLM(context.Background(), in, 10, 7, 21)
	require.NoError(t, err)
	assert.Equal(t, in.Pix, out.Pix)
}

func TestDenoiseReducesNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	in := flatImage(40, 40, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	for i := 0; i < len(in.Pix); i += 4 {
		n := uint8(118 + rng.Intn(21))
		in.Pix[i], in.Pix[i+1], in.Pix[i+2] = n, n, n
	}
	out, err := denoiseNLM(context.Background(), in, 10, 7, 21)
	require.NoError(t, err)
	assert.Less(t, variance(out), variance(in))
}

func variance(img *image.NRGBA) float64 {
	var sum, sq float64
	n := float64(len(img.Pix) / 4)
	for i := 0; i < len(img.Pix); i += 4 {
		v := float64(img.Pix[i])
		sum += v
		sq += v * v
	}
	mean := sum / n
	return sq/n - mean*mean
}

func TestReflect101(t *testing.T) {
	assert.Equal(t, 1, reflect101(-1, 5))
	assert.Equal(t, 3, reflect101(5, 5))
	assert.Equal(t, 0, reflect101(-3, 1))
	assert.Equal(t, 2, reflect101(-2, 3))
}

func twoTone(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				g.SetGray(x, y, color.Gray{Y: 30})
			} else {
				g.SetGray(x, y, color.Gray{Y: 220})
			}
		}
	}
	return g
}

func TestBinarizeOtsuSplitsTwoTones(t *testing.T) {
	out := binarizeOtsu(twoTone(20, 10))
	assert.Equal(t, uint8(0), out.GrayAt(2, 2).Y)
	assert.Equal(t, uint8(255), out.GrayAt(17, 2).Y)
}

func TestBinarizeAdaptiveIsBinary(t *testing.T) {
	out := binarizeAdaptive(twoTone(40, 20), 11, 2)
	for _, v := range out.Pix {
		require.True(t, v == 0 || v == 255)
	}
	// flat regions sit above mean-C
	assert.Equal(t, uint8(255), out.GrayAt(2, 10).Y)
	assert.Equal(t, uint8(255), out.GrayAt(37, 10).Y)
	// dark side of the edge falls below its neighbourhood mean
	assert.Equal(t, uint8(0), out.GrayAt(19, 10).Y)
}

func TestNormalizeProfiles(t *testing.T) {
	p := NewPreprocessor(smallOptions(), nil)
	raw := &RawImage{Path: "mem", Image: flatImage(64, 40, color.NRGBA{R: 240, G: 240, B: 240, A: 255})}

	neural, err := p.Normalize(context.Background(), raw, ProfileNeural)
	require.NoError(t, err)
	assert.Equal(t, ProfileNeural, neural.Profile)
	assert.IsType(t, &image.NRGBA{}, neural.Image)
	assert.Equal(t, raw.Bounds().Size(), neural.Image.Bounds().Size())

	classical, err := p.Normalize(context.Background(), raw, ProfileClassical)
	require.NoError(t, err)
	gray, ok := classical.Image.(*image.Gray)
	require.True(t, ok)
	for _, v := range gray.Pix {
		require.True(t, v == 0 || v == 255)
	}

	// raw image is never modified
	assert.Equal(t, color.NRGBA{R: 240, G: 240, B: 240, A: 255}, raw.Image.(*image.NRGBA).NRGBAAt(0, 0))
}

func TestNormalizeResizesOutOfRange(t *testing.T) {
	p := NewPreprocessor(Options{MinSide: 16, MaxSide: 48, TargetWidth: 32, TargetHeight: 32}, nil)
	raw := &RawImage{Path: "mem", Image: flatImage(100, 50, color.NRGBA{R: 10, G: 20, B: 30, A: 255})}
	out, err := p.Normalize(context.Background(), raw, ProfileNeural)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(32, 16), out.Image.Bounds().Size())
}

func TestNormalizeRejectsUnknownProfile(t *testing.T) {
	p := NewPreprocessor(smallOptions(), nil)
	raw := &RawImage{Path: "mem", Image: flatImage(20, 20, color.NRGBA{A: 255})}
	_, err := p.Normalize(context.Background(), raw, Profile("sepia"))
	assert.Error(t, err)
}

func TestDenoiseStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := denoiseNLM(ctx, flatImage(30, 30, color.NRGBA{A: 255}), 10, 7, 21)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
}

func TestNormalizeHonoursDeadline(t *testing.T) {
	// a full pass over this image takes many seconds
	p := NewPreprocessor(DefaultOptions(), nil)
	raw := &RawImage{Path: "mem", Image: flatImage(1024, 1024, color.NRGBA{R: 200, G: 200, B: 200, A: 255})}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	out, err := p.Normalize(ctx, raw, ProfileNeural)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, out)
	assert.Less(t, time.Since(start), 3*time.Second)
}
