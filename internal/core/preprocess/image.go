package preprocess

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// RawImage is a decoded input file. It belongs to whoever loaded it.
type RawImage struct {
	Path  string
	Image image.Image
}

// Bounds returns the decoded image's size.
func (r *RawImage) Bounds() image.Rectangle {
	return r.Image.Bounds()
}

// Load opens and decodes path, applying EXIF orientation. Any failure is an image decode error.
func Load(path string) (*RawImage, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, common.NewImageDecodeError(path, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, common.NewImageDecodeError(path, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy()))
	}
	return &RawImage{Path: path, Image: img}, nil
}

// SavePNG writes img as PNG under dir and returns the file path.
func SavePNG(dir, name string, img image.Image) (string, error) {
	out := filepath.Join(dir, name+".png")
	if err := imaging.Save(img, out); err != nil {
		return "", fmt.Errorf("save %s: %w", out, err)
	}
	return out, nil
}
