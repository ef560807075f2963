package labaux

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageOptions controls how texture images are prepared for upload.
type ImageOptions struct {
	// FlipV flips rows so the first row uploaded is the bottom of the
	// image, matching texture coordinates with v pointing up.
	FlipV bool
	// MaxSize downscales images whose larger side exceeds it. Zero keeps the size.
	MaxSize int
}

// LoadImage decodes the PNG, JPEG, BMP, TIFF or WebP image at path.
func LoadImage(path string, opts ImageOptions) (*image.RGBA, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	img, err := DecodeImage(fp, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// DecodeImage decodes an image and applies opts.
func DecodeImage(r io.Reader, opts ImageOptions) (*image.RGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return PrepareImage(img, opts), nil
}

// PrepareImage downscales and flips img according to opts. The aspect
// ratio is kept when downscaling.
func PrepareImage(img image.Image, opts ImageOptions) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var out *image.RGBA
	if opts.MaxSize > 0 && max(w, h) > opts.MaxSize {
		if w >= h {
			h = max(1, h*opts.MaxSize/w)
			w = opts.MaxSize
		} else {
			w = max(1, w*opts.MaxSize/h)
			h = opts.MaxSize
		}
		out = transform.Resize(img, w, h, transform.Linear)
	}
	if opts.FlipV {
		if out != nil {
			out = transform.FlipV(out)
		} else {
			out = transform.FlipV(img)
		}
	}
	if out == nil {
		out = clone.AsRGBA(img)
	}
	return out
}

// LoadCubeFaces loads six cube map faces in +X, -X, +Y, -Y, +Z, -Z order.
// Faces are not flipped.
func LoadCubeFaces(paths []string, maxSize int) (faces [6]image.Image, err error) {
	if len(paths) != 6 {
		return faces, fmt.Errorf("cube map needs 6 faces, got %d", len(paths))
	}
	for i, p := range paths {
		faces[i], err = LoadImage(p, ImageOptions{MaxSize: maxSize})
		if err != nil {
			return faces, err
		}
	}
	return faces, nil
}
