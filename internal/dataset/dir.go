package dataset

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// LoadDir reads root/<classes[c]> for every class c and labels each image
// found there with c. Files are taken in name order and only the .jpg, .jpeg,
// .png and .webp extensions are considered, in any case.
//
// A missing class directory is reported on logger and skipped. An image that
// cannot be decoded aborts the load. ErrEmpty is returned when nothing was
// loaded at all.
func LoadDir(root string, classes []string, logger *log.Logger) ([]Sample, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	var samples []Sample
	for label, name := range classes {
		dir := filepath.Join(root, name)
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Printf("cannot open directory %s: %v", dir, err)
			continue
		}

		loaded := 0
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			if !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			img, err := LoadImage(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}
			samples = append(samples, Sample{Image: img, Label: label})
			loaded++
		}
		logger.Printf("loaded %d images from %s", loaded, name)
	}

	if len(samples) == 0 {
		return nil, errors.Wrapf(ErrEmpty, "no images under %s", root)
	}
	logger.Printf("total images loaded: %d", len(samples))
	return samples, nil
}

// LoadImage decodes a JPEG, PNG or WebP file, converts it to grayscale,
// resizes it to Side x Side and normalises it to [0, 1].
func LoadImage(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, errors.Wrap(err, "open image")
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return Image{}, errors.Wrapf(err, "decode %s", path)
	}
	return FromImage(src), nil
}

// FromImage converts any decoded image into a normalised sample grid.
func FromImage(src image.Image) Image {
	b := src.Bounds()
	gray, ok := src.(*image.Gray)
	if !ok {
		gray = image.NewGray(b)
		draw.Draw(gray, b, src, b.Min, draw.Src)
	}

	small := image.NewGray(image.Rect(0, 0, Side, Side))
	draw.BiLinear.Scale(small, small.Bounds(), gray, b, draw.Src, nil)

	var img Image
	for i := 0; i < Side; i++ {
		for j := 0; j < Side; j++ {
			img[i*Side+j] = float32(small.GrayAt(j, i).Y) / 255
		}
	}
	return img
}
