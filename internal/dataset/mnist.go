package dataset

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const (
	idxImageMagic = 0x00000803
	idxLabelMagic = 0x00000801
)

// LoadMNIST reads an idx3 image file and its idx1 label file. Files ending in
// .gz are decompressed on the fly. Images must be Side x Side.
func LoadMNIST(imagesPath, labelsPath string) ([]Sample, error) {
	var pixels []byte
	var count int
	err := withReader(imagesPath, func(r io.Reader) error {
		var hdr [4]uint32
		if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
			return errors.Wrap(ErrFormat, "image header")
		}
		if hdr[0] != idxImageMagic {
			return errors.Wrapf(ErrFormat, "image magic %#x", hdr[0])
		}
		if hdr[2] != Side || hdr[3] != Side {
			return errors.Wrapf(ErrFormat, "images are %dx%d, want %dx%d", hdr[2], hdr[3], Side, Side)
		}
		count = int(hdr[1])
		data, err := readN(r, int64(count)*Side*Side)
		if err != nil {
			return errors.Wrap(err, "image data")
		}
		pixels = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	var labels []byte
	err = withReader(labelsPath, func(r io.Reader) error {
		var hdr [2]uint32
		if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
			return errors.Wrap(ErrFormat, "label header")
		}
		if hdr[0] != idxLabelMagic {
			return errors.Wrapf(ErrFormat, "label magic %#x", hdr[0])
		}
		if int(hdr[1]) != count {
			return errors.Wrapf(ErrFormat, "%d labels for %d images", hdr[1], count)
		}
		data, err := readN(r, int64(count))
		if err != nil {
			return errors.Wrap(err, "label data")
		}
		labels = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	if count == 0 {
		return nil, errors.Wrapf(ErrEmpty, "no images in %s", imagesPath)
	}

	samples := make([]Sample, count)
	for n := range samples {
		px := pixels[n*Side*Side : (n+1)*Side*Side]
		for i, v := range px {
			samples[n].Image[i] = float32(v) / 255
		}
		samples[n].Label = int(labels[n])
	}
	return samples, nil
}

// readN reads exactly n bytes from r, growing the buffer as data arrives.
func readN(r io.Reader, n int64) ([]byte, error) {
	var buf bytes.Buffer
	got, err := io.CopyN(&buf, r, n)
	if err == io.EOF {
		return nil, errors.Wrapf(ErrFormat, "truncated: %d of %d bytes", got, n)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read idx data")
	}
	return buf.Bytes(), nil
}

func withReader(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open idx file")
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return errors.Wrapf(err, "gunzip %s", path)
		}
		defer gz.Close()
		r = gz
	}
	return errors.WithMessage(fn(r), path)
}
