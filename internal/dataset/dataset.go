// Package dataset loads labelled 28x28 grayscale samples and prepares the
// training and evaluation subsets.
package dataset

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Side is the width and height of every sample.
const Side = 28

// DefaultSplit is the fraction of samples kept for training.
const DefaultSplit = 0.8

// DefaultClasses are the category directories of the product image set, in
// label order.
var DefaultClasses = []string{"Belts", "Keyboard", "Shoes", "Watch"}

var (
	// ErrEmpty is returned when a source yields no samples.
	ErrEmpty = errors.New("dataset: no samples loaded")

	// ErrFormat is returned for malformed idx files.
	ErrFormat = errors.New("dataset: malformed idx file")
)

// Image is a row-major Side x Side grid of intensities in [0, 1].
type Image [Side * Side]float32

// At returns the intensity at row i, column j.
func (img *Image) At(i, j int) float32 {
	return img[i*Side+j]
}

// Sample is one image and its class label.
type Sample struct {
	Image Image
	Label int
}

// Split shuffles a copy of samples and returns the first ratio of them as the
// training set and the rest as the evaluation set. ratio is clamped to
// [0, 1]. samples is left untouched.
func Split(samples []Sample, ratio float64, rng *rand.Rand) (train, test []Sample) {
	n := len(samples)
	if n == 0 {
		return nil, nil
	}

	all := make([]Sample, n)
	copy(all, samples)
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		all[i], all[j] = all[j], all[i]
	}

	ratio = math.Max(0, math.Min(1, ratio))
	cut := int(float64(n) * ratio)
	return all[:cut:cut], all[cut:]
}

// Count returns the number of samples per label, for labels in [0, classes).
func Count(samples []Sample, classes int) []int {
	counts := make([]int, classes)
	for i := range samples {
		if l := samples[i].Label; l >= 0 && l < classes {
			counts[l]++
		}
	}
	return counts
}
