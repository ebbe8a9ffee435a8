package dataset

import "math/rand"

// DefaultNoiseLevel is the peak-to-peak amplitude of injected noise.
const DefaultNoiseLevel = 0.05

// Noise returns a copy of img with uniform noise in [-level/2, level/2) added
// to every pixel, clamped to [0, 1].
func Noise(img *Image, level float32, rng *rand.Rand) Image {
	var out Image
	for i, v := range img {
		v += (rng.Float32() - 0.5) * level
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[i] = v
	}
	return out
}

// FlipHorizontal returns a copy of img mirrored left to right.
func FlipHorizontal(img *Image) Image {
	var out Image
	for i := 0; i < Side; i++ {
		row := i * Side
		for j := 0; j < Side; j++ {
			out[row+Side-1-j] = img.At(i, j)
		}
	}
	return out
}
