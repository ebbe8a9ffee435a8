// Package loss provides the one-hot residual used as the output error signal.
package loss

import "gonum.org/v1/gonum/blas/blas32"

// DefaultThreshold is the epoch-average residual norm below which training is
// considered converged.
const DefaultThreshold = 1.0e-02

// MakeError writes the residual between a one-hot target for label and output
// into err: err[i] = 1 - output[i] if i == label, else -output[i].
// This is the gradient of half the squared error with respect to the output,
// with the sign flipped so that adding it moves the output toward the target.
func MakeError(err, output []float32, label int) {
	for i, o := range output {
		if i == label {
			err[i] = 1 - o
		} else {
			err[i] = -o
		}
	}
}

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return blas32.Nrm2(blas32.Vector{N: len(v), Inc: 1, Data: v})
}
