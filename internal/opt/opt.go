// Package opt provides the parameter update rule and its learning-rate schedule.
package opt

import "gonum.org/v1/gonum/blas/blas32"

// SGD is a fixed-rate online update. The error signal fed to the network is
// target minus output, so the step adds the scaled gradient:
// param[i] += Rate * grad[i].
type SGD struct {
	Rate float32
}

// Apply updates param in place.
// It panics if param and grad differ in length.
func (s SGD) Apply(param, grad []float32) {
	blas32.Axpy(s.Rate,
		blas32.Vector{N: len(grad), Inc: 1, Data: grad},
		blas32.Vector{N: len(param), Inc: 1, Data: param},
	)
}
