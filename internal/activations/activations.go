// Package activations provides single-precision activation functions.
package activations

import "github.com/chewxy/math32"

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float32) float32

	// Derivative computes f'(x)
	Derivative(x float32) float32
}

// Sigmoid is the logistic squashing function.
// Large negative inputs saturate to 0 and large positive inputs to 1 without
// any guard.
type Sigmoid struct{}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// Activate computes 1 / (1 + e^-x)
func (s Sigmoid) Activate(x float32) float32 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float32) float32 {
	o := sigmoid(x)
	return o * (1 - o)
}
