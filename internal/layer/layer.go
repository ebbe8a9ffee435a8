// Package layer provides the buffers owned by one stage of the network.
package layer

import "math/rand"

// Layer holds the parameters, activations and gradients of one network stage.
//
// M is the fan-in of one output unit, N the number of output units (or feature
// maps) and O the flattened size of the output tensor. All buffers are
// allocated once by New and never reallocated, so slices handed out by the
// network stay valid for the lifetime of the Layer.
type Layer struct {
	M, N, O int

	Output []float32 // post-activation, len O
	Preact []float32 // pre-activation, len O

	Bias   []float32 // len N
	Weight []float32 // row-major [N][M]

	DOutput []float32 // len O
	DPreact []float32 // len O
	DWeight []float32 // len M*N
}

// New allocates a layer and draws every bias and weight from (-0.5, 0.5].
// For each unit the bias is drawn first, then that unit's M weights.
func New(m, n, o int, rng *rand.Rand) *Layer {
	l := &Layer{
		M:       m,
		N:       n,
		O:       o,
		Output:  make([]float32, o),
		Preact:  make([]float32, o),
		Bias:    make([]float32, n),
		Weight:  make([]float32, m*n),
		DOutput: make([]float32, o),
		DPreact: make([]float32, o),
		DWeight: make([]float32, m*n),
	}

	for i := 0; i < n; i++ {
		l.Bias[i] = 0.5 - rng.Float32()
		wBase := i * m
		for j := 0; j < m; j++ {
			l.Weight[wBase+j] = 0.5 - rng.Float32()
		}
	}

	return l
}

// SetOutput copies data into the output buffer. It is used to feed the input
// layer.
func (l *Layer) SetOutput(data []float32) {
	copy(l.Output, data)
}

// Clear zeroes the output and pre-activation buffers.
func (l *Layer) Clear() {
	clear(l.Output)
	clear(l.Preact)
}

// ClearGrad zeroes the weight gradient before a backward pass.
func (l *Layer) ClearGrad() {
	clear(l.DWeight)
}
