// Package net wires the convolution, subsample and fully connected stages into
// the classifier and runs its forward and backward passes.
package net

import (
	"math/rand"
	"time"

	"github.com/FlavioCFOliveira/visualsearch/internal/activations"
	"github.com/FlavioCFOliveira/visualsearch/internal/dataset"
	"github.com/FlavioCFOliveira/visualsearch/internal/kernel"
	"github.com/FlavioCFOliveira/visualsearch/internal/layer"
	"github.com/FlavioCFOliveira/visualsearch/internal/opt"
	"github.com/FlavioCFOliveira/visualsearch/internal/parallel"
	"github.com/FlavioCFOliveira/visualsearch/internal/tensor"
)

// Architecture constants.
const (
	Maps  = 6 // convolution feature maps
	Field = 5 // convolution filter side
	Block = 4 // subsample window side
)

// Timings accumulates wall time spent in each stage, forward and backward.
// Grad covers only the weight updates applied by Step.
type Timings struct {
	Conv      time.Duration
	Subsample time.Duration
	Full      time.Duration
	Grad      time.Duration
}

// Total returns the sum of all stages.
func (t Timings) Total() time.Duration {
	return t.Conv + t.Subsample + t.Full + t.Grad
}

// Param names the weight and bias buffers of one trainable stage. The slices
// alias the network's own storage.
type Param struct {
	Name   string
	Weight []float32
	Bias   []float32
}

// Network is the fixed conv -> subsample -> full classifier.
type Network struct {
	Input *layer.Layer
	Conv  *layer.Layer
	Pool  *layer.Layer
	Full  *layer.Layer

	Timings Timings

	conv kernel.Conv
	pool kernel.Subsample
	full kernel.Dense

	act    activations.Sigmoid
	runner parallel.Runner
}

// New builds a network with classes output units. Layers draw their initial
// parameters from rng in the order conv, subsample, full. A nil runner runs
// every kernel sequentially.
func New(classes int, rng *rand.Rand, r parallel.Runner) *Network {
	if r == nil {
		r = parallel.Sequential
	}

	in := tensor.Size{Depth: 1, Height: dataset.Side, Width: dataset.Side}
	conv := kernel.Conv{In: in, Maps: Maps, Field: Field}
	pool := kernel.Subsample{In: conv.Out(), Block: Block}
	full := kernel.Dense{In: pool.Out().Len(), Out: classes}

	return &Network{
		Input:  layer.New(0, 0, in.Len(), rng),
		Conv:   layer.New(Field*Field, Maps, conv.Out().Len(), rng),
		Pool:   layer.New(Block*Block, 1, pool.Out().Len(), rng),
		Full:   layer.New(full.In, classes, classes, rng),
		conv:   conv,
		pool:   pool,
		full:   full,
		runner: r,
	}
}

// Classes returns the number of output units.
func (n *Network) Classes() int {
	return n.full.Out
}

// Forward runs img through every stage. The class scores are left in
// n.Full.Output.
func (n *Network) Forward(img *dataset.Image) {
	n.Input.Clear()
	n.Conv.Clear()
	n.Pool.Clear()
	n.Full.Clear()

	n.Input.SetOutput(img[:])

	start := time.Now()
	n.conv.Forward(n.runner, n.Input.Output, n.Conv.Weight, n.Conv.Bias, n.Conv.Preact)
	kernel.Activate(n.runner, n.act, n.Conv.Preact, n.Conv.Output)
	n.Timings.Conv += time.Since(start)

	start = time.Now()
	n.pool.Forward(n.runner, n.Conv.Output, n.Pool.Weight, n.Pool.Bias, n.Pool.Preact)
	kernel.Activate(n.runner, n.act, n.Pool.Preact, n.Pool.Output)
	n.Timings.Subsample += time.Since(start)

	start = time.Now()
	n.full.Forward(n.runner, n.Pool.Output, n.Full.Weight, n.Full.Bias, n.Full.Preact)
	kernel.Activate(n.runner, n.act, n.Full.Preact, n.Full.Output)
	n.Timings.Full += time.Since(start)
}

// ClearGrad zeroes the weight gradients of the trainable stages.
func (n *Network) ClearGrad() {
	n.Conv.ClearGrad()
	n.Pool.ClearGrad()
	n.Full.ClearGrad()
}

// Backward propagates the residual already written to n.Full.DPreact back to
// the convolution. Weight gradients are stored in each layer's DWeight; biases
// are stepped immediately with o.Rate. Time is charged to each stage.
func (n *Network) Backward(o opt.SGD) {
	r := n.runner

	start := time.Now()
	n.full.WeightGrad(r, n.Full.DWeight, n.Full.DPreact, n.Pool.Output)
	n.full.BiasStep(n.Full.Bias, n.Full.DPreact, o.Rate)
	n.Timings.Full += time.Since(start)

	start = time.Now()
	n.full.InputGrad(r, n.Pool.DOutput, n.Full.Weight, n.Full.DPreact)
	kernel.ActivateGrad(r, n.act, n.Pool.DPreact, n.Pool.DOutput, n.Pool.Preact)
	n.pool.WeightGrad(r, n.Pool.DWeight, n.Pool.DPreact, n.Conv.Output)
	n.pool.BiasStep(n.Pool.Bias, n.Pool.DPreact, o.Rate)
	n.Timings.Subsample += time.Since(start)

	start = time.Now()
	n.pool.InputGrad(r, n.Conv.DOutput, n.Pool.Weight, n.Pool.DPreact)
	kernel.ActivateGrad(r, n.act, n.Conv.DPreact, n.Conv.DOutput, n.Conv.Preact)
	n.conv.WeightGrad(r, n.Conv.DWeight, n.Conv.DPreact, n.Input.Output)
	n.conv.BiasStep(r, n.Conv.Bias, n.Conv.DPreact, o.Rate)
	n.Timings.Conv += time.Since(start)
}

// Step applies the stored weight gradients, full stage first.
func (n *Network) Step(o opt.SGD) {
	start := time.Now()
	o.Apply(n.Full.Weight, n.Full.DWeight)
	o.Apply(n.Pool.Weight, n.Pool.DWeight)
	o.Apply(n.Conv.Weight, n.Conv.DWeight)
	n.Timings.Grad += time.Since(start)
}

// Classify runs img forward and returns the index of the highest output, the
// first one on ties, together with a copy of all outputs.
func (n *Network) Classify(img *dataset.Image) (int, []float32) {
	n.Forward(img)

	best := 0
	for k, v := range n.Full.Output {
		if v > n.Full.Output[best] {
			best = k
		}
	}
	conf := make([]float32, len(n.Full.Output))
	copy(conf, n.Full.Output)
	return best, conf
}

// Params returns the trainable buffers in the order conv, subsample, full.
func (n *Network) Params() []Param {
	return []Param{
		{Name: "conv", Weight: n.Conv.Weight, Bias: n.Conv.Bias},
		{Name: "subsample", Weight: n.Pool.Weight, Bias: n.Pool.Bias},
		{Name: "full", Weight: n.Full.Weight, Bias: n.Full.Bias},
	}
}
