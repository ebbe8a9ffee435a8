// Package kernel implements the forward and backward loops of the network's
// three stages on flat row-major float32 buffers.
//
// Every kernel takes a parallel.Runner. Work is only split across output
// indices that own their accumulator, so a sequential and a parallel runner
// produce bit-identical results.
package kernel

import (
	"fmt"

	"github.com/FlavioCFOliveira/visualsearch/internal/activations"
	"github.com/FlavioCFOliveira/visualsearch/internal/parallel"
)

// block is the number of elements handled by one task in elementwise loops.
const block = 512

func checkLen(name string, buf []float32, want int) {
	if len(buf) != want {
		panic(fmt.Sprintf("kernel: %s has %d elements, want %d", name, len(buf), want))
	}
}

// Activate writes f(preact[i]) to out[i].
func Activate(r parallel.Runner, f activations.Activation, preact, out []float32) {
	checkLen("activation output", out, len(preact))
	n := len(preact)
	r.ForEach((n+block-1)/block, func(b int) {
		hi := min((b+1)*block, n)
		for i := b * block; i < hi; i++ {
			out[i] = f.Activate(preact[i])
		}
	})
}

// ActivateGrad writes dOut[i] * f'(preact[i]) to dPreact[i].
func ActivateGrad(r parallel.Runner, f activations.Activation, dPreact, dOut, preact []float32) {
	checkLen("activation gradient", dPreact, len(preact))
	checkLen("output gradient", dOut, len(preact))
	n := len(preact)
	r.ForEach((n+block-1)/block, func(b int) {
		hi := min((b+1)*block, n)
		for i := b * block; i < hi; i++ {
			dPreact[i] = dOut[i] * f.Derivative(preact[i])
		}
	})
}
