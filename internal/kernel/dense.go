package kernel

import (
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/FlavioCFOliveira/visualsearch/internal/parallel"
)

// Dense is a fully connected projection of In inputs onto Out units.
// Weights are row-major [Out][In]: weight for output k, input i is at k*In+i.
type Dense struct {
	In  int
	Out int
}

func vec(x []float32) blas32.Vector {
	return blas32.Vector{N: len(x), Inc: 1, Data: x}
}

// Forward computes preact[k] = bias[k] + sum_i weight[k][i] * in[i].
func (d Dense) Forward(r parallel.Runner, in, weight, bias, preact []float32) {
	checkLen("dense input", in, d.In)
	checkLen("dense weight", weight, d.In*d.Out)
	checkLen("dense bias", bias, d.Out)
	checkLen("dense preact", preact, d.Out)

	x := vec(in)
	r.ForEach(d.Out, func(k int) {
		wBase := k * d.In
		preact[k] = blas32.Dot(vec(weight[wBase:wBase+d.In]), x) + bias[k]
	})
}

// WeightGrad computes dWeight[k][i] = dPreact[k] * in[i]. dWeight is overwritten.
func (d Dense) WeightGrad(r parallel.Runner, dWeight, dPreact, in []float32) {
	checkLen("dense input", in, d.In)
	checkLen("dense weight gradient", dWeight, d.In*d.Out)
	checkLen("dense preact gradient", dPreact, d.Out)

	r.ForEach(d.Out, func(k int) {
		dk := dPreact[k]
		row := dWeight[k*d.In : (k+1)*d.In]
		for i, v := range in {
			row[i] = dk * v
		}
	})
}

// BiasStep adds rate * dPreact[k] to every bias.
func (d Dense) BiasStep(bias, dPreact []float32, rate float32) {
	checkLen("dense bias", bias, d.Out)
	checkLen("dense preact gradient", dPreact, d.Out)

	blas32.Axpy(rate, vec(dPreact), vec(bias))
}

// InputGrad computes dIn[i] = sum_k weight[k][i] * dPreact[k], summing k in
// ascending order.
func (d Dense) InputGrad(r parallel.Runner, dIn, weight, dPreact []float32) {
	checkLen("dense input gradient", dIn, d.In)
	checkLen("dense weight", weight, d.In*d.Out)
	checkLen("dense preact gradient", dPreact, d.Out)

	inSize := d.In
	r.ForEach((inSize+block-1)/block, func(b int) {
		hi := min((b+1)*block, inSize)
		for i := b * block; i < hi; i++ {
			var acc float32
			for k := 0; k < d.Out; k++ {
				acc += weight[k*inSize+i] * dPreact[k]
			}
			dIn[i] = acc
		}
	})
}
