package kernel

import (
	"github.com/FlavioCFOliveira/visualsearch/internal/parallel"
	"github.com/FlavioCFOliveira/visualsearch/internal/tensor"
)

// Subsample reduces every map by non-overlapping Block x Block windows using a
// single learned Block x Block kernel and a single bias shared by all maps.
// It is a weighted sum, not max or average pooling.
type Subsample struct {
	In    tensor.Size
	Block int
}

// Out returns the shape of the reduced maps.
func (s Subsample) Out() tensor.Size {
	return tensor.Size{
		Depth:  s.In.Depth,
		Height: s.In.Height / s.Block,
		Width:  s.In.Width / s.Block,
	}
}

// WeightLen returns the size of the shared kernel.
func (s Subsample) WeightLen() int {
	return s.Block * s.Block
}

// Forward computes preact[m][x][y] = bias[0] + sum_{i,j} weight[i][j] * in[m][B*x+i][B*y+j].
func (s Subsample) Forward(r parallel.Runner, in, weight, bias, preact []float32) {
	out := s.Out()
	s.In.Check("subsample input", in)
	out.Check("subsample preact", preact)
	checkLen("subsample weight", weight, s.WeightLen())
	checkLen("subsample bias", bias, 1)

	bs := s.Block
	b := bias[0]
	r.ForEach(out.Depth, func(m int) {
		for x := 0; x < out.Height; x++ {
			for y := 0; y < out.Width; y++ {
				var sum float32
				for i := 0; i < bs; i++ {
					inBase := s.In.Index(m, x*bs+i, y*bs)
					for j := 0; j < bs; j++ {
						sum += weight[i*bs+j] * in[inBase+j]
					}
				}
				preact[out.Index(m, x, y)] = sum + b
			}
		}
	})
}

// WeightGrad computes the shared kernel gradient as a plain sum over every map
// and window: dWeight[i][j] = sum_{m,x,y} dPreact[m][x][y] * in[m][B*x+i][B*y+j].
// dWeight is overwritten.
func (s Subsample) WeightGrad(r parallel.Runner, dWeight, dPreact, in []float32) {
	out := s.Out()
	s.In.Check("subsample input", in)
	out.Check("subsample preact gradient", dPreact)
	checkLen("subsample weight gradient", dWeight, s.WeightLen())

	bs := s.Block
	r.ForEach(s.WeightLen(), func(k int) {
		i, j := k/bs, k%bs
		var acc float32
		for m := 0; m < out.Depth; m++ {
			for x := 0; x < out.Height; x++ {
				dBase := out.Index(m, x, 0)
				inBase := s.In.Index(m, x*bs+i, j)
				for y := 0; y < out.Width; y++ {
					acc += dPreact[dBase+y] * in[inBase+y*bs]
				}
			}
		}
		dWeight[k] = acc
	})
}

// BiasStep adds rate times the mean pre-activation gradient to the shared bias.
// The sum is a single reduction and always runs on the caller's goroutine.
func (s Subsample) BiasStep(bias, dPreact []float32, rate float32) {
	out := s.Out()
	out.Check("subsample preact gradient", dPreact)
	checkLen("subsample bias", bias, 1)

	var sum float32
	for _, v := range dPreact {
		sum += v
	}
	bias[0] += rate * sum / float32(out.Len())
}

// InputGrad scatters the shared kernel back over each window:
// dIn[m][B*x+i][B*y+j] = weight[i][j] * dPreact[m][x][y].
// Windows do not overlap, so every element of dIn receives at most one term;
// elements outside any window are zero.
func (s Subsample) InputGrad(r parallel.Runner, dIn, weight, dPreact []float32) {
	out := s.Out()
	s.In.Check("subsample input gradient", dIn)
	out.Check("subsample preact gradient", dPreact)
	checkLen("subsample weight", weight, s.WeightLen())

	bs := s.Block
	plane := s.In.Plane()
	r.ForEach(out.Depth, func(m int) {
		clear(dIn[m*plane : (m+1)*plane])
		for x := 0; x < out.Height; x++ {
			for y := 0; y < out.Width; y++ {
				g := dPreact[out.Index(m, x, y)]
				for i := 0; i < bs; i++ {
					inBase := s.In.Index(m, x*bs+i, y*bs)
					for j := 0; j < bs; j++ {
						dIn[inBase+j] = weight[i*bs+j] * g
					}
				}
			}
		}
	})
}
