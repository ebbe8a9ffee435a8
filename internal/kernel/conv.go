package kernel

import (
	"github.com/FlavioCFOliveira/visualsearch/internal/parallel"
	"github.com/FlavioCFOliveira/visualsearch/internal/tensor"
)

// Conv is a stride-1, unpadded convolution of a single-channel image by Maps
// square filters of side Field. Weights are laid out [Maps][Field][Field].
type Conv struct {
	In    tensor.Size
	Maps  int
	Field int
}

// Out returns the shape of the feature maps.
func (c Conv) Out() tensor.Size {
	return tensor.Size{
		Depth:  c.Maps,
		Height: c.In.Height - c.Field + 1,
		Width:  c.In.Width - c.Field + 1,
	}
}

// WeightLen returns the number of filter weights.
func (c Conv) WeightLen() int {
	return c.Maps * c.Field * c.Field
}

// Forward computes preact[m][x][y] = bias[m] + sum_{i,j} in[x+i][y+j] * weight[m][i][j].
func (c Conv) Forward(r parallel.Runner, in, weight, bias, preact []float32) {
	out := c.Out()
	c.In.Check("conv input", in)
	out.Check("conv preact", preact)
	checkLen("conv weight", weight, c.WeightLen())
	checkLen("conv bias", bias, c.Maps)

	field := c.Field
	fieldSq := field * field
	inW := c.In.Width

	// One task per output row of every map.
	r.ForEach(c.Maps*out.Height, func(t int) {
		m, x := t/out.Height, t%out.Height
		wBase := m * fieldSq
		row := out.Index(m, x, 0)
		b := bias[m]
		for y := 0; y < out.Width; y++ {
			var sum float32
			for i := 0; i < field; i++ {
				inBase := (x+i)*inW + y
				kBase := wBase + i*field
				for j := 0; j < field; j++ {
					sum += in[inBase+j] * weight[kBase+j]
				}
			}
			preact[row+y] = sum + b
		}
	})
}

// WeightGrad computes the filter gradient averaged over the output plane:
// dWeight[m][i][j] = sum_{x,y} dPreact[m][x][y] * in[x+i][y+j] / (H*W).
// dWeight is overwritten.
func (c Conv) WeightGrad(r parallel.Runner, dWeight, dPreact, in []float32) {
	out := c.Out()
	c.In.Check("conv input", in)
	out.Check("conv preact gradient", dPreact)
	checkLen("conv weight gradient", dWeight, c.WeightLen())

	field := c.Field
	fieldSq := field * field
	inW := c.In.Width
	d := float32(out.Plane())

	r.ForEach(c.WeightLen(), func(k int) {
		m := k / fieldSq
		i := (k % fieldSq) / field
		j := k % field
		var acc float32
		for x := 0; x < out.Height; x++ {
			dBase := out.Index(m, x, 0)
			inBase := (x+i)*inW + j
			for y := 0; y < out.Width; y++ {
				acc += dPreact[dBase+y] * in[inBase+y] / d
			}
		}
		dWeight[k] = acc
	})
}

// BiasStep adds rate times the plane-averaged pre-activation gradient to each
// map's bias.
func (c Conv) BiasStep(r parallel.Runner, bias, dPreact []float32, rate float32) {
	out := c.Out()
	out.Check("conv preact gradient", dPreact)
	checkLen("conv bias", bias, c.Maps)

	plane := out.Plane()
	d := float32(plane)
	r.ForEach(c.Maps, func(m int) {
		var acc float32
		for _, v := range dPreact[m*plane : (m+1)*plane] {
			acc += v
		}
		bias[m] += rate * acc / d
	})
}
