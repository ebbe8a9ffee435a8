// Package kernel provides unit tests for the forward and backward kernels.
package kernel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/visualsearch/internal/activations"
	"github.com/FlavioCFOliveira/visualsearch/internal/parallel"
	"github.com/FlavioCFOliveira/visualsearch/internal/tensor"
)

var (
	testConv  = Conv{In: tensor.Size{Depth: 1, Height: 28, Width: 28}, Maps: 6, Field: 5}
	testPool  = Subsample{In: tensor.Size{Depth: 6, Height: 24, Width: 24}, Block: 4}
	testDense = Dense{In: 216, Out: 4}
)

func filled(n int, v float32) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func random(rng *rand.Rand, n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = rng.Float32() - 0.5
	}
	return buf
}

func assertClose(t *testing.T, name string, got, want []float32, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(%s) = %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > tol {
			t.Fatalf("%s[%d] = %v, want %v", name, i, got[i], want[i])
		}
	}
}

func TestConvOutShape(t *testing.T) {
	want := tensor.Size{Depth: 6, Height: 24, Width: 24}
	if got := testConv.Out(); got != want {
		t.Errorf("Out() = %v, want %v", got, want)
	}
	if got := testConv.WeightLen(); got != 150 {
		t.Errorf("WeightLen() = %d, want 150", got)
	}
}

func TestConvForwardOnes(t *testing.T) {
	in := filled(28*28, 1)
	weight := filled(testConv.WeightLen(), 1)
	bias := make([]float32, 6)
	preact := make([]float32, testConv.Out().Len())

	testConv.Forward(parallel.Sequential, in, weight, bias, preact)

	for i, v := range preact {
		if v != 25 {
			t.Fatalf("preact[%d] = %v, want 25", i, v)
		}
	}
}

func TestConvForwardReference(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := random(rng, 28*28)
	weight := random(rng, testConv.WeightLen())
	bias := random(rng, 6)
	preact := make([]float32, testConv.Out().Len())

	testConv.Forward(parallel.Sequential, in, weight, bias, preact)

	want := make([]float32, len(preact))
	for m := 0; m < 6; m++ {
		for x := 0; x < 24; x++ {
			for y := 0; y < 24; y++ {
				var sum float32
				for i := 0; i < 5; i++ {
					for j := 0; j < 5; j++ {
						sum += in[(x+i)*28+y+j] * weight[m*25+i*5+j]
					}
				}
				want[m*576+x*24+y] = sum + bias[m]
			}
		}
	}
	assertClose(t, "preact", preact, want, 1e-6)
}

func TestConvWeightGradReference(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	in := random(rng, 28*28)
	dPreact := random(rng, testConv.Out().Len())
	dWeight := filled(testConv.WeightLen(), 99)

	testConv.WeightGrad(parallel.Sequential, dWeight, dPreact, in)

	want := make([]float32, testConv.WeightLen())
	for m := 0; m < 6; m++ {
		for i := 0; i < 5; i++ {
			for j := 0; j < 5; j++ {
				var acc float32
				for x := 0; x < 24; x++ {
					for y := 0; y < 24; y++ {
						acc += dPreact[m*576+x*24+y] * in[(x+i)*28+y+j] / 576
					}
				}
				want[m*25+i*5+j] = acc
			}
		}
	}
	assertClose(t, "dWeight", dWeight, want, 1e-6)
}

func TestConvBiasStep(t *testing.T) {
	dPreact := filled(testConv.Out().Len(), 0.5)
	bias := []float32{1, 2, 3, 4, 5, 6}

	testConv.BiasStep(parallel.Sequential, bias, dPreact, 0.1)

	// Plane-averaged gradient is 0.5, scaled by the rate.
	for m, b := range bias {
		want := float32(m+1) + 0.05
		if math.Abs(float64(b-want)) > 1e-6 {
			t.Errorf("bias[%d] = %v, want %v", m, b, want)
		}
	}
}

func TestSubsampleOutShape(t *testing.T) {
	want := tensor.Size{Depth: 6, Height: 6, Width: 6}
	if got := testPool.Out(); got != want {
		t.Errorf("Out() = %v, want %v", got, want)
	}
}

func TestSubsampleForwardOnes(t *testing.T) {
	in := filled(testPool.In.Len(), 1)
	weight := filled(16, 1)
	bias := []float32{0}
	preact := make([]float32, 216)

	testPool.Forward(parallel.Sequential, in, weight, bias, preact)

	for i, v := range preact {
		if v != 16 {
			t.Fatalf("preact[%d] = %v, want 16", i, v)
		}
	}
}

func TestSubsampleForwardReference(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	in := random(rng, testPool.In.Len())
	weight := random(rng, 16)
	bias := []float32{0.25}
	preact := make([]float32, 216)

	testPool.Forward(parallel.Sequential, in, weight, bias, preact)

	want := make([]float32, 216)
	for m := 0; m < 6; m++ {
		for x := 0; x < 6; x++ {
			for y := 0; y < 6; y++ {
				var sum float32
				for i := 0; i < 4; i++ {
					for j := 0; j < 4; j++ {
						sum += weight[i*4+j] * in[m*576+(x*4+i)*24+y*4+j]
					}
				}
				want[m*36+x*6+y] = sum + 0.25
			}
		}
	}
	assertClose(t, "preact", preact, want, 1e-6)
}

func TestSubsampleWeightGradIsPlainSum(t *testing.T) {
	in := filled(testPool.In.Len(), 1)
	dPreact := filled(216, 1)
	dWeight := make([]float32, 16)

	testPool.WeightGrad(parallel.Sequential, dWeight, dPreact, in)

	// Each kernel weight sees one element from each of the 216 windows.
	for i, v := range dWeight {
		if v != 216 {
			t.Errorf("dWeight[%d] = %v, want 216", i, v)
		}
	}
}

func TestSubsampleWeightGradReference(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	in := random(rng, testPool.In.Len())
	dPreact := random(rng, 216)
	dWeight := make([]float32, 16)

	testPool.WeightGrad(parallel.Sequential, dWeight, dPreact, in)

	want := make([]float32, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var acc float32
			for m := 0; m < 6; m++ {
				for x := 0; x < 6; x++ {
					for y := 0; y < 6; y++ {
						acc += dPreact[m*36+x*6+y] * in[m*576+(x*4+i)*24+y*4+j]
					}
				}
			}
			want[i*4+j] = acc
		}
	}
	assertClose(t, "dWeight", dWeight, want, 1e-5)
}

func TestSubsampleBiasStepIsAveraged(t *testing.T) {
	dPreact := filled(216, 2)
	bias := []float32{1}

	testPool.BiasStep(bias, dPreact, 0.5)

	// mean gradient 2, rate 0.5
	if math.Abs(float64(bias[0]-2)) > 1e-6 {
		t.Errorf("bias = %v, want 2", bias[0])
	}
}

func TestSubsampleInputGradScatter(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	weight := random(rng, 16)
	dPreact := random(rng, 216)
	dIn := filled(testPool.In.Len(), 99)

	testPool.InputGrad(parallel.Sequential, dIn, weight, dPreact)

	for m := 0; m < 6; m++ {
		for r := 0; r < 24; r++ {
			for c := 0; c < 24; c++ {
				want := weight[(r%4)*4+c%4] * dPreact[m*36+(r/4)*6+c/4]
				if got := dIn[m*576+r*24+c]; got != want {
					t.Fatalf("dIn[%d][%d][%d] = %v, want %v", m, r, c, got, want)
				}
			}
		}
	}
}

func TestDenseForwardReference(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	in := random(rng, 216)
	weight := random(rng, 216*4)
	bias := random(rng, 4)
	preact := make([]float32, 4)

	testDense.Forward(parallel.Sequential, in, weight, bias, preact)

	want := make([]float32, 4)
	for k := 0; k < 4; k++ {
		var sum float64
		for i := 0; i < 216; i++ {
			sum += float64(weight[k*216+i]) * float64(in[i])
		}
		want[k] = float32(sum) + bias[k]
	}
	assertClose(t, "preact", preact, want, 1e-4)
}

func TestDenseBackward(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	in := random(rng, 216)
	weight := random(rng, 216*4)
	dPreact := []float32{0.1, -0.2, 0.3, -0.4}

	dWeight := filled(216*4, 99)
	testDense.WeightGrad(parallel.Sequential, dWeight, dPreact, in)
	for k := 0; k < 4; k++ {
		for i := 0; i < 216; i++ {
			if want := dPreact[k] * in[i]; dWeight[k*216+i] != want {
				t.Fatalf("dWeight[%d][%d] = %v, want %v", k, i, dWeight[k*216+i], want)
			}
		}
	}

	dIn := make([]float32, 216)
	testDense.InputGrad(parallel.Sequential, dIn, weight, dPreact)
	for i := 0; i < 216; i++ {
		var want float32
		for k := 0; k < 4; k++ {
			want += weight[k*216+i] * dPreact[k]
		}
		if math.Abs(float64(dIn[i]-want)) > 1e-6 {
			t.Fatalf("dIn[%d] = %v, want %v", i, dIn[i], want)
		}
	}

	bias := []float32{1, 1, 1, 1}
	testDense.BiasStep(bias, dPreact, 0.5)
	for k := range bias {
		want := 1 + 0.5*dPreact[k]
		if math.Abs(float64(bias[k]-want)) > 1e-6 {
			t.Errorf("bias[%d] = %v, want %v", k, bias[k], want)
		}
	}
}

func TestActivate(t *testing.T) {
	preact := make([]float32, 1500)
	out := make([]float32, 1500)
	Activate(parallel.Workers(4), activations.Sigmoid{}, preact, out)
	for i, v := range out {
		if v != 0.5 {
			t.Fatalf("out[%d] = %v, want 0.5", i, v)
		}
	}

	dOut := filled(1500, 2)
	dPreact := make([]float32, 1500)
	ActivateGrad(parallel.Workers(4), activations.Sigmoid{}, dPreact, dOut, preact)
	for i, v := range dPreact {
		if v != 0.5 {
			t.Fatalf("dPreact[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestKernelShapeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Forward did not panic on a short input")
		}
	}()
	testConv.Forward(parallel.Sequential, make([]float32, 10), make([]float32, 150), make([]float32, 6), make([]float32, 3456))
}

// Splitting work across goroutines must not change a single bit of the result.
func TestParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	in := random(rng, 28*28)
	cw, cb := random(rng, 150), random(rng, 6)
	pw, pb := random(rng, 16), random(rng, 1)
	fw, fb := random(rng, 216*4), random(rng, 4)
	dConv := random(rng, 3456)
	dPool := random(rng, 216)
	dFull := random(rng, 4)

	run := func(r parallel.Runner) [][]float32 {
		c := make([]float32, 3456)
		testConv.Forward(r, in, cw, cb, c)
		p := make([]float32, 216)
		testPool.Forward(r, c, pw, pb, p)
		f := make([]float32, 4)
		testDense.Forward(r, p, fw, fb, f)

		cdw := make([]float32, 150)
		testConv.WeightGrad(r, cdw, dConv, in)
		pdw := make([]float32, 16)
		testPool.WeightGrad(r, pdw, dPool, c)
		pdi := make([]float32, 3456)
		testPool.InputGrad(r, pdi, pw, dPool)
		fdw := make([]float32, 216*4)
		testDense.WeightGrad(r, fdw, dFull, p)
		fdi := make([]float32, 216)
		testDense.InputGrad(r, fdi, fw, dFull)
		bias := append([]float32(nil), cb...)
		testConv.BiasStep(r, bias, dConv, 0.05)

		return [][]float32{c, p, f, cdw, pdw, pdi, fdw, fdi, bias}
	}

	seq := run(parallel.Sequential)
	par := run(parallel.Workers(5))
	for b := range seq {
		for i := range seq[b] {
			if seq[b][i] != par[b][i] {
				t.Fatalf("buffer %d index %d: sequential %v, parallel %v", b, i, seq[b][i], par[b][i])
			}
		}
	}
}
