package net

import (
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/visualsearch/internal/loss"
	"github.com/FlavioCFOliveira/visualsearch/internal/opt"
	"github.com/FlavioCFOliveira/visualsearch/internal/parallel"
)

func benchmarkTrainStep(b *testing.B, r parallel.Runner) {
	rng := rand.New(rand.NewSource(1))
	n := New(10, rng, r)
	img := randomImage(rng)
	o := opt.SGD{Rate: 0.05}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.Forward(img)
		n.ClearGrad()
		loss.MakeError(n.Full.DPreact, n.Full.Output, i%10)
		n.Backward(o)
		n.Step(o)
	}
}

func BenchmarkTrainStepSequential(b *testing.B) {
	benchmarkTrainStep(b, parallel.Sequential)
}

func BenchmarkTrainStepParallel(b *testing.B) {
	benchmarkTrainStep(b, parallel.Workers(parallel.DefaultWorkers()))
}

func BenchmarkForward(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	n := New(10, rng, nil)
	img := randomImage(rng)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.Forward(img)
	}
}
