// Package train runs online gradient training of the network and measures
// how well it classifies held-out samples.
package train

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/visualsearch/internal/dataset"
	"github.com/FlavioCFOliveira/visualsearch/internal/loss"
	"github.com/FlavioCFOliveira/visualsearch/internal/net"
	"github.com/FlavioCFOliveira/visualsearch/internal/opt"
)

// ErrNoSamples is returned by Fit when the training set is empty.
var ErrNoSamples = errors.New("train: no training samples")

// Config controls a training run.
type Config struct {
	Epochs    int
	Threshold float32 // stop once the epoch error drops below this
	Schedule  opt.ExpDecay

	// Shuffle visits the samples in a new random order every epoch.
	Shuffle bool

	// Augmentation is applied from epoch AugmentAfter+1 on, to each sample
	// with probability AugmentProb: half of the time noise of NoiseLevel, the
	// other half a horizontal flip.
	AugmentAfter int
	AugmentProb  float64
	NoiseLevel   float32

	Delay time.Duration // pause after every epoch
}

// DefaultConfig returns the settings used for the product image set.
func DefaultConfig() Config {
	return Config{
		Epochs:       150,
		Threshold:    loss.DefaultThreshold,
		Schedule:     opt.NewExpDecay(),
		AugmentAfter: 10,
		AugmentProb:  0.5,
		NoiseLevel:   dataset.DefaultNoiseLevel,
	}
}

// Result summarises a finished run.
type Result struct {
	RunID     string
	Epochs    int     // epochs actually run
	Error     float32 // mean residual norm of the last epoch
	Converged bool
	Elapsed   time.Duration
}

// Epoch describes one completed epoch.
type Epoch struct {
	Epoch   int
	Error   float32
	Rate    float32
	Elapsed time.Duration // since the start of the run
}

// Trainer fits a network one sample at a time.
type Trainer struct {
	Net       *net.Network
	Config    Config
	Callbacks []Callback

	rng     *rand.Rand
	scratch dataset.Image
}

// New returns a trainer for n. rng drives shuffling and augmentation.
func New(n *net.Network, cfg Config, rng *rand.Rand, callbacks ...Callback) *Trainer {
	return &Trainer{
		Net:       n,
		Config:    cfg,
		Callbacks: callbacks,
		rng:       rng,
	}
}

// Fit trains on samples until the epoch error falls below the threshold or
// the epoch budget is spent. The samples slice is never reordered.
func (t *Trainer) Fit(samples []dataset.Sample) (Result, error) {
	if len(samples) == 0 {
		return Result{}, ErrNoSamples
	}
	classes := t.Net.Classes()
	for i := range samples {
		if l := samples[i].Label; l < 0 || l >= classes {
			return Result{}, errors.Errorf("train: sample %d has label %d, network has %d classes", i, l, classes)
		}
	}

	cfg := t.Config
	res := Result{RunID: uuid.NewString()}
	for _, cb := range t.Callbacks {
		cb.OnTrainBegin(res.RunID, cfg, len(samples))
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}

	n := t.Net
	start := time.Now()
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		o := cfg.Schedule.Optimizer(epoch)
		if cfg.Shuffle {
			t.rng.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		var sum float32
		for _, idx := range order {
			s := &samples[idx]
			n.Forward(t.input(&s.Image, epoch))
			n.ClearGrad()

			loss.MakeError(n.Full.DPreact, n.Full.Output, s.Label)
			sum += loss.Norm(n.Full.DPreact)

			n.Backward(o)
			n.Step(o)
		}

		res.Epochs = epoch
		res.Error = sum / float32(len(samples))
		ep := Epoch{Epoch: epoch, Error: res.Error, Rate: o.Rate, Elapsed: time.Since(start)}
		for _, cb := range t.Callbacks {
			cb.OnEpochEnd(ep)
		}

		if res.Error < cfg.Threshold {
			res.Converged = true
			break
		}
		if cfg.Delay > 0 {
			time.Sleep(cfg.Delay)
		}
	}

	res.Elapsed = time.Since(start)
	for _, cb := range t.Callbacks {
		cb.OnTrainEnd(res)
	}
	return res, nil
}

// input returns the image to train on, possibly an augmented copy.
func (t *Trainer) input(img *dataset.Image, epoch int) *dataset.Image {
	cfg := &t.Config
	if epoch <= cfg.AugmentAfter || cfg.AugmentProb <= 0 {
		return img
	}
	if t.rng.Float64() >= cfg.AugmentProb {
		return img
	}
	if t.rng.Intn(2) == 0 {
		t.scratch = dataset.Noise(img, cfg.NoiseLevel, t.rng)
	} else {
		t.scratch = dataset.FlipHorizontal(img)
	}
	return &t.scratch
}
