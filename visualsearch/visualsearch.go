// Package visualsearch re-exports the classifier for use outside this module.
package visualsearch

import (
	"io"
	"log"
	"math/rand"

	"github.com/FlavioCFOliveira/visualsearch/internal/app"
	"github.com/FlavioCFOliveira/visualsearch/internal/dataset"
	"github.com/FlavioCFOliveira/visualsearch/internal/net"
	"github.com/FlavioCFOliveira/visualsearch/internal/opt"
	"github.com/FlavioCFOliveira/visualsearch/internal/parallel"
	"github.com/FlavioCFOliveira/visualsearch/internal/train"
)

// Re-export common types for easier access
type (
	Network     = net.Network
	Image       = dataset.Image
	Sample      = dataset.Sample
	TrainConfig = train.Config
	Result      = train.Result
	Report      = train.Report
	Callback    = train.Callback
	Config      = app.Config
)

// ErrShapeMismatch is returned when a model file does not fit the network.
var ErrShapeMismatch = net.ErrShapeMismatch

// DefaultClasses are the product categories, in label order.
var DefaultClasses = dataset.DefaultClasses

// NewNetwork builds a classifier for classes labels. workers <= 0 uses every
// logical core; 1 runs sequentially.
func NewNetwork(classes int, seed int64, workers int) *Network {
	if workers <= 0 {
		workers = parallel.DefaultWorkers()
	}
	return net.New(classes, rand.New(rand.NewSource(seed)), parallel.Workers(workers))
}

// Data
func LoadDir(root string, classes []string, logger *log.Logger) ([]Sample, error) {
	return dataset.LoadDir(root, classes, logger)
}

func LoadMNIST(imagesPath, labelsPath string) ([]Sample, error) {
	return dataset.LoadMNIST(imagesPath, labelsPath)
}

func LoadImage(path string) (Image, error) {
	return dataset.LoadImage(path)
}

func Split(samples []Sample, seed int64) (trainSet, testSet []Sample) {
	return dataset.Split(samples, dataset.DefaultSplit, rand.New(rand.NewSource(seed)))
}

// Training
func DefaultTrainConfig() TrainConfig {
	return train.DefaultConfig()
}

// ConstantRate returns a schedule that never decays.
func ConstantRate(rate float32) opt.ExpDecay {
	return opt.Constant(rate)
}

func Train(n *Network, samples []Sample, cfg TrainConfig, seed int64, callbacks ...Callback) (Result, error) {
	return train.New(n, cfg, rand.New(rand.NewSource(seed)), callbacks...).Fit(samples)
}

func Evaluate(n *Network, samples []Sample, classes []string) Report {
	return train.Evaluate(n, samples, classes)
}

// Callbacks
func ConsoleLogger(w io.Writer) Callback {
	return train.NewConsoleLogger(w)
}

func CSVLogger(filename string) Callback {
	return train.NewCSVLogger(filename, true)
}

func ModelCheckpoint(n *Network, filename string) Callback {
	return train.NewModelCheckpoint(n, filename)
}

// Driver
func DefaultConfig() Config {
	return app.DefaultConfig()
}

func Run(cfg Config) error {
	return app.Run(cfg)
}
