// Package app drives a complete run: load the data, train or restore the
// network, classify an optional image and report accuracy on the held-out set.
package app

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/visualsearch/internal/dataset"
	"github.com/FlavioCFOliveira/visualsearch/internal/net"
	"github.com/FlavioCFOliveira/visualsearch/internal/parallel"
	"github.com/FlavioCFOliveira/visualsearch/internal/train"
)

// Config describes one run.
type Config struct {
	// DataDir holds one directory per class. It is ignored when MNISTImages
	// is set.
	DataDir string
	Classes []string

	MNISTImages string
	MNISTLabels string

	// MNISTTestImages and MNISTTestLabels name a separate evaluation idx
	// pair. When set, all of MNISTImages trains and Split is ignored.
	MNISTTestImages string
	MNISTTestLabels string

	ModelPath  string // where the trained model is saved, or loaded from
	Checkpoint string // where the best model so far is saved during training
	LoadModel  bool   // restore ModelPath instead of training, if possible
	TestImage  string // optional image to classify after training

	Workers int   // kernel goroutines; 0 uses every logical core
	Seed    int64 // 0 seeds from the clock
	Split   float64

	Train  train.Config
	CSVLog string

	Out    io.Writer   // reports; os.Stdout when nil
	Logger *log.Logger // warnings; writes to os.Stderr when nil
}

// DefaultConfig returns the settings for the product image set in ./data.
func DefaultConfig() Config {
	return Config{
		DataDir: "data",
		Classes: dataset.DefaultClasses,
		Split:   dataset.DefaultSplit,
		Train:   train.DefaultConfig(),
	}
}

type runner struct {
	cfg    Config
	out    io.Writer
	logger *log.Logger
	phase  Phase
}

// Run executes cfg from loading to the final report. It returns data and I/O
// errors and never exits the process.
func Run(cfg Config) error {
	r := &runner{cfg: cfg, out: cfg.Out, logger: cfg.Logger}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.logger == nil {
		r.logger = log.New(os.Stderr, "visualsearch: ", log.LstdFlags)
	}
	return r.run()
}

func (r *runner) advance(p Phase) {
	if !r.phase.CanAdvance(p) {
		panic(fmt.Sprintf("app: illegal transition %s -> %s", r.phase, p))
	}
	r.logger.Printf("%s -> %s", r.phase, p)
	r.phase = p
}

func (r *runner) run() error {
	cfg := r.cfg
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	r.advance(Loading)
	samples, classes, err := r.load()
	if err != nil {
		return err
	}
	counts := dataset.Count(samples, len(classes))
	for c, name := range classes {
		fmt.Fprintf(r.out, "%-10s %d images\n", name, counts[c])
	}

	trainSet, testSet, err := r.partition(samples, rng)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Training samples: %d, test samples: %d\n", len(trainSet), len(testSet))

	workers := cfg.Workers
	if workers <= 0 {
		workers = parallel.DefaultWorkers()
	}
	network := net.New(len(classes), rng, parallel.Workers(workers))

	if !r.restore(network) {
		r.advance(Training)
		if err := r.train(network, trainSet, rng); err != nil {
			return err
		}
	}

	r.advance(Evaluating)
	if cfg.TestImage != "" {
		if err := r.classify(network, classes); err != nil {
			return err
		}
	}
	report := train.Evaluate(network, testSet, classes)
	fmt.Fprint(r.out, report)

	t := network.Timings
	fmt.Fprintf(r.out, "Total Convolution Time: %f ms\n", ms(t.Conv))
	fmt.Fprintf(r.out, "Total Pooling Time: %f ms\n", ms(t.Subsample))
	fmt.Fprintf(r.out, "Total Fully Connected Time: %f ms\n", ms(t.Full))
	fmt.Fprintf(r.out, "Total Time on applying gradients: %f ms\n", ms(t.Grad))
	fmt.Fprintf(r.out, "Total Network Time: %f ms\n", ms(t.Total()))

	r.advance(Done)
	return nil
}

func (r *runner) load() ([]dataset.Sample, []string, error) {
	cfg := r.cfg
	if cfg.MNISTImages != "" {
		samples, err := dataset.LoadMNIST(cfg.MNISTImages, cfg.MNISTLabels)
		if err != nil {
			return nil, nil, errors.Wrap(err, "load MNIST")
		}
		classes := cfg.Classes
		if len(classes) == 0 {
			classes = digits()
		}
		return samples, classes, nil
	}

	classes := cfg.Classes
	if len(classes) == 0 {
		classes = dataset.DefaultClasses
	}
	samples, err := dataset.LoadDir(cfg.DataDir, classes, r.logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load dataset")
	}
	return samples, classes, nil
}

// partition splits samples into training and evaluation sets, or keeps them
// all for training when a separate MNIST evaluation pair is configured.
func (r *runner) partition(samples []dataset.Sample, rng *rand.Rand) (trainSet, testSet []dataset.Sample, err error) {
	cfg := r.cfg
	if cfg.MNISTImages != "" && cfg.MNISTTestImages != "" {
		testSet, err = dataset.LoadMNIST(cfg.MNISTTestImages, cfg.MNISTTestLabels)
		if err != nil {
			return nil, nil, errors.Wrap(err, "load MNIST test set")
		}
		return samples, testSet, nil
	}

	split := cfg.Split
	if split <= 0 || split > 1 {
		split = dataset.DefaultSplit
	}
	trainSet, testSet = dataset.Split(samples, split, rng)
	return trainSet, testSet, nil
}

func digits() []string {
	names := make([]string, 10)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}

// restore loads the saved model when asked to. Any failure is logged and the
// caller trains from scratch instead.
func (r *runner) restore(n *net.Network) bool {
	if !r.cfg.LoadModel || r.cfg.ModelPath == "" {
		return false
	}
	if err := n.LoadFile(r.cfg.ModelPath); err != nil {
		r.logger.Printf("cannot load model, training instead: %v", err)
		return false
	}
	fmt.Fprintf(r.out, "Loaded model from %s\n", r.cfg.ModelPath)
	return true
}

func (r *runner) train(n *net.Network, samples []dataset.Sample, rng *rand.Rand) error {
	callbacks := []train.Callback{train.NewConsoleLogger(r.out)}
	if r.cfg.CSVLog != "" {
		csv := train.NewCSVLogger(r.cfg.CSVLog, true)
		csv.Logger = r.logger
		callbacks = append(callbacks, csv)
	}
	if r.cfg.Checkpoint != "" {
		ckpt := train.NewModelCheckpoint(n, r.cfg.Checkpoint)
		ckpt.Logger = r.logger
		callbacks = append(callbacks, ckpt)
	}

	if _, err := train.New(n, r.cfg.Train, rng, callbacks...).Fit(samples); err != nil {
		return errors.Wrap(err, "train")
	}

	if r.cfg.ModelPath != "" {
		if err := n.SaveFile(r.cfg.ModelPath); err != nil {
			return errors.Wrap(err, "save model")
		}
		fmt.Fprintf(r.out, "Saved model to %s\n", r.cfg.ModelPath)
	}
	return nil
}

func (r *runner) classify(n *net.Network, classes []string) error {
	img, err := dataset.LoadImage(r.cfg.TestImage)
	if err != nil {
		return errors.Wrap(err, "load test image")
	}

	label, conf := n.Classify(&img)
	fmt.Fprintf(r.out, "Predicted class for %s: %s\n", r.cfg.TestImage, classes[label])
	for c, v := range conf {
		fmt.Fprintf(r.out, "  %-10s %.4f\n", classes[c], v)
	}
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
