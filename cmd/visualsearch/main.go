// Command visualsearch trains the image classifier on a directory of product
// photos (or an MNIST idx pair) and reports its accuracy on a held-out split.
//
// Usage:
//
//	visualsearch [flags] [threads]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/visualsearch/internal/app"
	"github.com/FlavioCFOliveira/visualsearch/internal/parallel"
)

// delayEnv sets the default pause after each epoch, in milliseconds.
const delayEnv = "VISUALSEARCH_DELAY_MS"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr, os.Getenv(delayEnv))
	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "visualsearch: %v\n", err)
		return 1
	}
	cfg.Out = stdout

	workers := cfg.Workers
	if workers <= 0 {
		workers = parallel.DefaultWorkers()
	}
	fmt.Fprintf(stdout, "CPU: %s (%d cores, %d threads)\n", cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores)
	fmt.Fprintf(stdout, "Using %d worker(s)\n", workers)

	if err := app.Run(cfg); err != nil {
		fmt.Fprintf(stderr, "visualsearch: %v\n", err)
		return 1
	}
	return 0
}

func parseArgs(args []string, stderr io.Writer, delayMS string) (app.Config, error) {
	cfg := app.DefaultConfig()

	fs := flag.NewFlagSet("visualsearch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: visualsearch [flags] [threads]\n")
		fs.PrintDefaults()
	}

	var classes string
	var delay int
	if delayMS != "" {
		d, err := strconv.Atoi(delayMS)
		if err != nil || d < 0 {
			return cfg, errors.Errorf("%s=%q is not a number of milliseconds", delayEnv, delayMS)
		}
		delay = d
	}

	fs.IntVar(&cfg.Workers, "t", 0, "number of worker goroutines (0 = all logical cores)")
	fs.IntVar(&cfg.Workers, "threads", 0, "same as -t")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "dataset directory with one sub-directory per class")
	fs.StringVar(&classes, "classes", strings.Join(cfg.Classes, ","), "comma separated class directories, in label order")
	fs.StringVar(&cfg.MNISTImages, "mnist-images", "", "MNIST idx3 image file (replaces -data)")
	fs.StringVar(&cfg.MNISTLabels, "mnist-labels", "", "MNIST idx1 label file")
	fs.StringVar(&cfg.MNISTTestImages, "mnist-test-images", "", "MNIST idx3 evaluation images (replaces the split)")
	fs.StringVar(&cfg.MNISTTestLabels, "mnist-test-labels", "", "MNIST idx1 evaluation labels")
	fs.StringVar(&cfg.ModelPath, "model", "", "model file to save after training")
	fs.StringVar(&cfg.Checkpoint, "checkpoint", "", "save the best model seen during training to this file")
	fs.BoolVar(&cfg.LoadModel, "load", false, "load -model instead of training when it matches")
	fs.StringVar(&cfg.TestImage, "test", "", "image to classify after training")
	fs.IntVar(&cfg.Train.Epochs, "epochs", cfg.Train.Epochs, "maximum training epochs")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed (0 = from the clock)")
	fs.StringVar(&cfg.CSVLog, "csv", "", "append per-epoch progress to this CSV file")
	fs.IntVar(&delay, "delay", delay, "pause after every epoch, in milliseconds (env "+delayEnv+")")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if rest := fs.Args(); len(rest) > 0 {
		if len(rest) > 1 {
			return cfg, errors.Errorf("unexpected arguments %q", rest[1:])
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return cfg, errors.Errorf("unexpected argument %q", rest[0])
		}
		cfg.Workers = n
	}
	if cfg.Workers < 0 {
		return cfg, errors.Errorf("thread count %d is negative", cfg.Workers)
	}
	if cfg.MNISTImages != "" && cfg.MNISTLabels == "" {
		return cfg, errors.New("-mnist-images needs -mnist-labels")
	}
	if cfg.MNISTTestImages != "" && (cfg.MNISTImages == "" || cfg.MNISTTestLabels == "") {
		return cfg, errors.New("-mnist-test-images needs -mnist-images and -mnist-test-labels")
	}
	if cfg.LoadModel && cfg.ModelPath == "" {
		return cfg, errors.New("-load needs -model")
	}

	cfg.Classes = nil
	for _, c := range strings.Split(classes, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cfg.Classes = append(cfg.Classes, c)
		}
	}
	if cfg.MNISTImages != "" && !isSet(fs, "classes") {
		cfg.Classes = nil
	}
	cfg.Train.Delay = time.Duration(delay) * time.Millisecond
	return cfg, nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
