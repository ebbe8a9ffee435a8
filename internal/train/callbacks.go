package train

import (
	"fmt"
	"io"
	"log"
	"math"

	"github.com/FlavioCFOliveira/visualsearch/internal/net"
)

// Callback observes a training run.
type Callback interface {
	OnTrainBegin(runID string, cfg Config, samples int)
	OnEpochEnd(e Epoch)
	OnTrainEnd(res Result)
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(runID string, cfg Config, samples int) {}
func (c BaseCallback) OnEpochEnd(e Epoch)                                 {}
func (c BaseCallback) OnTrainEnd(res Result)                              {}

// DefaultReportBelow is the epoch error under which every epoch is reported.
const DefaultReportBelow = 0.15

// ConsoleLogger reports training progress to W. An epoch is printed when it
// is the first one, a multiple of Interval, or its error is below ReportBelow.
type ConsoleLogger struct {
	BaseCallback
	W           io.Writer
	Interval    int
	ReportBelow float32

	epochs int
}

// NewConsoleLogger returns a logger that reports every 10 epochs.
func NewConsoleLogger(w io.Writer) *ConsoleLogger {
	return &ConsoleLogger{W: w, Interval: 10, ReportBelow: DefaultReportBelow}
}

func (c *ConsoleLogger) OnTrainBegin(runID string, cfg Config, samples int) {
	c.epochs = cfg.Epochs
	fmt.Fprintf(c.W, "Learning with %d epochs and adaptive learning rate (run %s, %d samples)\n", cfg.Epochs, runID, samples)
}

func (c *ConsoleLogger) OnEpochEnd(e Epoch) {
	if e.Epoch == 1 || (c.Interval > 0 && e.Epoch%c.Interval == 0) || e.Error < c.ReportBelow {
		fmt.Fprintf(c.W, "Epoch %3d/%d - error: %.6f, lr: %.6f, time: %.2f s\n",
			e.Epoch, c.epochs, e.Error, e.Rate, e.Elapsed.Seconds())
	}
}

func (c *ConsoleLogger) OnTrainEnd(res Result) {
	if res.Converged {
		fmt.Fprintf(c.W, "Training complete, error less than threshold\n\n")
	}
	fmt.Fprintf(c.W, "\n Time - %f\n", res.Elapsed.Seconds())
}

// ModelCheckpoint saves the network after every epoch that improves on the
// lowest error seen so far.
type ModelCheckpoint struct {
	BaseCallback
	Net      *net.Network
	Filename string
	Logger   *log.Logger // save failures; log.Default() when nil

	best float32
}

// NewModelCheckpoint returns a checkpoint writing n to filename.
func NewModelCheckpoint(n *net.Network, filename string) *ModelCheckpoint {
	return &ModelCheckpoint{
		Net:      n,
		Filename: filename,
		best:     math.MaxFloat32,
	}
}

func (c *ModelCheckpoint) OnEpochEnd(e Epoch) {
	if e.Error >= c.best {
		return
	}
	c.best = e.Error
	if err := c.Net.SaveFile(c.Filename); err != nil {
		l := c.Logger
		if l == nil {
			l = log.Default()
		}
		l.Printf("checkpoint: %v", err)
	}
}
