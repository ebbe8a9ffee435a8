package train

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
)

// CSVLogger logs training progress to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool
	Logger   *log.Logger // write failures; log.Default() when nil

	runID  string
	file   *os.File
	writer *csv.Writer
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

func (c *CSVLogger) logf(format string, args ...any) {
	l := c.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf(format, args...)
}

func (c *CSVLogger) OnTrainBegin(runID string, cfg Config, samples int) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		c.logf("CSVLogger: failed to open file %s: %v", c.Filename, err)
		return
	}
	c.runID = runID
	c.file = file
	c.writer = csv.NewWriter(file)

	// Write header if not appending or if file is empty
	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		if err := c.writer.Write([]string{"run_id", "epoch", "error", "rate", "time_seconds"}); err != nil {
			c.logf("CSVLogger: failed to write header: %v", err)
		}
		c.writer.Flush()
	}
}

func (c *CSVLogger) OnEpochEnd(e Epoch) {
	if c.writer == nil {
		return
	}

	record := []string{
		c.runID,
		strconv.Itoa(e.Epoch),
		fmt.Sprintf("%.6f", e.Error),
		fmt.Sprintf("%.6f", e.Rate),
		fmt.Sprintf("%.2f", e.Elapsed.Seconds()),
	}

	if err := c.writer.Write(record); err != nil {
		c.logf("CSVLogger: failed to write record: %v", err)
	}
	c.writer.Flush()
}

func (c *CSVLogger) OnTrainEnd(res Result) {
	if c.file != nil {
		c.writer.Flush()
		if err := c.writer.Error(); err != nil {
			c.logf("CSVLogger: failed to flush %s: %v", c.Filename, err)
		}
		if err := c.file.Close(); err != nil {
			c.logf("CSVLogger: failed to close %s: %v", c.Filename, err)
		}
		c.file = nil
		c.writer = nil
	}
}
