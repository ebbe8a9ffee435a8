package train

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/visualsearch/internal/dataset"
	"github.com/FlavioCFOliveira/visualsearch/internal/net"
)

// Report is the outcome of classifying a labelled set.
// Confusion has one row per true label and one column per prediction.
type Report struct {
	Classes   []string
	Confusion *mat.Dense
	Correct   int
	Total     int
}

// Evaluate classifies every sample with n and tallies the predictions.
// classes names the labels for String and may be shorter than n.Classes().
// Samples whose label is outside the network's range count as misclassified.
func Evaluate(n *net.Network, samples []dataset.Sample, classes []string) Report {
	k := n.Classes()
	r := Report{
		Classes:   classes,
		Confusion: mat.NewDense(k, k, nil),
		Total:     len(samples),
	}

	for i := range samples {
		s := &samples[i]
		pred, _ := n.Classify(&s.Image)
		if s.Label < 0 || s.Label >= k {
			continue
		}
		r.Confusion.Set(s.Label, pred, r.Confusion.At(s.Label, pred)+1)
		if pred == s.Label {
			r.Correct++
		}
	}
	return r
}

// Accuracy returns the fraction of correctly classified samples, or 0 for an
// empty set.
func (r Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// ErrorRate returns the fraction of misclassified samples, or 0 for an empty
// set.
func (r Report) ErrorRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Total-r.Correct) / float64(r.Total)
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error Rate: %.2f%%\n", r.ErrorRate()*100)
	fmt.Fprintf(&b, "Accuracy: %.2f%% (%d/%d)\n", r.Accuracy()*100, r.Correct, r.Total)

	k, _ := r.Confusion.Dims()
	b.WriteString("Confusion matrix (rows: actual, columns: predicted)\n")
	for i := 0; i < k; i++ {
		name := fmt.Sprintf("class %d", i)
		if i < len(r.Classes) {
			name = r.Classes[i]
		}
		fmt.Fprintf(&b, "  %d: %s\n", i, name)
	}
	fmt.Fprintf(&b, "%v\n", mat.Formatted(r.Confusion, mat.Prefix(""), mat.Squeeze()))
	return b.String()
}
