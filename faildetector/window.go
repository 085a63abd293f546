package faildetector

import (
	"fmt"
	"sort"
)

// Estimator reduces a window of inter-arrival samples into the scale of the
// exponential distribution used to compute phi.
type Estimator int

const (
	Mean Estimator = iota
	Median
)

func (e Estimator) String() string {
	switch e {
	case Mean:
		return "mean"
	case Median:
		return "median"
	default:
		return fmt.Sprintf("Estimator(%d)", int(e))
	}
}

// ParseEstimator converts the textual name of an estimator.
func ParseEstimator(s string) (Estimator, error) {
	switch s {
	case "mean":
		return Mean, nil
	case "median":
		return Median, nil
	default:
		return 0, fmt.Errorf("unknown estimator: %q", s)
	}
}

// window is a fixed-size ring buffer of samples with a running sum.
type window struct {
	samples []float64
	next    int
	full    bool
	sum     float64
}

func newWindow(size int) *window {
	return &window{
		samples: make([]float64, size),
	}
}

func (w *window) push(v float64) {
	if w.full {
		w.sum -= w.samples[w.next]
	}

	w.samples[w.next] = v
	w.sum += v

	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

func (w *window) len() int {
	if w.full {
		return len(w.samples)
	}

	return w.next
}

func (w *window) mean() float64 {
	n := w.len()
	if n == 0 {
		return 0
	}

	return w.sum / float64(n)
}

func (w *window) median() float64 {
	n := w.len()
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, w.samples[:n])
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}
