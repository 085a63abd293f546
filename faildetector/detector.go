package faildetector

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	MinThreshold = 5.0
	MaxThreshold = 16.0

	DefaultThreshold   = 8.0
	DefaultWindowSize  = 1000
	DefaultMinInterval = 10 * time.Millisecond
)

var (
	ErrInvalidThreshold = errors.New("convict threshold out of range")
	ErrInvalidWindow    = errors.New("window size must be positive")
)

// ValidateThreshold checks that the convict threshold is within
// [MinThreshold, MaxThreshold].
func ValidateThreshold(phi float64) error {
	if math.IsNaN(phi) || phi < MinThreshold || phi > MaxThreshold {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrInvalidThreshold, phi, MinThreshold, MaxThreshold)
	}

	return nil
}

// Detector is a phi-accrual failure detector for a single remote endpoint.
// Instead of a boolean answer it keeps the history of heartbeat inter-arrival
// times and reports the suspicion level phi, which grows the longer the
// endpoint stays silent relative to its usual rhythm. Arrivals are modeled
// with the exponential distribution, so phi = -log10(exp(-t/scale)), where t
// is the time since the last arrival and scale is the mean or the median of
// the recent inter-arrival times.
type Detector struct {
	mut             sync.Mutex
	threshold       float64
	windowSize      int
	estimator       Estimator
	minInterval     time.Duration
	initialInterval time.Duration
	window          *window
	last            time.Time
}

func New(opts ...Option) (*Detector, error) {
	d := &Detector{
		threshold:   DefaultThreshold,
		windowSize:  DefaultWindowSize,
		estimator:   Mean,
		minInterval: DefaultMinInterval,
	}

	for _, opt := range opts {
		opt(d)
	}

	if err := ValidateThreshold(d.threshold); err != nil {
		return nil, err
	}

	if d.windowSize < 1 {
		return nil, ErrInvalidWindow
	}

	d.window = newWindow(d.windowSize)

	return d, nil
}

// Record registers a heartbeat arrival at the given time.
func (d *Detector) Record(now time.Time) {
	d.mut.Lock()
	defer d.mut.Unlock()

	if d.last.IsZero() {
		d.last = now
		return
	}

	delta := now.Sub(d.last)
	if delta < d.minInterval {
		return
	}

	d.window.push(delta.Seconds())
	d.last = now
}

func (d *Detector) scale() float64 {
	if d.window.len() == 0 {
		return d.initialInterval.Seconds()
	}

	if d.estimator == Median {
		return d.window.median()
	}

	return d.window.mean()
}

// Phi returns the suspicion level at the given time. It is 0 until there is
// enough history to estimate the arrival rate.
func (d *Detector) Phi(now time.Time) float64 {
	d.mut.Lock()
	defer d.mut.Unlock()

	if d.last.IsZero() {
		return 0
	}

	scale := d.scale()
	if scale <= 0 {
		return 0
	}

	elapsed := now.Sub(d.last).Seconds()
	if elapsed <= 0 {
		return 0
	}

	// -log10(exp(-t/scale)) == t / (scale * ln(10)), which stays finite
	// for long silences where exp() would underflow to zero.
	return elapsed / (scale * math.Ln10)
}

// ShouldConvict reports whether phi exceeds the convict threshold.
func (d *Detector) ShouldConvict(now time.Time) bool {
	return d.Phi(now) > d.threshold
}

// Threshold returns the convict threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Samples returns the number of inter-arrival samples in the window.
func (d *Detector) Samples() int {
	d.mut.Lock()
	defer d.mut.Unlock()

	return d.window.len()
}

// LastArrival returns the time of the last recorded arrival.
func (d *Detector) LastArrival() time.Time {
	d.mut.Lock()
	defer d.mut.Unlock()

	return d.last
}
