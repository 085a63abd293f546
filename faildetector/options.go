package faildetector

import "time"

type Option func(*Detector)

// WithThreshold sets the phi value above which the endpoint is convicted.
// It must be within [MinThreshold, MaxThreshold].
func WithThreshold(phi float64) Option {
	return func(d *Detector) {
		d.threshold = phi
	}
}

// WithWindowSize limits the number of inter-arrival samples kept.
func WithWindowSize(n int) Option {
	return func(d *Detector) {
		d.windowSize = n
	}
}

// WithEstimator selects how the window is reduced into a single scale value.
func WithEstimator(e Estimator) Option {
	return func(d *Detector) {
		d.estimator = e
	}
}

// WithMinInterval sets the noise floor: arrivals closer than this to the
// previous one are discarded.
func WithMinInterval(t time.Duration) Option {
	return func(d *Detector) {
		d.minInterval = t
	}
}

// WithInitialInterval sets the scale used after the first arrival, while
// the window has no samples yet. Zero keeps phi at 0 until the second
// arrival.
func WithInitialInterval(t time.Duration) Option {
	return func(d *Detector) {
		d.initialInterval = t
	}
}
