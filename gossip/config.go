package gossip

import (
	"net/netip"
	"time"

	"github.com/go-kit/log"

	"github.com/maxpoletaev/gms/faildetector"
)

type Config struct {
	// Transport is used to exchange messages with other nodes. The local
	// address of the node is taken from the transport. Required.
	Transport Transport

	// Receiver is notified about accepted heartbeats of other nodes. If not
	// provided, the heartbeats are tracked but not delivered anywhere.
	Receiver Receiver

	// Logger is go-kit logger used to record debug messages and non-critical
	// errors while protocol execution. If not provided, it will be totally silent.
	Logger log.Logger

	// Metrics collects protocol counters. If not provided, the counters are
	// kept but not registered anywhere.
	Metrics *Metrics

	// Seeds is the static list of addresses used to bootstrap the discovery.
	// The local address is ignored if present.
	Seeds []netip.AddrPort

	// Interval is the time between two gossip rounds.
	Interval time.Duration

	// QuarantineDelay is the time during which the states of a node that has
	// just been declared dead are ignored, so that it does not flap between
	// live and dead.
	QuarantineDelay time.Duration

	// UnreachableTTL is the time after which a dead node is forgotten.
	UnreachableTTL time.Duration

	// DialTimeout limits the time spent connecting to a discovered node.
	DialTimeout time.Duration

	// ConvictThreshold is the phi value above which a node is considered
	// dead. Must be within [5, 16]. Lower values detect failures faster at
	// the cost of more false positives.
	ConvictThreshold float64

	// WindowSize is the number of heartbeat inter-arrival samples used by
	// the failure detector.
	WindowSize int

	// Estimator reduces the samples into the expected inter-arrival time.
	Estimator faildetector.Estimator

	// MinInterval is the failure detector noise floor. Heartbeats arriving
	// closer to each other are not sampled.
	MinInterval time.Duration

	// InitialInterval is the expected inter-arrival time assumed after the
	// first heartbeat of a node, until there are real samples.
	InitialInterval time.Duration

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// Dice is the source of randomness for target selection. Defaults to
	// a time-seeded math/rand source.
	Dice Dice
}

// DefaultConfig creates a Config with reasonable default values
// that will not crash the program straight away.
func DefaultConfig() *Config {
	return &Config{
		Receiver:         NoopReceiver{},
		Logger:           log.NewNopLogger(),
		Interval:         time.Second,
		QuarantineDelay:  30 * time.Second,
		UnreachableTTL:   72 * time.Hour,
		DialTimeout:      5 * time.Second,
		ConvictThreshold: faildetector.DefaultThreshold,
		WindowSize:       faildetector.DefaultWindowSize,
		Estimator:        faildetector.Mean,
		MinInterval:      faildetector.DefaultMinInterval,
		InitialInterval:  2 * time.Second,
		Clock:            time.Now,
	}
}

func (c *Config) detectorOptions() []faildetector.Option {
	return []faildetector.Option{
		faildetector.WithThreshold(c.ConvictThreshold),
		faildetector.WithWindowSize(c.WindowSize),
		faildetector.WithEstimator(c.Estimator),
		faildetector.WithMinInterval(c.MinInterval),
		faildetector.WithInitialInterval(c.InitialInterval),
	}
}
