package gossip

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gms/faildetector"
	"github.com/maxpoletaev/gms/internal/generic"
	"github.com/maxpoletaev/gms/internal/lockmap"
	"github.com/maxpoletaev/gms/internal/multierror"
)

var (
	ErrStaleHeartbeat = errors.New("heartbeat is not newer than the current one")
	ErrTerminated     = errors.New("gossiper is terminated")
)

type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateTerminated
)

// Gossiper maintains an eventually consistent view of the cluster by
// periodically reconciling heartbeat states with random peers. Every round,
// the digests of all known endpoints are sent to a live peer, sometimes to
// an unreachable one and sometimes to a seed. The peer replies with the
// states the initiator is missing and the digests it wants updates for,
// which the initiator answers with an update. The accepted states feed the
// per-endpoint failure detectors, which decide when a node is dead.
type Gossiper struct {
	local       netip.AddrPort
	transport   Transport
	receiver    Receiver
	logger      log.Logger
	metrics     *Metrics
	now         func() time.Time
	interval    time.Duration
	dialTimeout time.Duration
	seeds       []netip.AddrPort
	fdOpts      []faildetector.Option

	view      *View
	endpoints generic.SyncMap[netip.AddrPort, *Endpoint]
	dialing   generic.SyncMap[netip.AddrPort, struct{}]
	ignored   generic.SyncMap[netip.AddrPort, struct{}]
	locks     *lockmap.Map[netip.AddrPort]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stateMut sync.Mutex
	state    runState
}

// New creates a gossiper with the given configuration. The configuration is
// validated upfront, so that a misconfigured node does not start.
func New(conf *Config) (*Gossiper, error) {
	if conf.Transport == nil {
		return nil, errors.New("transport is required")
	}

	if conf.Interval <= 0 {
		return nil, fmt.Errorf("gossip interval must be positive, got %s", conf.Interval)
	}

	fdOpts := conf.detectorOptions()
	if _, err := faildetector.New(fdOpts...); err != nil {
		return nil, fmt.Errorf("invalid failure detector config: %w", err)
	}

	logger := conf.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	receiver := conf.Receiver
	if receiver == nil {
		receiver = NoopReceiver{}
	}

	metrics := conf.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	clock := conf.Clock
	if clock == nil {
		clock = time.Now
	}

	local := conf.Transport.LocalAddr()
	ctx, cancel := context.WithCancel(context.Background())

	g := &Gossiper{
		local:       local,
		transport:   conf.Transport,
		receiver:    receiver,
		logger:      logger,
		metrics:     metrics,
		now:         clock,
		interval:    conf.Interval,
		dialTimeout: conf.DialTimeout,
		seeds:       conf.Seeds,
		fdOpts:      fdOpts,
		locks:       lockmap.New[netip.AddrPort](),
		ctx:         ctx,
		cancel:      cancel,
		view: NewView(ViewConfig{
			Local:           local,
			Seeds:           conf.Seeds,
			QuarantineDelay: conf.QuarantineDelay,
			UnreachableTTL:  conf.UnreachableTTL,
			Dice:            conf.Dice,
		}),
	}

	return g, nil
}

// Start opens the transport, begins the discovery of the seeds and starts
// the periodic gossip rounds. Calling Start on a running gossiper does
// nothing. A terminated gossiper cannot be started again.
func (g *Gossiper) Start() error {
	g.stateMut.Lock()
	defer g.stateMut.Unlock()

	switch g.state {
	case stateRunning:
		return nil
	case stateTerminated:
		return ErrTerminated
	}

	if err := g.transport.Listen(g); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}

	g.state = stateRunning

	g.discoverSeeds()

	g.wg.Add(1)

	go func() {
		defer g.wg.Done()
		g.runLoop()
	}()

	level.Info(g.logger).Log(
		"msg", "gossiper started",
		"addr", g.local,
		"seeds", len(g.view.Seeds()),
		"interval", g.interval,
	)

	return nil
}

func (g *Gossiper) runLoop() {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Round()
		case <-g.ctx.Done():
			return
		}
	}
}

// Terminate stops the gossip rounds, interrupts in-flight connection
// attempts and sends, and closes the transport and all connections. Calling
// Terminate more than once does nothing.
func (g *Gossiper) Terminate() error {
	g.stateMut.Lock()

	if g.state == stateTerminated {
		g.stateMut.Unlock()
		return nil
	}

	g.state = stateTerminated
	g.stateMut.Unlock()

	g.cancel()

	errs := multierror.New[string]()

	if err := g.transport.Close(); err != nil {
		errs.Add("transport", err)
	}

	g.wg.Wait()

	g.endpoints.Range(func(addr netip.AddrPort, ep *Endpoint) bool {
		if err := ep.close(); err != nil {
			errs.Add(addr.String(), err)
		}

		return true
	})

	level.Info(g.logger).Log("msg", "gossiper terminated", "addr", g.local)

	return errs.Combined()
}

func (g *Gossiper) stopping() bool {
	return g.ctx.Err() != nil
}

// SendHeartbeat publishes a new state of the local node. The address of the
// state is always set to the local address. The logical time must be greater
// than the one of the previous heartbeat.
func (g *Gossiper) SendHeartbeat(hb HeartbeatState) error {
	hb.Addr = g.local
	hb.DiscoveryOnly = false
	state := &hb

	ep, loaded := g.endpoints.LoadOrStore(g.local, newLocalEndpoint(state))
	if !loaded {
		level.Debug(g.logger).Log("msg", "local endpoint registered", "addr", g.local, "time", hb.Time)
		return nil
	}

	if !ep.replaceState(state) {
		return fmt.Errorf("%w: %d <= %d", ErrStaleHeartbeat, hb.Time, ep.State().Time)
	}

	return nil
}

// Ignore stops the delivery of heartbeats from the address to the receiver.
// The address is still tracked and gossiped about.
func (g *Gossiper) Ignore(addr netip.AddrPort) {
	g.ignored.Store(addr, struct{}{})
}

// Unignore resumes the delivery of heartbeats from the address.
func (g *Gossiper) Unignore(addr netip.AddrPort) {
	g.ignored.Delete(addr)
}

func (g *Gossiper) isIgnored(addr netip.AddrPort) bool {
	_, ok := g.ignored.Load(addr)
	return ok
}

func (g *Gossiper) LocalAddr() netip.AddrPort {
	return g.local
}

func (g *Gossiper) View() *View {
	return g.view
}

// Endpoint returns the endpoint registered for the address.
func (g *Gossiper) Endpoint(addr netip.AddrPort) (*Endpoint, bool) {
	return g.endpoints.Load(addr)
}

// Endpoints returns the snapshots of all known endpoints ordered by address.
func (g *Gossiper) Endpoints() []EndpointInfo {
	now := g.now()

	var infos []EndpointInfo

	g.endpoints.Range(func(addr netip.AddrPort, ep *Endpoint) bool {
		status := g.view.Status(addr)
		if ep.IsLocal() {
			status = StatusLive
		}

		infos = append(infos, EndpointInfo{
			Addr:   addr,
			State:  ep.State(),
			Status: status,
			Alive:  ep.IsAlive(),
			Local:  ep.IsLocal(),
			Seed:   g.view.IsSeed(addr),
			Phi:    ep.Phi(now),
		})

		return true
	})

	generic.SortSliceFunc(infos, func(a, b EndpointInfo) int {
		return a.Addr.Compare(b.Addr)
	})

	return infos
}

// StateHash combines the fingerprints of all known states. Nodes that have
// converged on the same set of states report the same hash.
func (g *Gossiper) StateHash() uint64 {
	var hash uint64

	g.endpoints.Range(func(_ netip.AddrPort, ep *Endpoint) bool {
		if state := ep.State(); !state.DiscoveryOnly {
			hash ^= state.Hash64()
		}

		return true
	})

	return hash
}
