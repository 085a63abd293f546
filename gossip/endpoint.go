package gossip

import (
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/maxpoletaev/gms/faildetector"
)

// Endpoint binds a known address to its latest heartbeat state, failure
// detector and outbound connection. The local endpoint has neither a
// detector nor a connection and is never convicted.
type Endpoint struct {
	addr     netip.AddrPort
	local    bool
	conn     Conn
	state    atomic.Pointer[HeartbeatState]
	detector atomic.Pointer[faildetector.Detector]
	alive    atomic.Bool
}

func newEndpoint(state *HeartbeatState, conn Conn, detector *faildetector.Detector) *Endpoint {
	ep := &Endpoint{
		addr: state.Addr,
		conn: conn,
	}

	ep.state.Store(state)
	ep.detector.Store(detector)

	return ep
}

func newLocalEndpoint(state *HeartbeatState) *Endpoint {
	ep := &Endpoint{
		addr:  state.Addr,
		local: true,
	}

	ep.state.Store(state)
	ep.alive.Store(true)

	return ep
}

func (ep *Endpoint) Addr() netip.AddrPort {
	return ep.addr
}

// State returns the current heartbeat state. The returned value must not be
// modified.
func (ep *Endpoint) State() *HeartbeatState {
	return ep.state.Load()
}

func (ep *Endpoint) IsAlive() bool {
	return ep.alive.Load()
}

func (ep *Endpoint) IsLocal() bool {
	return ep.local
}

// Digest summarizes the current state of the endpoint.
func (ep *Endpoint) Digest() Digest {
	return Digest{
		Addr: ep.addr,
		Time: ep.State().Time,
	}
}

// Phi returns the current suspicion level, or zero for the local endpoint.
func (ep *Endpoint) Phi(now time.Time) float64 {
	if d := ep.detector.Load(); d != nil {
		return d.Phi(now)
	}

	return 0
}

// replaceState swaps the state if the new one is strictly newer. Concurrent
// replacements never move the logical time backwards.
func (ep *Endpoint) replaceState(state *HeartbeatState) bool {
	for {
		cur := ep.state.Load()
		if cur != nil && !state.NewerThan(cur.Time) {
			return false
		}

		if ep.state.CompareAndSwap(cur, state) {
			return true
		}
	}
}

func (ep *Endpoint) markAlive() bool {
	return ep.alive.CompareAndSwap(false, true)
}

func (ep *Endpoint) markDead() bool {
	if ep.local {
		return false
	}

	return ep.alive.CompareAndSwap(true, false)
}

func (ep *Endpoint) close() error {
	if ep.conn == nil {
		return nil
	}

	return ep.conn.Close()
}

// EndpointInfo is a point-in-time snapshot of an endpoint.
type EndpointInfo struct {
	Addr   netip.AddrPort
	State  *HeartbeatState
	Status Status
	Alive  bool
	Local  bool
	Seed   bool
	Phi    float64
}
