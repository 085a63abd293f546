package gossip

import (
	"context"
	"cmp"
	"net/netip"

	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gms/faildetector"
	"github.com/maxpoletaev/gms/internal/generic"
)

var _ Handler = (*Gossiper)(nil)

// HandleMessage dispatches an inbound protocol message. It is safe to call
// concurrently; messages concerning the same endpoint are serialized.
func (g *Gossiper) HandleMessage(msg *Message, reply Conn) {
	if g.stopping() {
		return
	}

	g.metrics.messagesReceived.WithLabelValues(msg.Type.String()).Inc()

	level.Debug(g.logger).Log(
		"msg", "gossip message received",
		"from", msg.From,
		"type", msg.Type,
		"digests", len(msg.Digests),
		"states", len(msg.States),
	)

	switch msg.Type {
	case MessageGossip:
		g.handleGossip(msg, reply)
	case MessageReply:
		g.handleReply(msg, reply)
	case MessageUpdate:
		g.handleUpdate(msg)
	default:
		level.Warn(g.logger).Log("msg", "unknown message type", "from", msg.From, "type", msg.Type)
	}
}

// handleGossip answers the digests of the initiator with the digests we want
// updates for and the states the initiator is missing.
func (g *Gossiper) handleGossip(msg *Message, reply Conn) {
	digests, states := g.examine(g.sortBySkew(msg.Digests))
	if len(digests) == 0 && len(states) == 0 {
		return
	}

	g.respond(msg, reply, &Message{
		Type:    MessageReply,
		From:    g.local,
		Digests: digests,
		States:  states,
	})
}

// handleReply applies the states sent by the peer and sends back the states
// it asked for.
func (g *Gossiper) handleReply(msg *Message, reply Conn) {
	g.apply(msg.States)

	var states []*HeartbeatState

	for _, d := range g.sortBySkew(msg.Digests) {
		if state := g.stateNewerThan(d.Addr, d.Time); state != nil {
			states = append(states, state)
		}
	}

	if len(states) == 0 {
		return
	}

	g.respond(msg, reply, &Message{
		Type:   MessageUpdate,
		From:   g.local,
		States: states,
	})
}

// respond sends the response through the reply connection supplied by the
// transport, falling back to the endpoint connection of the sender.
func (g *Gossiper) respond(msg *Message, reply Conn, resp *Message) {
	if reply != nil {
		g.send(reply, resp)
		return
	}

	g.sendTo(msg.From, resp)
}

func (g *Gossiper) handleUpdate(msg *Message) {
	g.apply(msg.States)
}

func (g *Gossiper) localTime(addr netip.AddrPort) int64 {
	if ep, ok := g.endpoints.Load(addr); ok {
		return ep.State().Time
	}

	return -1
}

// sortBySkew orders the digests by the difference between the remote and
// the local logical time, most divergent first.
func (g *Gossiper) sortBySkew(digests []Digest) []Digest {
	type skewed struct {
		digest Digest
		skew   int64
	}

	list := make([]skewed, len(digests))
	for i, d := range digests {
		list[i] = skewed{
			digest: d,
			skew:   generic.Abs(g.localTime(d.Addr) - d.Time),
		}
	}

	generic.SortSliceFunc(list, func(a, b skewed) int {
		return cmp.Compare(b.skew, a.skew)
	})

	sorted := make([]Digest, len(list))
	for i := range list {
		sorted[i] = list[i].digest
	}

	return sorted
}

// examine compares the remote digests with the local endpoints. It returns
// the digests to request from the remote side (with our local time, or -1
// if the address is unknown) and the local states newer than what the
// remote side knows.
func (g *Gossiper) examine(digests []Digest) ([]Digest, []*HeartbeatState) {
	var (
		deltaDigests []Digest
		deltaStates  []*HeartbeatState
	)

	for _, d := range digests {
		ep, ok := g.endpoints.Load(d.Addr)
		if !ok {
			deltaDigests = append(deltaDigests, Digest{Addr: d.Addr, Time: -1})
			continue
		}

		localTime := ep.State().Time

		switch {
		case d.Time == localTime:
			// Both sides are in sync.
		case d.Time > localTime:
			deltaDigests = append(deltaDigests, Digest{Addr: d.Addr, Time: localTime})
		default:
			if state := g.stateNewerThan(d.Addr, d.Time); state != nil {
				deltaStates = append(deltaStates, state)
			}
		}
	}

	return deltaDigests, deltaStates
}

// stateNewerThan returns the local state of the address if it is strictly
// newer than the given time. Discovery placeholders are never shared.
func (g *Gossiper) stateNewerThan(addr netip.AddrPort, t int64) *HeartbeatState {
	ep, ok := g.endpoints.Load(addr)
	if !ok {
		return nil
	}

	state := ep.State()
	if state.DiscoveryOnly || !state.NewerThan(t) {
		return nil
	}

	return state
}

func (g *Gossiper) apply(states []*HeartbeatState) {
	for _, state := range states {
		g.applyState(state)
	}
}

func (g *Gossiper) applyState(state *HeartbeatState) {
	if state == nil || state.Addr == g.local {
		return
	}

	addr := state.Addr

	if g.view.IsQuarantined(addr) {
		g.metrics.statesRejected.WithLabelValues("quarantined").Inc()
		level.Debug(g.logger).Log("msg", "ignoring state of quarantined endpoint", "addr", addr, "time", state.Time)

		return
	}

	g.locks.Lock(addr)
	defer g.locks.Unlock(addr)

	ep, ok := g.endpoints.Load(addr)
	if !ok {
		g.discover(state)
		return
	}

	g.accept(ep, state)
}

// accept replaces the state of the endpoint if the new one is newer. Must be
// called with the endpoint address locked.
func (g *Gossiper) accept(ep *Endpoint, state *HeartbeatState) {
	if ep.IsLocal() {
		return
	}

	if !ep.replaceState(state) {
		g.metrics.statesRejected.WithLabelValues("stale").Inc()
		return
	}

	g.metrics.statesAccepted.Inc()

	if state.DiscoveryOnly {
		return
	}

	now := g.now()

	if !ep.IsAlive() {
		// The endpoint has been dead for at least the quarantine period, or
		// is a placeholder that finally got a real state. Its old arrival
		// history says nothing about its current rhythm.
		if detector, err := g.newDetector(); err == nil {
			ep.detector.Store(detector)
		}

		if ep.markAlive() {
			g.view.MarkAlive(ep.addr)
			level.Info(g.logger).Log("msg", "endpoint is alive", "addr", ep.addr, "time", state.Time)
		}
	}

	ep.detector.Load().Record(now)

	g.notify(state)
}

func (g *Gossiper) notify(state *HeartbeatState) {
	if state.DiscoveryOnly || g.isIgnored(state.Addr) {
		return
	}

	if !g.receiver.ReceiveHeartbeat(state) {
		g.Ignore(state.Addr)
		level.Info(g.logger).Log("msg", "receiver declined further heartbeats", "addr", state.Addr)
	}
}

func (g *Gossiper) newDetector() (*faildetector.Detector, error) {
	return faildetector.New(g.fdOpts...)
}

// discover connects to an unknown address in the background and registers
// it once connected. Concurrent discoveries of the same address are merged.
func (g *Gossiper) discover(state *HeartbeatState) {
	addr := state.Addr

	if g.stopping() {
		return
	}

	if _, loaded := g.dialing.LoadOrStore(addr, struct{}{}); loaded {
		return
	}

	g.wg.Add(1)

	go func() {
		defer g.wg.Done()
		defer g.dialing.Delete(addr)

		ctx := g.ctx
		if g.dialTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.dialTimeout)
			defer cancel()
		}

		conn, err := g.transport.Dial(ctx, addr)
		if err != nil {
			if !g.stopping() {
				level.Warn(g.logger).Log("msg", "failed to connect", "addr", addr, "err", err)
			}

			return
		}

		g.register(state, conn)
	}()
}

// register adds a new endpoint for the connected address. When the address
// got registered in the meantime, the redundant connection is closed and the
// state is applied to the existing endpoint instead.
func (g *Gossiper) register(state *HeartbeatState, conn Conn) {
	addr := state.Addr

	g.locks.Lock(addr)
	defer g.locks.Unlock(addr)

	detector, err := g.newDetector()
	if err != nil || g.stopping() || g.view.IsQuarantined(addr) {
		if err := conn.Close(); err != nil {
			level.Debug(g.logger).Log("msg", "failed to close discarded connection", "addr", addr, "err", err)
		}

		return
	}

	ep := newEndpoint(state, conn, detector)

	actual, loaded := g.endpoints.LoadOrStore(addr, ep)
	if loaded {
		if err := conn.Close(); err != nil {
			level.Debug(g.logger).Log("msg", "failed to close redundant connection", "addr", addr, "err", err)
		}

		level.Debug(g.logger).Log("msg", "endpoint already registered", "addr", addr)
		g.accept(actual, state)

		return
	}

	g.metrics.discoveries.Inc()

	if state.DiscoveryOnly {
		level.Debug(g.logger).Log("msg", "placeholder endpoint registered", "addr", addr)
	} else {
		detector.Record(g.now())
		ep.markAlive()
		g.view.MarkAlive(addr)

		level.Info(g.logger).Log("msg", "endpoint discovered", "addr", addr, "time", state.Time)

		g.notify(state)
	}

	g.send(conn, &Message{
		Type:    MessageGossip,
		From:    g.local,
		Digests: g.randomDigests(),
	})
}
