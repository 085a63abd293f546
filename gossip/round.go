package gossip

import (
	"net/netip"

	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gms/internal/generic"
)

// Round performs a single gossip round followed by a status check. It is
// called periodically once the gossiper is started. Messages are sent in the
// background, so the round never waits for the network.
func (g *Gossiper) Round() {
	g.metrics.rounds.Inc()

	g.discoverSeeds()

	if digests := g.randomDigests(); len(digests) > 0 {
		msg := &Message{
			Type:    MessageGossip,
			From:    g.local,
			Digests: digests,
		}

		contacted, ok := g.view.RandomLiveMember()
		if ok {
			g.sendTo(contacted, msg)
		}

		if addr, ok := g.view.RandomUnreachableMember(); ok {
			g.sendTo(addr, msg)
		}

		if addr, ok := g.view.RandomSeedMember(contacted); ok {
			g.sendTo(addr, msg)
		}
	}

	g.CheckStatus()
}

// discoverSeeds starts the discovery of every seed that has no endpoint,
// either because it could not be reached so far or because it has been
// forgotten. Seeds that are already being dialed are skipped.
func (g *Gossiper) discoverSeeds() {
	for _, seed := range g.view.Seeds() {
		if _, ok := g.endpoints.Load(seed); ok || g.view.IsQuarantined(seed) {
			continue
		}

		g.discover(NewDiscoveryState(seed))
	}
}

// randomDigests returns the digests of all known endpoints in random order,
// so that no endpoint is favored when the receiver runs out of time.
func (g *Gossiper) randomDigests() []Digest {
	var digests []Digest

	g.endpoints.Range(func(_ netip.AddrPort, ep *Endpoint) bool {
		digests = append(digests, ep.Digest())
		return true
	})

	generic.Shuffle(digests, g.view.dice.Intn)

	return digests
}

func (g *Gossiper) sendTo(addr netip.AddrPort, msg *Message) {
	ep, ok := g.endpoints.Load(addr)
	if !ok || ep.conn == nil {
		level.Debug(g.logger).Log("msg", "no connection to the target", "addr", addr)
		return
	}

	g.send(ep.conn, msg)
}

func (g *Gossiper) send(conn Conn, msg *Message) {
	if g.stopping() {
		return
	}

	g.wg.Add(1)

	go func() {
		defer g.wg.Done()

		err := conn.Send(g.ctx, msg)
		if g.stopping() {
			return
		}

		g.metrics.observeSend(msg.Type, err)

		if err != nil {
			level.Warn(g.logger).Log(
				"msg", "failed to send gossip message",
				"to", conn.Addr(),
				"type", msg.Type,
				"err", err,
			)

			return
		}

		level.Debug(g.logger).Log(
			"msg", "gossip message sent",
			"to", conn.Addr(),
			"type", msg.Type,
			"digests", len(msg.Digests),
			"states", len(msg.States),
		)
	}()
}

// CheckStatus consults the failure detectors and declares dead the endpoints
// whose suspicion level is above the threshold. It then ends expired
// quarantines and forgets the endpoints unreachable for too long.
func (g *Gossiper) CheckStatus() {
	now := g.now()

	g.endpoints.Range(func(addr netip.AddrPort, ep *Endpoint) bool {
		if ep.IsLocal() || !ep.IsAlive() {
			return true
		}

		detector := ep.detector.Load()
		phi := detector.Phi(now)
		g.metrics.phi.Observe(phi)

		if phi > detector.Threshold() && ep.markDead() {
			g.view.MarkDead(addr, now)
			g.metrics.convictions.Inc()

			level.Info(g.logger).Log(
				"msg", "endpoint is convicted",
				"addr", addr,
				"phi", phi,
				"last_seen", detector.LastArrival(),
			)
		}

		return true
	})

	for _, addr := range g.view.CullQuarantined(now) {
		level.Debug(g.logger).Log("msg", "quarantine is over", "addr", addr)
	}

	for _, addr := range g.view.CullUnreachable(now) {
		g.forget(addr)
	}

	g.metrics.observeView(g.view)
}

func (g *Gossiper) forget(addr netip.AddrPort) {
	g.locks.Lock(addr)
	defer g.locks.Unlock(addr)

	ep, ok := g.endpoints.LoadAndDelete(addr)
	if !ok {
		return
	}

	if err := ep.close(); err != nil {
		level.Warn(g.logger).Log("msg", "failed to close connection", "addr", addr, "err", err)
	}

	g.metrics.forgotten.Inc()

	level.Info(g.logger).Log("msg", "endpoint is forgotten", "addr", addr)
}
