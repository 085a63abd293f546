package membership

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/maxpoletaev/gms/gossip"
	"github.com/maxpoletaev/gms/internal/generic"
)

var ErrAlreadyStarted = errors.New("group is already started")

// Group turns the local node into a member of a process group. It produces
// the heartbeats of the local node, carrying the membership view it has
// installed, and keeps a roster of the other members from the heartbeats
// the gossip engine delivers.
type Group struct {
	id        uuid.UUID
	logger    kitlog.Logger
	now       func() time.Time
	interval  time.Duration
	timeout   time.Duration
	forget    time.Duration
	width     int
	preferred bool

	mut         sync.RWMutex
	heartbeater Heartbeater
	local       netip.AddrPort
	roster      map[netip.AddrPort]*Member
	members     gossip.Bitset
	viewNumber  uint64
	viewTime    int64
	lastTime    int64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(conf Config) (*Group, error) {
	if conf.HeartbeatInterval <= 0 {
		return nil, fmt.Errorf("heartbeat interval must be positive, got %s", conf.HeartbeatInterval)
	}

	if conf.Timeout <= 0 {
		return nil, fmt.Errorf("member timeout must be positive, got %s", conf.Timeout)
	}

	if conf.BitsetWidth <= 0 {
		return nil, fmt.Errorf("bitset width must be positive, got %d", conf.BitsetWidth)
	}

	id := conf.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	logger := conf.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}

	clock := conf.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Group{
		id:        id,
		logger:    logger,
		now:       clock,
		interval:  conf.HeartbeatInterval,
		timeout:   conf.Timeout,
		forget:    conf.ForgetAfter,
		width:     conf.BitsetWidth,
		preferred: conf.Preferred,
		roster:    make(map[netip.AddrPort]*Member),
		stop:      make(chan struct{}),
	}, nil
}

// ID returns the identity of the local process.
func (g *Group) ID() uuid.UUID {
	return g.id
}

// Start publishes the first heartbeat through the heartbeater and keeps
// publishing them every heartbeat interval until terminated.
func (g *Group) Start(h Heartbeater) error {
	g.mut.Lock()

	if g.heartbeater != nil {
		g.mut.Unlock()
		return ErrAlreadyStarted
	}

	g.heartbeater = h
	g.local = h.LocalAddr()
	g.mut.Unlock()

	if err := g.Tick(); err != nil {
		return fmt.Errorf("failed to send initial heartbeat: %w", err)
	}

	g.wg.Add(1)

	go func() {
		defer g.wg.Done()

		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := g.Tick(); err != nil {
					level.Warn(g.logger).Log("msg", "failed to send heartbeat", "err", err)
				}
			case <-g.stop:
				return
			}
		}
	}()

	return nil
}

// Terminate stops the heartbeats. It is safe to call more than once.
func (g *Group) Terminate() {
	g.stopOnce.Do(func() {
		close(g.stop)
	})

	g.wg.Wait()
}

// Tick installs a new view if the set of timely members has changed, and
// publishes a heartbeat of the local node.
func (g *Group) Tick() error {
	g.mut.Lock()
	defer g.mut.Unlock()

	if g.heartbeater == nil {
		return errors.New("group is not started")
	}

	now := g.now()

	g.pruneLocked(now)

	members := g.viewLocked(now)
	if !members.Equal(g.members) || g.viewNumber == 0 {
		g.members = members
		g.viewNumber++
		g.viewTime = now.UnixMilli()

		level.Info(g.logger).Log(
			"msg", "view installed",
			"view", g.viewNumber,
			"members", members.Count(),
		)
	}

	// Wall-clock based, so that a restarted process continues from a time
	// greater than the one it used before the restart.
	t := generic.Max(g.lastTime+1, now.UnixMilli())

	err := g.heartbeater.SendHeartbeat(gossip.HeartbeatState{
		Sender:     g.id,
		Time:       t,
		Members:    g.members,
		ViewNumber: g.viewNumber,
		ViewTime:   g.viewTime,
		Preferred:  g.preferred,
	})
	if err != nil {
		return err
	}

	g.lastTime = t

	return nil
}

func (g *Group) viewLocked(now time.Time) gossip.Bitset {
	members := gossip.NewBitset(g.width).With(gossip.SlotOf(g.local, g.width))

	for addr, m := range g.roster {
		if now.Sub(m.LastSeen) <= g.timeout {
			members = members.With(gossip.SlotOf(addr, g.width))
		}
	}

	return members
}

func (g *Group) pruneLocked(now time.Time) {
	if g.forget <= 0 {
		return
	}

	for addr, m := range g.roster {
		if now.Sub(m.LastSeen) > g.forget {
			delete(g.roster, addr)
			level.Info(g.logger).Log("msg", "member removed", "addr", addr, "id", m.ID)
		}
	}
}

// ReceiveHeartbeat records the heartbeat of another member. Heartbeats that
// carry the identity of the local process but come from another address
// are refused, so that no further heartbeats of the impostor are delivered.
func (g *Group) ReceiveHeartbeat(state *gossip.HeartbeatState) bool {
	g.mut.Lock()
	defer g.mut.Unlock()

	if state.Addr == g.local {
		return true
	}

	if state.Sender == g.id {
		level.Error(g.logger).Log(
			"msg", "another node uses the identity of this node",
			"addr", state.Addr,
			"id", state.Sender,
		)

		return false
	}

	now := g.now()

	if m, ok := g.roster[state.Addr]; ok {
		if m.ID != state.Sender {
			level.Info(g.logger).Log("msg", "member restarted", "addr", state.Addr, "id", state.Sender)
		} else if state.Time <= m.Time {
			return true
		}
	} else {
		level.Info(g.logger).Log("msg", "member joined", "addr", state.Addr, "id", state.Sender)
	}

	member := memberFromState(state, now)
	g.roster[state.Addr] = &member

	return true
}

// IsNotTimely reports whether some member of the roster has not sent a
// heartbeat within the timeout.
func (g *Group) IsNotTimely(now time.Time) bool {
	g.mut.RLock()
	defer g.mut.RUnlock()

	for _, m := range g.roster {
		if now.Sub(m.LastSeen) > g.timeout {
			return true
		}
	}

	return false
}

// Members returns the roster ordered by address, with the status of every
// member as of now.
func (g *Group) Members() []Member {
	now := g.now()

	g.mut.RLock()
	defer g.mut.RUnlock()

	members := make([]Member, 0, len(g.roster))

	for _, m := range g.roster {
		member := *m
		if now.Sub(m.LastSeen) > g.timeout {
			member.Status = StatusFaulty
		}

		members = append(members, member)
	}

	generic.SortSliceFunc(members, func(a, b Member) int {
		return a.Addr.Compare(b.Addr)
	})

	return members
}

// View returns the number and the membership bitset of the installed view.
func (g *Group) View() (uint64, gossip.Bitset) {
	g.mut.RLock()
	defer g.mut.RUnlock()

	return g.viewNumber, g.members
}
