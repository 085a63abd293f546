package gossip

import (
	"math/rand"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxpoletaev/gms/internal/generic"
	"github.com/maxpoletaev/gms/internal/set"
)

// Dice is a source of pseudo-random numbers used to pick gossip targets.
// *rand.Rand satisfies it.
type Dice interface {
	Float64() float64
	Intn(n int) int
}

type lockedDice struct {
	mut  sync.Mutex
	dice Dice
}

func (d *lockedDice) Float64() float64 {
	d.mut.Lock()
	defer d.mut.Unlock()

	return d.dice.Float64()
}

func (d *lockedDice) Intn(n int) int {
	d.mut.Lock()
	defer d.mut.Unlock()

	return d.dice.Intn(n)
}

// Status is the position of an address in the system view.
type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusLive        Status = "live"
	StatusUnreachable Status = "unreachable"
	StatusQuarantined Status = "quarantined"
)

type ViewConfig struct {
	Local           netip.AddrPort
	Seeds           []netip.AddrPort
	QuarantineDelay time.Duration
	UnreachableTTL  time.Duration
	Dice            Dice
}

// View keeps track of which addresses are live, unreachable or quarantined,
// and selects gossip targets among them. All methods are safe for concurrent
// use.
type View struct {
	local           netip.AddrPort
	quarantineDelay time.Duration
	unreachableTTL  time.Duration
	dice            *lockedDice

	seeds    set.Set[netip.AddrPort]
	seedList []netip.AddrPort

	live        generic.SyncMap[netip.AddrPort, struct{}]
	unreachable generic.SyncMap[netip.AddrPort, time.Time]
	quarantined generic.SyncMap[netip.AddrPort, time.Time]

	liveCount        atomic.Int64
	unreachableCount atomic.Int64
	quarantinedCount atomic.Int64
}

func NewView(conf ViewConfig) *View {
	seeds := set.New(conf.Seeds...).Without(conf.Local)
	seedList := seeds.Values()
	sortAddrs(seedList)

	dice := conf.Dice
	if dice == nil {
		dice = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &View{
		local:           conf.Local,
		quarantineDelay: conf.QuarantineDelay,
		unreachableTTL:  conf.UnreachableTTL,
		dice:            &lockedDice{dice: dice},
		seeds:           seeds,
		seedList:        seedList,
	}
}

func sortAddrs(addrs []netip.AddrPort) {
	generic.SortSliceFunc(addrs, func(a, b netip.AddrPort) int {
		return a.Compare(b)
	})
}

// MarkAlive moves the address into the live set.
func (v *View) MarkAlive(addr netip.AddrPort) {
	if _, loaded := v.live.LoadOrStore(addr, struct{}{}); !loaded {
		v.liveCount.Add(1)
	}

	if _, loaded := v.unreachable.LoadAndDelete(addr); loaded {
		v.unreachableCount.Add(-1)
	}
}

// MarkDead moves the address out of the live set into the unreachable set,
// and starts its quarantine.
func (v *View) MarkDead(addr netip.AddrPort, now time.Time) {
	if _, loaded := v.live.LoadAndDelete(addr); loaded {
		v.liveCount.Add(-1)
	}

	if _, loaded := v.unreachable.LoadOrStore(addr, now); !loaded {
		v.unreachableCount.Add(1)
	}

	if _, loaded := v.quarantined.LoadOrStore(addr, now); loaded {
		v.quarantined.Store(addr, now)
	} else {
		v.quarantinedCount.Add(1)
	}
}

// CullQuarantined ends the quarantine of the addresses that have been in it
// for longer than the quarantine delay, and returns them.
func (v *View) CullQuarantined(now time.Time) []netip.AddrPort {
	var culled []netip.AddrPort

	v.quarantined.Range(func(addr netip.AddrPort, since time.Time) bool {
		if now.Sub(since) > v.quarantineDelay && v.quarantined.CompareAndDelete(addr, since) {
			v.quarantinedCount.Add(-1)
			culled = append(culled, addr)
		}

		return true
	})

	return culled
}

// CullUnreachable forgets the addresses that have been unreachable for
// longer than the unreachable TTL, and returns them.
func (v *View) CullUnreachable(now time.Time) []netip.AddrPort {
	var culled []netip.AddrPort

	v.unreachable.Range(func(addr netip.AddrPort, since time.Time) bool {
		if now.Sub(since) > v.unreachableTTL && v.unreachable.CompareAndDelete(addr, since) {
			v.unreachableCount.Add(-1)

			if _, loaded := v.quarantined.LoadAndDelete(addr); loaded {
				v.quarantinedCount.Add(-1)
			}

			culled = append(culled, addr)
		}

		return true
	})

	return culled
}

// IsQuarantined reports whether the address is in quarantine. Quarantined
// addresses are never selected as gossip targets and their states are not
// accepted.
func (v *View) IsQuarantined(addr netip.AddrPort) bool {
	_, ok := v.quarantined.Load(addr)
	return ok
}

func (v *View) IsLive(addr netip.AddrPort) bool {
	_, ok := v.live.Load(addr)
	return ok
}

func (v *View) IsSeed(addr netip.AddrPort) bool {
	return v.seeds.Has(addr)
}

// Status returns the most specific status of the address.
func (v *View) Status(addr netip.AddrPort) Status {
	switch {
	case v.IsQuarantined(addr):
		return StatusQuarantined
	case v.IsLive(addr):
		return StatusLive
	}

	if _, ok := v.unreachable.Load(addr); ok {
		return StatusUnreachable
	}

	return StatusUnknown
}

func (v *View) LiveCount() int {
	return int(v.liveCount.Load())
}

func (v *View) UnreachableCount() int {
	return int(v.unreachableCount.Load())
}

func (v *View) QuarantinedCount() int {
	return int(v.quarantinedCount.Load())
}

// Live returns the sorted list of live addresses.
func (v *View) Live() []netip.AddrPort {
	addrs := v.live.Keys()
	sortAddrs(addrs)

	return addrs
}

// Unreachable returns a copy of the unreachable addresses with the time they
// were declared dead.
func (v *View) Unreachable() map[netip.AddrPort]time.Time {
	return v.snapshot(&v.unreachable)
}

// Quarantined returns a copy of the quarantined addresses with the time
// their quarantine started.
func (v *View) Quarantined() map[netip.AddrPort]time.Time {
	return v.snapshot(&v.quarantined)
}

func (v *View) snapshot(m *generic.SyncMap[netip.AddrPort, time.Time]) map[netip.AddrPort]time.Time {
	res := make(map[netip.AddrPort]time.Time)

	m.Range(func(addr netip.AddrPort, since time.Time) bool {
		res[addr] = since
		return true
	})

	return res
}

// Seeds returns the sorted list of seed addresses, excluding the local one.
func (v *View) Seeds() []netip.AddrPort {
	seeds := make([]netip.AddrPort, len(v.seedList))
	copy(seeds, v.seedList)

	return seeds
}

func (v *View) targets(addrs []netip.AddrPort, exclude netip.AddrPort) []netip.AddrPort {
	targets := make([]netip.AddrPort, 0, len(addrs))

	for _, addr := range addrs {
		if addr == v.local || addr == exclude || v.IsQuarantined(addr) {
			continue
		}

		targets = append(targets, addr)
	}

	sortAddrs(targets)

	return targets
}

func (v *View) pick(targets []netip.AddrPort) (netip.AddrPort, bool) {
	if len(targets) == 0 {
		return netip.AddrPort{}, false
	}

	return targets[v.dice.Intn(len(targets))], true
}

// RandomLiveMember picks a uniformly random live address.
func (v *View) RandomLiveMember() (netip.AddrPort, bool) {
	return v.pick(v.targets(v.live.Keys(), netip.AddrPort{}))
}

// RandomUnreachableMember gives unreachable addresses a chance to prove they
// are alive again. With probability |unreachable| / (|live| + 1) it picks a
// uniformly random unreachable address.
func (v *View) RandomUnreachableMember() (netip.AddrPort, bool) {
	unreachable := v.UnreachableCount()
	if unreachable == 0 {
		return netip.AddrPort{}, false
	}

	prob := float64(unreachable) / float64(v.LiveCount()+1)
	if v.dice.Float64() >= prob {
		return netip.AddrPort{}, false
	}

	return v.pick(v.targets(v.unreachable.Keys(), netip.AddrPort{}))
}

// RandomSeedMember decides whether a seed should be gossiped to in addition
// to the already contacted address, and picks it. Nothing is picked when the
// contacted address is a seed itself, or when the live set already holds at
// least as many members as there are seeds. Otherwise a seed other than the
// contacted one is picked with probability |seeds| / (|live| + |unreachable|),
// which favors the seeds while the cluster view is still small.
//
// The dice is rolled once with Float64 to make the decision and then once
// with Intn to pick among the eligible seeds in address order.
func (v *View) RandomSeedMember(contacted netip.AddrPort) (netip.AddrPort, bool) {
	if len(v.seedList) == 0 || v.seeds.Has(contacted) {
		return netip.AddrPort{}, false
	}

	live := v.LiveCount()
	if live >= len(v.seedList) {
		return netip.AddrPort{}, false
	}

	prob := 1.0
	if total := live + v.UnreachableCount(); total > 0 {
		prob = float64(len(v.seedList)) / float64(total)
	}

	if v.dice.Float64() >= prob {
		return netip.AddrPort{}, false
	}

	return v.pick(v.targets(v.seedList, contacted))
}
