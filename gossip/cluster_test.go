package gossip_test

import (
	"fmt"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxpoletaev/gms/gossip"
	"github.com/maxpoletaev/gms/transport/memory"
)

// deliveryLog records the heartbeat times delivered per sender.
type deliveryLog struct {
	mut   sync.Mutex
	times map[netip.AddrPort][]int64
}

func newDeliveryLog() *deliveryLog {
	return &deliveryLog{times: make(map[netip.AddrPort][]int64)}
}

func (l *deliveryLog) ReceiveHeartbeat(state *gossip.HeartbeatState) bool {
	l.mut.Lock()
	defer l.mut.Unlock()

	l.times[state.Addr] = append(l.times[state.Addr], state.Time)

	return true
}

func (l *deliveryLog) snapshot() map[netip.AddrPort][]int64 {
	l.mut.Lock()
	defer l.mut.Unlock()

	res := make(map[netip.AddrPort][]int64, len(l.times))
	for addr, times := range l.times {
		res[addr] = append([]int64(nil), times...)
	}

	return res
}

type testNode struct {
	addr     netip.AddrPort
	gossiper *gossip.Gossiper
	log      *deliveryLog

	mut      sync.Mutex
	time     int64
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (n *testNode) beat() error {
	n.mut.Lock()
	defer n.mut.Unlock()

	n.time++

	return n.gossiper.SendHeartbeat(gossip.HeartbeatState{Time: n.time})
}

func (n *testNode) startBeating(interval time.Duration) {
	go func() {
		defer close(n.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = n.beat()
			case <-n.stop:
				return
			}
		}
	}()
}

func (n *testNode) stopBeating() {
	n.stopOnce.Do(func() {
		close(n.stop)
		<-n.done
	})
}

func (n *testNode) shutdown() {
	n.stopBeating()
	_ = n.gossiper.Terminate()
}

func nodeAddr(i int) netip.AddrPort {
	return netip.MustParseAddrPort(fmt.Sprintf("10.1.0.%d:7000", i+1))
}

func createNode(t *testing.T, network *memory.Network, addr netip.AddrPort, seeds ...netip.AddrPort) *testNode {
	t.Helper()

	tr, err := network.Transport(addr, nil)
	require.NoError(t, err)

	conf := gossip.DefaultConfig()
	conf.Transport = tr
	conf.Seeds = seeds
	conf.Interval = 20 * time.Millisecond
	conf.InitialInterval = 200 * time.Millisecond
	conf.ConvictThreshold = 5
	conf.QuarantineDelay = 300 * time.Millisecond
	conf.UnreachableTTL = 1500 * time.Millisecond
	conf.DialTimeout = time.Second

	node := &testNode{
		addr: addr,
		log:  newDeliveryLog(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	conf.Receiver = node.log

	g, err := gossip.New(conf)
	require.NoError(t, err)

	node.gossiper = g

	require.NoError(t, node.beat())
	require.NoError(t, g.Start())

	node.startBeating(50 * time.Millisecond)
	t.Cleanup(node.shutdown)

	return node
}

func createCluster(t *testing.T, network *memory.Network, size int) []*testNode {
	t.Helper()

	seed := nodeAddr(0)
	nodes := make([]*testNode, size)

	for i := range nodes {
		nodes[i] = createNode(t, network, nodeAddr(i), seed)
	}

	return nodes
}

func allLive(nodes []*testNode, expected int) bool {
	for _, n := range nodes {
		if n.gossiper.View().LiveCount() != expected {
			return false
		}
	}

	return true
}

func TestCluster_Converges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping cluster test in short mode")
	}

	network := memory.NewNetwork()
	nodes := createCluster(t, network, 8)

	require.Eventually(t, func() bool {
		return allLive(nodes, len(nodes)-1)
	}, 10*time.Second, 20*time.Millisecond, "every node sees all others as live")

	for _, n := range nodes {
		n.shutdown()
	}

	// Nothing is delivered twice or out of order.
	for _, n := range nodes {
		for sender, times := range n.log.snapshot() {
			assert.NotEqual(t, n.addr, sender, "own heartbeats are not delivered")

			for i := 1; i < len(times); i++ {
				assert.Greater(t, times[i], times[i-1], "deliveries from %s to %s", sender, n.addr)
			}
		}
	}

	delivered, _ := network.Stats()
	assert.Positive(t, delivered)
}

func TestCluster_StateHashConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping cluster test in short mode")
	}

	network := memory.NewNetwork()
	nodes := createCluster(t, network, 4)

	require.Eventually(t, func() bool {
		return allLive(nodes, len(nodes)-1)
	}, 10*time.Second, 20*time.Millisecond)

	// Stop the heartbeats but keep gossiping, so the states settle.
	for _, n := range nodes {
		n.stopBeating()
	}

	require.Eventually(t, func() bool {
		first := nodes[0].gossiper.StateHash()
		for _, n := range nodes[1:] {
			if n.gossiper.StateHash() != first {
				return false
			}
		}

		return true
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCluster_DeadNodeEvicted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping cluster test in short mode")
	}

	network := memory.NewNetwork()
	nodes := createCluster(t, network, 4)

	require.Eventually(t, func() bool {
		return allLive(nodes, len(nodes)-1)
	}, 10*time.Second, 20*time.Millisecond)

	dead := nodes[3]
	observers := nodes[:3]

	network.Disconnect(dead.addr)
	dead.shutdown()

	for _, n := range observers {
		require.Eventually(t, func() bool {
			_, unreachable := n.gossiper.View().Unreachable()[dead.addr]
			return unreachable && !n.gossiper.View().IsLive(dead.addr)
		}, 10*time.Second, 10*time.Millisecond, "%s convicts the dead node", n.addr)
	}

	for _, n := range observers {
		require.Eventually(t, func() bool {
			_, known := n.gossiper.Endpoint(dead.addr)
			return !known && n.gossiper.View().Status(dead.addr) == gossip.StatusUnknown
		}, 10*time.Second, 10*time.Millisecond, "%s forgets the dead node", n.addr)
	}

	for _, n := range observers {
		assert.Equal(t, len(observers)-1, n.gossiper.View().LiveCount())
	}
}

func TestCluster_SeedStartsLate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping cluster test in short mode")
	}

	network := memory.NewNetwork()
	seed := nodeAddr(0)

	// The nodes come up while the seed is not there yet.
	nodes := []*testNode{
		createNode(t, network, nodeAddr(1), seed),
		createNode(t, network, nodeAddr(2), seed),
	}

	time.Sleep(100 * time.Millisecond)

	for _, n := range nodes {
		require.Equal(t, 0, n.gossiper.View().LiveCount())
	}

	nodes = append(nodes, createNode(t, network, seed, seed))

	require.Eventually(t, func() bool {
		return allLive(nodes, len(nodes)-1)
	}, 10*time.Second, 20*time.Millisecond, "the nodes join through the late seed")
}
