package udp

import (
	"net/netip"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/maxpoletaev/gms/gossip"
)

func TestUDPTransport_ClusterBeyondOneDatagram(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping cluster test in short mode")
	}

	const (
		size       = 16
		maxPayload = 512
	)

	gossipers := make([]*gossip.Gossiper, size)

	var seed netip.AddrPort

	for i := range gossipers {
		tr := createTransport(t, maxPayload)
		if i == 0 {
			seed = tr.LocalAddr()
		}

		conf := gossip.DefaultConfig()
		conf.Transport = tr
		conf.Seeds = []netip.AddrPort{seed}
		conf.Interval = 20 * time.Millisecond

		g, err := gossip.New(conf)
		require.NoError(t, err)

		require.NoError(t, g.SendHeartbeat(gossip.HeartbeatState{
			Sender:  uuid.New(),
			Time:    1,
			Members: gossip.NewBitset(256).With(i),
		}))

		require.NoError(t, g.Start())
		t.Cleanup(func() { _ = g.Terminate() })

		gossipers[i] = g
	}

	// The full set of states is several times larger than a datagram.
	require.Eventually(t, func() bool {
		for _, g := range gossipers {
			if g.View().LiveCount() != size-1 {
				return false
			}
		}

		return true
	}, 10*time.Second, 20*time.Millisecond)
}
