package membership

//go:generate mockgen -source=facilities.go -destination=facilities_mock_test.go -package=membership

import (
	"net/netip"
	"time"

	"github.com/maxpoletaev/gms/gossip"
)

// Heartbeater publishes the heartbeats of the local node. It is implemented
// by *gossip.Gossiper.
type Heartbeater interface {
	LocalAddr() netip.AddrPort
	SendHeartbeat(hb gossip.HeartbeatState) error
}

// Protocol is the capability a heartbeat-driven membership protocol offers
// on top of the gossip engine.
type Protocol interface {
	gossip.Receiver

	// IsNotTimely reports whether some known member has not been heard from
	// within the expected time.
	IsNotTimely(now time.Time) bool

	// Terminate stops producing heartbeats.
	Terminate()
}

var (
	_ Heartbeater = (*gossip.Gossiper)(nil)
	_ Protocol    = (*Group)(nil)
)
