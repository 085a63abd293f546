package handler

//go:generate mockgen -source=facilities.go -destination=mock/facilities_mock.go -package=mock

import (
	"net/netip"

	"github.com/maxpoletaev/gms/gossip"
	"github.com/maxpoletaev/gms/membership"
)

// Cluster is the gossip side of the node, implemented by *gossip.Gossiper.
type Cluster interface {
	LocalAddr() netip.AddrPort
	Endpoints() []gossip.EndpointInfo
	View() *gossip.View
	StateHash() uint64
}

// Group is the membership side of the node, implemented by *membership.Group.
type Group interface {
	Members() []membership.Member
	View() (uint64, gossip.Bitset)
}

var (
	_ Cluster = (*gossip.Gossiper)(nil)
	_ Group   = (*membership.Group)(nil)
)
