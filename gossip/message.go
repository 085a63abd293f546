package gossip

import (
	"fmt"
	"net/netip"
)

// Digest summarizes what a node knows about one endpoint: its address and
// the logical time of the latest known state.
type Digest struct {
	Addr netip.AddrPort
	Time int64
}

func (d Digest) String() string {
	return fmt.Sprintf("%s:%d", d.Addr, d.Time)
}

type MessageType uint8

const (
	// MessageGossip carries the digests of the initiator.
	MessageGossip MessageType = iota + 1

	// MessageReply carries the digests the peer wants updates for, and the
	// states the initiator is missing.
	MessageReply

	// MessageUpdate carries the states requested in the reply.
	MessageUpdate
)

func (t MessageType) String() string {
	switch t {
	case MessageGossip:
		return "gossip"
	case MessageReply:
		return "reply"
	case MessageUpdate:
		return "update"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

// Valid reports whether the type is one of the known message types.
func (t MessageType) Valid() bool {
	return t >= MessageGossip && t <= MessageUpdate
}

// Message is a single protocol message. Messages are never modified once
// handed to a transport, so the same message can be sent to several peers.
type Message struct {
	Type    MessageType
	From    netip.AddrPort
	Digests []Digest
	States  []*HeartbeatState
}
