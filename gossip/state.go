package gossip

import (
	"encoding/binary"
	"net/netip"

	"github.com/google/uuid"
	"github.com/twmb/murmur3"
)

// HeartbeatState is the replicated payload of one node. It is treated as
// immutable: a newer state replaces the previous one as a whole, so readers
// holding a reference always observe a consistent snapshot.
type HeartbeatState struct {
	// Sender is the identity of the process that produced the heartbeat.
	Sender uuid.UUID

	// Addr is the address the heartbeat belongs to.
	Addr netip.AddrPort

	// Time is the logical time of the heartbeat. For a given address it only
	// ever grows.
	Time int64

	// Members is the membership view installed by the sender.
	Members Bitset

	// ViewNumber and ViewTime identify the installed view.
	ViewNumber uint64
	ViewTime   int64

	// DiscoveryOnly marks a placeholder used to contact an address before
	// anything is known about it. Placeholders are never delivered to the
	// application nor sent to other nodes.
	DiscoveryOnly bool

	Preferred bool
}

// NewDiscoveryState returns a placeholder state for the address.
func NewDiscoveryState(addr netip.AddrPort) *HeartbeatState {
	return &HeartbeatState{
		Addr:          addr,
		Time:          -1,
		DiscoveryOnly: true,
	}
}

// NewerThan reports whether the state is strictly newer than the given
// logical time.
func (s *HeartbeatState) NewerThan(t int64) bool {
	return s.Time > t
}

// Hash64 returns a fingerprint of the state. Two states are considered
// the same if their fingerprints match.
func (s *HeartbeatState) Hash64() uint64 {
	h := murmur3.New64()

	var buf [8]byte

	writeUint := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	writeBool := func(v bool) {
		if v {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}

	h.Write(s.Sender[:])
	h.Write([]byte(s.Addr.String()))
	writeUint(uint64(s.Time))
	writeUint(uint64(len(s.Members.words)))

	for _, w := range s.Members.words {
		writeUint(w)
	}

	writeUint(s.ViewNumber)
	writeUint(uint64(s.ViewTime))
	writeBool(s.DiscoveryOnly)
	writeBool(s.Preferred)

	return h.Sum64()
}
