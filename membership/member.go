package membership

import (
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/maxpoletaev/gms/gossip"
)

type Member struct {
	// ID is the identity of the process behind the address. It changes when
	// the process restarts.
	ID uuid.UUID
	// Addr is the gossip address of the member.
	Addr netip.AddrPort
	// Time is the logical time of the latest heartbeat received from the member.
	Time int64
	// ViewNumber is the number of the view installed by the member.
	ViewNumber uint64
	// Members is the membership bitset of the installed view.
	Members gossip.Bitset
	// Preferred is set by members that volunteer to be contacted first.
	Preferred bool
	// LastSeen is the local time the latest heartbeat was received at.
	LastSeen time.Time
	// Status tells whether the member is heard from often enough.
	Status Status
}

func memberFromState(state *gossip.HeartbeatState, now time.Time) Member {
	return Member{
		ID:         state.Sender,
		Addr:       state.Addr,
		Time:       state.Time,
		ViewNumber: state.ViewNumber,
		Members:    state.Members,
		Preferred:  state.Preferred,
		LastSeen:   now,
		Status:     StatusHealthy,
	}
}

// IsReacheable returns true if the member has been heard from recently.
func (m *Member) IsReacheable() bool {
	return m.Status == StatusHealthy
}
