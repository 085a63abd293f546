package gossip

import (
	"net/netip"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitset(t *testing.T) {
	b := BitsetOf(1, 64, 130)

	assert.True(t, b.Has(1))
	assert.True(t, b.Has(64))
	assert.True(t, b.Has(130))
	assert.False(t, b.Has(2))
	assert.False(t, b.Has(-1))
	assert.False(t, b.Has(1000))
	assert.Equal(t, 3, b.Count())
	assert.Equal(t, 192, b.Len())
	assert.Equal(t, []int{1, 64, 130}, b.Indexes())

	c := b.Without(64)
	assert.True(t, b.Has(64), "the original is not modified")
	assert.False(t, c.Has(64))
	assert.Equal(t, []int{1, 130}, c.Indexes())

	d := b.With(2)
	assert.False(t, b.Has(2))
	assert.True(t, d.Has(2))
}

func TestBitset_Equal(t *testing.T) {
	tests := map[string]struct {
		a, b Bitset
		want bool
	}{
		"both empty": {
			a:    Bitset{},
			b:    NewBitset(128),
			want: true,
		},
		"different capacity": {
			a:    BitsetOf(3),
			b:    NewBitset(256).With(3),
			want: true,
		},
		"different bits": {
			a:    BitsetOf(3),
			b:    BitsetOf(4),
			want: false,
		},
		"extra high bit": {
			a:    BitsetOf(3),
			b:    BitsetOf(3, 200),
			want: false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestBitset_Bytes(t *testing.T) {
	b := BitsetOf(0, 63, 70)

	got, err := BitsetFromBytes(b.Bytes())
	require.NoError(t, err)
	assert.True(t, b.Equal(got))

	_, err = BitsetFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)

	empty, err := BitsetFromBytes(nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Count())
}

func TestSlotOf(t *testing.T) {
	addr := netip.MustParseAddrPort("192.168.1.10:7946")

	slot := SlotOf(addr, 64)
	assert.GreaterOrEqual(t, slot, 0)
	assert.Less(t, slot, 64)
	assert.Equal(t, slot, SlotOf(addr, 64), "slots are stable")
	assert.Equal(t, 0, SlotOf(addr, 0))
}

func TestHeartbeatState_Hash64(t *testing.T) {
	base := HeartbeatState{
		Sender:     uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Addr:       addrB,
		Time:       10,
		Members:    BitsetOf(1, 2),
		ViewNumber: 3,
		ViewTime:   100,
	}

	same := base
	assert.Equal(t, base.Hash64(), same.Hash64())

	tests := map[string]func(s *HeartbeatState){
		"time":      func(s *HeartbeatState) { s.Time++ },
		"addr":      func(s *HeartbeatState) { s.Addr = addrC },
		"members":   func(s *HeartbeatState) { s.Members = BitsetOf(1) },
		"view":      func(s *HeartbeatState) { s.ViewNumber++ },
		"preferred": func(s *HeartbeatState) { s.Preferred = true },
		"sender":    func(s *HeartbeatState) { s.Sender = uuid.Nil },
	}

	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			changed := base
			modify(&changed)
			assert.NotEqual(t, base.Hash64(), changed.Hash64())
		})
	}
}

func TestNewDiscoveryState(t *testing.T) {
	s := NewDiscoveryState(addrB)

	assert.True(t, s.DiscoveryOnly)
	assert.Equal(t, addrB, s.Addr)
	assert.True(t, s.NewerThan(-2))
	assert.False(t, s.NewerThan(-1))
}
