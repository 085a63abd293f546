package gossip

import (
	"encoding/binary"
	"errors"
	"math/bits"
	"net/netip"

	"github.com/twmb/murmur3"
)

var errBitsetLength = errors.New("bitset length must be a multiple of 8")

// Bitset is an immutable set of small non-negative integers, used to
// describe the membership view a node has installed. Modifying methods
// return a new value and never touch the receiver.
type Bitset struct {
	words []uint64
}

// NewBitset returns an empty bitset with room for n bits.
func NewBitset(n int) Bitset {
	if n <= 0 {
		return Bitset{}
	}

	return Bitset{words: make([]uint64, (n+63)/64)}
}

// BitsetOf returns a bitset with the given bits set.
func BitsetOf(idx ...int) Bitset {
	var b Bitset
	for _, i := range idx {
		b = b.With(i)
	}

	return b
}

// With returns a copy of the bitset with bit i set.
func (b Bitset) With(i int) Bitset {
	if i < 0 {
		return b
	}

	n := len(b.words)
	if need := i/64 + 1; need > n {
		n = need
	}

	words := make([]uint64, n)
	copy(words, b.words)
	words[i/64] |= 1 << (uint(i) % 64)

	return Bitset{words: words}
}

// Without returns a copy of the bitset with bit i cleared.
func (b Bitset) Without(i int) Bitset {
	if !b.Has(i) {
		return b
	}

	words := make([]uint64, len(b.words))
	copy(words, b.words)
	words[i/64] &^= 1 << (uint(i) % 64)

	return Bitset{words: words}
}

// Has reports whether bit i is set.
func (b Bitset) Has(i int) bool {
	if i < 0 || i/64 >= len(b.words) {
		return false
	}

	return b.words[i/64]&(1<<(uint(i)%64)) != 0
}

// Count returns the number of bits set.
func (b Bitset) Count() int {
	var n int
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}

	return n
}

// Len returns the capacity of the bitset in bits.
func (b Bitset) Len() int {
	return len(b.words) * 64
}

// Indexes returns the set bits in ascending order.
func (b Bitset) Indexes() []int {
	var idx []int

	for wi, w := range b.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			idx = append(idx, wi*64+tz)
			w &^= 1 << uint(tz)
		}
	}

	return idx
}

// Equal reports whether both bitsets have the same bits set, regardless of
// their capacity.
func (b Bitset) Equal(other Bitset) bool {
	short, long := b.words, other.words
	if len(short) > len(long) {
		short, long = long, short
	}

	for i := range short {
		if short[i] != long[i] {
			return false
		}
	}

	for _, w := range long[len(short):] {
		if w != 0 {
			return false
		}
	}

	return true
}

// Bytes returns the big-endian representation of the bitset.
func (b Bitset) Bytes() []byte {
	if len(b.words) == 0 {
		return nil
	}

	buf := make([]byte, len(b.words)*8)
	for i, w := range b.words {
		binary.BigEndian.PutUint64(buf[i*8:], w)
	}

	return buf
}

// BitsetFromBytes is the inverse of Bitset.Bytes.
func BitsetFromBytes(p []byte) (Bitset, error) {
	if len(p)%8 != 0 {
		return Bitset{}, errBitsetLength
	}

	if len(p) == 0 {
		return Bitset{}, nil
	}

	words := make([]uint64, len(p)/8)
	for i := range words {
		words[i] = binary.BigEndian.Uint64(p[i*8:])
	}

	return Bitset{words: words}, nil
}

// SlotOf maps an address onto one of width bitset slots. Every node computes
// the same slot for the same address, so bitsets built on different nodes
// are comparable. Distinct addresses may share a slot.
func SlotOf(addr netip.AddrPort, width int) int {
	if width <= 0 {
		return 0
	}

	return int(murmur3.Sum64([]byte(addr.String())) % uint64(width))
}
