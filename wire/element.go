package wire

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/maxpoletaev/gms/gossip"
)

// ErrMalformed is returned when a digest, a state or a message envelope
// cannot be decoded.
var ErrMalformed = errors.New("malformed input")

// Field numbers follow the protobuf wire format, so that the elements can be
// described by a .proto schema and decoded by other tools. Unknown fields
// are skipped, which allows adding fields without breaking older nodes.
const (
	digestAddr protowire.Number = 1
	digestTime protowire.Number = 2

	stateSender        protowire.Number = 1
	stateAddr          protowire.Number = 2
	stateTime          protowire.Number = 3
	stateMembers       protowire.Number = 4
	stateViewNumber    protowire.Number = 5
	stateViewTime      protowire.Number = 6
	stateDiscoveryOnly protowire.Number = 7
	statePreferred     protowire.Number = 8
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// fieldFunc consumes the value of a single field and returns the number of
// bytes read, or ok=false if the field is not recognized.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (n int, ok bool, err error)

func walkFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed("tag: %v", protowire.ParseError(n))
		}

		b = b[n:]

		n, ok, err := fn(num, typ, b)
		if err != nil {
			return err
		}

		if !ok {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}

		if n < 0 {
			return malformed("field %d: %v", num, protowire.ParseError(n))
		}

		b = b[n:]
	}

	return nil
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendAddr(b []byte, num protowire.Number, addr netip.AddrPort) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, addr.String())
}

func consumeAddr(typ protowire.Type, b []byte) (netip.AddrPort, int, error) {
	if typ != protowire.BytesType {
		return netip.AddrPort{}, 0, malformed("address: unexpected wire type %d", typ)
	}

	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return netip.AddrPort{}, n, nil
	}

	addr, err := netip.ParseAddrPort(string(v))
	if err != nil {
		return netip.AddrPort{}, 0, malformed("address: %v", err)
	}

	return addr, n, nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, malformed("unexpected wire type %d", typ)
	}

	v, n := protowire.ConsumeVarint(b)

	return v, n, nil
}

// AppendDigest appends the encoded digest to b.
func AppendDigest(b []byte, d gossip.Digest) []byte {
	b = appendAddr(b, digestAddr, d.Addr)
	b = appendSint(b, digestTime, d.Time)

	return b
}

// ParseDigest decodes a digest produced by AppendDigest.
func ParseDigest(b []byte) (gossip.Digest, error) {
	var d gossip.Digest

	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch num {
		case digestAddr:
			addr, n, err := consumeAddr(typ, b)
			d.Addr = addr

			return n, true, err
		case digestTime:
			v, n, err := consumeVarint(typ, b)
			d.Time = protowire.DecodeZigZag(v)

			return n, true, err
		}

		return 0, false, nil
	})
	if err != nil {
		return gossip.Digest{}, err
	}

	if !d.Addr.IsValid() {
		return gossip.Digest{}, malformed("digest without address")
	}

	return d, nil
}

// AppendState appends the encoded heartbeat state to b.
func AppendState(b []byte, s *gossip.HeartbeatState) []byte {
	b = protowire.AppendTag(b, stateSender, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Sender[:])
	b = appendAddr(b, stateAddr, s.Addr)
	b = appendSint(b, stateTime, s.Time)

	if members := s.Members.Bytes(); len(members) > 0 {
		b = protowire.AppendTag(b, stateMembers, protowire.BytesType)
		b = protowire.AppendBytes(b, members)
	}

	b = protowire.AppendTag(b, stateViewNumber, protowire.VarintType)
	b = protowire.AppendVarint(b, s.ViewNumber)
	b = appendSint(b, stateViewTime, s.ViewTime)
	b = appendBool(b, stateDiscoveryOnly, s.DiscoveryOnly)
	b = appendBool(b, statePreferred, s.Preferred)

	return b
}

// ParseState decodes a heartbeat state produced by AppendState.
func ParseState(b []byte) (*gossip.HeartbeatState, error) {
	s := &gossip.HeartbeatState{}

	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch num {
		case stateSender:
			if typ != protowire.BytesType {
				return 0, true, malformed("sender: unexpected wire type %d", typ)
			}

			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, true, nil
			}

			id, err := uuid.FromBytes(v)
			if err != nil {
				return 0, true, malformed("sender: %v", err)
			}

			s.Sender = id

			return n, true, nil
		case stateAddr:
			addr, n, err := consumeAddr(typ, b)
			s.Addr = addr

			return n, true, err
		case stateTime:
			v, n, err := consumeVarint(typ, b)
			s.Time = protowire.DecodeZigZag(v)

			return n, true, err
		case stateMembers:
			if typ != protowire.BytesType {
				return 0, true, malformed("members: unexpected wire type %d", typ)
			}

			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, true, nil
			}

			members, err := gossip.BitsetFromBytes(v)
			if err != nil {
				return 0, true, malformed("members: %v", err)
			}

			s.Members = members

			return n, true, nil
		case stateViewNumber:
			v, n, err := consumeVarint(typ, b)
			s.ViewNumber = v

			return n, true, err
		case stateViewTime:
			v, n, err := consumeVarint(typ, b)
			s.ViewTime = protowire.DecodeZigZag(v)

			return n, true, err
		case stateDiscoveryOnly:
			v, n, err := consumeVarint(typ, b)
			s.DiscoveryOnly = protowire.DecodeBool(v)

			return n, true, err
		case statePreferred:
			v, n, err := consumeVarint(typ, b)
			s.Preferred = protowire.DecodeBool(v)

			return n, true, err
		}

		return 0, false, nil
	})
	if err != nil {
		return nil, err
	}

	if !s.Addr.IsValid() {
		return nil, malformed("state without address")
	}

	return s, nil
}
