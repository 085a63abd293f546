package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"github.com/maxpoletaev/gms/gossip"
	"github.com/maxpoletaev/gms/internal/binario"
	"github.com/maxpoletaev/gms/internal/multierror"
)

const (
	protocolVersion = 1

	// maxElementSize bounds a single encoded digest or state.
	maxElementSize = 64 * 1024
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrVersion        = errors.New("unsupported protocol version")
)

// Encode serializes the message. The envelope holds the protocol version,
// the message type and the sender address, followed by the length-prefixed
// digests and states, so that a corrupted element can be skipped without
// losing the rest of the message.
func Encode(msg *gossip.Message) ([]byte, error) {
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, msg.Type)
	}

	buf := &bytes.Buffer{}
	w := binario.NewWriter(buf, binary.BigEndian)

	// Writes to bytes.Buffer never fail.
	_ = w.WriteUint8(protocolVersion)
	_ = w.WriteUint8(uint8(msg.Type))
	_ = w.WriteString(msg.From.String())

	_ = w.WriteVarUint(uint64(len(msg.Digests)))

	var elem []byte

	for _, d := range msg.Digests {
		elem = AppendDigest(elem[:0], d)
		_ = w.WriteBytes(elem)
	}

	states := make([]*gossip.HeartbeatState, 0, len(msg.States))
	for _, s := range msg.States {
		if s != nil {
			states = append(states, s)
		}
	}

	_ = w.WriteVarUint(uint64(len(states)))

	for _, s := range states {
		elem = AppendState(elem[:0], s)
		_ = w.WriteBytes(elem)
	}

	return buf.Bytes(), nil
}

// Decode parses a message produced by Encode. If the envelope is broken, it
// returns a nil message and an error. Digests and states that cannot be
// decoded are skipped: the message is returned together with a
// *multierror.Error keyed by the position of each skipped element.
func Decode(b []byte) (*gossip.Message, error) {
	r := binario.NewReader(bytes.NewReader(b), binary.BigEndian, maxElementSize)

	version, err := r.ReadUint8()
	if err != nil {
		return nil, malformed("version: %v", err)
	}

	if version != protocolVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, version)
	}

	typ, err := r.ReadUint8()
	if err != nil {
		return nil, malformed("message type: %v", err)
	}

	msg := &gossip.Message{Type: gossip.MessageType(typ)}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, typ)
	}

	from, err := r.ReadString()
	if err != nil {
		return nil, malformed("sender: %v", err)
	}

	if msg.From, err = netip.ParseAddrPort(from); err != nil {
		return nil, malformed("sender: %v", err)
	}

	skipped := multierror.New[string]()

	err = readElements(r, len(b), func(i int, raw []byte) {
		d, err := ParseDigest(raw)
		if err != nil {
			skipped.Add(fmt.Sprintf("digests[%d]", i), err)
			return
		}

		msg.Digests = append(msg.Digests, d)
	})
	if err != nil {
		return nil, fmt.Errorf("digests: %w", err)
	}

	err = readElements(r, len(b), func(i int, raw []byte) {
		s, err := ParseState(raw)
		if err != nil {
			skipped.Add(fmt.Sprintf("states[%d]", i), err)
			return
		}

		msg.States = append(msg.States, s)
	})
	if err != nil {
		return nil, fmt.Errorf("states: %w", err)
	}

	return msg, skipped.Combined()
}

// readElements reads a counted list of length-prefixed elements. Framing
// errors abort the whole list, since the position of the next element is
// lost.
func readElements(r *binario.Reader, limit int, fn func(i int, raw []byte)) error {
	count, err := r.ReadVarUint()
	if err != nil {
		return malformed("count: %v", err)
	}

	// Every element takes at least its length prefix.
	if count > uint64(limit/4) {
		return malformed("count %d exceeds message size", count)
	}

	for i := 0; i < int(count); i++ {
		raw, err := r.ReadBytes()
		if err != nil {
			return malformed("element %d: %v", i, err)
		}

		fn(i, raw)
	}

	return nil
}
