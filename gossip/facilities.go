package gossip

//go:generate mockgen -source=facilities.go -destination=facilities_mock_test.go -package=gossip

import (
	"context"
	"net/netip"
)

// Handler processes inbound protocol messages. The reply connection points
// back to the sender of the message.
type Handler interface {
	HandleMessage(msg *Message, reply Conn)
}

// Conn is an outbound message handle bound to a single remote address.
type Conn interface {
	// Addr returns the remote address.
	Addr() netip.AddrPort

	// Send delivers the message to the remote side. Delivery is best-effort:
	// a nil error does not guarantee the message was received.
	Send(ctx context.Context, msg *Message) error

	// Close releases the resources associated with the connection.
	Close() error
}

// Transport is the underlying network used to exchange protocol messages
// between nodes. Wire encoding and framing are the transport's concern.
type Transport interface {
	// LocalAddr returns the address other nodes use to reach this node.
	LocalAddr() netip.AddrPort

	// Listen starts accepting messages and dispatches them to the handler.
	Listen(h Handler) error

	// Dial creates a connection to the remote address.
	Dial(ctx context.Context, addr netip.AddrPort) (Conn, error)

	// Close stops the transport. No messages are dispatched afterwards.
	Close() error
}

// Receiver is implemented by the application to be notified about accepted
// heartbeat states of other nodes. ReceiveHeartbeat is called once per
// accepted state, and for each sender strictly in the order of increasing
// logical time. Returning false stops further deliveries from that sender
// until it is explicitly unignored.
type Receiver interface {
	ReceiveHeartbeat(state *HeartbeatState) bool
}

// NoopReceiver is a receiver that accepts and discards everything.
type NoopReceiver struct{}

func (NoopReceiver) ReceiveHeartbeat(*HeartbeatState) bool { return true }

// ReceiverFunc adapts an ordinary function to the Receiver interface.
type ReceiverFunc func(state *HeartbeatState) bool

func (f ReceiverFunc) ReceiveHeartbeat(state *HeartbeatState) bool { return f(state) }

var (
	_ Receiver = NoopReceiver{}
	_ Receiver = ReceiverFunc(nil)
)
