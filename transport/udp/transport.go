package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gms/gossip"
	"github.com/maxpoletaev/gms/wire"
)

const (
	// DefaultMaxPayloadSize keeps datagrams within a typical MTU, so that
	// they are not fragmented.
	DefaultMaxPayloadSize = 1400

	// MaxDatagramSize is the largest payload of a UDP datagram over IPv4.
	MaxDatagramSize = 65507

	receiveBufferSize = 1 * 1024 * 1024
	defaultWorkers    = 4
)

var (
	ErrClosed          = errors.New("connection closed")
	ErrMaxSizeExceeded = errors.New("max payload size exceeded")
)

type Config struct {
	// BindAddr is the local address to listen on.
	BindAddr netip.AddrPort

	// AdvertiseAddr is the address announced to other nodes. Defaults to the
	// bound address, which must then be routable.
	AdvertiseAddr netip.AddrPort

	// Workers is the number of goroutines decoding and handling messages.
	Workers int

	// MaxPayloadSize limits the size of an outgoing datagram. Messages that
	// do not fit are split into several datagrams.
	MaxPayloadSize int

	Logger log.Logger
}

type packet struct {
	len  int
	body []byte
	from netip.AddrPort
}

func (p *packet) Body() []byte {
	return p.body[:p.len]
}

// UDPTransport exchanges gossip messages as datagrams. A message too large for
// one datagram is split into several smaller messages of the same type, each
// sent in its own datagram. Inbound datagrams are read by one goroutine and
// handled by a fixed pool of workers.
type UDPTransport struct {
	logger      log.Logger
	conn        *net.UDPConn
	local       netip.AddrPort
	workers     int
	maxPayload  int
	pool        *sync.Pool
	in          chan *packet
	done        chan struct{}
	wg          sync.WaitGroup
	listening   atomic.Bool
	closed      atomic.Bool
	readBackoff time.Duration
}

var _ gossip.Transport = (*UDPTransport)(nil)

// Create starts a UDP listener on the given address.
func Create(conf Config) (*UDPTransport, error) {
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(conf.BindAddr))
	if err != nil {
		return nil, fmt.Errorf("failed to listen udp port on %s: %w", conf.BindAddr, err)
	}

	// Set system buffer to larger size to reduce the number of packet drops
	// when the consumer is too busy to keep up with the incoming message rate.
	if err := conn.SetReadBuffer(receiveBufferSize); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to alter udp read buffer size: %w", err)
	}

	local := conf.AdvertiseAddr
	if !local.IsValid() {
		local = conn.LocalAddr().(*net.UDPAddr).AddrPort()
	}

	maxPayload := conf.MaxPayloadSize
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadSize
	}

	if maxPayload > MaxDatagramSize {
		maxPayload = MaxDatagramSize
	}

	workers := conf.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	logger := conf.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	pool := &sync.Pool{
		New: func() any {
			return &packet{
				// One extra byte to detect oversized datagrams.
				body: make([]byte, maxPayload+1),
			}
		},
	}

	t := &UDPTransport{
		logger:      logger,
		conn:        conn,
		local:       local,
		workers:     workers,
		maxPayload:  maxPayload,
		pool:        pool,
		in:          make(chan *packet, workers),
		done:        make(chan struct{}),
		readBackoff: 30 * time.Millisecond,
	}

	return t, nil
}

func (t *UDPTransport) LocalAddr() netip.AddrPort {
	return t.local
}

// Listen starts the read loop and the worker pool.
func (t *UDPTransport) Listen(h gossip.Handler) error {
	if t.closed.Load() {
		return ErrClosed
	}

	if !t.listening.CompareAndSwap(false, true) {
		return errors.New("already listening")
	}

	go t.consume()

	for i := 0; i < t.workers; i++ {
		t.wg.Add(1)

		go func() {
			defer t.wg.Done()
			t.handle(h)
		}()
	}

	return nil
}

func (t *UDPTransport) consume() {
	const maxDelay = 10 * time.Second

	delay := t.readBackoff

	for {
		pkt := t.pool.Get().(*packet)

		n, addr, err := t.conn.ReadFromUDPAddrPort(pkt.body)
		if err != nil {
			t.pool.Put(pkt)

			if t.closed.Load() {
				break
			}

			level.Error(t.logger).Log("msg", "failed to read from udp", "err", err)
			time.Sleep(delay)

			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}

			continue
		}

		delay = t.readBackoff

		if n == 0 || n > t.maxPayload {
			level.Warn(t.logger).Log("msg", "dropped udp packet of unexpected size", "from", addr, "size", n)
			t.pool.Put(pkt)

			continue
		}

		pkt.from = addr
		pkt.len = n

		t.in <- pkt
	}

	close(t.in)
	close(t.done)
}

func (t *UDPTransport) handle(h gossip.Handler) {
	for pkt := range t.in {
		msg, err := wire.Decode(pkt.Body())
		from := pkt.from
		t.pool.Put(pkt)

		if msg == nil {
			level.Warn(t.logger).Log("msg", "failed to decode udp packet", "from", from, "err", err)
			continue
		}

		if err != nil {
			level.Debug(t.logger).Log("msg", "skipped malformed elements", "from", from, "err", err)
		}

		h.HandleMessage(msg, &udpConn{transport: t, addr: msg.From})
	}
}

func (t *UDPTransport) Dial(ctx context.Context, addr netip.AddrPort) (gossip.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.closed.Load() {
		return nil, ErrClosed
	}

	if !addr.IsValid() {
		return nil, fmt.Errorf("invalid address: %s", addr)
	}

	return &udpConn{transport: t, addr: addr}, nil
}

// Close stops reading and waits until the messages already read are handled.
func (t *UDPTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := t.conn.Close(); err != nil {
		return err
	}

	if t.listening.Load() {
		<-t.done
		t.wg.Wait()
	}

	return nil
}

// send encodes the message and writes it to the address, splitting it in
// two halves as long as it does not fit into a datagram. The order of the
// digests and states is preserved across the datagrams.
func (t *UDPTransport) send(msg *gossip.Message, addr netip.AddrPort) error {
	payload, err := wire.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if len(payload) <= t.maxPayload {
		return t.writeTo(payload, addr)
	}

	head, tail, ok := splitMessage(msg)
	if !ok {
		return fmt.Errorf("%w: %d > %d", ErrMaxSizeExceeded, len(payload), t.maxPayload)
	}

	if err := t.send(head, addr); err != nil {
		return err
	}

	return t.send(tail, addr)
}

// splitMessage divides the digests and the states of the message into two
// messages with half of the elements each. Digests go first.
func splitMessage(msg *gossip.Message) (head, tail *gossip.Message, ok bool) {
	n := len(msg.Digests) + len(msg.States)
	if n < 2 {
		return nil, nil, false
	}

	head = &gossip.Message{Type: msg.Type, From: msg.From}
	tail = &gossip.Message{Type: msg.Type, From: msg.From}

	half := n / 2

	if half <= len(msg.Digests) {
		head.Digests = msg.Digests[:half]
		tail.Digests = msg.Digests[half:]
		tail.States = msg.States
	} else {
		head.Digests = msg.Digests
		head.States = msg.States[:half-len(msg.Digests)]
		tail.States = msg.States[half-len(msg.Digests):]
	}

	return head, tail, true
}

func (t *UDPTransport) writeTo(payload []byte, addr netip.AddrPort) error {
	if len(payload) > t.maxPayload {
		return fmt.Errorf("%w: %d > %d", ErrMaxSizeExceeded, len(payload), t.maxPayload)
	}

	if _, err := t.conn.WriteToUDPAddrPort(payload, addr); err != nil {
		if t.closed.Load() {
			return ErrClosed
		}

		return fmt.Errorf("failed to send message to udp socket: %w", err)
	}

	return nil
}

// udpConn is a connectionless handle: it only remembers the address.
type udpConn struct {
	transport *UDPTransport
	addr      netip.AddrPort
}

func (c *udpConn) Addr() netip.AddrPort {
	return c.addr
}

func (c *udpConn) Send(ctx context.Context, msg *gossip.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.transport.send(msg, c.addr)
}

func (c *udpConn) Close() error {
	return nil
}
