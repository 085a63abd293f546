// Package memory implements an in-process network of gossip transports. It
// is used to run whole clusters inside a single process in tests and
// simulations. Messages still go through the wire codec.
package memory

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gms/gossip"
	"github.com/maxpoletaev/gms/wire"
)

const (
	defaultWorkers = 2
	inboxSize      = 1024
)

var (
	ErrUnreachable = errors.New("address is unreachable")
	ErrClosed      = errors.New("transport is closed")
)

// Network connects the transports created from it.
type Network struct {
	mut   sync.RWMutex
	nodes map[netip.AddrPort]*Transport
	down  map[netip.AddrPort]bool

	delivered atomic.Int64
	dropped   atomic.Int64
}

func NewNetwork() *Network {
	return &Network{
		nodes: make(map[netip.AddrPort]*Transport),
		down:  make(map[netip.AddrPort]bool),
	}
}

// Transport creates a transport bound to the address. It fails if the address
// is already taken by another open transport.
func (n *Network) Transport(addr netip.AddrPort, logger log.Logger) (*Transport, error) {
	n.mut.Lock()
	defer n.mut.Unlock()

	if _, ok := n.nodes[addr]; ok {
		return nil, fmt.Errorf("address already in use: %s", addr)
	}

	if logger == nil {
		logger = log.NewNopLogger()
	}

	t := &Transport{
		network: n,
		addr:    addr,
		logger:  logger,
		workers: defaultWorkers,
		inbox:   make(chan []byte, inboxSize),
		done:    make(chan struct{}),
	}

	n.nodes[addr] = t

	return t, nil
}

// Disconnect makes the address unreachable in both directions, as if the
// node crashed or got partitioned away.
func (n *Network) Disconnect(addr netip.AddrPort) {
	n.mut.Lock()
	n.down[addr] = true
	n.mut.Unlock()
}

// Reconnect reverts Disconnect.
func (n *Network) Reconnect(addr netip.AddrPort) {
	n.mut.Lock()
	delete(n.down, addr)
	n.mut.Unlock()
}

// Stats returns the number of delivered and dropped messages.
func (n *Network) Stats() (delivered, dropped int64) {
	return n.delivered.Load(), n.dropped.Load()
}

func (n *Network) lookup(from, to netip.AddrPort) (*Transport, error) {
	n.mut.RLock()
	defer n.mut.RUnlock()

	if n.down[from] || n.down[to] {
		return nil, ErrUnreachable
	}

	t, ok := n.nodes[to]
	if !ok {
		return nil, ErrUnreachable
	}

	return t, nil
}

func (n *Network) deliver(from, to netip.AddrPort, payload []byte) error {
	t, err := n.lookup(from, to)
	if err != nil {
		n.dropped.Add(1)
		return err
	}

	if !t.enqueue(payload) {
		// A full inbox loses the message, just like a busy socket would.
		n.dropped.Add(1)
		return nil
	}

	n.delivered.Add(1)

	return nil
}

func (n *Network) remove(t *Transport) {
	n.mut.Lock()
	defer n.mut.Unlock()

	if n.nodes[t.addr] == t {
		delete(n.nodes, t.addr)
	}
}

// Transport is a gossip.Transport attached to a Network.
type Transport struct {
	network *Network
	addr    netip.AddrPort
	logger  log.Logger
	workers int

	inbox     chan []byte
	done      chan struct{}
	wg        sync.WaitGroup
	listening atomic.Bool
	closed    atomic.Bool
}

var _ gossip.Transport = (*Transport)(nil)

func (t *Transport) LocalAddr() netip.AddrPort {
	return t.addr
}

func (t *Transport) Listen(h gossip.Handler) error {
	if t.closed.Load() {
		return ErrClosed
	}

	if !t.listening.CompareAndSwap(false, true) {
		return errors.New("already listening")
	}

	for i := 0; i < t.workers; i++ {
		t.wg.Add(1)

		go func() {
			defer t.wg.Done()
			t.dispatch(h)
		}()
	}

	return nil
}

func (t *Transport) enqueue(payload []byte) bool {
	if t.closed.Load() {
		return false
	}

	select {
	case t.inbox <- payload:
		return true
	default:
		return false
	}
}

func (t *Transport) dispatch(h gossip.Handler) {
	for {
		select {
		case payload := <-t.inbox:
			msg, err := wire.Decode(payload)
			if msg == nil {
				level.Warn(t.logger).Log("msg", "failed to decode message", "err", err)
				continue
			}

			if err != nil {
				level.Debug(t.logger).Log("msg", "skipped malformed elements", "from", msg.From, "err", err)
			}

			h.HandleMessage(msg, &conn{transport: t, to: msg.From})
		case <-t.done:
			return
		}
	}
}

func (t *Transport) Dial(ctx context.Context, addr netip.AddrPort) (gossip.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.closed.Load() {
		return nil, ErrClosed
	}

	if _, err := t.network.lookup(t.addr, addr); err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return &conn{transport: t, to: addr}, nil
}

func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(t.done)
	t.wg.Wait()
	t.network.remove(t)

	return nil
}

type conn struct {
	transport *Transport
	to        netip.AddrPort
}

func (c *conn) Addr() netip.AddrPort {
	return c.to
}

func (c *conn) Send(ctx context.Context, msg *gossip.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.transport.closed.Load() {
		return ErrClosed
	}

	payload, err := wire.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	return c.transport.network.deliver(c.transport.addr, c.to, payload)
}

func (c *conn) Close() error {
	return nil
}
