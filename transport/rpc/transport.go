// Package rpc implements a gossip transport over gRPC unary calls. It is an
// alternative to the UDP transport for networks where datagrams are
// filtered, or where messages outgrow a datagram.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/maxpoletaev/gms/gossip"
	"github.com/maxpoletaev/gms/internal/generic"
	"github.com/maxpoletaev/gms/internal/grpcutil"
	"github.com/maxpoletaev/gms/wire"
)

const ReasonMalformedMessage = "MALFORMED_MESSAGE"

var ErrClosed = errors.New("transport is closed")

type Config struct {
	// BindAddr is the local TCP address to listen on.
	BindAddr netip.AddrPort

	// AdvertiseAddr is the address announced to other nodes. Defaults to the
	// bound address.
	AdvertiseAddr netip.AddrPort

	// CallTimeout limits a single push call.
	CallTimeout time.Duration

	Logger log.Logger
}

type GRPCTransport struct {
	logger      log.Logger
	local       netip.AddrPort
	callTimeout time.Duration
	listener    net.Listener
	server      *grpc.Server
	handler     gossip.Handler
	replyConns  generic.SyncMap[netip.AddrPort, *grpcConn]
	serveErr    chan error
	listening   atomic.Bool
	closed      atomic.Bool
}

var _ gossip.Transport = (*GRPCTransport)(nil)

func Create(conf Config) (*GRPCTransport, error) {
	listener, err := net.Listen("tcp", conf.BindAddr.String())
	if err != nil {
		return nil, fmt.Errorf("failed to listen tcp port on %s: %w", conf.BindAddr, err)
	}

	local := conf.AdvertiseAddr
	if !local.IsValid() {
		local = listener.Addr().(*net.TCPAddr).AddrPort()
	}

	logger := conf.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	callTimeout := conf.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}

	t := &GRPCTransport{
		logger:      logger,
		local:       local,
		callTimeout: callTimeout,
		listener:    listener,
		serveErr:    make(chan error, 1),
		server:      grpc.NewServer(grpc.ForceServerCodec(frameCodec{})),
	}

	return t, nil
}

func (t *GRPCTransport) LocalAddr() netip.AddrPort {
	return t.local
}

func (t *GRPCTransport) Listen(h gossip.Handler) error {
	if t.closed.Load() {
		return ErrClosed
	}

	if !t.listening.CompareAndSwap(false, true) {
		return errors.New("already listening")
	}

	t.handler = h
	t.server.RegisterService(&serviceDesc, &server{transport: t})

	go func() {
		t.serveErr <- t.server.Serve(t.listener)
	}()

	return nil
}

func (t *GRPCTransport) Dial(ctx context.Context, addr netip.AddrPort) (gossip.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.closed.Load() {
		return nil, ErrClosed
	}

	return t.newConn(addr)
}

func (t *GRPCTransport) newConn(addr netip.AddrPort) (*grpcConn, error) {
	cc, err := grpc.NewClient(
		addr.String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(frameCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}

	cc.Connect()

	return &grpcConn{
		cc:      cc,
		addr:    addr,
		timeout: t.callTimeout,
	}, nil
}

// replyConn returns a cached connection used to answer the given address.
func (t *GRPCTransport) replyConn(addr netip.AddrPort) (*grpcConn, error) {
	if conn, ok := t.replyConns.Load(addr); ok {
		return conn, nil
	}

	conn, err := t.newConn(addr)
	if err != nil {
		return nil, err
	}

	actual, loaded := t.replyConns.LoadOrStore(addr, conn)
	if loaded {
		_ = conn.Close()
	}

	return actual, nil
}

// Close stops the server, interrupting the calls in progress, and closes
// the cached reply connections.
func (t *GRPCTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error

	if t.listening.Load() {
		t.server.Stop()

		if serveErr := <-t.serveErr; serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			err = serveErr
		}
	} else {
		err = t.listener.Close()
	}

	t.replyConns.Range(func(addr netip.AddrPort, conn *grpcConn) bool {
		t.replyConns.Delete(addr)

		if closeErr := conn.Close(); closeErr != nil {
			level.Debug(t.logger).Log("msg", "failed to close reply connection", "addr", addr, "err", closeErr)
		}

		return true
	})

	return err
}

type server struct {
	transport *GRPCTransport
}

func (s *server) Push(_ context.Context, in *frame) (*frame, error) {
	t := s.transport

	msg, err := wire.Decode(in.data)
	if msg == nil {
		return nil, grpcutil.StatusWithReason(codes.InvalidArgument, ReasonMalformedMessage, err)
	}

	if err != nil {
		level.Debug(t.logger).Log("msg", "skipped malformed elements", "from", msg.From, "err", err)
	}

	reply, err := t.replyConn(msg.From)
	if err != nil {
		level.Warn(t.logger).Log("msg", "failed to create reply connection", "to", msg.From, "err", err)
		return &frame{}, nil
	}

	t.handler.HandleMessage(msg, reply)

	return &frame{}, nil
}

type grpcConn struct {
	cc      *grpc.ClientConn
	addr    netip.AddrPort
	timeout time.Duration
}

func (c *grpcConn) Addr() netip.AddrPort {
	return c.addr
}

func (c *grpcConn) Send(ctx context.Context, msg *gossip.Message) error {
	payload, err := wire.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.cc.Invoke(ctx, pushMethod, &frame{data: payload}, &frame{}); err != nil {
		if grpcutil.IsCanceled(err) {
			return context.Canceled
		}

		return fmt.Errorf("push to %s failed: %w", c.addr, err)
	}

	return nil
}

func (c *grpcConn) Close() error {
	return c.cc.Close()
}
