package rpc

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/maxpoletaev/gms/gossip"
	"github.com/maxpoletaev/gms/internal/grpcutil"
)

type handlerFunc func(msg *gossip.Message, reply gossip.Conn)

func (f handlerFunc) HandleMessage(msg *gossip.Message, reply gossip.Conn) {
	f(msg, reply)
}

func createTransport(t *testing.T) *GRPCTransport {
	t.Helper()

	tr, err := Create(Config{BindAddr: netip.MustParseAddrPort("127.0.0.1:0")})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = tr.Close()
	})

	return tr
}

func TestGRPCTransport_SendReceive(t *testing.T) {
	a := createTransport(t)
	b := createTransport(t)

	type received struct {
		msg   *gossip.Message
		reply gossip.Conn
	}

	ch := make(chan received, 1)

	require.NoError(t, b.Listen(handlerFunc(func(msg *gossip.Message, reply gossip.Conn) {
		ch <- received{msg: msg, reply: reply}
	})))

	conn, err := a.Dial(context.Background(), b.LocalAddr())
	require.NoError(t, err)

	defer conn.Close()

	msg := &gossip.Message{
		Type:   gossip.MessageUpdate,
		From:   a.LocalAddr(),
		States: []*gossip.HeartbeatState{{Addr: a.LocalAddr(), Time: 3}},
	}

	require.NoError(t, conn.Send(context.Background(), msg))

	select {
	case got := <-ch:
		assert.Equal(t, msg, got.msg)
		assert.Equal(t, a.LocalAddr(), got.reply.Addr())
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestGRPCTransport_MalformedFrame(t *testing.T) {
	a := createTransport(t)
	b := createTransport(t)

	require.NoError(t, b.Listen(handlerFunc(func(*gossip.Message, gossip.Conn) {
		t.Error("handler must not be called")
	})))

	conn, err := a.newConn(b.LocalAddr())
	require.NoError(t, err)

	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = conn.cc.Invoke(ctx, pushMethod, &frame{data: []byte{0xde, 0xad}}, &frame{})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, grpcutil.ErrorCode(err))

	info := grpcutil.ErrorInfo(err)
	if assert.NotNil(t, info) {
		assert.Equal(t, ReasonMalformedMessage, info.Reason)
	}
}

func TestGRPCTransport_Close(t *testing.T) {
	tr, err := Create(Config{BindAddr: netip.MustParseAddrPort("127.0.0.1:0")})
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err = tr.Dial(context.Background(), netip.MustParseAddrPort("127.0.0.1:1"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFrameCodec(t *testing.T) {
	codec := frameCodec{}

	data, err := codec.Marshal(&frame{data: []byte("abc")})
	require.NoError(t, err)

	var f frame
	require.NoError(t, codec.Unmarshal(data, &f))
	assert.Equal(t, []byte("abc"), f.data)

	_, err = codec.Marshal("abc")
	assert.Error(t, err)
}
