package binario

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf, binary.BigEndian)

	require.NoError(t, w.WriteUint8(7))
	require.NoError(t, w.WriteUint16(513))
	require.NoError(t, w.WriteUint32(70000))
	require.NoError(t, w.WriteUint64(1<<40))
	require.NoError(t, w.WriteString("hello"))
	require.NoError(t, w.WriteVarUint(300))

	r := NewReader(bytes.NewReader(buf.Bytes()), binary.BigEndian, 0)

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), u8)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(513), u16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(70000), u32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), u64)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	v, err := r.ReadVarUint()
	require.NoError(t, err)
	assert.Equal(t, uint64(300), v)

	_, err = r.ReadUint8()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_Truncated(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf, binary.BigEndian)
	require.NoError(t, w.WriteBytes([]byte("payload")))

	r := NewReader(bytes.NewReader(buf.Bytes()[:6]), binary.BigEndian, 0)
	_, err := r.ReadBytes()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReader_Limit(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf, binary.BigEndian)
	require.NoError(t, w.WriteBytes(make([]byte, 32)))

	r := NewReader(bytes.NewReader(buf.Bytes()), binary.BigEndian, 16)
	_, err := r.ReadBytes()
	assert.ErrorIs(t, err, ErrTooLarge)
}
