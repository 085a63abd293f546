package binario

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrTooLarge is returned when a length prefix exceeds the reader limit.
var ErrTooLarge = errors.New("length prefix exceeds limit")

type Reader struct {
	byteOrder binary.ByteOrder
	reader    io.Reader
	maxBytes  uint32
	buf       [8]byte
}

// NewReader creates a reader. Length-prefixed values longer than maxBytes
// are rejected with ErrTooLarge; zero means no limit.
func NewReader(reader io.Reader, byteOrder binary.ByteOrder, maxBytes uint32) *Reader {
	return &Reader{
		reader:    reader,
		byteOrder: byteOrder,
		maxBytes:  maxBytes,
	}
}

func (r *Reader) read(n int) ([]byte, error) {
	bs := r.buf[:n]
	if _, err := io.ReadFull(r.reader, bs); err != nil {
		return nil, err
	}

	return bs, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	bs, err := r.read(1)
	if err != nil {
		return 0, err
	}

	return bs[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	bs, err := r.read(2)
	if err != nil {
		return 0, err
	}

	return r.byteOrder.Uint16(bs), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	bs, err := r.read(4)
	if err != nil {
		return 0, err
	}

	return r.byteOrder.Uint32(bs), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	bs, err := r.read(8)
	if err != nil {
		return 0, err
	}

	return r.byteOrder.Uint64(bs), nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	if r.maxBytes > 0 && length > r.maxBytes {
		return nil, ErrTooLarge
	}

	bs := make([]byte, length)
	if _, err := io.ReadFull(r.reader, bs); err != nil {
		return nil, err
	}

	return bs, nil
}

func (r *Reader) ReadString() (string, error) {
	bs, err := r.ReadBytes()
	return string(bs), err
}

func (r *Reader) ReadVarUint() (uint64, error) {
	var value uint64
	var shift uint

	for {
		b, err := r.ReadUint8()
		if err != nil {
			return 0, err
		}

		if shift >= 64 {
			return 0, ErrTooLarge
		}

		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}

		shift += 7
	}

	return value, nil
}
