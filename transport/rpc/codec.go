package rpc

import "fmt"

const codecName = "gms-frame"

// frame carries an already encoded gossip message, so that gRPC only deals
// with opaque bytes and the wire format stays the same on every transport.
type frame struct {
	data []byte
}

// frameCodec implements encoding.Codec for frames.
type frameCodec struct{}

func (frameCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*frame)
	if !ok {
		return nil, fmt.Errorf("unexpected message type: %T", v)
	}

	return f.data, nil
}

func (frameCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*frame)
	if !ok {
		return fmt.Errorf("unexpected message type: %T", v)
	}

	// The buffer may be reused by gRPC after the call returns.
	f.data = append([]byte(nil), data...)

	return nil
}

func (frameCodec) Name() string {
	return codecName
}
