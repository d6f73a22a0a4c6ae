package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodec marshals wire messages as JSON. It registers itself under the
// name "proto" — the content-subtype grpc-go's client and server both fall
// back to when a call specifies none — so every RPC on this module's
// grpc.Server and grpc.ClientConn uses it without callers needing to pass
// any per-call codec option. This is the standard trick non-protobuf
// languages use to ride on google.golang.org/grpc's transport without
// running a .proto toolchain (the wire messages here were never meant to
// satisfy proto.Message).
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
