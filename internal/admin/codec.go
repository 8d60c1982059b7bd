// Package admin exposes the node's configuration store and network
// management state machine over gRPC for operator tooling and
// bench/CI use, mirroring the test-only surface original_source
// layers over the production stack in mesh_test_api.h. It is additive
// to the node's own contract: nothing in internal/localconfig or
// internal/netmgmt depends on this package.
//
// The wire messages are plain Go structs marshaled as JSON rather
// than protobuf: encoding a stable .proto/.pb.go pair requires protoc
// codegen this module does not run, so the service instead registers
// a custom codec (jsonCodec) via grpc.ForceServerCodec/ForceCodec and
// builds its grpc.ServiceDesc by hand. gRPC itself is still doing the
// framing, multiplexing, and (for meshnodectl) connection management;
// only the per-message encoding differs from a generated stack.
package admin

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("admin: unmarshal %T: %w", v, err)
	}
	return nil
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
