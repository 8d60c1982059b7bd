package admin

import (
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// NewGRPCServer builds a *grpc.Server with the JSON codec forced (see
// codec.go) and otelgrpc stats handlers attached, with node registered
// as the admin service.
func NewGRPCServer(node *Server) *grpc.Server {
	codec := encoding.GetCodec(codecName)
	s := grpc.NewServer(
		grpc.ForceServerCodec(codec),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	Register(s, node)
	return s
}

// ListenAndServe binds addr and blocks serving the admin service until
// the listener errors or the server is stopped.
func ListenAndServe(addr string, node *Server) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return NewGRPCServer(node).Serve(lis)
}

// ClientCodecOption forces the same JSON codec on an outgoing call,
// for meshnodectl's connection to ListenAndServe.
func ClientCodecOption() grpc.CallOption {
	return grpc.ForceCodec(encoding.GetCodec(codecName))
}
