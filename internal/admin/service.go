package admin

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the gRPC service path clients and the hand-built
// ServiceDesc both address. There is no generated .proto for it; see
// codec.go for why.
const ServiceName = "meshnode.admin.MeshNodeAdmin"

// adminServer is the interface ServiceDesc dispatches against. *Server
// satisfies it.
type adminServer interface {
	DumpAddressTable(context.Context, *DumpAddressTableRequest) (*DumpAddressTableResponse, error)
	DumpKeyTable(context.Context, *DumpKeyTableRequest) (*DumpKeyTableResponse, error)
	DumpModelTable(context.Context, *DumpModelTableRequest) (*DumpModelTableResponse, error)
	DumpSequenceState(context.Context, *DumpSequenceStateRequest) (*DumpSequenceStateResponse, error)
	DumpNetworkManagementState(context.Context, *DumpNetworkManagementStateRequest) (*DumpNetworkManagementStateResponse, error)
	InjectBeacon(context.Context, *InjectBeaconRequest) (*InjectBeaconResponse, error)
	FireGuardTimer(context.Context, *FireGuardTimerRequest) (*FireGuardTimerResponse, error)
}

func unaryHandler[Req, Resp any](call func(adminServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(adminServer), ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(adminServer), ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

// ServiceDesc is the hand-built registration table a generated
// _grpc.pb.go would otherwise provide.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*adminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DumpAddressTable", Handler: unaryHandler(adminServer.DumpAddressTable)},
		{MethodName: "DumpKeyTable", Handler: unaryHandler(adminServer.DumpKeyTable)},
		{MethodName: "DumpModelTable", Handler: unaryHandler(adminServer.DumpModelTable)},
		{MethodName: "DumpSequenceState", Handler: unaryHandler(adminServer.DumpSequenceState)},
		{MethodName: "DumpNetworkManagementState", Handler: unaryHandler(adminServer.DumpNetworkManagementState)},
		{MethodName: "InjectBeacon", Handler: unaryHandler(adminServer.InjectBeacon)},
		{MethodName: "FireGuardTimer", Handler: unaryHandler(adminServer.FireGuardTimer)},
	},
	Metadata: "internal/admin/service.go",
}

// Register adds the admin service to s, using the JSON codec declared
// in codec.go rather than protobuf wire encoding.
func Register(s *grpc.Server, srv *Server) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the "/service/method" string a client Invoke call
// needs for the given RPC name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
