package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "networth.v1.NetWorthService"

// NetWorthServiceServer is the server API for the NetWorthService service.
// Requests and responses are JSON-shaped structpb.Struct messages carrying the
// same fields as the HTTP API.
type NetWorthServiceServer interface {
	GetDocument(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// GetSeries takes {timeframe, type}
	GetSeries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetComposition takes {by}
	GetComposition(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// AddAccount and EditAccount take {id, name, type, iban, logo, balance}
	AddAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// DeleteAccount takes {id}
	DeleteAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// RecordBalances takes {balances: {<accountId>: amount}}
	RecordBalances(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterNetWorthServiceServer registers srv on s
func RegisterNetWorthServiceServer(s grpc.ServiceRegistrar, srv NetWorthServiceServer) {
	s.RegisterService(&NetWorthServiceDesc, srv)
}

func unaryMethod[Req proto.Message](
	name string,
	newReq func() Req,
	call func(NetWorthServiceServer, context.Context, Req) (*structpb.Struct, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(NetWorthServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(NetWorthServiceServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func newEmpty() *emptypb.Empty   { return new(emptypb.Empty) }
func newStruct() *structpb.Struct { return new(structpb.Struct) }

// NetWorthServiceDesc is the grpc.ServiceDesc for the NetWorthService service
var NetWorthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NetWorthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetDocument", newEmpty, NetWorthServiceServer.GetDocument),
		unaryMethod("GetSummary", newEmpty, NetWorthServiceServer.GetSummary),
		unaryMethod("GetSeries", newStruct, NetWorthServiceServer.GetSeries),
		unaryMethod("GetComposition", newStruct, NetWorthServiceServer.GetComposition),
		unaryMethod("AddAccount", newStruct, NetWorthServiceServer.AddAccount),
		unaryMethod("EditAccount", newStruct, NetWorthServiceServer.EditAccount),
		unaryMethod("DeleteAccount", newStruct, NetWorthServiceServer.DeleteAccount),
		unaryMethod("RecordBalances", newStruct, NetWorthServiceServer.RecordBalances),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "networth/v1/networth.proto",
}

// NetWorthServiceClient is the client API for the NetWorthService service
type NetWorthServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewNetWorthServiceClient creates a client over cc
func NewNetWorthServiceClient(cc grpc.ClientConnInterface) *NetWorthServiceClient {
	return &NetWorthServiceClient{cc: cc}
}

func (c *NetWorthServiceClient) invoke(ctx context.Context, method string, in proto.Message, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NetWorthServiceClient) GetDocument(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetDocument", in, opts...)
}

func (c *NetWorthServiceClient) GetSummary(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetSummary", in, opts...)
}

func (c *NetWorthServiceClient) GetSeries(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetSeries", in, opts...)
}

func (c *NetWorthServiceClient) GetComposition(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetComposition", in, opts...)
}

func (c *NetWorthServiceClient) AddAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "AddAccount", in, opts...)
}

func (c *NetWorthServiceClient) EditAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "EditAccount", in, opts...)
}

func (c *NetWorthServiceClient) DeleteAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "DeleteAccount", in, opts...)
}

func (c *NetWorthServiceClient) RecordBalances(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "RecordBalances", in, opts...)
}
