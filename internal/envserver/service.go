package envserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service
const environmentServiceName = "antijam.v1.Environment"

// EnvironmentServer is the server side of the environment RPCs.
type EnvironmentServer interface {
	Reset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Step(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Close(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// EnvironmentService is the client side of the environment RPCs.
type EnvironmentService interface {
	Reset(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Step(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Close(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// EnvironmentServiceDesc registers an EnvironmentServer on a grpc.Server.
var EnvironmentServiceDesc = grpc.ServiceDesc{
	ServiceName: environmentServiceName,
	HandlerType: (*EnvironmentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reset", Handler: unaryHandler("Reset", EnvironmentServer.Reset)},
		{MethodName: "Step", Handler: unaryHandler("Step", EnvironmentServer.Step)},
		{MethodName: "Close", Handler: unaryHandler("Close", EnvironmentServer.Close)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "antijam/v1/environment.proto",
}

// RegisterEnvironmentServer attaches srv to s.
func RegisterEnvironmentServer(s grpc.ServiceRegistrar, srv EnvironmentServer) {
	s.RegisterService(&EnvironmentServiceDesc, srv)
}

type method func(EnvironmentServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call method) grpc.MethodHandler {
	fullMethod := "/" + environmentServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EnvironmentServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EnvironmentServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type environmentServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEnvironmentServiceClient binds the environment RPCs to a connection.
func NewEnvironmentServiceClient(cc grpc.ClientConnInterface) EnvironmentService {
	return &environmentServiceClient{cc: cc}
}

func (c *environmentServiceClient) invoke(ctx context.Context, name string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+environmentServiceName+"/"+name, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *environmentServiceClient) Reset(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Reset", in, opts...)
}

func (c *environmentServiceClient) Step(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Step", in, opts...)
}

func (c *environmentServiceClient) Close(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Close", in, opts...)
}

// #endregion service
