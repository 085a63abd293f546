package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	serviceName = "gms.Gossip"
	pushMethod  = "/gms.Gossip/Push"
)

type pushServer interface {
	Push(ctx context.Context, in *frame) (*frame, error)
}

func pushHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(frame)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(pushServer).Push(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: pushMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(pushServer).Push(ctx, req.(*frame))
	}

	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*pushServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Push",
			Handler:    pushHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gms/gossip.proto",
}
