// Package custodyapi exposes the custody pipeline as a gRPC service.
//
// Requests and responses are canonical CBOR carried in protobuf well-known
// wrapper types, so this package needs no protoc/codegen toolchain. Rejection
// kinds survive the wire: the server encodes the pipeline kind into the
// status, the client decodes it back into a *pipeline.Error.
package custodyapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// CustodyServer is the server API for the Custody gRPC service.
type CustodyServer interface {
	Register(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Authorize(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Transfer(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Item(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error)
	History(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error)
	AuditExport(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error)
}

// UnimplementedCustodyServer can be embedded to have forward compatible implementations.
type UnimplementedCustodyServer struct{}

func (UnimplementedCustodyServer) Register(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedCustodyServer) Authorize(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Authorize not implemented")
}
func (UnimplementedCustodyServer) Transfer(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Transfer not implemented")
}
func (UnimplementedCustodyServer) Item(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Item not implemented")
}
func (UnimplementedCustodyServer) History(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method History not implemented")
}
func (UnimplementedCustodyServer) AuditExport(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method AuditExport not implemented")
}

// RegisterCustodyServer registers the Custody service on a gRPC server.
func RegisterCustodyServer(s grpc.ServiceRegistrar, srv CustodyServer) {
	s.RegisterService(&Custody_ServiceDesc, srv)
}

// CustodyClient is the client API for the Custody gRPC service.
type CustodyClient interface {
	Register(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Authorize(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Transfer(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Item(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	History(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	AuditExport(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type custodyClient struct{ cc grpc.ClientConnInterface }

func NewCustodyClient(cc grpc.ClientConnInterface) CustodyClient { return &custodyClient{cc: cc} }

const serviceName = "immutrack.custody.v1.Custody"

func (c *custodyClient) Register(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Register", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodyClient) Authorize(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Authorize", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodyClient) Transfer(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Transfer", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodyClient) Item(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Item", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodyClient) History(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/History", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodyClient) AuditExport(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/AuditExport", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func unaryHandler[Req any](method string, call func(srv CustodyServer, ctx context.Context, in *Req) (any, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CustodyServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CustodyServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Custody_ServiceDesc is the grpc.ServiceDesc for the Custody service.
var Custody_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CustodyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler[wrapperspb.BytesValue]("Register", func(srv CustodyServer, ctx context.Context, in *wrapperspb.BytesValue) (any, error) {
			return srv.Register(ctx, in)
		})},
		{MethodName: "Authorize", Handler: unaryHandler[wrapperspb.BytesValue]("Authorize", func(srv CustodyServer, ctx context.Context, in *wrapperspb.BytesValue) (any, error) {
			return srv.Authorize(ctx, in)
		})},
		{MethodName: "Transfer", Handler: unaryHandler[wrapperspb.BytesValue]("Transfer", func(srv CustodyServer, ctx context.Context, in *wrapperspb.BytesValue) (any, error) {
			return srv.Transfer(ctx, in)
		})},
		{MethodName: "Item", Handler: unaryHandler[wrapperspb.UInt64Value]("Item", func(srv CustodyServer, ctx context.Context, in *wrapperspb.UInt64Value) (any, error) {
			return srv.Item(ctx, in)
		})},
		{MethodName: "History", Handler: unaryHandler[wrapperspb.UInt64Value]("History", func(srv CustodyServer, ctx context.Context, in *wrapperspb.UInt64Value) (any, error) {
			return srv.History(ctx, in)
		})},
		{MethodName: "AuditExport", Handler: unaryHandler[wrapperspb.UInt64Value]("AuditExport", func(srv CustodyServer, ctx context.Context, in *wrapperspb.UInt64Value) (any, error) {
			return srv.AuditExport(ctx, in)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "custody.proto",
}
