// Package v1 defines the triage.v1.TicketTriage gRPC service. Every message is
// a google.protobuf.Struct carrying the same JSON shape the HTTP API serves.
package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const TicketTriage_ServiceName = "triage.v1.TicketTriage"

const (
	TicketTriage_TriageEmail_FullMethodName = "/triage.v1.TicketTriage/TriageEmail"
	TicketTriage_GetTicket_FullMethodName   = "/triage.v1.TicketTriage/GetTicket"
	TicketTriage_ListTickets_FullMethodName = "/triage.v1.TicketTriage/ListTickets"
)

type TicketTriageClient interface {
	TriageEmail(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetTicket(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListTickets(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type ticketTriageClient struct {
	cc grpc.ClientConnInterface
}

func NewTicketTriageClient(cc grpc.ClientConnInterface) TicketTriageClient {
	return &ticketTriageClient{cc}
}

func (c *ticketTriageClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ticketTriageClient) TriageEmail(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, TicketTriage_TriageEmail_FullMethodName, in, opts...)
}

func (c *ticketTriageClient) GetTicket(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, TicketTriage_GetTicket_FullMethodName, in, opts...)
}

func (c *ticketTriageClient) ListTickets(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, TicketTriage_ListTickets_FullMethodName, in, opts...)
}

// TicketTriageServer is the server API for the TicketTriage service.
// Implementations must embed UnimplementedTicketTriageServer.
type TicketTriageServer interface {
	TriageEmail(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTicket(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTickets(context.Context, *structpb.Struct) (*structpb.Struct, error)
	mustEmbedUnimplementedTicketTriageServer()
}

type UnimplementedTicketTriageServer struct{}

func (UnimplementedTicketTriageServer) TriageEmail(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method TriageEmail not implemented")
}

func (UnimplementedTicketTriageServer) GetTicket(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetTicket not implemented")
}

func (UnimplementedTicketTriageServer) ListTickets(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListTickets not implemented")
}

func (UnimplementedTicketTriageServer) mustEmbedUnimplementedTicketTriageServer() {}

func RegisterTicketTriageServer(s grpc.ServiceRegistrar, srv TicketTriageServer) {
	s.RegisterService(&TicketTriage_ServiceDesc, srv)
}

type unaryMethod func(TicketTriageServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TicketTriageServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TicketTriageServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var TicketTriage_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TicketTriage_ServiceName,
	HandlerType: (*TicketTriageServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "TriageEmail",
			Handler:    unaryHandler(TicketTriage_TriageEmail_FullMethodName, TicketTriageServer.TriageEmail),
		},
		{
			MethodName: "GetTicket",
			Handler:    unaryHandler(TicketTriage_GetTicket_FullMethodName, TicketTriageServer.GetTicket),
		},
		{
			MethodName: "ListTickets",
			Handler:    unaryHandler(TicketTriage_ListTickets_FullMethodName, TicketTriageServer.ListTickets),
		},
	},
	Streams: []grpc.StreamDesc{},
}
