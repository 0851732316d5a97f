// Package grpc exposes the StealthDetect core as a local gRPC daemon.
//
// The service is declared by hand; requests and responses are
// google.protobuf.Struct messages whose field names are listed on each
// method of AuthServiceServer.
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "stealthdetect.v1.AuthService"

// AuthServiceServer is the daemon surface.
type AuthServiceServer interface {
	// Authenticate {user_id, pin} -> {session_token}
	Authenticate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Lock {} -> {}
	Lock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Status {} -> {unlocked, opened_at}
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ListScans {} -> {scans: [...]}
	ListScans(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetReport {scan_id} -> {scan, reports, matches, snapshots}
	GetReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// RecordScan {kind, app_version, reports, matches, snapshots} -> {scan_id}
	RecordScan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// History {} -> {sessions: [{opened_at, closed_at}]}
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(AuthServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func method(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AuthServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AuthServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AuthServiceDesc describes AuthServiceServer to grpc.Server.RegisterService.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("Authenticate", AuthServiceServer.Authenticate),
		method("Lock", AuthServiceServer.Lock),
		method("Status", AuthServiceServer.Status),
		method("ListScans", AuthServiceServer.ListScans),
		method("GetReport", AuthServiceServer.GetReport),
		method("RecordScan", AuthServiceServer.RecordScan),
		method("History", AuthServiceServer.History),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stealthdetect/v1/auth_service",
}
