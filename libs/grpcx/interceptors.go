package grpcx

import (
	"context"

	"github.com/dmarkovic/hostwise/libs/httpx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// RequestIDMetadataKey carries the request id over gRPC metadata. Lowercase
// per gRPC metadata conventions.
const RequestIDMetadataKey = "x-request-id"

// UnaryClientRequestIDInterceptor forwards the HTTP request id into outgoing
// metadata so a rates lookup triggered by a booking request can be traced
// back to it. This service only consumes gRPC; it serves none.
func UnaryClientRequestIDInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if id := httpx.RequestIDFromContext(ctx); id != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, RequestIDMetadataKey, id)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
