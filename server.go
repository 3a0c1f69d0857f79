package viewsearch

import (
	"context"

	"google.golang.org/grpc"

	"github.com/hugr-lab/viewsearch/auth"
	"github.com/hugr-lab/viewsearch/internal/txcontext"
)

// ServerOptions returns gRPC server options for services that call into an
// Engine. Requests are authenticated when config.Auth is set, and the
// transaction id header (x-transaction-id) is moved into the request
// context so that Engine.Search uses the caller's snapshots.
//
// Example:
//
//	config := viewsearch.Config{
//	    Catalog: views,
//	    Auth:    viewsearch.BearerAuth(validateToken),
//	}
//	grpcServer := grpc.NewServer(viewsearch.ServerOptions(config)...)
func ServerOptions(config Config) []grpc.ServerOption {
	unary := []grpc.UnaryServerInterceptor{}
	stream := []grpc.StreamServerInterceptor{}

	// Authenticate before anything reads request metadata.
	if config.Auth != nil {
		unary = append(unary, auth.UnaryServerInterceptor(config.Auth))
		stream = append(stream, auth.StreamServerInterceptor(config.Auth))
	}
	unary = append(unary, TransactionUnaryInterceptor())
	stream = append(stream, TransactionStreamInterceptor())

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}

	return opts
}

// TransactionUnaryInterceptor stores the transaction id sent in request
// metadata in the handler context.
func TransactionUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(txcontext.ExtractAndStoreTransactionID(ctx), req)
	}
}

// TransactionStreamInterceptor is the streaming form of
// TransactionUnaryInterceptor.
func TransactionStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := txcontext.ExtractAndStoreTransactionID(ss.Context())
		return handler(srv, auth.WrapServerStream(ss, ctx))
	}
}
