// Package txcontext carries transaction ids through a context.Context and
// across gRPC calls as request metadata.
package txcontext

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// TransactionIDHeader is the gRPC metadata key for the transaction id.
const TransactionIDHeader = "x-transaction-id"

type txKey struct{}

// WithTransactionID returns a new context with the transaction id stored.
func WithTransactionID(ctx context.Context, txID string) context.Context {
	return context.WithValue(ctx, txKey{}, txID)
}

// TransactionIDFromContext retrieves the transaction id if present.
// Returns ("", false) if no transaction id is set.
func TransactionIDFromContext(ctx context.Context) (string, bool) {
	txID, ok := ctx.Value(txKey{}).(string)
	return txID, ok && txID != ""
}

// ExtractTransactionID returns the transaction id of the incoming gRPC
// metadata, or "" if there is none.
func ExtractTransactionID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	ids := md.Get(TransactionIDHeader)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// ExtractAndStoreTransactionID copies the transaction id of the incoming
// metadata into the context. The context is returned unchanged when the
// metadata carries none.
func ExtractAndStoreTransactionID(ctx context.Context) context.Context {
	txID := ExtractTransactionID(ctx)
	if txID == "" {
		return ctx
	}
	return WithTransactionID(ctx, txID)
}

// AppendToOutgoing adds the context's transaction id, if any, to the
// outgoing gRPC metadata.
func AppendToOutgoing(ctx context.Context) context.Context {
	txID, ok := TransactionIDFromContext(ctx)
	if !ok {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, TransactionIDHeader, txID)
}
