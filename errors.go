package viewsearch

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/viewsearch/auth"
)

// Status converts an engine error into a gRPC status error. Errors that
// already carry a status are returned unchanged; nil stays nil.
//
//	res, err := engine.Search(ctx, q)
//	if err != nil {
//	    return nil, viewsearch.Status(err)
//	}
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(code(err), err.Error())
}

func code(err error) codes.Code {
	switch {
	case errors.Is(err, ErrBadParameter):
		return codes.InvalidArgument
	case errors.Is(err, ErrDataSourceNotFound),
		errors.Is(err, ErrTransactionNotFound):
		return codes.NotFound
	case errors.Is(err, ErrTransactionEnded),
		errors.Is(err, ErrNoTransaction),
		errors.Is(err, ErrNoSnapshot):
		return codes.FailedPrecondition
	case errors.Is(err, auth.ErrPermissionDenied):
		return codes.PermissionDenied
	case errors.Is(err, auth.ErrUnauthenticated):
		return codes.Unauthenticated
	case errors.Is(err, ErrInternal):
		return codes.Internal
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
