package rpc

import (
	"context"
	"errors"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code maps an error kind onto a gRPC status code.
func Code(err error) codes.Code {
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return s.Code()
	}
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrInsufficientInventory):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrConflict):
		return codes.AlreadyExists
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// ToStatus converts a service error into a status error. Internal errors keep their
// message out of the response.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), Message(err))
}

// Message is the text of err that may be shown to a client. Internal errors are reduced
// to "internal error".
func Message(err error) string {
	if Code(err) == codes.Internal {
		return "internal error"
	}
	return err.Error()
}

// HTTPStatus returns the HTTP status for err, going through its gRPC code.
func HTTPStatus(err error) int {
	return runtime.HTTPStatusFromCode(Code(err))
}
