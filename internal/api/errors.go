package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/samiuddin-code/datportal-sub005/internal/backend"
	"github.com/samiuddin-code/datportal-sub005/internal/conversations"
	"github.com/samiuddin-code/datportal-sub005/internal/outbox"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps a view error to a gRPC status.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.FromContextError(err).Err()
	case errors.Is(err, conversations.ErrPermissionDenied):
		return grpcstatus.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, conversations.ErrNoOpenThread),
		errors.Is(err, conversations.ErrNotMounted),
		errors.Is(err, outbox.ErrNotFailed):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, outbox.ErrBusy):
		return grpcstatus.Error(codes.Aborted, err.Error())
	case errors.Is(err, outbox.ErrEmptyMessage),
		errors.Is(err, outbox.ErrTooManyFiles),
		errors.Is(err, backend.ErrNoFiles):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, outbox.ErrUnknownSend):
		return grpcstatus.Error(codes.NotFound, err.Error())
	case errors.As(err, &apiErr):
		return grpcstatus.Error(codeForHTTP(apiErr.Status), err.Error())
	default:
		return grpcstatus.Error(codes.Unavailable, err.Error())
	}
}

func codeForHTTP(code int) codes.Code {
	switch {
	case code == http.StatusUnauthorized:
		return codes.Unauthenticated
	case code == http.StatusForbidden:
		return codes.PermissionDenied
	case code == http.StatusNotFound:
		return codes.NotFound
	case code == http.StatusConflict:
		return codes.AlreadyExists
	case code == http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case code >= 400 && code < 500:
		return codes.InvalidArgument
	default:
		return codes.Unavailable
	}
}
