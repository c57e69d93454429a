package api

import (
	"errors"
	"net/http"

	"shareit/internal/domain"

	"google.golang.org/grpc/codes"
)

type errorKind struct {
	err      error
	httpCode int
	grpcCode codes.Code
}

// Order matters: the first matching kind wins.
var errorKinds = []errorKind{
	{domain.ErrUserNotFound, http.StatusNotFound, codes.NotFound},
	{domain.ErrItemNotFound, http.StatusNotFound, codes.NotFound},
	{domain.ErrBookingNotFound, http.StatusNotFound, codes.NotFound},
	{domain.ErrSelfBookingForbidden, http.StatusNotFound, codes.NotFound},
	{domain.ErrNotAvailable, http.StatusBadRequest, codes.FailedPrecondition},
	{domain.ErrInvalidStateTransition, http.StatusBadRequest, codes.FailedPrecondition},
	{domain.ErrCommentNotAllowed, http.StatusBadRequest, codes.FailedPrecondition},
	{domain.ErrInvalidInterval, http.StatusBadRequest, codes.InvalidArgument},
	{domain.ErrUnsupportedState, http.StatusBadRequest, codes.InvalidArgument},
	{domain.ErrInvalidPage, http.StatusBadRequest, codes.InvalidArgument},
	{domain.ErrValidation, http.StatusBadRequest, codes.InvalidArgument},
	{domain.ErrEmailTaken, http.StatusConflict, codes.AlreadyExists},
	{domain.ErrUserInUse, http.StatusConflict, codes.FailedPrecondition},
	{domain.ErrRateLimited, http.StatusTooManyRequests, codes.ResourceExhausted},
}

func classify(err error) (errorKind, bool) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k, true
		}
	}
	return errorKind{}, false
}

// httpStatus maps a service error to a status code and a client-facing message.
// Unknown errors become 500 without leaking their text.
func httpStatus(err error) (int, string) {
	kind, ok := classify(err)
	if !ok {
		return http.StatusInternalServerError, "internal error"
	}
	return kind.httpCode, err.Error()
}

func grpcCode(err error) codes.Code {
	kind, ok := classify(err)
	if !ok {
		return codes.Internal
	}
	return kind.grpcCode
}
