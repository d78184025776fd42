package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Delivery taxonomy. The last three travel on the wire as send-error reasons.
	ErrUnauthenticated = fmt.Errorf("unauthenticated")
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrNotFriends      = fmt.Errorf("not friends")
	ErrStorageFailure  = fmt.Errorf("storage failure")

	ErrAsymmetricFriendship = fmt.Errorf("friendship is only recorded on one side")
	ErrSelfFriendship       = fmt.Errorf("a user cannot befriend itself")
	ErrChannelClosed        = fmt.Errorf("channel closed")
	ErrChannelBackpressure  = fmt.Errorf("channel buffer full")

	ErrUserAlreadyExists   = fmt.Errorf("user already exists")
	ErrInvalidCredentials  = fmt.Errorf("invalid username or password")
	ErrInvalidRegistration = fmt.Errorf("invalid registration")
	ErrInvalidPassword     = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration     = fmt.Errorf("token generation failed")
	ErrForbidden           = fmt.Errorf("forbidden")
)

// Reason is the machine-usable string carried by a send-error event.
type Reason string

const (
	ReasonUserNotFound   Reason = "UserNotFound"
	ReasonNotFriends     Reason = "NotFriends"
	ReasonStorageFailure Reason = "StorageFailure"
)

// ReasonFor reduces any pipeline failure to one of the three wire reasons.
// Lookup I/O failures are reported as StorageFailure.
func ReasonFor(err error) Reason {
	switch {
	case goerrors.Is(err, ErrUserNotFound):
		return ReasonUserNotFound
	case goerrors.Is(err, ErrNotFriends):
		return ReasonNotFriends
	default:
		return ReasonStorageFailure
	}
}

// MapToGRPCError translates domain errors into gRPC status errors.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case goerrors.Is(err, ErrUnauthenticated), goerrors.Is(err, ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	case goerrors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case goerrors.Is(err, ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case goerrors.Is(err, ErrUserAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case goerrors.Is(err, ErrInvalidRegistration), goerrors.Is(err, ErrInvalidPassword),
		goerrors.Is(err, ErrSelfFriendship):
		return status.Error(codes.InvalidArgument, err.Error())
	case goerrors.Is(err, ErrNotFriends):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// MapToHTTPStatus is the REST counterpart of MapToGRPCError.
func MapToHTTPStatus(err error) int {
	switch {
	case goerrors.Is(err, ErrUnauthenticated), goerrors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case goerrors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case goerrors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case goerrors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case goerrors.Is(err, ErrInvalidRegistration), goerrors.Is(err, ErrInvalidPassword),
		goerrors.Is(err, ErrSelfFriendship):
		return http.StatusBadRequest
	case goerrors.Is(err, ErrNotFriends):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
