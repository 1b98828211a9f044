package grpc

import (
	"errors"

	"github.com/dmitrijs2005/famtree/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var providerCodes = map[string]codes.Code{
	common.CodeEmailInUse:        codes.AlreadyExists,
	common.CodeInvalidEmail:      codes.InvalidArgument,
	common.CodeWeakPassword:      codes.InvalidArgument,
	common.CodeInvalidCredential: codes.Unauthenticated,
	common.CodeInvalidToken:      codes.Unauthenticated,
	common.CodeUnavailable:       codes.Unavailable,
}

// statusCode classifies err for the wire.
func statusCode(err error) codes.Code {
	if c, ok := providerCodes[common.ProviderCode(err)]; ok {
		return c
	}
	switch {
	case errors.Is(err, common.ErrNotAuthenticated):
		return codes.Unauthenticated
	case errors.Is(err, common.ErrAccessDenied):
		return codes.PermissionDenied
	case errors.Is(err, common.ErrSelfLoop),
		errors.Is(err, common.ErrSelfInvite),
		errors.Is(err, common.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, common.ErrDuplicatePending),
		errors.Is(err, common.ErrorAlreadyExists):
		return codes.AlreadyExists
	case errors.Is(err, common.ErrInvalidOperation),
		errors.Is(err, common.ErrPreconditionFailed):
		return codes.FailedPrecondition
	case errors.Is(err, common.ErrorNotFound):
		return codes.NotFound
	}
	return codes.Internal
}

// toStatus turns a service error into a gRPC status whose message is the
// user-facing category of the failure.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(statusCode(err), common.UserMessage(err))
}
