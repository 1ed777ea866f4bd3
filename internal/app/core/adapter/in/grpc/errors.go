package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
)

// internalMessage 非預期錯誤不回傳細節
const internalMessage = "internal error, please try again"

// toStatus 將 domain 錯誤轉為 gRPC status
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), messageOf(err))
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrAmountMustBePositive),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidDisplayName),
		errors.Is(err, domain.ErrWeakPassword):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.Is(err, domain.ErrInvalidDeposit),
		errors.Is(err, domain.ErrAccountBlocked),
		errors.Is(err, domain.ErrBalanceOverflow),
		errors.Is(err, domain.ErrIdempotencyConflict):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrNotificationNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrAccountAlreadyExists):
		return codes.AlreadyExists
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrSessionExpired):
		return codes.Unauthenticated
	case errors.Is(err, domain.ErrForbidden):
		return codes.PermissionDenied
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func messageOf(err error) string {
	if codeOf(err) == codes.Internal {
		return internalMessage
	}
	return err.Error()
}
